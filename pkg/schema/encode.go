package schema

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/BukiOffor/registry/pkg/ccd"
)

// EncodeJSON marshals v to JSON and then encodes the result with Encode. It
// allows to use ordinary Go structures with json tags as schema values.
// Strings in v must be valid UTF-8, encoding/json would silently replace
// invalid bytes otherwise.
func EncodeJSON(t Type, v any) ([]byte, error) {
	if err := checkUTF8(reflect.ValueOf(v), "$"); err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return Encode(t, generic)
}

func checkUTF8(v reflect.Value, path string) error {
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return &ValueError{Path: path, Type: TagString, Err: ErrInvalidUTF8}
		}
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			return checkUTF8(v.Elem(), path)
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				if err := checkUTF8(v.Field(i), path+"."+v.Type().Field(i).Name); err != nil {
					return err
				}
			}
		}
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkUTF8(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			p := fmt.Sprintf("%s[%v]", path, iter.Key())
			if err := checkUTF8(iter.Key(), p); err != nil {
				return err
			}
			if err := checkUTF8(iter.Value(), p); err != nil {
				return err
			}
		}
	}
	return nil
}

// Encode serializes the generic JSON value according to the schema type.
func Encode(t Type, v any) ([]byte, error) {
	w := new(bytes.Buffer)
	if err := encodeValue(w, t, v, "$"); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// ValueError describes a value that doesn't match its schema type.
type ValueError struct {
	Path string
	Type TypeTag
	Err  error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Type, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

func valueErr(path string, t TypeTag, format string, args ...any) error {
	return &ValueError{Path: path, Type: t, Err: fmt.Errorf(format, args...)}
}

func encodeValue(w *bytes.Buffer, t Type, v any, path string) error {
	switch t.Tag {
	case TagUnit:
		if v != nil {
			if a, ok := v.([]any); !ok || len(a) != 0 {
				return valueErr(path, t.Tag, "expected [] or null")
			}
		}
	case TagBool:
		b, ok := v.(bool)
		if !ok {
			return valueErr(path, t.Tag, "expected bool, got %T", v)
		}
		if b {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
	case TagU8, TagU16, TagU32, TagU64, TagAmount:
		bits := map[TypeTag]int{TagU8: 8, TagU16: 16, TagU32: 32, TagU64: 64, TagAmount: 64}[t.Tag]
		n, err := toUint(v, bits)
		if err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		writeUint(w, n, bits/8)
	case TagI8, TagI16, TagI32, TagI64:
		bits := map[TypeTag]int{TagI8: 8, TagI16: 16, TagI32: 32, TagI64: 64}[t.Tag]
		n, err := toInt(v, bits)
		if err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		writeUint(w, uint64(n), bits/8)
	case TagU128, TagI128:
		n, err := toBig(v)
		if err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		b, err := big128(n, t.Tag == TagI128)
		if err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		w.Write(b)
	case TagAccountAddress:
		s, ok := v.(string)
		if !ok {
			return valueErr(path, t.Tag, "expected string, got %T", v)
		}
		addr, err := ccd.AccountAddressFromBase58(s)
		if err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		w.Write(addr[:])
	case TagContractAddress:
		m, ok := v.(map[string]any)
		if !ok {
			return valueErr(path, t.Tag, "expected object, got %T", v)
		}
		idx, err := toUint(m["index"], 64)
		if err != nil {
			return valueErr(path, t.Tag, "index: %w", err)
		}
		sub, err := toUint(m["subindex"], 64)
		if err != nil {
			return valueErr(path, t.Tag, "subindex: %w", err)
		}
		writeUint(w, idx, 8)
		writeUint(w, sub, 8)
	case TagTimestamp:
		var (
			ms  uint64
			err error
		)
		if s, ok := v.(string); ok {
			var ts ccd.Timestamp
			ts, err = ccd.TimestampFromSchemaValue(s)
			ms = uint64(ts)
		} else {
			ms, err = toUint(v, 64)
		}
		if err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		writeUint(w, ms, 8)
	case TagDuration:
		s, ok := v.(string)
		if !ok {
			return valueErr(path, t.Tag, "expected duration string, got %T", v)
		}
		ms, err := parseDuration(s)
		if err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		writeUint(w, ms, 8)
	case TagPair:
		a, ok := v.([]any)
		if !ok || len(a) != 2 {
			return valueErr(path, t.Tag, "expected two-element array")
		}
		if err := encodeValue(w, *t.Key, a[0], path+"[0]"); err != nil {
			return err
		}
		return encodeValue(w, *t.Value, a[1], path+"[1]")
	case TagList, TagSet:
		a, ok := v.([]any)
		if !ok {
			return valueErr(path, t.Tag, "expected array, got %T", v)
		}
		if err := writeSize(w, t.Size, len(a)); err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		for i := range a {
			if err := encodeValue(w, *t.Elem, a[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case TagMap:
		a, ok := v.([]any)
		if !ok {
			return valueErr(path, t.Tag, "expected array of pairs, got %T", v)
		}
		if err := writeSize(w, t.Size, len(a)); err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		for i := range a {
			kv, ok := a[i].([]any)
			if !ok || len(kv) != 2 {
				return valueErr(fmt.Sprintf("%s[%d]", path, i), t.Tag, "expected [key, value]")
			}
			if err := encodeValue(w, *t.Key, kv[0], fmt.Sprintf("%s[%d].key", path, i)); err != nil {
				return err
			}
			if err := encodeValue(w, *t.Value, kv[1], fmt.Sprintf("%s[%d].value", path, i)); err != nil {
				return err
			}
		}
	case TagArray:
		a, ok := v.([]any)
		if !ok {
			return valueErr(path, t.Tag, "expected array, got %T", v)
		}
		if len(a) != int(t.Len) {
			return valueErr(path, t.Tag, "expected %d elements, got %d", t.Len, len(a))
		}
		for i := range a {
			if err := encodeValue(w, *t.Elem, a[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case TagStruct:
		return encodeFields(w, t.Fields, v, path)
	case TagEnum:
		m, ok := v.(map[string]any)
		if !ok || len(m) != 1 {
			return valueErr(path, t.Tag, "expected object with a single variant")
		}
		for name, fields := range m {
			idx, ok := t.VariantIndex(name)
			if !ok {
				return valueErr(path, t.Tag, "unknown variant %q", name)
			}
			writeVariantIndex(w, len(t.Variants), idx)
			return encodeFields(w, t.Variants[idx].Fields, fields, path+"."+name)
		}
	case TagString:
		s, ok := v.(string)
		if !ok {
			return valueErr(path, t.Tag, "expected string, got %T", v)
		}
		if !utf8.ValidString(s) {
			return &ValueError{Path: path, Type: t.Tag, Err: ErrInvalidUTF8}
		}
		if err := writeSize(w, t.Size, len(s)); err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		w.WriteString(s)
	case TagContractName:
		m, ok := v.(map[string]any)
		if !ok {
			return valueErr(path, t.Tag, "expected object, got %T", v)
		}
		name, ok := m["contract"].(string)
		if !ok {
			return valueErr(path, t.Tag, "missing contract name")
		}
		name = "init_" + name
		if err := writeSize(w, t.Size, len(name)); err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		w.WriteString(name)
	case TagReceiveName:
		m, ok := v.(map[string]any)
		if !ok {
			return valueErr(path, t.Tag, "expected object, got %T", v)
		}
		c, ok1 := m["contract"].(string)
		f, ok2 := m["func"].(string)
		if !ok1 || !ok2 {
			return valueErr(path, t.Tag, "expected contract and func names")
		}
		name := c + "." + f
		if err := writeSize(w, t.Size, len(name)); err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		w.WriteString(name)
	case TagByteList, TagByteArray:
		s, ok := v.(string)
		if !ok {
			return valueErr(path, t.Tag, "expected hex string, got %T", v)
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		if t.Tag == TagByteArray {
			if len(b) != int(t.Len) {
				return valueErr(path, t.Tag, "expected %d bytes, got %d", t.Len, len(b))
			}
		} else if err := writeSize(w, t.Size, len(b)); err != nil {
			return &ValueError{Path: path, Type: t.Tag, Err: err}
		}
		w.Write(b)
	default:
		return valueErr(path, t.Tag, "%w", ErrUnsupportedType)
	}
	return nil
}

func encodeFields(w *bytes.Buffer, f Fields, v any, path string) error {
	switch f.Kind {
	case FieldsNamed:
		m, ok := v.(map[string]any)
		if !ok {
			return valueErr(path, TagStruct, "expected object, got %T", v)
		}
		if len(m) != len(f.Named) {
			return valueErr(path, TagStruct, "expected %d fields, got %d", len(f.Named), len(m))
		}
		for _, nf := range f.Named {
			fv, ok := m[nf.Name]
			if !ok {
				return valueErr(path, TagStruct, "missing field %q", nf.Name)
			}
			if err := encodeValue(w, nf.Type, fv, path+"."+nf.Name); err != nil {
				return err
			}
		}
	case FieldsUnnamed:
		a, ok := v.([]any)
		if !ok || len(a) != len(f.Unnamed) {
			return valueErr(path, TagStruct, "expected %d-element array", len(f.Unnamed))
		}
		for i := range a {
			if err := encodeValue(w, f.Unnamed[i], a[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case FieldsNone:
		if v != nil {
			if a, ok := v.([]any); !ok || len(a) != 0 {
				return valueErr(path, TagStruct, "expected no fields")
			}
		}
	}
	return nil
}

func writeUint(w *bytes.Buffer, n uint64, size int) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	w.Write(b[:size])
}

func writeSize(w *bytes.Buffer, s SizeLength, n int) error {
	var limit uint64
	switch s {
	case SizeU8:
		limit = math.MaxUint8
	case SizeU16:
		limit = math.MaxUint16
	case SizeU32:
		limit = math.MaxUint32
	default:
		limit = math.MaxUint64
	}
	if uint64(n) > limit {
		return fmt.Errorf("length %d doesn't fit into the size prefix", n)
	}
	writeUint(w, uint64(n), 1<<s)
	return nil
}

func writeVariantIndex(w *bytes.Buffer, total, idx int) {
	switch {
	case total <= 1<<8:
		w.WriteByte(byte(idx))
	case total <= 1<<16:
		writeUint(w, uint64(idx), 2)
	default:
		writeUint(w, uint64(idx), 4)
	}
}

var errNotInteger = errors.New("not an integer")

func numberString(v any) (string, error) {
	switch n := v.(type) {
	case json.Number:
		return n.String(), nil
	case string:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return "", errNotInteger
		}
		return strconv.FormatFloat(n, 'f', 0, 64), nil
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	case uint32:
		return strconv.FormatUint(uint64(n), 10), nil
	default:
		return "", fmt.Errorf("expected number, got %T", v)
	}
}

func toUint(v any, bits int) (uint64, error) {
	s, err := numberString(v)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(s, 10, bits)
}

func toInt(v any, bits int) (int64, error) {
	s, err := numberString(v)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, bits)
}

func toBig(v any) (*big.Int, error) {
	s, err := numberString(v)
	if err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errNotInteger
	}
	return n, nil
}

var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

// big128 serializes n as a 16-byte little-endian (two's complement for
// signed) integer.
func big128(n *big.Int, signed bool) ([]byte, error) {
	v := new(big.Int).Set(n)
	if signed {
		limit := new(big.Int).Lsh(big.NewInt(1), 127)
		if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, errors.New("value out of I128 range")
		}
		if v.Sign() < 0 {
			v.Add(v, two128)
		}
	} else if v.Sign() < 0 || v.Cmp(two128) >= 0 {
		return nil, errors.New("value out of U128 range")
	}
	be := v.FillBytes(make([]byte, 16))
	for i, j := 0, len(be)-1; i < j; i, j = i+1, j-1 {
		be[i], be[j] = be[j], be[i]
	}
	return be, nil
}

var durationUnits = map[string]uint64{
	"ms": 1,
	"s":  1000,
	"m":  60 * 1000,
	"h":  60 * 60 * 1000,
	"d":  24 * 60 * 60 * 1000,
}

// parseDuration parses durations like "1d 2h 3m 4s 5ms" into milliseconds.
func parseDuration(s string) (uint64, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return 0, errors.New("empty duration")
	}
	var total uint64
	for _, p := range parts {
		i := strings.IndexFunc(p, func(r rune) bool { return r < '0' || r > '9' })
		if i <= 0 {
			return 0, fmt.Errorf("invalid duration component %q", p)
		}
		mul, ok := durationUnits[p[i:]]
		if !ok {
			return 0, fmt.Errorf("unknown duration unit in %q", p)
		}
		n, err := strconv.ParseUint(p[:i], 10, 64)
		if err != nil {
			return 0, err
		}
		total += n * mul
	}
	return total, nil
}

func formatDuration(ms uint64) string {
	if ms == 0 {
		return "0ms"
	}
	var parts []string
	for _, u := range []string{"d", "h", "m", "s", "ms"} {
		mul := durationUnits[u]
		if ms >= mul {
			parts = append(parts, strconv.FormatUint(ms/mul, 10)+u)
			ms %= mul
		}
	}
	return strings.Join(parts, " ")
}
