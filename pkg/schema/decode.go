package schema

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/BukiOffor/registry/pkg/ccd"
)

// Decode deserializes b according to the schema type into a generic JSON
// value. The whole input must be consumed.
func Decode(t Type, b []byte) (any, error) {
	r := &reader{buf: b}
	v := r.decodeValue(t)
	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(r.buf) {
		return nil, ErrTrailingBytes
	}
	return v, nil
}

// DecodeJSON decodes b and unmarshals the resulting JSON value into out.
func DecodeJSON(t Type, b []byte, out any) error {
	v, err := Decode(t, b)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (r *reader) size(s SizeLength) int {
	switch s {
	case SizeU8:
		return int(r.u8())
	case SizeU16:
		return int(r.u16())
	case SizeU32:
		return r.count(uint64(r.u32()))
	default:
		return r.count(r.u64())
	}
}

func (r *reader) decodeValue(t Type) any {
	if r.err != nil {
		return nil
	}
	switch t.Tag {
	case TagUnit:
		return []any{}
	case TagBool:
		switch r.u8() {
		case 0:
			return false
		case 1:
			return true
		default:
			r.fail(errors.New("invalid bool value"))
			return nil
		}
	case TagU8:
		return uintNumber(uint64(r.u8()))
	case TagU16:
		return uintNumber(uint64(r.u16()))
	case TagU32:
		return uintNumber(uint64(r.u32()))
	case TagU64:
		return uintNumber(r.u64())
	case TagI8:
		return intNumber(int64(int8(r.u8())))
	case TagI16:
		return intNumber(int64(int16(r.u16())))
	case TagI32:
		return intNumber(int64(int32(r.u32())))
	case TagI64:
		return intNumber(int64(r.u64()))
	case TagAmount:
		return strconv.FormatUint(r.u64(), 10)
	case TagU128, TagI128:
		b := r.next(16)
		if b == nil {
			return nil
		}
		be := make([]byte, 16)
		for i := range b {
			be[15-i] = b[i]
		}
		n := new(big.Int).SetBytes(be)
		if t.Tag == TagI128 && be[0]&0x80 != 0 {
			n.Sub(n, two128)
		}
		return n.String()
	case TagAccountAddress:
		b := r.next(ccd.AccountAddressSize)
		if b == nil {
			return nil
		}
		var a ccd.AccountAddress
		copy(a[:], b)
		return a.String()
	case TagContractAddress:
		idx, sub := r.u64(), r.u64()
		return map[string]any{
			"index":    uintNumber(idx),
			"subindex": uintNumber(sub),
		}
	case TagTimestamp:
		ts := ccd.Timestamp(r.u64())
		if s, ok := ts.RFC3339(); ok {
			return s
		}
		return uintNumber(uint64(ts))
	case TagDuration:
		return formatDuration(r.u64())
	case TagPair:
		a := r.decodeValue(*t.Key)
		b := r.decodeValue(*t.Value)
		return []any{a, b}
	case TagList, TagSet:
		n := r.size(t.Size)
		res := make([]any, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			res = append(res, r.decodeValue(*t.Elem))
		}
		return res
	case TagMap:
		n := r.size(t.Size)
		res := make([]any, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			k := r.decodeValue(*t.Key)
			v := r.decodeValue(*t.Value)
			res = append(res, []any{k, v})
		}
		return res
	case TagArray:
		n := r.count(uint64(t.Len))
		res := make([]any, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			res = append(res, r.decodeValue(*t.Elem))
		}
		return res
	case TagStruct:
		return r.decodeFields(t.Fields)
	case TagEnum:
		idx := r.variantIndex(len(t.Variants))
		if r.err != nil {
			return nil
		}
		if idx >= len(t.Variants) {
			r.fail(fmt.Errorf("variant index %d out of range", idx))
			return nil
		}
		v := t.Variants[idx]
		return map[string]any{v.Name: r.decodeFields(v.Fields)}
	case TagString:
		b := r.next(r.size(t.Size))
		if r.err == nil && !utf8.Valid(b) {
			r.fail(ErrInvalidUTF8)
		}
		return string(b)
	case TagContractName:
		s := string(r.next(r.size(t.Size)))
		if r.err == nil && !strings.HasPrefix(s, "init_") {
			r.fail(fmt.Errorf("invalid contract name %q", s))
		}
		return map[string]any{"contract": strings.TrimPrefix(s, "init_")}
	case TagReceiveName:
		s := string(r.next(r.size(t.Size)))
		c, f, ok := strings.Cut(s, ".")
		if r.err == nil && !ok {
			r.fail(fmt.Errorf("invalid receive name %q", s))
		}
		return map[string]any{"contract": c, "func": f}
	case TagByteList:
		return hex.EncodeToString(r.next(r.size(t.Size)))
	case TagByteArray:
		return hex.EncodeToString(r.next(r.count(uint64(t.Len))))
	default:
		r.fail(fmt.Errorf("%w: %s", ErrUnsupportedType, t.Tag))
		return nil
	}
}

func (r *reader) decodeFields(f Fields) any {
	switch f.Kind {
	case FieldsNamed:
		res := make(map[string]any, len(f.Named))
		for _, nf := range f.Named {
			res[nf.Name] = r.decodeValue(nf.Type)
		}
		return res
	case FieldsUnnamed:
		res := make([]any, 0, len(f.Unnamed))
		for i := range f.Unnamed {
			res = append(res, r.decodeValue(f.Unnamed[i]))
		}
		return res
	default:
		return []any{}
	}
}

func (r *reader) variantIndex(total int) int {
	switch {
	case total <= 1<<8:
		return int(r.u8())
	case total <= 1<<16:
		return int(r.u16())
	default:
		return r.count(uint64(r.u32()))
	}
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func uintNumber(n uint64) json.Number {
	return json.Number(strconv.FormatUint(n, 10))
}

func intNumber(n int64) json.Number {
	return json.Number(strconv.FormatInt(n, 10))
}
