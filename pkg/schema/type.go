/*
Package schema implements Concordium smart contract schema types: parsing of
the binary type descriptors produced by the contract build tooling and
conversion of values between their schema JSON form and the binary form
contracts read from their parameters and write to their return values.

JSON values handled by this package are the generic ones produced by
encoding/json (map[string]any, []any, string, bool, json.Number or float64),
this allows callers to marshal their own structures to JSON and then feed
them into Encode via EncodeJSON.
*/
package schema

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// TypeTag is the first byte of every schema type.
type TypeTag byte

// Type tags as defined by the schema format.
const (
	TagUnit TypeTag = iota
	TagBool
	TagU8
	TagU16
	TagU32
	TagU64
	TagI8
	TagI16
	TagI32
	TagI64
	TagAmount
	TagAccountAddress
	TagContractAddress
	TagTimestamp
	TagDuration
	TagPair
	TagList
	TagSet
	TagMap
	TagArray
	TagStruct
	TagEnum
	TagString
	TagU128
	TagI128
	TagContractName
	TagReceiveName
	TagULeb128
	TagILeb128
	TagByteList
	TagByteArray
	TagTaggedEnum
)

var tagNames = map[TypeTag]string{
	TagUnit:            "Unit",
	TagBool:            "Bool",
	TagU8:              "U8",
	TagU16:             "U16",
	TagU32:             "U32",
	TagU64:             "U64",
	TagI8:              "I8",
	TagI16:             "I16",
	TagI32:             "I32",
	TagI64:             "I64",
	TagAmount:          "Amount",
	TagAccountAddress:  "AccountAddress",
	TagContractAddress: "ContractAddress",
	TagTimestamp:       "Timestamp",
	TagDuration:        "Duration",
	TagPair:            "Pair",
	TagList:            "List",
	TagSet:             "Set",
	TagMap:             "Map",
	TagArray:           "Array",
	TagStruct:          "Struct",
	TagEnum:            "Enum",
	TagString:          "String",
	TagU128:            "U128",
	TagI128:            "I128",
	TagContractName:    "ContractName",
	TagReceiveName:     "ReceiveName",
	TagULeb128:         "ULeb128",
	TagILeb128:         "ILeb128",
	TagByteList:        "ByteList",
	TagByteArray:       "ByteArray",
	TagTaggedEnum:      "TaggedEnum",
}

// String implements the fmt.Stringer interface.
func (t TypeTag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TypeTag(%d)", byte(t))
}

// SizeLength is the width of the length prefix of variable-size types.
type SizeLength byte

// Size length variants.
const (
	SizeU8 SizeLength = iota
	SizeU16
	SizeU32
	SizeU64
)

// FieldsKind describes the shape of struct and enum variant fields.
type FieldsKind byte

// Fields kinds.
const (
	FieldsNamed FieldsKind = iota
	FieldsUnnamed
	FieldsNone
)

// Type is a parsed schema type.
type Type struct {
	Tag TypeTag
	// Size is the length prefix for List, Set, Map, String, ByteList,
	// ContractName and ReceiveName.
	Size SizeLength
	// Len is the fixed length of Array and ByteArray.
	Len uint32
	// Elem is the element type of List, Set and Array.
	Elem *Type
	// Key and Value are the components of Pair (first/second) and Map.
	Key   *Type
	Value *Type
	// Fields of a Struct.
	Fields Fields
	// Variants of an Enum.
	Variants []Variant
}

// Fields describes struct or enum variant fields.
type Fields struct {
	Kind    FieldsKind
	Named   []NamedField
	Unnamed []Type
}

// NamedField is a struct field with a name.
type NamedField struct {
	Name string
	Type Type
}

// Variant is an enum variant.
type Variant struct {
	Name   string
	Fields Fields
}

// Errors returned by the parser and codec.
var (
	ErrUnexpectedEOF   = errors.New("unexpected end of data")
	ErrTrailingBytes   = errors.New("trailing bytes after value")
	ErrUnsupportedType = errors.New("unsupported schema type")
	ErrInvalidUTF8     = errors.New("invalid UTF-8 string")
)

// maxCount limits collection sizes read from descriptors and values so that
// broken data can't make us allocate gigabytes.
const maxCount = 1 << 20

// ParseBase64 parses the base64-encoded schema type.
func ParseBase64(s string) (Type, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Type{}, fmt.Errorf("base64: %w", err)
	}
	return Parse(b)
}

// MustParseBase64 is like ParseBase64, but panics on error. It's intended for
// package-level schema constants.
func MustParseBase64(s string) Type {
	t, err := ParseBase64(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse parses the binary schema type, the whole input must be consumed.
func Parse(b []byte) (Type, error) {
	r := &reader{buf: b}
	t := r.readType()
	if r.err != nil {
		return Type{}, r.err
	}
	if r.pos != len(r.buf) {
		return Type{}, ErrTrailingBytes
	}
	return t, nil
}

type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.pos < n {
		r.err = ErrUnexpectedEOF
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() byte {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) count(n uint64) int {
	if r.err == nil && n > maxCount {
		r.err = fmt.Errorf("collection size %d is too big", n)
	}
	if r.err != nil {
		return 0
	}
	return int(n)
}

// schemaString reads u32-prefixed UTF-8 strings used for names in descriptors.
func (r *reader) schemaString() string {
	n := r.count(uint64(r.u32()))
	b := r.next(n)
	if r.err == nil && !utf8.Valid(b) {
		r.err = errors.New("invalid UTF-8 name")
	}
	return string(b)
}

func (r *reader) sizeLength() SizeLength {
	s := SizeLength(r.u8())
	if r.err == nil && s > SizeU64 {
		r.err = fmt.Errorf("invalid size length %d", s)
	}
	return s
}

func (r *reader) readType() Type {
	t := Type{Tag: TypeTag(r.u8())}
	if r.err != nil {
		return t
	}
	switch t.Tag {
	case TagUnit, TagBool, TagU8, TagU16, TagU32, TagU64, TagI8, TagI16, TagI32, TagI64,
		TagAmount, TagAccountAddress, TagContractAddress, TagTimestamp, TagDuration,
		TagU128, TagI128:
	case TagPair:
		k, v := r.readType(), r.readType()
		t.Key, t.Value = &k, &v
	case TagList, TagSet:
		t.Size = r.sizeLength()
		e := r.readType()
		t.Elem = &e
	case TagMap:
		t.Size = r.sizeLength()
		k, v := r.readType(), r.readType()
		t.Key, t.Value = &k, &v
	case TagArray:
		t.Len = r.u32()
		e := r.readType()
		t.Elem = &e
	case TagStruct:
		t.Fields = r.readFields()
	case TagEnum:
		n := r.count(uint64(r.u32()))
		for i := 0; i < n && r.err == nil; i++ {
			name := r.schemaString()
			t.Variants = append(t.Variants, Variant{Name: name, Fields: r.readFields()})
		}
	case TagString, TagContractName, TagReceiveName, TagByteList:
		t.Size = r.sizeLength()
	case TagByteArray:
		t.Len = r.u32()
	default:
		r.err = fmt.Errorf("%w: %s", ErrUnsupportedType, t.Tag)
	}
	return t
}

func (r *reader) readFields() Fields {
	f := Fields{Kind: FieldsKind(r.u8())}
	if r.err != nil {
		return f
	}
	switch f.Kind {
	case FieldsNamed:
		n := r.count(uint64(r.u32()))
		for i := 0; i < n && r.err == nil; i++ {
			name := r.schemaString()
			f.Named = append(f.Named, NamedField{Name: name, Type: r.readType()})
		}
	case FieldsUnnamed:
		n := r.count(uint64(r.u32()))
		for i := 0; i < n && r.err == nil; i++ {
			f.Unnamed = append(f.Unnamed, r.readType())
		}
	case FieldsNone:
	default:
		r.err = fmt.Errorf("invalid fields kind %d", f.Kind)
	}
	return f
}

// VariantIndex returns the index of the enum variant with the given name.
func (t Type) VariantIndex(name string) (int, bool) {
	for i := range t.Variants {
		if t.Variants[i].Name == name {
			return i, true
		}
	}
	return 0, false
}
