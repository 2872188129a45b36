package io

import "errors"

// ErrTooBig is returned by readers when the length prefix exceeds the
// permitted maximum.
var ErrTooBig = errors.New("length prefix is too big")

// Serializable defines the binary encoding/decoding interface. Errors are
// returned via BinReader/BinWriter Err field.
type Serializable interface {
	DecodeBinary(*BinReader)
	EncodeBinary(*BinWriter)
}

// ToByteArray serializes the given item into a byte slice.
func ToByteArray(s Serializable) ([]byte, error) {
	w := NewBufBinWriter()
	s.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// FromByteArray deserializes b into s, the whole input must be consumed.
func FromByteArray(s Serializable, b []byte) error {
	r := NewBinReaderFromBuf(b)
	s.DecodeBinary(r)
	if r.Err != nil {
		return r.Err
	}
	var extra [1]byte
	r.ReadBytes(extra[:])
	if r.Err == nil {
		return errors.New("trailing bytes after item")
	}
	return nil
}
