package io

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// BinWriter is a convenient wrapper around an io.Writer and err object.
// Used to simplify error handling when writing into an io.Writer
// from a struct with many fields. Concordium encodes transactions in
// big-endian, so that's the default here.
type BinWriter struct {
	w   io.Writer
	Err error
	uv  [8]byte
}

// NewBinWriterFromIO makes a BinWriter from io.Writer.
func NewBinWriterFromIO(iow io.Writer) *BinWriter {
	return &BinWriter{w: iow}
}

// WriteU64BE writes a uint64 value into the underlying io.Writer in
// big-endian format.
func (w *BinWriter) WriteU64BE(u64 uint64) {
	binary.BigEndian.PutUint64(w.uv[:8], u64)
	w.WriteBytes(w.uv[:8])
}

// WriteU32BE writes a uint32 value into the underlying io.Writer in
// big-endian format.
func (w *BinWriter) WriteU32BE(u32 uint32) {
	binary.BigEndian.PutUint32(w.uv[:4], u32)
	w.WriteBytes(w.uv[:4])
}

// WriteU16BE writes a uint16 value into the underlying io.Writer in
// big-endian format.
func (w *BinWriter) WriteU16BE(u16 uint16) {
	binary.BigEndian.PutUint16(w.uv[:2], u16)
	w.WriteBytes(w.uv[:2])
}

// WriteU64LE writes a uint64 value in little-endian format, contracts use it
// for their own data.
func (w *BinWriter) WriteU64LE(u64 uint64) {
	binary.LittleEndian.PutUint64(w.uv[:8], u64)
	w.WriteBytes(w.uv[:8])
}

// WriteB writes a byte into the underlying io.Writer.
func (w *BinWriter) WriteB(u8 byte) {
	w.uv[0] = u8
	w.WriteBytes(w.uv[:1])
}

// WriteBytes writes a variable byte into the underlying io.Writer without prefix.
func (w *BinWriter) WriteBytes(b []byte) {
	if w.Err != nil {
		return
	}
	_, w.Err = w.w.Write(b)
}

// WriteVarBytes16 writes b prefixed with its u16 big-endian length.
func (w *BinWriter) WriteVarBytes16(b []byte) {
	if w.Err != nil {
		return
	}
	if len(b) > math.MaxUint16 {
		w.Err = fmt.Errorf("%d bytes don't fit into u16 length", len(b))
		return
	}
	w.WriteU16BE(uint16(len(b)))
	w.WriteBytes(b)
}

// WriteVarBytes32 writes b prefixed with its u32 big-endian length.
func (w *BinWriter) WriteVarBytes32(b []byte) {
	if w.Err != nil {
		return
	}
	if uint64(len(b)) > math.MaxUint32 {
		w.Err = fmt.Errorf("%d bytes don't fit into u32 length", len(b))
		return
	}
	w.WriteU32BE(uint32(len(b)))
	w.WriteBytes(b)
}

// WriteString16 writes s prefixed with its u16 big-endian length.
func (w *BinWriter) WriteString16(s string) {
	w.WriteVarBytes16([]byte(s))
}
