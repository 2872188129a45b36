/*
Package transaction implements Concordium account transactions carrying
contract payloads: their binary form, signing digest, hash and energy cost.
*/
package transaction

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/io"
)

const (
	// HeaderSize is the size of the serialized transaction header.
	HeaderSize = ccd.AccountAddressSize + 8 + 8 + 4 + 8

	// Energy cost coefficients, per signature and per byte of the
	// transaction body.
	energyPerSignature = 100
	energyPerByte      = 1

	// MaxPayloadSize is the largest payload the client builds.
	MaxPayloadSize = 100 * 1024

	blockItemVersion       = 0
	accountTransactionKind = 0
)

// ErrNotSigned is returned when serializing transactions without signatures.
var ErrNotSigned = errors.New("transaction is not signed")

// Header is the account transaction header.
type Header struct {
	Sender      ccd.AccountAddress
	Nonce       ccd.SequenceNumber
	Energy      ccd.Energy
	PayloadSize uint32
	Expiry      ccd.TransactionExpiry
}

// EncodeBinary implements the io.Serializable interface.
func (h *Header) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(h.Sender[:])
	w.WriteU64BE(uint64(h.Nonce))
	w.WriteU64BE(uint64(h.Energy))
	w.WriteU32BE(h.PayloadSize)
	w.WriteU64BE(uint64(h.Expiry))
}

// DecodeBinary implements the io.Serializable interface.
func (h *Header) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(h.Sender[:])
	h.Nonce = ccd.SequenceNumber(r.ReadU64BE())
	h.Energy = ccd.Energy(r.ReadU64BE())
	h.PayloadSize = r.ReadU32BE()
	h.Expiry = ccd.TransactionExpiry(r.ReadU64BE())
}

// Signatures maps credential index to key index to signature.
type Signatures map[uint8]map[uint8][]byte

// Count returns the total number of signatures.
func (s Signatures) Count() int {
	var n int
	for _, keys := range s {
		n += len(keys)
	}
	return n
}

func sortedKeys[V any](m map[uint8]V) []uint8 {
	res := make([]uint8, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// EncodeBinary implements the io.Serializable interface, indexes are written
// in ascending order.
func (s Signatures) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(len(s)))
	for _, cred := range sortedKeys(s) {
		w.WriteB(cred)
		keys := s[cred]
		w.WriteB(byte(len(keys)))
		for _, k := range sortedKeys(keys) {
			w.WriteB(k)
			w.WriteVarBytes16(keys[k])
		}
	}
}

func decodeSignatures(r *io.BinReader) Signatures {
	s := make(Signatures)
	n := int(r.ReadB())
	for i := 0; i < n && r.Err == nil; i++ {
		cred := r.ReadB()
		m := int(r.ReadB())
		keys := make(map[uint8][]byte, m)
		for j := 0; j < m && r.Err == nil; j++ {
			k := r.ReadB()
			keys[k] = r.ReadVarBytes16()
		}
		s[cred] = keys
	}
	return s
}

// AccountTransaction is an account transaction with its signatures.
type AccountTransaction struct {
	Header     Header
	Payload    Payload
	Signatures Signatures

	payload []byte
}

// New creates an unsigned transaction with the header filled in. Energy is
// the full transaction energy, see EnergyCost.
func New(sender ccd.AccountAddress, nonce ccd.SequenceNumber, expiry ccd.TransactionExpiry, energy ccd.Energy, p Payload) (*AccountTransaction, error) {
	b, err := io.ToByteArray(p)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	if len(b) > MaxPayloadSize {
		return nil, fmt.Errorf("payload of %d bytes is too big", len(b))
	}
	return &AccountTransaction{
		Header: Header{
			Sender:      sender,
			Nonce:       nonce,
			Energy:      energy,
			PayloadSize: uint32(len(b)),
			Expiry:      expiry,
		},
		Payload: p,
		payload: b,
	}, nil
}

// EnergyCost returns the energy to be put into the header of a transaction
// with the given number of signatures, payload size and contract execution
// energy.
func EnergyCost(signatures int, payloadSize uint32, contract ccd.Energy) ccd.Energy {
	return ccd.Energy(energyPerSignature*uint64(signatures)) +
		ccd.Energy(energyPerByte*(HeaderSize+uint64(payloadSize))) +
		contract
}

// PayloadBytes returns the serialized payload.
func (t *AccountTransaction) PayloadBytes() []byte {
	return t.payload
}

func (t *AccountTransaction) body() []byte {
	w := io.NewBufBinWriter()
	t.Header.EncodeBinary(w.BinWriter)
	w.WriteBytes(t.payload)
	return w.Bytes()
}

// SignDigest returns the hash the sender signs: SHA-256 of the header
// followed by the payload.
func (t *AccountTransaction) SignDigest() [32]byte {
	return sha256.Sum256(t.body())
}

// Bytes returns the versioned block item the node accepts.
func (t *AccountTransaction) Bytes() ([]byte, error) {
	if t.Signatures.Count() == 0 {
		return nil, ErrNotSigned
	}
	w := io.NewBufBinWriter()
	w.WriteB(blockItemVersion)
	w.WriteB(accountTransactionKind)
	t.Signatures.EncodeBinary(w.BinWriter)
	w.WriteBytes(t.body())
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// Hash returns the transaction hash, SHA-256 of the block item without the
// version byte.
func (t *AccountTransaction) Hash() (ccd.TransactionHash, error) {
	b, err := t.Bytes()
	if err != nil {
		return ccd.TransactionHash{}, err
	}
	return ccd.TransactionHash(sha256.Sum256(b[1:])), nil
}

// NewFromBytes decodes a versioned block item created by Bytes.
func NewFromBytes(b []byte) (*AccountTransaction, error) {
	r := io.NewBinReaderFromBuf(b)
	if v := r.ReadB(); r.Err == nil && v != blockItemVersion {
		return nil, fmt.Errorf("unsupported block item version %d", v)
	}
	if k := r.ReadB(); r.Err == nil && k != accountTransactionKind {
		return nil, fmt.Errorf("unsupported block item kind %d", k)
	}
	t := new(AccountTransaction)
	t.Signatures = decodeSignatures(r)
	t.Header.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	t.payload = make([]byte, t.Header.PayloadSize)
	r.ReadBytes(t.payload)
	if r.Err != nil {
		return nil, r.Err
	}
	var extra [1]byte
	if r.ReadBytes(extra[:]); r.Err == nil {
		return nil, errors.New("trailing bytes after transaction")
	}
	p, err := decodePayload(t.payload)
	if err != nil {
		return nil, err
	}
	t.Payload = p
	return t, nil
}
