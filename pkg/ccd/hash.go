package ccd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the size of all 32-byte hashes used by the chain.
const HashSize = 32

// Hash is a generic 32-byte hash with a hex text representation.
type Hash [HashSize]byte

type (
	// ModuleReference identifies a deployed smart contract module by the
	// hash of its source.
	ModuleReference Hash
	// BlockHash identifies a block.
	BlockHash Hash
	// TransactionHash identifies a transaction (block item).
	TransactionHash Hash
)

// HashFromHex decodes a 64-character hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("expected %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// String returns the hex form of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON implements the json.Marshaler interface.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := HashFromHex(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// ModuleReferenceFromHex decodes a module reference from its hex form.
func ModuleReferenceFromHex(s string) (ModuleReference, error) {
	h, err := HashFromHex(s)
	return ModuleReference(h), err
}

// MustModuleReference is like ModuleReferenceFromHex, but panics on error. It's
// intended for package-level constants.
func MustModuleReference(s string) ModuleReference {
	r, err := ModuleReferenceFromHex(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r ModuleReference) String() string               { return Hash(r).String() }
func (r ModuleReference) MarshalJSON() ([]byte, error) { return Hash(r).MarshalJSON() }
func (r *ModuleReference) UnmarshalJSON(data []byte) error {
	return (*Hash)(r).UnmarshalJSON(data)
}

// BlockHashFromHex decodes a block hash from its hex form.
func BlockHashFromHex(s string) (BlockHash, error) {
	h, err := HashFromHex(s)
	return BlockHash(h), err
}

// MustBlockHash is like BlockHashFromHex, but panics on error.
func MustBlockHash(s string) BlockHash {
	b, err := BlockHashFromHex(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b BlockHash) String() string               { return Hash(b).String() }
func (b BlockHash) MarshalJSON() ([]byte, error) { return Hash(b).MarshalJSON() }
func (b *BlockHash) UnmarshalJSON(data []byte) error {
	return (*Hash)(b).UnmarshalJSON(data)
}

// TransactionHashFromHex decodes a transaction hash from its hex form.
func TransactionHashFromHex(s string) (TransactionHash, error) {
	h, err := HashFromHex(s)
	return TransactionHash(h), err
}

func (t TransactionHash) String() string               { return Hash(t).String() }
func (t TransactionHash) MarshalJSON() ([]byte, error) { return Hash(t).MarshalJSON() }
func (t *TransactionHash) UnmarshalJSON(data []byte) error {
	return (*Hash)(t).UnmarshalJSON(data)
}
