package ccd

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountAddressSize is the size of the raw account address.
const AccountAddressSize = 32

// accountAddressVersion is prepended to the address before base58check
// encoding.
const accountAddressVersion = 1

// ErrBadChecksum is returned when a base58check string doesn't pass checksum
// verification.
var ErrBadChecksum = errors.New("invalid address checksum")

// AccountAddress is a raw account address.
type AccountAddress [AccountAddressSize]byte

// AccountAddressFromBase58 decodes the base58check account address.
func AccountAddressFromBase58(s string) (AccountAddress, error) {
	var a AccountAddress

	b, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("base58: %w", err)
	}
	if len(b) != 1+AccountAddressSize+4 {
		return a, fmt.Errorf("invalid address length %d", len(b))
	}
	payload, sum := b[:len(b)-4], b[len(b)-4:]
	if !bytes.Equal(checksum(payload), sum) {
		return a, ErrBadChecksum
	}
	if payload[0] != accountAddressVersion {
		return a, fmt.Errorf("unexpected address version %d", payload[0])
	}
	copy(a[:], payload[1:])
	return a, nil
}

// MustAccountAddress is like AccountAddressFromBase58, but panics on error.
func MustAccountAddress(s string) AccountAddress {
	a, err := AccountAddressFromBase58(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the base58check form of the address.
func (a AccountAddress) String() string {
	payload := make([]byte, 0, 1+AccountAddressSize+4)
	payload = append(payload, accountAddressVersion)
	payload = append(payload, a[:]...)
	payload = append(payload, checksum(payload)...)
	return base58.Encode(payload)
}

// MarshalJSON implements the json.Marshaler interface.
func (a AccountAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (a *AccountAddress) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := AccountAddressFromBase58(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func checksum(b []byte) []byte {
	h1 := sha256.Sum256(b)
	h2 := sha256.Sum256(h1[:])
	return h2[:4]
}

// Address is either an account or a contract address. Exactly one of the
// fields is set.
type Address struct {
	Account  *AccountAddress  `json:"account,omitempty"`
	Contract *ContractAddress `json:"contract,omitempty"`
}

// AccountAsAddress wraps the account address into Address.
func AccountAsAddress(a AccountAddress) *Address {
	return &Address{Account: &a}
}

// ContractAsAddress wraps the contract address into Address.
func ContractAsAddress(c ContractAddress) *Address {
	return &Address{Contract: &c}
}
