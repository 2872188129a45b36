package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/transaction"
)

// Signer signs account transactions on behalf of a single account.
type Signer interface {
	// Address is the account the transactions are sent from.
	Address() ccd.AccountAddress
	// SignatureCount is the number of signatures Sign produces, it's needed
	// to estimate transaction energy before signing.
	SignatureCount() int
	// Sign signs the transaction digest.
	Sign(digest []byte) (transaction.Signatures, error)
}

// ErrNoKeys is returned for accounts without signing keys.
var ErrNoKeys = errors.New("no signing keys")

// KeyIndex identifies a key of an account credential.
type KeyIndex struct {
	Credential uint8
	Key        uint8
}

// Account is an account with a set of ed25519 signing keys. It implements
// Signer.
type Account struct {
	address ccd.AccountAddress
	keys    map[KeyIndex]ed25519.PrivateKey
}

// NewAccount creates an account from the given keys.
func NewAccount(addr ccd.AccountAddress, keys map[KeyIndex]ed25519.PrivateKey) (*Account, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	return &Account{address: addr, keys: keys}, nil
}

// NewBasicSigner creates a signer for the account with a single key
// (credential 0, key 0) given as hex-encoded 32-byte ed25519 seed.
func NewBasicSigner(addr ccd.AccountAddress, hexKey string) (*Account, error) {
	key, err := PrivateKeyFromHex(hexKey)
	if err != nil {
		return nil, err
	}
	return NewAccount(addr, map[KeyIndex]ed25519.PrivateKey{{}: key})
}

// PrivateKeyFromHex decodes a hex-encoded ed25519 seed (or a full 64-byte
// private key).
func PrivateKeyFromHex(s string) (ed25519.PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad key: %w", err)
	}
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	default:
		return nil, fmt.Errorf("bad key length %d", len(b))
	}
}

// Address implements the Signer interface.
func (a *Account) Address() ccd.AccountAddress {
	return a.address
}

// SignatureCount implements the Signer interface.
func (a *Account) SignatureCount() int {
	return len(a.keys)
}

// Sign implements the Signer interface.
func (a *Account) Sign(digest []byte) (transaction.Signatures, error) {
	sigs := make(transaction.Signatures)
	for idx, k := range a.keys {
		if sigs[idx.Credential] == nil {
			sigs[idx.Credential] = make(map[uint8][]byte)
		}
		sigs[idx.Credential][idx.Key] = ed25519.Sign(k, digest)
	}
	return sigs, nil
}

// PrivateKey returns the key with the given index, it's used to sign data
// other than transactions (like registry messages).
func (a *Account) PrivateKey(idx KeyIndex) (ed25519.PrivateKey, bool) {
	k, ok := a.keys[idx]
	return k, ok
}

// PublicKey returns the public key for the given index.
func (a *Account) PublicKey(idx KeyIndex) (ed25519.PublicKey, bool) {
	k, ok := a.keys[idx]
	if !ok {
		return nil, false
	}
	return k.Public().(ed25519.PublicKey), true
}
