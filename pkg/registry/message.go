package registry

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/BukiOffor/registry/pkg/ccd"
)

// TagSuffix is appended by the contract to the tags not having it.
const TagSuffix = ".ccd"

// TestnetGenesisHash is the genesis block of the testnet, the contract uses
// it in message hashes.
var TestnetGenesisHash = ccd.MustBlockHash("4221332d34e1694168c2a0c0b3fd0f273809612cb13d000d5c2e00e85f50f796")

// ErrSignerMismatch is returned when the signing key is not the one from
// the message data.
var ErrSignerMismatch = errors.New("signer key doesn't match message public key")

// NormalizeTag returns the tag the contract stores for the given one.
func NormalizeTag(tag string) string {
	if strings.HasSuffix(tag, TagSuffix) {
		return tag
	}
	return tag + TagSuffix
}

// MessageHash returns the hash signed for registrations: SHA-256 of the
// genesis block hash, the contract index and subindex (little-endian) and
// the serialized message. The tag is hashed as is, without normalization.
func MessageHash(m Message, contract ccd.ContractAddress, genesis ccd.BlockHash) ([32]byte, error) {
	msg, err := NewGetParamHashParameter(m)
	if err != nil {
		return [32]byte{}, err
	}
	var prefix [ccd.HashSize + 16]byte
	copy(prefix[:], genesis[:])
	binary.LittleEndian.PutUint64(prefix[ccd.HashSize:], contract.Index)
	binary.LittleEndian.PutUint64(prefix[ccd.HashSize+8:], contract.Subindex)

	h := sha256.New()
	h.Write(prefix[:])
	h.Write(msg)
	var res [32]byte
	copy(res[:], h.Sum(nil))
	return res, nil
}

// SignRegisterMessage creates a register parameter for the message signed
// with the given key. An empty message public key is set to the key's public
// part, any other value must match it.
func SignRegisterMessage(key ed25519.PrivateKey, m Message, contract ccd.ContractAddress, genesis ccd.BlockHash) (RegisterParameter, error) {
	pub := hex.EncodeToString(key.Public().(ed25519.PublicKey))
	switch {
	case m.Data.PublicKey == "":
		m.Data.PublicKey = pub
	case !strings.EqualFold(m.Data.PublicKey, pub):
		return RegisterParameter{}, fmt.Errorf("%w: %s", ErrSignerMismatch, m.Data.PublicKey)
	}
	h, err := MessageHash(m, contract, genesis)
	if err != nil {
		return RegisterParameter{}, err
	}
	return RegisterParameter{
		Signer:    pub,
		Signature: hex.EncodeToString(ed25519.Sign(key, h[:])),
		Message:   m,
	}, nil
}

// VerifyRegisterParameter checks the parameter signature the same way the
// contract does.
func VerifyRegisterParameter(p RegisterParameter, contract ccd.ContractAddress, genesis ccd.BlockHash) error {
	if !strings.EqualFold(p.Signer, p.Message.Data.PublicKey) {
		return ErrSignerMismatch
	}
	pub, err := hex.DecodeString(p.Signer)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("bad signer key %q", p.Signer)
	}
	sig, err := hex.DecodeString(p.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("bad signature %q", p.Signature)
	}
	h, err := MessageHash(p.Message, contract, genesis)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, h[:], sig) {
		return errors.New("invalid signature")
	}
	return nil
}
