package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BukiOffor/registry/pkg/ccd"
)

// ExportType is the type tag of browser wallet account exports.
const ExportType = "concordium-browser-wallet-account"

// Export is the account export produced by the browser wallet (and the
// genesis tooling, which uses the same "value" layout).
type Export struct {
	Type        string      `json:"type"`
	Version     int         `json:"v"`
	Environment string      `json:"environment"`
	Value       ExportValue `json:"value"`
}

// ExportValue holds the account data.
type ExportValue struct {
	Address     ccd.AccountAddress `json:"address"`
	AccountKeys struct {
		Keys      map[string]credentialKeys `json:"keys"`
		Threshold int                       `json:"threshold"`
	} `json:"accountKeys"`
}

type credentialKeys struct {
	Keys      map[string]keyPair `json:"keys"`
	Threshold int                `json:"threshold"`
}

type keyPair struct {
	SignKey   string `json:"signKey"`
	VerifyKey string `json:"verifyKey"`
}

// LoadExport reads the wallet export file and returns the account it
// describes.
func LoadExport(path string) (*Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseExport(data)
}

// ParseExport parses the wallet export JSON.
func ParseExport(data []byte) (*Account, error) {
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("bad wallet export: %w", err)
	}
	if e.Type != "" && e.Type != ExportType {
		return nil, fmt.Errorf("unsupported export type %q", e.Type)
	}
	keys := make(map[KeyIndex]ed25519.PrivateKey)
	for credStr, cred := range e.Value.AccountKeys.Keys {
		ci, err := strconv.ParseUint(credStr, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("bad credential index %q", credStr)
		}
		for keyStr, kp := range cred.Keys {
			ki, err := strconv.ParseUint(keyStr, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("bad key index %q", keyStr)
			}
			priv, err := PrivateKeyFromHex(kp.SignKey)
			if err != nil {
				return nil, fmt.Errorf("key %s/%s: %w", credStr, keyStr, err)
			}
			if kp.VerifyKey != "" {
				pub, err := PublicKeyFromHex(kp.VerifyKey)
				if err != nil {
					return nil, fmt.Errorf("key %s/%s: %w", credStr, keyStr, err)
				}
				if !pub.Equal(priv.Public()) {
					return nil, fmt.Errorf("key %s/%s: verify key doesn't match sign key", credStr, keyStr)
				}
			}
			keys[KeyIndex{Credential: uint8(ci), Key: uint8(ki)}] = priv
		}
	}
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	return NewAccount(e.Value.Address, keys)
}

// PublicKeyFromHex decodes a hex-encoded 32-byte ed25519 public key.
func PublicKeyFromHex(s string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.New("bad public key length")
	}
	return ed25519.PublicKey(b), nil
}
