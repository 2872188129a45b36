package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/rpcclient/unwrap"
	"github.com/BukiOffor/registry/pkg/schema"
)

// ErrorKind is the error the contract rejects with.
type ErrorKind byte

// Contract errors, in the order of their serialization tags.
const (
	ParseParams ErrorKind = iota
	WrongSignature
	NonceMismatch
	Expired
	WrongEntryPoint
	UnAuthorized
	Overflow
	TagAlreadyExists
	TagDoesNotExist
	KeyDoesNotExist
	PublicKeyAlreadyExists
)

// ErrUnexpectedVariant is returned when the contract error can't be decoded
// into one of the known kinds. It means the deployed contract doesn't match
// this package.
var ErrUnexpectedVariant = errors.New("unexpected enum variant")

var errorKindNames = [...]string{
	ParseParams:            "ParseParams",
	WrongSignature:         "WrongSignature",
	NonceMismatch:          "NonceMismatch",
	Expired:                "Expired",
	WrongEntryPoint:        "WrongEntryPoint",
	UnAuthorized:           "UnAuthorized",
	Overflow:               "Overflow",
	TagAlreadyExists:       "TagAlreadyExists",
	TagDoesNotExist:        "TagDoesNotExist",
	KeyDoesNotExist:        "KeyDoesNotExist",
	PublicKeyAlreadyExists: "PublicKeyAlreadyExists",
}

// String implements the fmt.Stringer interface.
func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", byte(k))
}

// Code returns the reject reason the contract uses for this kind (-1 for
// ParseParams, -2 for WrongSignature and so on).
func (k ErrorKind) Code() int32 {
	return -int32(k) - 1
}

// ErrorKindFromString returns the kind with the given variant name.
func ErrorKindFromString(s string) (ErrorKind, error) {
	switch s {
	case "ParseParams":
		return ParseParams, nil
	case "WrongSignature":
		return WrongSignature, nil
	case "NonceMismatch":
		return NonceMismatch, nil
	case "Expired":
		return Expired, nil
	case "WrongEntryPoint":
		return WrongEntryPoint, nil
	case "UnAuthorized":
		return UnAuthorized, nil
	case "Overflow":
		return Overflow, nil
	case "TagAlreadyExists":
		return TagAlreadyExists, nil
	case "TagDoesNotExist":
		return TagDoesNotExist, nil
	case "KeyDoesNotExist":
		return KeyDoesNotExist, nil
	case "PublicKeyAlreadyExists":
		return PublicKeyAlreadyExists, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnexpectedVariant, s)
	}
}

// MarshalJSON implements the json.Marshaler interface.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	if int(k) >= len(errorKindNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedVariant, byte(k))
	}
	return json.Marshal(k.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (k *ErrorKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ErrorKindFromString(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ErrorMessage is the decoded error of a rejected invocation.
type ErrorMessage struct {
	Kind ErrorKind `json:"type"`
}

// Error implements the error interface.
func (e *ErrorMessage) Error() string {
	return "registry: " + e.Kind.String()
}

// ParseErrorMessage decodes the contract error from a failed invocation
// result. It returns nil with no error when the result is not a rejection by
// the contract (successful invocation or some other failure like running out
// of energy). ErrMissingReturnValue and ErrUnexpectedVariant mean the
// contract is not the one this package is made for.
func ParseErrorMessage(r *result.Invoke) (*ErrorMessage, error) {
	if r == nil || r.Tag != result.InvokeFailure || r.Reason == nil || r.Reason.Tag != result.RejectedReceive {
		return nil, nil
	}
	if r.ReturnValue == nil {
		return nil, unwrap.ErrMissingReturnValue
	}
	v, err := schema.Decode(errorType, r.ReturnValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedVariant, err)
	}
	variants, ok := v.(map[string]any)
	if !ok || len(variants) != 1 {
		return nil, ErrUnexpectedVariant
	}
	for name := range variants {
		kind, err := ErrorKindFromString(name)
		if err != nil {
			return nil, err
		}
		return &ErrorMessage{Kind: kind}, nil
	}
	return nil, ErrUnexpectedVariant
}

// ParseReturnValueGetParamHash decodes the get_param_hash dry-run result.
func ParseReturnValueGetParamHash(r *result.Invoke, err error) ([32]byte, error) {
	var h [32]byte
	err = unwrap.Schema(getParamHashReturnValueType, &h, r, err)
	return h, err
}
