/*
Package result contains the results of the node proxy RPC calls.
*/
package result

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BukiOffor/registry/pkg/ccd"
)

// InvokeTag is the outcome of a contract dry-run.
type InvokeTag string

// Dry-run outcomes.
const (
	InvokeSuccess InvokeTag = "success"
	InvokeFailure InvokeTag = "failure"
)

// Invoke represents a contract dry-run result. ReturnValue is nil when the
// node didn't return a value (V0 contracts or failures before the contract
// got to produce one), an empty slice means an empty return value.
type Invoke struct {
	Tag         InvokeTag
	UsedEnergy  ccd.Energy
	ReturnValue []byte
	// Reason is set for failures only.
	Reason *RejectReason
}

// Reject reason tags of contract-level rejections.
const (
	RejectedInit    = "RejectedInit"
	RejectedReceive = "RejectedReceive"
)

// RejectReason describes why the invocation failed.
type RejectReason struct {
	// Tag is the kind of the rejection, like "RejectedReceive" or
	// "OutOfEnergy".
	Tag string `json:"tag"`
	// RejectReason is the contract-provided error code for RejectedReceive
	// and RejectedInit.
	RejectReason    int32                `json:"rejectReason,omitempty"`
	ContractAddress *ccd.ContractAddress `json:"contractAddress,omitempty"`
	ReceiveName     ccd.ReceiveName      `json:"receiveName,omitempty"`
}

// Error implements the error interface.
func (r *RejectReason) Error() string {
	if r.Tag == RejectedReceive || r.Tag == RejectedInit {
		return fmt.Sprintf("%s (%d)", r.Tag, r.RejectReason)
	}
	return r.Tag
}

type invokeAux struct {
	Tag         InvokeTag     `json:"tag"`
	UsedEnergy  ccd.Energy    `json:"usedEnergy"`
	ReturnValue *string       `json:"returnValue"`
	Reason      *RejectReason `json:"reason,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface.
func (r Invoke) MarshalJSON() ([]byte, error) {
	aux := invokeAux{
		Tag:        r.Tag,
		UsedEnergy: r.UsedEnergy,
		Reason:     r.Reason,
	}
	if r.ReturnValue != nil {
		s := hex.EncodeToString(r.ReturnValue)
		aux.ReturnValue = &s
	}
	return json.Marshal(aux)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *Invoke) UnmarshalJSON(data []byte) error {
	aux := new(invokeAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	switch aux.Tag {
	case InvokeSuccess, InvokeFailure:
	default:
		return fmt.Errorf("unknown invocation result tag %q", aux.Tag)
	}
	if aux.Tag == InvokeFailure && aux.Reason == nil {
		return errors.New("failed invocation without reject reason")
	}
	*r = Invoke{
		Tag:        aux.Tag,
		UsedEnergy: aux.UsedEnergy,
		Reason:     aux.Reason,
	}
	if aux.ReturnValue != nil {
		rv, err := hex.DecodeString(*aux.ReturnValue)
		if err != nil {
			return fmt.Errorf("returnValue: %w", err)
		}
		r.ReturnValue = rv
	}
	return nil
}
