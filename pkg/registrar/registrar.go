/*
Package registrar implements tag registration and lookup against a deployed
registry contract on behalf of a single sender account.
*/
package registrar

import (
	"encoding/json"
	"fmt"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/registry"
	"go.uber.org/zap"
)

// UndefinedMessage is the outcome message used when the failure can't be
// attributed to a contract error.
const UndefinedMessage = "undefined"

// Actor is the subset of actor.Actor needed by Registrar.
type Actor interface {
	registry.Actor

	Sender() ccd.AccountAddress
	EnergyMargin() ccd.Energy
}

// Outcome is the result of Register. Status is false if the dry-run failed,
// Message is the JSON-encoded contract error name then (or UndefinedMessage).
type Outcome struct {
	Status  bool                 `json:"status"`
	Message string               `json:"message,omitempty"`
	TxHash  *ccd.TransactionHash `json:"txHash,omitempty"`
	Energy  ccd.Energy           `json:"energy,omitempty"`
}

// Registrar works with a single registry instance.
type Registrar struct {
	contract *registry.Contract
	actor    Actor
	log      *zap.Logger
}

// New creates a Registrar for the contract at the given address. A nil
// logger disables logging.
func New(a Actor, addr ccd.ContractAddress, log *zap.Logger) *Registrar {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registrar{
		contract: registry.New(a, addr),
		actor:    a,
		log:      log.With(zap.Stringer("contract", addr)),
	}
}

// Contract returns the registry binding used.
func (r *Registrar) Contract() *registry.Contract {
	return r.contract
}

func (r *Registrar) invokeMetadata() ccd.ContractInvokeMetadata {
	return ccd.ContractInvokeMetadata{Invoker: ccd.AccountAsAddress(r.actor.Sender())}
}

// Register dry-runs the registration and if it succeeds sends it with the
// energy used plus the actor energy margin. A failed dry-run is not an error,
// it's reported in the Outcome and nothing is sent. Errors are returned for
// RPC failures and for results that don't match the contract interface.
func (r *Registrar) Register(p registry.RegisterParameter) (*Outcome, error) {
	res, err := r.contract.DryRunRegister(p, r.invokeMetadata())
	if err != nil {
		return nil, err
	}
	if res == nil || res.Tag != result.InvokeSuccess || res.ReturnValue == nil {
		msg, err := failureMessage(res)
		if err != nil {
			return nil, err
		}
		r.log.Info("registration rejected",
			zap.String("tag", p.Message.Tag),
			zap.String("reason", msg))
		return &Outcome{Status: false, Message: msg}, nil
	}

	energy := res.UsedEnergy + r.actor.EnergyMargin()
	h, err := r.contract.Register(ccd.ContractTransactionMetadata{
		Amount:        ccd.ZeroAmount,
		SenderAddress: r.actor.Sender(),
		Energy:        energy,
	}, p)
	if err != nil {
		return nil, fmt.Errorf("failed to send registration: %w", err)
	}
	r.log.Info("registration sent",
		zap.String("tag", registry.NormalizeTag(p.Message.Tag)),
		zap.Stringer("tx", h),
		zap.Uint64("energy", uint64(energy)))
	return &Outcome{Status: true, TxHash: &h, Energy: energy}, nil
}

func failureMessage(res *result.Invoke) (string, error) {
	em, err := registry.ParseErrorMessage(res)
	if err != nil {
		return "", err
	}
	if em == nil {
		return UndefinedMessage, nil
	}
	b, err := json.Marshal(em.Kind)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetKey dry-runs get_key for the given tag.
func (r *Registrar) GetKey(tag registry.GetKeyParameter) (*result.Invoke, error) {
	res, err := r.contract.DryRunGetKey(tag, r.invokeMetadata())
	if err == nil && res != nil {
		r.log.Debug("get_key", zap.String("tag", tag), zap.String("result", string(res.Tag)))
	}
	return res, err
}

// GetTag dry-runs get_tag for the given hex-encoded public key.
func (r *Registrar) GetTag(key registry.GetTagParameter) (*result.Invoke, error) {
	res, err := r.contract.DryRunGetTag(key, r.invokeMetadata())
	if err == nil && res != nil {
		r.log.Debug("get_tag", zap.String("key", key), zap.String("result", string(res.Tag)))
	}
	return res, err
}

// ParamHash returns the message hash computed by the contract.
func (r *Registrar) ParamHash(m registry.Message) ([32]byte, error) {
	return registry.ParseReturnValueGetParamHash(r.contract.DryRunGetParamHash(m, r.invokeMetadata()))
}
