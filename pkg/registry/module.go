package registry

import (
	"errors"
	"fmt"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
)

// ErrNoActor is returned by Module methods creating transactions when the
// module has no actor.
var ErrNoActor = errors.New("module has no actor")

// RPCModule is used by Module to get the module source.
type RPCModule interface {
	GetModuleSource(ref ccd.ModuleReference) (*result.ModuleSource, error)
}

// ModuleActor is used by Module to create instantiation transactions.
type ModuleActor interface {
	Sender() ccd.AccountAddress
	SendInit(module ccd.ModuleReference, name ccd.ContractName, param ccd.Parameter, amount ccd.Amount, energy ccd.Energy) (ccd.TransactionHash, error)
}

// Module is the client of the module containing the registry contract.
type Module struct {
	rpc   RPCModule
	actor ModuleActor
}

// NewModuleUnchecked creates a Module without checking that the module
// exists. The actor can be nil if no instantiation is needed.
func NewModuleUnchecked(rpc RPCModule, actor ModuleActor) *Module {
	return &Module{rpc: rpc, actor: actor}
}

// NewModule creates a Module and checks that the module is deployed.
func NewModule(rpc RPCModule, actor ModuleActor) (*Module, error) {
	m := NewModuleUnchecked(rpc, actor)
	if err := m.CheckOnChain(); err != nil {
		return nil, err
	}
	return m, nil
}

// CheckOnChain checks that ModuleReference is deployed.
func (m *Module) CheckOnChain() error {
	_, err := m.GetModuleSource()
	return err
}

// GetModuleSource returns the versioned module source.
func (m *Module) GetModuleSource() (*result.ModuleSource, error) {
	src, err := m.rpc.GetModuleSource(ModuleReference)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", ModuleReference, err)
	}
	return src, nil
}

// InstantiateRegistry sends a transaction creating a new registry instance.
// The contract takes no parameter, so nil is fine for param. Metadata sender
// (if set) must be the actor account.
func (m *Module) InstantiateRegistry(md ccd.ContractTransactionMetadata, param ccd.Parameter) (ccd.TransactionHash, error) {
	if m.actor == nil {
		return ccd.TransactionHash{}, ErrNoActor
	}
	if md.SenderAddress != (ccd.AccountAddress{}) && md.SenderAddress != m.actor.Sender() {
		return ccd.TransactionHash{}, fmt.Errorf("metadata sender %s is not %s", md.SenderAddress, m.actor.Sender())
	}
	return m.actor.SendInit(ModuleReference, ContractName, param, md.Amount, md.Energy)
}
