/*
Package invoker provides a convenient wrapper to perform contract dry-runs
via RPC client.

This layer builds on top of the basic RPC client and simplifies performing
dry-runs with the same invoker (and at the same block, if needed). It doesn't
do anything with the results of invocations, that's left for the upper
(contract) layer.
*/
package invoker

import (
	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
)

// RPCInvoke is a set of RPC methods needed to dry-run contracts at the last
// finalized block.
type RPCInvoke interface {
	InvokeInstance(req ccdrpc.InvokeInstanceRequest) (*result.Invoke, error)
}

// RPCInvokeHistoric is a set of RPC methods needed to dry-run contracts at
// some fixed point in chain's life.
type RPCInvokeHistoric interface {
	InvokeInstanceAtBlock(block ccd.BlockHash, req ccdrpc.InvokeInstanceRequest) (*result.Invoke, error)
}

// Invoker allows to dry-run contract updates using RPC client. Its API
// simplifies reusing the same invoker address for a series of invocations.
// Invoker does not produce any transactions and does not change the state of
// the chain.
type Invoker struct {
	client  RPCInvoke
	invoker *ccd.Address
}

type historicConverter struct {
	client RPCInvokeHistoric
	block  *ccd.BlockHash
}

// New creates an Invoker to dry-run things at the last finalized block. The
// invoker address can be nil, then the node picks the contract owner.
func New(client RPCInvoke, invoker *ccd.Address) *Invoker {
	return &Invoker{client, invoker}
}

// NewHistoricAtBlock creates an Invoker to dry-run things at some given block.
func NewHistoricAtBlock(block ccd.BlockHash, client RPCInvokeHistoric, invoker *ccd.Address) *Invoker {
	return New(&historicConverter{
		client: client,
		block:  &block,
	}, invoker)
}

func (h *historicConverter) InvokeInstance(req ccdrpc.InvokeInstanceRequest) (*result.Invoke, error) {
	if h.block != nil {
		return h.client.InvokeInstanceAtBlock(*h.block, req)
	}
	panic("uninitialized historicConverter")
}

// Invoker returns the invoker address used for dry-runs (nil if it's not
// set).
func (v *Invoker) Invoker() *ccd.Address {
	return v.invoker
}

// Call dry-runs the given receive function of the contract with the given
// parameter, no CCD is transferred and energy is limited by the node.
func (v *Invoker) Call(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter) (*result.Invoke, error) {
	return v.CallWithMetadata(contract, method, param, ccd.ContractInvokeMetadata{})
}

// CallWithMetadata is similar to Call, but allows to specify the amount
// transferred, the energy limit and to override the invoker.
func (v *Invoker) CallWithMetadata(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, md ccd.ContractInvokeMetadata) (*result.Invoke, error) {
	inv := md.Invoker
	if inv == nil {
		inv = v.invoker
	}
	if param == nil {
		param = ccd.EmptyParameter()
	}
	return v.client.InvokeInstance(ccdrpc.InvokeInstanceRequest{
		Instance:  contract,
		Amount:    md.Amount,
		Invoker:   inv,
		Method:    method,
		Parameter: param,
		Energy:    md.Energy,
	})
}
