/*
Package registry provides RPC wrappers for the registry smart contract.

The contract maps ".ccd" tags to the public key, contract address and provider
name of their owner. Registrations are authorized by an ed25519 signature over
the message (see MessageHash), so anyone can submit a properly signed
registration on behalf of the key holder.

ContractReader is used to dry-run entrypoints, Contract adds methods creating
and sending update transactions. Module wraps the contract module itself and
allows to instantiate new registries.
*/
package registry

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/schema"
	"github.com/BukiOffor/registry/pkg/transaction"
)

// ModuleReference is the reference of the smart contract module containing
// the registry contract.
var ModuleReference = ccd.MustModuleReference("9199cb2d2b9c0b041c7533c507e0fec441f1d95777d5d00f7f59a337a79720bd")

// ContractName is the name of the contract in the module.
const ContractName ccd.ContractName = "registry"

// Contract entrypoints.
const (
	GetParamHashEntrypoint ccd.EntrypointName = "get_param_hash"
	RegisterEntrypoint     ccd.EntrypointName = "register"
	GetKeyEntrypoint       ccd.EntrypointName = "get_key"
	GetTagEntrypoint       ccd.EntrypointName = "get_tag"
)

const (
	getParamHashParameterSchema   = "FAADAAAAAwAAAHRhZxYCBAAAAGRhdGEUAAMAAAAKAAAAcHVibGljX2tleR4gAAAAEAAAAGNvbnRyYWN0X2FkZHJlc3MMCAAAAHByb3ZpZGVyFgILAAAAZXhwaXJ5X3RpbWUN"
	getParamHashReturnValueSchema = "EyAAAAAC"
	registerParameterSchema       = "FAADAAAABgAAAHNpZ25lch4gAAAACQAAAHNpZ25hdHVyZR5AAAAABwAAAG1lc3NhZ2UUAAMAAAADAAAAdGFnFgIEAAAAZGF0YRQAAwAAAAoAAABwdWJsaWNfa2V5HiAAAAAQAAAAY29udHJhY3RfYWRkcmVzcwwIAAAAcHJvdmlkZXIWAgsAAABleHBpcnlfdGltZQ0="
	getKeyParameterSchema         = "FgI="
	getTagParameterSchema         = "HiAAAAA="
	errorSchema                   = "FQsAAAALAAAAUGFyc2VQYXJhbXMCDgAAAFdyb25nU2lnbmF0dXJlAg0AAABOb25jZU1pc21hdGNoAgcAAABFeHBpcmVkAg8AAABXcm9uZ0VudHJ5UG9pbnQCDAAAAFVuQXV0aG9yaXplZAIIAAAAT3ZlcmZsb3cCEAAAAFRhZ0FscmVhZHlFeGlzdHMCDwAAAFRhZ0RvZXNOb3RFeGlzdAIPAAAAS2V5RG9lc05vdEV4aXN0AhYAAABQdWJsaWNLZXlBbHJlYWR5RXhpc3RzAg=="
)

// Raw parameter schemas, as passed to browser wallets.
var (
	getParamHashParameterSchemaBytes = mustDecodeSchema(getParamHashParameterSchema)
	registerParameterSchemaBytes     = mustDecodeSchema(registerParameterSchema)
	getKeyParameterSchemaBytes       = mustDecodeSchema(getKeyParameterSchema)
	getTagParameterSchemaBytes       = mustDecodeSchema(getTagParameterSchema)
)

var (
	getParamHashParameterType   = schema.MustParseBase64(getParamHashParameterSchema)
	getParamHashReturnValueType = schema.MustParseBase64(getParamHashReturnValueSchema)
	registerParameterType       = schema.MustParseBase64(registerParameterSchema)
	getKeyParameterType         = schema.MustParseBase64(getKeyParameterSchema)
	getTagParameterType         = schema.MustParseBase64(getTagParameterSchema)
	errorType                   = schema.MustParseBase64(errorSchema)
)

func mustDecodeSchema(b64 string) []byte {
	b, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		panic(err)
	}
	return b
}

// ErrInstanceMismatch is returned by CheckOnChain when the instance at the
// given address is not a registry contract from ModuleReference.
var ErrInstanceMismatch = errors.New("instance is not a registry contract")

// Invoker is used by ContractReader to dry-run entrypoints.
type Invoker interface {
	CallWithMetadata(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, md ccd.ContractInvokeMetadata) (*result.Invoke, error)
}

// Actor is used by Contract to create and send update transactions.
type Actor interface {
	Invoker

	MakeUpdate(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, md ccd.ContractTransactionMetadata) (*transaction.AccountTransaction, error)
	SendUpdate(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, md ccd.ContractTransactionMetadata) (ccd.TransactionHash, error)
}

// RPCInstance is used by CheckOnChain to get the contract instance state.
type RPCInstance interface {
	GetInstanceInfo(addr ccd.ContractAddress) (*result.InstanceInfo, error)
	GetInstanceInfoAtBlock(block ccd.BlockHash, addr ccd.ContractAddress) (*result.InstanceInfo, error)
}

// ContractReader implements dry-runs of all contract entrypoints. Use an
// invoker created with invoker.NewHistoricAtBlock to dry-run against some
// past state.
type ContractReader struct {
	invoker Invoker
	address ccd.ContractAddress
}

// Contract provides the full registry interface, both dry-runs and
// transactions.
type Contract struct {
	ContractReader

	actor Actor
}

// NewReader creates an instance of ContractReader for the contract at the
// given address using the given Invoker.
func NewReader(invoker Invoker, address ccd.ContractAddress) *ContractReader {
	return &ContractReader{invoker, address}
}

// New creates an instance of Contract for the contract at the given address
// using the given Actor. The instance is not checked, see NewChecked.
func New(actor Actor, address ccd.ContractAddress) *Contract {
	return &Contract{ContractReader{actor, address}, actor}
}

// NewChecked is the same as New, but it first ensures (via CheckOnChain) that
// the address is a registry instance created from ModuleReference. A nil
// block means the latest state.
func NewChecked(rpc RPCInstance, actor Actor, address ccd.ContractAddress, block *ccd.BlockHash) (*Contract, error) {
	if err := CheckOnChain(rpc, address, block); err != nil {
		return nil, err
	}
	return New(actor, address), nil
}

// CheckOnChain checks that the contract instance at the given address exists
// (at the given block or the latest one if nil), that it's created from
// ModuleReference and that its name is ContractName.
func CheckOnChain(rpc RPCInstance, address ccd.ContractAddress, block *ccd.BlockHash) error {
	var (
		info *result.InstanceInfo
		err  error
	)
	if block != nil {
		info, err = rpc.GetInstanceInfoAtBlock(*block, address)
	} else {
		info, err = rpc.GetInstanceInfo(address)
	}
	if err != nil {
		return fmt.Errorf("failed to get instance %s: %w", address, err)
	}
	if info.SourceModule != ModuleReference {
		return fmt.Errorf("%w: module %s, expected %s", ErrInstanceMismatch, info.SourceModule, ModuleReference)
	}
	name, err := info.ContractName()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInstanceMismatch, err)
	}
	if name != ContractName {
		return fmt.Errorf("%w: contract %q, expected %q", ErrInstanceMismatch, name, ContractName)
	}
	return nil
}

// Address returns the contract instance address.
func (c *ContractReader) Address() ccd.ContractAddress {
	return c.address
}

func receiveName(ep ccd.EntrypointName) ccd.ReceiveName {
	return ccd.NewReceiveName(ContractName, ep)
}

func (c *ContractReader) dryRun(ep ccd.EntrypointName, param ccd.Parameter, err error, md ccd.ContractInvokeMetadata) (*result.Invoke, error) {
	if err != nil {
		return nil, err
	}
	return c.invoker.CallWithMetadata(c.address, receiveName(ep), param, md)
}

// DryRunGetParamHash simulates get_param_hash invocation, its return value
// can be decoded with ParseReturnValueGetParamHash.
func (c *ContractReader) DryRunGetParamHash(p GetParamHashParameter, md ccd.ContractInvokeMetadata) (*result.Invoke, error) {
	param, err := NewGetParamHashParameter(p)
	return c.dryRun(GetParamHashEntrypoint, param, err, md)
}

// DryRunRegister simulates register invocation.
func (c *ContractReader) DryRunRegister(p RegisterParameter, md ccd.ContractInvokeMetadata) (*result.Invoke, error) {
	param, err := NewRegisterParameter(p)
	return c.dryRun(RegisterEntrypoint, param, err, md)
}

// DryRunGetKey simulates get_key invocation for the given tag.
func (c *ContractReader) DryRunGetKey(p GetKeyParameter, md ccd.ContractInvokeMetadata) (*result.Invoke, error) {
	param, err := NewGetKeyParameter(p)
	return c.dryRun(GetKeyEntrypoint, param, err, md)
}

// DryRunGetTag simulates get_tag invocation for the given public key.
func (c *ContractReader) DryRunGetTag(p GetTagParameter, md ccd.ContractInvokeMetadata) (*result.Invoke, error) {
	param, err := NewGetTagParameter(p)
	return c.dryRun(GetTagEntrypoint, param, err, md)
}

// GetParamHash dry-runs get_param_hash and returns the message hash computed
// by the contract.
func (c *ContractReader) GetParamHash(p GetParamHashParameter) ([32]byte, error) {
	return ParseReturnValueGetParamHash(c.DryRunGetParamHash(p, ccd.ContractInvokeMetadata{}))
}

func (c *Contract) send(ep ccd.EntrypointName, param ccd.Parameter, err error, md ccd.ContractTransactionMetadata) (ccd.TransactionHash, error) {
	if err != nil {
		return ccd.TransactionHash{}, err
	}
	return c.actor.SendUpdate(c.address, receiveName(ep), param, md)
}

func (c *Contract) make(ep ccd.EntrypointName, param ccd.Parameter, err error, md ccd.ContractTransactionMetadata) (*transaction.AccountTransaction, error) {
	if err != nil {
		return nil, err
	}
	return c.actor.MakeUpdate(c.address, receiveName(ep), param, md)
}

// SendGetParamHash creates a transaction invoking get_param_hash, signs it and
// sends it to the network. Metadata defines the energy and amount used.
func (c *Contract) SendGetParamHash(md ccd.ContractTransactionMetadata, p GetParamHashParameter) (ccd.TransactionHash, error) {
	param, err := NewGetParamHashParameter(p)
	return c.send(GetParamHashEntrypoint, param, err, md)
}

// GetParamHashTransaction creates a signed transaction invoking
// get_param_hash without sending it.
func (c *Contract) GetParamHashTransaction(md ccd.ContractTransactionMetadata, p GetParamHashParameter) (*transaction.AccountTransaction, error) {
	param, err := NewGetParamHashParameter(p)
	return c.make(GetParamHashEntrypoint, param, err, md)
}

// Register creates a transaction registering the tag from the parameter,
// signs it and sends it to the network.
func (c *Contract) Register(md ccd.ContractTransactionMetadata, p RegisterParameter) (ccd.TransactionHash, error) {
	param, err := NewRegisterParameter(p)
	return c.send(RegisterEntrypoint, param, err, md)
}

// RegisterTransaction creates a signed register transaction without sending
// it.
func (c *Contract) RegisterTransaction(md ccd.ContractTransactionMetadata, p RegisterParameter) (*transaction.AccountTransaction, error) {
	param, err := NewRegisterParameter(p)
	return c.make(RegisterEntrypoint, param, err, md)
}

// SendGetKey creates a transaction invoking get_key, signs and sends it.
func (c *Contract) SendGetKey(md ccd.ContractTransactionMetadata, p GetKeyParameter) (ccd.TransactionHash, error) {
	param, err := NewGetKeyParameter(p)
	return c.send(GetKeyEntrypoint, param, err, md)
}

// GetKeyTransaction creates a signed transaction invoking get_key.
func (c *Contract) GetKeyTransaction(md ccd.ContractTransactionMetadata, p GetKeyParameter) (*transaction.AccountTransaction, error) {
	param, err := NewGetKeyParameter(p)
	return c.make(GetKeyEntrypoint, param, err, md)
}

// SendGetTag creates a transaction invoking get_tag, signs and sends it.
func (c *Contract) SendGetTag(md ccd.ContractTransactionMetadata, p GetTagParameter) (ccd.TransactionHash, error) {
	param, err := NewGetTagParameter(p)
	return c.send(GetTagEntrypoint, param, err, md)
}

// GetTagTransaction creates a signed transaction invoking get_tag.
func (c *Contract) GetTagTransaction(md ccd.ContractTransactionMetadata, p GetTagParameter) (*transaction.AccountTransaction, error) {
	param, err := NewGetTagParameter(p)
	return c.make(GetTagEntrypoint, param, err, md)
}
