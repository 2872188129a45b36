package ccd

import (
	"errors"
	"fmt"
	"strings"
)

// MaxParameterSize is the maximum size of the smart contract parameter.
const MaxParameterSize = 65535

// ContractAddress is the address of a smart contract instance.
type ContractAddress struct {
	Index    uint64 `json:"index"`
	Subindex uint64 `json:"subindex"`
}

// ContractAddressSchemaValue is the representation of ContractAddress the
// schema codec expects.
type ContractAddressSchemaValue struct {
	Index    uint64 `json:"index"`
	Subindex uint64 `json:"subindex"`
}

// NewContractAddress creates a contract address with the given index and
// subindex.
func NewContractAddress(index, subindex uint64) ContractAddress {
	return ContractAddress{Index: index, Subindex: subindex}
}

// String implements the fmt.Stringer interface.
func (c ContractAddress) String() string {
	return fmt.Sprintf("<%d, %d>", c.Index, c.Subindex)
}

// ToSchemaValue converts the address into its schema JSON value.
func (c ContractAddress) ToSchemaValue() ContractAddressSchemaValue {
	return ContractAddressSchemaValue(c)
}

// ContractAddressFromSchemaValue is the inverse of ToSchemaValue.
func ContractAddressFromSchemaValue(v ContractAddressSchemaValue) ContractAddress {
	return ContractAddress(v)
}

// ContractName is the name of a smart contract without the "init_" prefix.
type ContractName string

const initPrefix = "init_"

// ContractNameFromInitName strips the "init_" prefix from the on-chain init
// function name.
func ContractNameFromInitName(s string) (ContractName, error) {
	if !strings.HasPrefix(s, initPrefix) {
		return "", fmt.Errorf("%q is not an init name", s)
	}
	return ContractName(strings.TrimPrefix(s, initPrefix)), nil
}

// InitName returns the on-chain name of the init function.
func (n ContractName) InitName() string {
	return initPrefix + string(n)
}

// EntrypointName is the name of a receive function of a contract.
type EntrypointName string

// ReceiveName is the fully qualified "<contract>.<entrypoint>" name.
type ReceiveName string

// NewReceiveName combines the contract and entrypoint names.
func NewReceiveName(c ContractName, e EntrypointName) ReceiveName {
	return ReceiveName(string(c) + "." + string(e))
}

// Parameter is the serialized smart contract parameter.
type Parameter []byte

// ErrParameterTooBig is returned for parameters exceeding MaxParameterSize.
var ErrParameterTooBig = errors.New("parameter exceeds maximum size")

// NewParameter checks the size of the given bytes and returns them as a
// Parameter.
func NewParameter(b []byte) (Parameter, error) {
	if len(b) > MaxParameterSize {
		return nil, ErrParameterTooBig
	}
	return Parameter(b), nil
}

// EmptyParameter is the empty (zero-length) parameter.
func EmptyParameter() Parameter {
	return Parameter{}
}
