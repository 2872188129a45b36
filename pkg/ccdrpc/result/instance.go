package result

import (
	"slices"

	"github.com/BukiOffor/registry/pkg/ccd"
)

// InstanceInfo is the state of a smart contract instance as reported by the
// node.
type InstanceInfo struct {
	Version      int                 `json:"version"`
	Owner        ccd.AccountAddress  `json:"owner"`
	Amount       ccd.Amount          `json:"amount"`
	Methods      []ccd.ReceiveName   `json:"methods"`
	Name         string              `json:"name"`
	SourceModule ccd.ModuleReference `json:"sourceModule"`
}

// Copy returns a deep copy of the instance info.
func (i *InstanceInfo) Copy() *InstanceInfo {
	c := *i
	c.Methods = slices.Clone(i.Methods)
	return &c
}

// ContractName returns the contract name without the "init_" prefix.
func (i *InstanceInfo) ContractName() (ccd.ContractName, error) {
	return ccd.ContractNameFromInitName(i.Name)
}

// HasMethod checks whether the instance exposes the given receive function.
func (i *InstanceInfo) HasMethod(m ccd.ReceiveName) bool {
	for _, x := range i.Methods {
		if x == m {
			return true
		}
	}
	return false
}

// ModuleSource is a versioned smart contract module. Source is base64 in
// JSON.
type ModuleSource struct {
	Version int    `json:"version"`
	Source  []byte `json:"source"`
}

// ConsensusInfo is the subset of the node consensus status the client needs.
type ConsensusInfo struct {
	GenesisBlock       ccd.BlockHash `json:"genesisBlock"`
	BestBlock          ccd.BlockHash `json:"bestBlock"`
	LastFinalizedBlock ccd.BlockHash `json:"lastFinalizedBlock"`
	BestBlockHeight    uint64        `json:"bestBlockHeight"`
}

// NextSequenceNumber is the next account nonce. AllFinal is false when there
// are non-finalized transactions of the account.
type NextSequenceNumber struct {
	Nonce    ccd.SequenceNumber `json:"nonce"`
	AllFinal bool               `json:"allFinal"`
}

// SendTransaction is the result of transaction submission.
type SendTransaction struct {
	Hash ccd.TransactionHash `json:"hash"`
}
