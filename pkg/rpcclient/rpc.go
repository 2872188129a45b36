package rpcclient

import (
	"encoding/hex"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/transaction"
)

type instanceKey struct {
	addr  ccd.ContractAddress
	block ccd.BlockHash
}

// GetConsensusInfo returns the current consensus status of the node.
func (c *Client) GetConsensusInfo() (*result.ConsensusInfo, error) {
	var resp = new(result.ConsensusInfo)
	if err := c.performRequest(ccdrpc.GetConsensusInfoMethod, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetInstanceInfo returns the contract instance state at the last finalized
// block.
func (c *Client) GetInstanceInfo(addr ccd.ContractAddress) (*result.InstanceInfo, error) {
	return c.getInstanceInfo([]any{addr})
}

// GetInstanceInfoAtBlock returns the contract instance state at the given
// block. These results are cached.
func (c *Client) GetInstanceInfoAtBlock(block ccd.BlockHash, addr ccd.ContractAddress) (*result.InstanceInfo, error) {
	key := instanceKey{addr: addr, block: block}
	if v, ok := c.instances.Get(key); ok {
		instanceCacheHits.Inc()
		return v.(*result.InstanceInfo).Copy(), nil
	}
	info, err := c.getInstanceInfo([]any{addr, block})
	if err != nil {
		return nil, err
	}
	c.instances.Add(key, info.Copy())
	return info, nil
}

func (c *Client) getInstanceInfo(params []any) (*result.InstanceInfo, error) {
	var resp = new(result.InstanceInfo)
	if err := c.performRequest(ccdrpc.GetInstanceInfoMethod, params, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetModuleSource returns the source of the deployed module at the last
// finalized block.
func (c *Client) GetModuleSource(ref ccd.ModuleReference) (*result.ModuleSource, error) {
	return c.getModuleSource([]any{ref})
}

// GetModuleSourceAtBlock returns the source of the module deployed at the
// given block.
func (c *Client) GetModuleSourceAtBlock(block ccd.BlockHash, ref ccd.ModuleReference) (*result.ModuleSource, error) {
	return c.getModuleSource([]any{ref, block})
}

func (c *Client) getModuleSource(params []any) (*result.ModuleSource, error) {
	var resp = new(result.ModuleSource)
	if err := c.performRequest(ccdrpc.GetModuleSourceMethod, params, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// InvokeInstance dry-runs a contract update at the last finalized block.
// The state of the chain is not changed.
func (c *Client) InvokeInstance(req ccdrpc.InvokeInstanceRequest) (*result.Invoke, error) {
	return c.invokeInstance([]any{req})
}

// InvokeInstanceAtBlock dry-runs a contract update at the given block.
func (c *Client) InvokeInstanceAtBlock(block ccd.BlockHash, req ccdrpc.InvokeInstanceRequest) (*result.Invoke, error) {
	return c.invokeInstance([]any{req, block})
}

func (c *Client) invokeInstance(params []any) (*result.Invoke, error) {
	var resp = new(result.Invoke)
	if err := c.performRequest(ccdrpc.InvokeInstanceMethod, params, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetNextAccountSequenceNumber returns the nonce to be used for the next
// transaction of the account.
func (c *Client) GetNextAccountSequenceNumber(addr ccd.AccountAddress) (*result.NextSequenceNumber, error) {
	var resp = new(result.NextSequenceNumber)
	if err := c.performRequest(ccdrpc.GetNextAccountSequenceNumberMethod, []any{addr}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SendAccountTransaction sends the signed transaction to the node and
// returns its hash. The hash is the one reported by the node.
func (c *Client) SendAccountTransaction(tx *transaction.AccountTransaction) (ccd.TransactionHash, error) {
	b, err := tx.Bytes()
	if err != nil {
		return ccd.TransactionHash{}, err
	}
	var resp = new(result.SendTransaction)
	if err := c.performRequest(ccdrpc.SendAccountTransactionMethod, []any{hex.EncodeToString(b)}, resp); err != nil {
		return ccd.TransactionHash{}, err
	}
	return resp.Hash, nil
}
