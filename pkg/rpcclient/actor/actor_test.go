package actor

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/transaction"
	"github.com/BukiOffor/registry/pkg/wallet"
	"github.com/stretchr/testify/require"
)

type RPCClient struct {
	err     error
	invRes  *result.Invoke
	nonce   ccd.SequenceNumber
	hash    ccd.TransactionHash
	lastReq ccdrpc.InvokeInstanceRequest
	sent    []*transaction.AccountTransaction
}

func (r *RPCClient) InvokeInstance(req ccdrpc.InvokeInstanceRequest) (*result.Invoke, error) {
	r.lastReq = req
	return r.invRes, r.err
}

func (r *RPCClient) GetNextAccountSequenceNumber(addr ccd.AccountAddress) (*result.NextSequenceNumber, error) {
	return &result.NextSequenceNumber{Nonce: r.nonce, AllFinal: true}, r.err
}

func (r *RPCClient) SendAccountTransaction(tx *transaction.AccountTransaction) (ccd.TransactionHash, error) {
	r.sent = append(r.sent, tx)
	return r.hash, r.err
}

const testKey = "8c9b4b5e0b0a8e6f0a17f83a3d9fd2b0a1d14b2ba6a1d7dd9ae3fbff4a3c2c11"

func testSigner(t *testing.T) *wallet.Account {
	var addr ccd.AccountAddress
	addr[0] = 0x42
	acc, err := wallet.NewBasicSigner(addr, testKey)
	require.NoError(t, err)
	return acc
}

var testContract = ccd.NewContractAddress(10289, 0)

func TestNew(t *testing.T) {
	client := &RPCClient{}
	_, err := New(client, nil)
	require.Error(t, err)

	acc := testSigner(t)
	a, err := New(client, acc)
	require.NoError(t, err)
	require.Equal(t, acc.Address(), a.Sender())
	require.Equal(t, DefaultEnergyMargin, a.EnergyMargin())
	require.Equal(t, ccd.AccountAsAddress(acc.Address()), a.Invoker.Invoker())

	a, err = NewTuned(client, acc, Options{EnergyMargin: 500, Expiry: time.Minute})
	require.NoError(t, err)
	require.Equal(t, ccd.Energy(500), a.EnergyMargin())
	require.Equal(t, time.Minute, a.opts.Expiry)
	require.NotNil(t, a.opts.CheckerModifier)
	require.NotNil(t, a.opts.Modifier)
}

func TestMakeCall(t *testing.T) {
	client := &RPCClient{
		invRes: &result.Invoke{Tag: result.InvokeSuccess, UsedEnergy: 1000, ReturnValue: []byte{}},
		nonce:  12,
	}
	acc := testSigner(t)
	a, err := New(client, acc)
	require.NoError(t, err)

	param := ccd.Parameter{1, 2, 3}
	tx, err := a.MakeCall(testContract, "registry.register", param)
	require.NoError(t, err)
	require.Equal(t, ccd.AccountAsAddress(acc.Address()), client.lastReq.Invoker)
	require.Equal(t, ccd.SequenceNumber(12), tx.Header.Nonce)
	require.Equal(t, acc.Address(), tx.Header.Sender)
	require.Equal(t, transaction.EnergyCost(1, tx.Header.PayloadSize, 1200), tx.Header.Energy)

	upd := tx.Payload.(*transaction.UpdateContract)
	require.Equal(t, testContract, upd.Address)
	require.Equal(t, ccd.ReceiveName("registry.register"), upd.ReceiveName)
	require.Equal(t, param, upd.Message)

	pub, _ := acc.PublicKey(wallet.KeyIndex{})
	digest := tx.SignDigest()
	require.True(t, ed25519.Verify(pub, digest[:], tx.Signatures[0][0]))
	require.True(t, time.Unix(int64(tx.Header.Expiry), 0).After(time.Now().Add(50*time.Minute)))
}

func TestMakeCallFailures(t *testing.T) {
	client := &RPCClient{
		invRes: &result.Invoke{Tag: result.InvokeFailure, UsedEnergy: 10, Reason: &result.RejectReason{Tag: "RejectedReceive", RejectReason: -8}},
	}
	a, err := New(client, testSigner(t))
	require.NoError(t, err)

	_, err = a.MakeCall(testContract, "registry.register", nil)
	require.ErrorIs(t, err, ErrDryRunFailed)

	_, err = a.SendCall(testContract, "registry.register", nil)
	require.ErrorIs(t, err, ErrDryRunFailed)
	require.Len(t, client.sent, 0)

	var seen *result.Invoke
	tx, err := a.MakeTunedCall(testContract, "registry.register", nil, 5, func(r *result.Invoke, tx *transaction.AccountTransaction) error {
		seen = r
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, client.invRes, seen)
	require.Equal(t, ccd.Amount(5), tx.Payload.(*transaction.UpdateContract).Amount)
	require.Equal(t, ccd.Amount(5), client.lastReq.Amount)

	client.err = errors.New("net")
	_, err = a.MakeCall(testContract, "registry.register", nil)
	require.ErrorContains(t, err, "net")
}

func TestSendUpdateAndInit(t *testing.T) {
	client := &RPCClient{nonce: 3}
	client.hash[0] = 0xff
	acc := testSigner(t)
	a, err := NewTuned(client, acc, Options{
		Modifier: func(tx *transaction.AccountTransaction) error {
			tx.Header.Nonce++
			return nil
		},
	})
	require.NoError(t, err)

	h, err := a.SendUpdate(testContract, "registry.register", nil, ccd.ContractTransactionMetadata{Energy: 3000})
	require.NoError(t, err)
	require.Equal(t, client.hash, h)
	require.Len(t, client.sent, 1)
	require.Equal(t, ccd.SequenceNumber(4), client.sent[0].Header.Nonce)

	var other ccd.AccountAddress
	_, err = a.MakeUpdate(testContract, "registry.register", nil, ccd.ContractTransactionMetadata{SenderAddress: other, Energy: 1})
	require.NoError(t, err)
	other[1] = 1
	_, err = a.MakeUpdate(testContract, "registry.register", nil, ccd.ContractTransactionMetadata{SenderAddress: other, Energy: 1})
	require.Error(t, err)

	_, err = a.MakeUpdate(testContract, "registry.register", make(ccd.Parameter, ccd.MaxParameterSize+1), ccd.ContractTransactionMetadata{})
	require.ErrorIs(t, err, ccd.ErrParameterTooBig)

	ref := ccd.MustModuleReference("9199cb2d2b9c0b041c7533c507e0fec441f1d95777d5d00f7f59a337a79720bd")
	_, err = a.SendInit(ref, "registry", nil, 0, 5000)
	require.NoError(t, err)
	require.Len(t, client.sent, 2)
	init := client.sent[1].Payload.(*transaction.InitContract)
	require.Equal(t, ref, init.ModuleRef)
	require.Equal(t, ccd.ContractName("registry"), init.InitName)
}

func TestSign(t *testing.T) {
	client := &RPCClient{}
	a, err := New(client, testSigner(t))
	require.NoError(t, err)

	var stranger ccd.AccountAddress
	tx, err := transaction.New(stranger, 1, 1, 1, &transaction.UpdateContract{ReceiveName: "registry.register"})
	require.NoError(t, err)
	require.Error(t, a.Sign(tx))
	_, err = a.SignAndSend(tx)
	require.Error(t, err)
	require.Len(t, client.sent, 0)

	tx.Header.Sender = a.Sender()
	_, err = a.SignAndSend(tx)
	require.NoError(t, err)
	require.Len(t, client.sent, 1)
}
