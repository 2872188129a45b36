/*
Package actor provides a way to change chain state via RPC client.

This layer builds on top of the basic RPC client and [invoker] package, it
simplifies creating, signing and sending transactions to the network (since
that's the only way chain state is changed). It's generic enough to be used
for any contract that you may want to update and contract-specific functions
can build on top of it.
*/
package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/rpcclient/invoker"
	"github.com/BukiOffor/registry/pkg/transaction"
	"github.com/BukiOffor/registry/pkg/wallet"
)

const (
	// DefaultEnergyMargin is the energy added to the amount used by the
	// dry-run when creating transactions out of it.
	DefaultEnergyMargin ccd.Energy = 200
	// DefaultExpiry is the default transaction lifetime.
	DefaultExpiry = time.Hour
)

// RPCActor is an interface required from the RPC client to successfully
// create and send transactions.
type RPCActor interface {
	invoker.RPCInvoke

	GetNextAccountSequenceNumber(addr ccd.AccountAddress) (*result.NextSequenceNumber, error)
	SendAccountTransaction(tx *transaction.AccountTransaction) (ccd.TransactionHash, error)
}

// Actor keeps a connection to the RPC endpoint and allows to perform
// state-changing actions (via transactions that can also be created without
// sending them to the network) on behalf of a single account. It also
// provides an Invoker interface to perform dry-runs with the same account as
// the invoker.
//
// "Make" prefix is used for methods that create transactions in various
// ways, while "Send" prefix is used by methods that directly transmit
// created transactions to the RPC server. *Call methods dry-run the update
// first and use its results to set transaction energy, *Update methods
// expect the energy to be known.
type Actor struct {
	invoker.Invoker

	client RPCActor
	opts   Options
	signer wallet.Signer
}

// Options are used to create Actor with non-standard transaction checkers,
// energy margin or expiry.
type Options struct {
	// CheckerModifier is used by any method that dry-runs the update and
	// creates a signed transaction out of it.
	CheckerModifier TransactionCheckerModifier
	// Modifier is used by MakeUpdate and MakeInit to modify transaction
	// before it's signed. MakeUnsigned* methods do not run it.
	Modifier TransactionModifier
	// EnergyMargin is added to the energy used by dry-runs.
	EnergyMargin ccd.Energy
	// Expiry is the lifetime of transactions created.
	Expiry time.Duration
}

// New creates an Actor instance using the specified RPC interface and the
// signer. Every transaction created by this Actor is sent from the signer
// account. The actor will use default Options (which can be overridden
// using NewTuned).
func New(ra RPCActor, signer wallet.Signer) (*Actor, error) {
	if signer == nil {
		return nil, errors.New("signer (sender) is required")
	}
	if signer.SignatureCount() < 1 {
		return nil, wallet.ErrNoKeys
	}
	return &Actor{
		Invoker: *invoker.New(ra, ccd.AccountAsAddress(signer.Address())),
		client:  ra,
		opts:    NewDefaultOptions(),
		signer:  signer,
	}, nil
}

// NewDefaultOptions returns Options that use the default
// TransactionCheckerModifier function (that checks for the dry-run to
// succeed) and TransactionModifier (that does nothing), DefaultEnergyMargin
// and DefaultExpiry.
func NewDefaultOptions() Options {
	return Options{
		CheckerModifier: DefaultCheckerModifier,
		Modifier:        DefaultModifier,
		EnergyMargin:    DefaultEnergyMargin,
		Expiry:          DefaultExpiry,
	}
}

// NewTuned creates an Actor that will use the specified Options as defaults
// when creating new transactions. Zero-valued options are replaced with
// defaults from NewDefaultOptions.
func NewTuned(ra RPCActor, signer wallet.Signer, opts Options) (*Actor, error) {
	a, err := New(ra, signer)
	if err != nil {
		return nil, err
	}
	if opts.CheckerModifier != nil {
		a.opts.CheckerModifier = opts.CheckerModifier
	}
	if opts.Modifier != nil {
		a.opts.Modifier = opts.Modifier
	}
	if opts.EnergyMargin != 0 {
		a.opts.EnergyMargin = opts.EnergyMargin
	}
	if opts.Expiry > 0 {
		a.opts.Expiry = opts.Expiry
	}
	return a, nil
}

// Sender returns the sender address that will be used in transactions
// created by Actor.
func (a *Actor) Sender() ccd.AccountAddress {
	return a.signer.Address()
}

// EnergyMargin returns the energy added to dry-run results.
func (a *Actor) EnergyMargin() ccd.Energy {
	return a.opts.EnergyMargin
}

// Send allows to send arbitrary prepared transaction to the network. It
// returns transaction hash.
func (a *Actor) Send(tx *transaction.AccountTransaction) (ccd.TransactionHash, error) {
	return a.client.SendAccountTransaction(tx)
}

// Sign adds signatures to arbitrary transaction using Actor signer. It'll be
// successful only if the transaction is sent from the Actor account.
func (a *Actor) Sign(tx *transaction.AccountTransaction) error {
	if tx.Header.Sender != a.signer.Address() {
		return fmt.Errorf("transaction sender %s is not %s", tx.Header.Sender, a.signer.Address())
	}
	digest := tx.SignDigest()
	sigs, err := a.signer.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	tx.Signatures = sigs
	return nil
}

// SignAndSend signs arbitrary transaction (see also Sign) and sends it to the
// network.
func (a *Actor) SignAndSend(tx *transaction.AccountTransaction) (ccd.TransactionHash, error) {
	return a.sendWrapper(tx, a.Sign(tx))
}

// sendWrapper simplifies wrapping methods that create transactions.
func (a *Actor) sendWrapper(tx *transaction.AccountTransaction, err error) (ccd.TransactionHash, error) {
	if err != nil {
		return ccd.TransactionHash{}, err
	}
	return a.Send(tx)
}

// SendCall creates a transaction that calls the given receive function of
// the given contract (see also MakeCall) and sends it to the network.
func (a *Actor) SendCall(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter) (ccd.TransactionHash, error) {
	return a.sendWrapper(a.MakeCall(contract, method, param))
}

// SendTunedCall creates a transaction that calls the given receive function
// with the given amount, allowing to check the dry-run results and modify
// the transaction before it's signed (see also MakeTunedCall). This
// transaction is then sent to the network.
func (a *Actor) SendTunedCall(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, amount ccd.Amount, txHook TransactionCheckerModifier) (ccd.TransactionHash, error) {
	return a.sendWrapper(a.MakeTunedCall(contract, method, param, amount, txHook))
}

// SendUpdate creates a transaction calling the given receive function with
// the known energy and metadata (see also MakeUpdate) and sends it to the
// network.
func (a *Actor) SendUpdate(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, md ccd.ContractTransactionMetadata) (ccd.TransactionHash, error) {
	return a.sendWrapper(a.MakeUpdate(contract, method, param, md))
}

// SendInit creates a contract instantiation transaction (see also MakeInit)
// and sends it to the network.
func (a *Actor) SendInit(module ccd.ModuleReference, name ccd.ContractName, param ccd.Parameter, amount ccd.Amount, energy ccd.Energy) (ccd.TransactionHash, error) {
	return a.sendWrapper(a.MakeInit(module, name, param, amount, energy))
}
