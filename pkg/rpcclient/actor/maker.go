package actor

import (
	"errors"
	"fmt"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/transaction"
)

// TransactionCheckerModifier is a callback that receives the result of
// dry-run and the transaction that can perform the same update on chain.
// This callback is accepted by methods that create transactions, it can
// examine both arguments and return an error if there is anything wrong
// there which will abort the creation process. Notice that when used this
// callback is completely responsible for dry-run result checking, including
// checking for its success. It can also modify the transaction (see
// TransactionModifier).
type TransactionCheckerModifier func(r *result.Invoke, t *transaction.AccountTransaction) error

// TransactionModifier is a callback that receives the transaction before
// it's signed from a method that creates signed transactions. It can check
// energy and other fields of the transaction and return an error if there is
// anything wrong there which will abort the creation process. It also can
// modify Nonce, Energy and Expiry header values taking full responsibility
// on the effects of these modifications.
type TransactionModifier func(t *transaction.AccountTransaction) error

// ErrDryRunFailed is returned by the default checker for failed dry-runs.
var ErrDryRunFailed = errors.New("dry-run failed")

// DefaultModifier is the default modifier, it does nothing.
func DefaultModifier(t *transaction.AccountTransaction) error {
	return nil
}

// DefaultCheckerModifier is the default TransactionCheckerModifier, it checks
// for the dry-run to succeed and does nothing else.
func DefaultCheckerModifier(r *result.Invoke, t *transaction.AccountTransaction) error {
	if r.Tag != result.InvokeSuccess {
		if r.Reason != nil {
			return fmt.Errorf("%w: %s", ErrDryRunFailed, r.Reason.Error())
		}
		return ErrDryRunFailed
	}
	return nil
}

// MakeCall creates a transaction that calls the given receive function of
// the given contract. Dry-run is performed and filtered through
// Actor-configured TransactionCheckerModifier, the transaction energy is the
// dry-run energy plus Actor energy margin. If you need to transfer CCD or to
// override TransactionCheckerModifier use MakeTunedCall.
func (a *Actor) MakeCall(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter) (*transaction.AccountTransaction, error) {
	return a.MakeTunedCall(contract, method, param, ccd.ZeroAmount, nil)
}

// MakeTunedCall creates a transaction that calls the given receive function
// transferring the given amount. It's filtered through the provided callback
// (or Actor default one's if nil, see TransactionCheckerModifier
// documentation also), so the process can be aborted and transaction can be
// modified before signing.
func (a *Actor) MakeTunedCall(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, amount ccd.Amount, txHook TransactionCheckerModifier) (*transaction.AccountTransaction, error) {
	r, err := a.CallWithMetadata(contract, method, param, ccd.ContractInvokeMetadata{Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("dry-run failed: %w", err)
	}
	if txHook == nil {
		txHook = a.opts.CheckerModifier
	}
	md := ccd.ContractTransactionMetadata{
		Amount:        amount,
		SenderAddress: a.Sender(),
		Energy:        r.UsedEnergy + a.opts.EnergyMargin,
	}
	tx, err := a.MakeUnsignedUpdate(contract, method, param, md)
	if err != nil {
		return nil, err
	}
	if err := txHook(r, tx); err != nil {
		return nil, err
	}
	if err := a.Sign(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// MakeUpdate creates a signed transaction calling the given receive function
// with the energy and amount from the metadata. No dry-run is performed,
// Actor TransactionModifier is applied before signing.
func (a *Actor) MakeUpdate(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, md ccd.ContractTransactionMetadata) (*transaction.AccountTransaction, error) {
	tx, err := a.MakeUnsignedUpdate(contract, method, param, md)
	return a.modifyAndSign(tx, err)
}

// MakeUnsignedUpdate creates an unsigned update transaction. Metadata sender
// must match the Actor account (it's used if zero), header energy is computed
// from the contract energy.
func (a *Actor) MakeUnsignedUpdate(contract ccd.ContractAddress, method ccd.ReceiveName, param ccd.Parameter, md ccd.ContractTransactionMetadata) (*transaction.AccountTransaction, error) {
	if md.SenderAddress != (ccd.AccountAddress{}) && md.SenderAddress != a.Sender() {
		return nil, fmt.Errorf("metadata sender %s is not %s", md.SenderAddress, a.Sender())
	}
	if param == nil {
		param = ccd.EmptyParameter()
	}
	return a.makeUnsigned(&transaction.UpdateContract{
		Amount:      md.Amount,
		Address:     contract,
		ReceiveName: method,
		Message:     param,
	}, md.Energy)
}

// MakeInit creates a signed transaction that instantiates the contract from
// the given module with the given contract energy.
func (a *Actor) MakeInit(module ccd.ModuleReference, name ccd.ContractName, param ccd.Parameter, amount ccd.Amount, energy ccd.Energy) (*transaction.AccountTransaction, error) {
	tx, err := a.MakeUnsignedInit(module, name, param, amount, energy)
	return a.modifyAndSign(tx, err)
}

// MakeUnsignedInit creates an unsigned contract instantiation transaction.
func (a *Actor) MakeUnsignedInit(module ccd.ModuleReference, name ccd.ContractName, param ccd.Parameter, amount ccd.Amount, energy ccd.Energy) (*transaction.AccountTransaction, error) {
	if param == nil {
		param = ccd.EmptyParameter()
	}
	return a.makeUnsigned(&transaction.InitContract{
		Amount:    amount,
		ModuleRef: module,
		InitName:  name,
		Param:     param,
	}, energy)
}

func (a *Actor) modifyAndSign(tx *transaction.AccountTransaction, err error) (*transaction.AccountTransaction, error) {
	if err != nil {
		return nil, err
	}
	if err := a.opts.Modifier(tx); err != nil {
		return nil, err
	}
	if err := a.Sign(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (a *Actor) makeUnsigned(p transaction.Payload, contractEnergy ccd.Energy) (*transaction.AccountTransaction, error) {
	if len(a.paramOf(p)) > ccd.MaxParameterSize {
		return nil, ccd.ErrParameterTooBig
	}
	nonce, err := a.client.GetNextAccountSequenceNumber(a.Sender())
	if err != nil {
		return nil, fmt.Errorf("can't get account nonce: %w", err)
	}
	tx, err := transaction.New(a.Sender(), nonce.Nonce, ccd.ExpiryIn(a.opts.Expiry), 0, p)
	if err != nil {
		return nil, err
	}
	tx.Header.Energy = transaction.EnergyCost(a.signer.SignatureCount(), tx.Header.PayloadSize, contractEnergy)
	return tx, nil
}

func (a *Actor) paramOf(p transaction.Payload) ccd.Parameter {
	switch p := p.(type) {
	case *transaction.UpdateContract:
		return p.Message
	case *transaction.InitContract:
		return p.Param
	default:
		return nil
	}
}
