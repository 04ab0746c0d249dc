// Package transfer moves funds between two ledger accounts as a saga.
package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aevon-lab/project-ledger/internal/ledger/account"
	assettransfer "github.com/aevon-lab/project-ledger/internal/ledger/transfer"
	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/shopspring/decimal"
)

// SagaName names the transfer saga in logs and the journal.
const SagaName = "transfer"

const (
	StepValidateBalance   = "ValidateBalance"
	StepDebitSource       = "DebitSource"
	StepCreditDestination = "CreditDestination"
)

// Context keys.
const (
	KeyTransferID          = "transfer_id"
	KeySource              = "source"
	KeyDestination         = "destination"
	KeyAsset               = "asset"
	KeyAmount              = "amount"
	KeySourceBalanceBefore = "source_balance_before"
)

var ErrAssetMismatch = errors.New("account asset does not match transfer asset")

// Ledger is what the transfer workflow needs from the ledger service.
type Ledger interface {
	Account(ctx context.Context, id string) (*account.Account, error)
	Debit(ctx context.Context, id string, amount decimal.Decimal, reference string) error
	Credit(ctx context.Context, id string, amount decimal.Decimal, reference string) error
	Transfer(ctx context.Context, id string) (*assettransfer.AssetTransfer, error)
	InitiateTransfer(ctx context.Context, id, source, destination, asset string, amount decimal.Decimal) (*assettransfer.AssetTransfer, error)
	CompleteTransfer(ctx context.Context, id string) (*assettransfer.AssetTransfer, error)
	FailTransfer(ctx context.Context, id, reason string) (*assettransfer.AssetTransfer, error)
}

// Saga declares the steps of a transfer: validate, debit the source, credit
// the destination.
type Saga struct {
	ledger Ledger
}

func NewSaga(ledger Ledger) *Saga {
	return &Saga{ledger: ledger}
}

func (*Saga) Name() string { return SagaName }

func (d *Saga) DefineSteps() []saga.Step {
	return []saga.Step{
		validateBalance{ledger: d.ledger},
		debitSource{ledger: d.ledger},
		creditDestination{ledger: d.ledger},
	}
}

type terms struct {
	transferID  string
	source      string
	destination string
	asset       string
	amount      decimal.Decimal
}

func readTerms(sc saga.Context) (terms, error) {
	var t terms
	var err error
	if t.transferID, err = sc.RequireString(KeyTransferID); err != nil {
		return t, err
	}
	if t.source, err = sc.RequireString(KeySource); err != nil {
		return t, err
	}
	if t.destination, err = sc.RequireString(KeyDestination); err != nil {
		return t, err
	}
	if t.asset, err = sc.RequireString(KeyAsset); err != nil {
		return t, err
	}
	t.amount, err = sc.Decimal(KeyAmount)
	return t, err
}

func reference(transferID, leg string) string {
	return "transfer:" + transferID + ":" + leg
}

// validateBalance only reads, so it declares no compensation.
type validateBalance struct {
	ledger Ledger
}

func (validateBalance) Name() string          { return StepValidateBalance }
func (validateBalance) HasCompensation() bool { return false }

func (s validateBalance) Execute(ctx context.Context, sc saga.Context) (saga.Context, error) {
	t, err := readTerms(sc)
	if err != nil {
		return nil, err
	}

	src, err := s.ledger.Account(ctx, t.source)
	if err != nil {
		return nil, err
	}
	if src.Asset() != t.asset {
		return nil, fmt.Errorf("%w: source %s holds %s", ErrAssetMismatch, t.source, src.Asset())
	}
	if src.Status() == account.StatusFrozen {
		return nil, fmt.Errorf("%w: %s", account.ErrFrozen, t.source)
	}
	if src.Balance().LessThan(t.amount) {
		return nil, fmt.Errorf("%w: %s has %s, needs %s", account.ErrInsufficientFunds, t.source, src.Balance(), t.amount)
	}

	dst, err := s.ledger.Account(ctx, t.destination)
	if err != nil {
		return nil, err
	}
	if dst.Asset() != t.asset {
		return nil, fmt.Errorf("%w: destination %s holds %s", ErrAssetMismatch, t.destination, dst.Asset())
	}

	return saga.Context{KeySourceBalanceBefore: src.Balance().String()}, nil
}

func (validateBalance) Compensate(context.Context, saga.Context) error { return nil }

type debitSource struct {
	ledger Ledger
}

func (debitSource) Name() string          { return StepDebitSource }
func (debitSource) HasCompensation() bool { return true }

func (s debitSource) Execute(ctx context.Context, sc saga.Context) (saga.Context, error) {
	t, err := readTerms(sc)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Debit(ctx, t.source, t.amount, reference(t.transferID, "debit")); err != nil {
		return nil, err
	}
	return saga.Context{"source_debited": true}, nil
}

// Compensate re-credits the source.
func (s debitSource) Compensate(ctx context.Context, sc saga.Context) error {
	t, err := readTerms(sc)
	if err != nil {
		return err
	}
	return s.ledger.Credit(ctx, t.source, t.amount, reference(t.transferID, "debit:reversal"))
}

type creditDestination struct {
	ledger Ledger
}

func (creditDestination) Name() string          { return StepCreditDestination }
func (creditDestination) HasCompensation() bool { return true }

func (s creditDestination) Execute(ctx context.Context, sc saga.Context) (saga.Context, error) {
	t, err := readTerms(sc)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Credit(ctx, t.destination, t.amount, reference(t.transferID, "credit")); err != nil {
		return nil, err
	}
	return saga.Context{"destination_credited": true}, nil
}

// Compensate takes the credit back from the destination. It fails if the
// destination has already spent the funds.
func (s creditDestination) Compensate(ctx context.Context, sc saga.Context) error {
	t, err := readTerms(sc)
	if err != nil {
		return err
	}
	return s.ledger.Debit(ctx, t.destination, t.amount, reference(t.transferID, "credit:reversal"))
}
