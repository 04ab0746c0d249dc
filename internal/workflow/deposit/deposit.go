// Package deposit credits ledger accounts for incoming custodian deposits.
package deposit

import (
	"context"
	"errors"
	"fmt"

	"github.com/aevon-lab/project-ledger/internal/compliance"
	"github.com/aevon-lab/project-ledger/internal/custodian"
	"github.com/aevon-lab/project-ledger/internal/ledger/money"
	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/shopspring/decimal"
)

const SagaName = "deposit"

const (
	StepConfirmReceipt = "ConfirmReceipt"
	StepCreditAccount  = "CreditAccount"
)

const (
	KeyReference     = "reference"
	KeyAccountID     = "account_id"
	KeyAsset         = "asset"
	KeyAmount        = "amount"
	KeyConfirmations = "confirmations"
)

// ErrMismatch is returned when the custodian's record disagrees with the request.
var ErrMismatch = errors.New("deposit does not match custodian record")

type Ledger interface {
	Debit(ctx context.Context, id string, amount decimal.Decimal, reference string) error
	Credit(ctx context.Context, id string, amount decimal.Decimal, reference string) error
}

// Request is a deposit notification. Reference is the custodian's transaction
// id; notifications repeating it credit the account once.
type Request struct {
	Reference string          `json:"reference"`
	AccountID string          `json:"account_id"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
}

type Saga struct {
	screener  *compliance.Screener
	custodian custodian.Custodian
	ledger    Ledger
}

func NewSaga(screener *compliance.Screener, c custodian.Custodian, ledger Ledger) *Saga {
	return &Saga{screener: screener, custodian: c, ledger: ledger}
}

func (*Saga) Name() string { return SagaName }

func (dp *Saga) DefineSteps() []saga.Step {
	return []saga.Step{
		dp.screener.Step(KeyAmount, KeyAccountID),
		saga.Func{StepName: StepConfirmReceipt, Run: dp.confirm},
		saga.Func{StepName: StepCreditAccount, Run: dp.credit, Undo: dp.reverse},
	}
}

func (dp *Saga) confirm(ctx context.Context, sc saga.Context) (saga.Context, error) {
	ref, err := sc.RequireString(KeyReference)
	if err != nil {
		return nil, err
	}
	amount, err := sc.Decimal(KeyAmount)
	if err != nil {
		return nil, err
	}

	dep, err := dp.custodian.ConfirmDeposit(ctx, ref)
	if err != nil {
		return nil, err
	}
	switch {
	case dep.AccountID != sc.String(KeyAccountID):
		return nil, fmt.Errorf("%w: %s belongs to %s", ErrMismatch, ref, dep.AccountID)
	case dep.Asset != sc.String(KeyAsset):
		return nil, fmt.Errorf("%w: %s is %s", ErrMismatch, ref, dep.Asset)
	case !dep.Amount.Equal(amount):
		return nil, fmt.Errorf("%w: %s is %s, not %s", ErrMismatch, ref, dep.Amount, amount)
	}
	return saga.Context{KeyConfirmations: dep.Confirmations}, nil
}

func (dp *Saga) credit(ctx context.Context, sc saga.Context) (saga.Context, error) {
	amount, err := sc.Decimal(KeyAmount)
	if err != nil {
		return nil, err
	}
	err = dp.ledger.Credit(ctx, sc.String(KeyAccountID), amount, "deposit:"+sc.String(KeyReference))
	return nil, err
}

func (dp *Saga) reverse(ctx context.Context, sc saga.Context) error {
	amount, err := sc.Decimal(KeyAmount)
	if err != nil {
		return err
	}
	return dp.ledger.Debit(ctx, sc.String(KeyAccountID), amount, "deposit:"+sc.String(KeyReference)+":reversal")
}

type Service struct {
	def      *Saga
	sagaOpts []saga.Option
}

func NewService(def *Saga, sagaOpts ...saga.Option) *Service {
	return &Service{def: def, sagaOpts: sagaOpts}
}

func (s *Service) Execute(ctx context.Context, req Request) (*saga.Result, error) {
	asset, err := money.NormalizeAsset(req.Asset)
	if err != nil {
		return nil, err
	}
	if err := money.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.Reference == "" || req.AccountID == "" {
		return nil, errors.New("deposit: reference and account_id are required")
	}

	sg, err := saga.New(s.def, saga.Context{
		KeyReference: req.Reference,
		KeyAccountID: req.AccountID,
		KeyAsset:     asset,
		KeyAmount:    req.Amount,
	}, s.sagaOpts...)
	if err != nil {
		return nil, err
	}
	return sg.Execute(ctx)
}
