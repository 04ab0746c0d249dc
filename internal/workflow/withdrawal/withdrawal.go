// Package withdrawal sends funds from a ledger account out through the custodian.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/project-ledger/internal/compliance"
	"github.com/aevon-lab/project-ledger/internal/custodian"
	"github.com/aevon-lab/project-ledger/internal/ledger"
	"github.com/aevon-lab/project-ledger/internal/ledger/account"
	"github.com/aevon-lab/project-ledger/internal/ledger/money"
	ledgerwithdrawal "github.com/aevon-lab/project-ledger/internal/ledger/withdrawal"
	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const SagaName = "withdrawal"

const (
	StepDebitAccount  = "DebitAccount"
	StepRequestPayout = "RequestPayout"
)

const (
	KeyWithdrawalID = "withdrawal_id"
	KeyAccountID    = "account_id"
	KeyAsset        = "asset"
	KeyAmount       = "amount"
	KeyDestination  = "destination"
	KeyPayoutID     = "payout_id"
)

// ErrInProgress is returned for a withdrawal id that is requested but not finished.
var ErrInProgress = errors.New("withdrawal already in progress")

type Ledger interface {
	Account(ctx context.Context, id string) (*account.Account, error)
	Debit(ctx context.Context, id string, amount decimal.Decimal, reference string) error
	Credit(ctx context.Context, id string, amount decimal.Decimal, reference string) error
	Withdrawal(ctx context.Context, id string) (*ledgerwithdrawal.Withdrawal, error)
	RequestWithdrawal(ctx context.Context, id, accountID, asset string, amount decimal.Decimal, destination string) (*ledgerwithdrawal.Withdrawal, error)
	CompleteWithdrawal(ctx context.Context, id, payoutID string) (*ledgerwithdrawal.Withdrawal, error)
	FailWithdrawal(ctx context.Context, id, reason string) (*ledgerwithdrawal.Withdrawal, error)
}

type Request struct {
	WithdrawalID string          `json:"withdrawal_id"`
	AccountID    string          `json:"account_id"`
	Asset        string          `json:"asset"`
	Amount       decimal.Decimal `json:"amount"`
	Destination  string          `json:"destination"`
}

// Saga screens the account, debits it and asks the custodian to pay out.
type Saga struct {
	screener  *compliance.Screener
	ledger    Ledger
	custodian custodian.Custodian
}

func NewSaga(screener *compliance.Screener, ledger Ledger, c custodian.Custodian) *Saga {
	return &Saga{screener: screener, ledger: ledger, custodian: c}
}

func (*Saga) Name() string { return SagaName }

func (w *Saga) DefineSteps() []saga.Step {
	return []saga.Step{
		w.screener.Step(KeyAmount, KeyAccountID),
		saga.Func{StepName: StepDebitAccount, Run: w.debit, Undo: w.refund},
		saga.Func{StepName: StepRequestPayout, Run: w.requestPayout, Undo: w.cancelPayout},
	}
}

func reference(sc saga.Context, leg string) string {
	return "withdrawal:" + sc.String(KeyWithdrawalID) + ":" + leg
}

func (w *Saga) debit(ctx context.Context, sc saga.Context) (saga.Context, error) {
	accountID, err := sc.RequireString(KeyAccountID)
	if err != nil {
		return nil, err
	}
	amount, err := sc.Decimal(KeyAmount)
	if err != nil {
		return nil, err
	}
	acc, err := w.ledger.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if asset := sc.String(KeyAsset); acc.Asset() != asset {
		return nil, fmt.Errorf("withdrawal of %s from %s account %s", asset, acc.Asset(), accountID)
	}
	if err := w.ledger.Debit(ctx, accountID, amount, reference(sc, "debit")); err != nil {
		return nil, err
	}
	return nil, nil
}

func (w *Saga) refund(ctx context.Context, sc saga.Context) error {
	amount, err := sc.Decimal(KeyAmount)
	if err != nil {
		return err
	}
	return w.ledger.Credit(ctx, sc.String(KeyAccountID), amount, reference(sc, "debit:reversal"))
}

func (w *Saga) requestPayout(ctx context.Context, sc saga.Context) (saga.Context, error) {
	amount, err := sc.Decimal(KeyAmount)
	if err != nil {
		return nil, err
	}
	payout, err := w.custodian.RequestPayout(ctx, custodian.PayoutRequest{
		ID:          sc.String(KeyWithdrawalID),
		AccountID:   sc.String(KeyAccountID),
		Asset:       sc.String(KeyAsset),
		Amount:      amount,
		Destination: sc.String(KeyDestination),
	})
	if err != nil {
		return nil, err
	}
	return saga.Context{KeyPayoutID: payout.ID}, nil
}

func (w *Saga) cancelPayout(ctx context.Context, sc saga.Context) error {
	payoutID, err := sc.RequireString(KeyPayoutID)
	if err != nil {
		return err
	}
	return w.custodian.CancelPayout(ctx, payoutID)
}

// Outcome is the withdrawal state after a request. Result is nil when the
// withdrawal had already finished and no saga ran.
type Outcome struct {
	Withdrawal *ledgerwithdrawal.Withdrawal
	Result     *saga.Result
}

// Service records a Withdrawal around each withdrawal saga, so a withdrawal
// id debits the account and reaches the custodian at most once.
type Service struct {
	def      *Saga
	sagaOpts []saga.Option
}

func NewService(def *Saga, sagaOpts ...saga.Option) *Service {
	return &Service{def: def, sagaOpts: sagaOpts}
}

// Execute validates req and runs one withdrawal saga. A request repeating a
// finished withdrawal id returns the recorded state without running again.
//
// Business failures are reported through the Result; the error is set for
// invalid requests, in-progress ids and compensation failures. After a
// compensation failure the withdrawal stays requested.
func (s *Service) Execute(ctx context.Context, req Request) (*Outcome, error) {
	asset, err := money.NormalizeAsset(req.Asset)
	if err != nil {
		return nil, err
	}
	if err := money.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.AccountID == "" || req.Destination == "" {
		return nil, errors.New("withdrawal: account_id and destination are required")
	}
	if req.WithdrawalID == "" {
		req.WithdrawalID = uuid.NewString()
	}

	l := s.def.ledger
	existing, err := l.Withdrawal(ctx, req.WithdrawalID)
	switch {
	case err == nil:
		return recorded(existing)
	case !errors.Is(err, ledger.ErrWithdrawalNotFound):
		return nil, err
	}

	_, err = l.RequestWithdrawal(ctx, req.WithdrawalID, req.AccountID, asset, req.Amount, req.Destination)
	if errors.Is(err, ledger.ErrAlreadyExists) {
		existing, readErr := l.Withdrawal(ctx, req.WithdrawalID)
		if readErr != nil {
			return nil, readErr
		}
		return recorded(existing)
	}
	if err != nil {
		return nil, err
	}

	sg, err := saga.New(s.def, saga.Context{
		KeyWithdrawalID: req.WithdrawalID,
		KeyAccountID:    req.AccountID,
		KeyAsset:        asset,
		KeyAmount:       req.Amount,
		KeyDestination:  req.Destination,
	}, s.sagaOpts...)
	if err != nil {
		return nil, err
	}

	result, sagaErr := sg.Execute(ctx)
	if result == nil {
		return nil, sagaErr
	}
	if !result.IsSuccess() {
		slog.Warn("[Withdrawal] Not completed",
			"withdrawal_id", req.WithdrawalID,
			"status", result.Status,
			"error", result.Err)
	}

	w, err := s.finalize(context.WithoutCancel(ctx), req.WithdrawalID, result)
	if err != nil {
		return nil, errors.Join(sagaErr, err)
	}
	return &Outcome{Withdrawal: w, Result: result}, sagaErr
}

func (s *Service) finalize(ctx context.Context, withdrawalID string, result *saga.Result) (*ledgerwithdrawal.Withdrawal, error) {
	l := s.def.ledger
	switch {
	case result.IsSuccess():
		return l.CompleteWithdrawal(ctx, withdrawalID, result.Context.String(KeyPayoutID))

	case result.Status == saga.StatusCompensated, result.Status == saga.StatusFailed:
		reason := "withdrawal aborted"
		if result.Err != nil {
			reason = result.Err.Error()
		}
		return l.FailWithdrawal(ctx, withdrawalID, reason)

	default:
		slog.Error("[Withdrawal] Left requested after compensation failure",
			"alert", true,
			"withdrawal_id", withdrawalID,
			"saga_id", result.SagaID)
		return l.Withdrawal(ctx, withdrawalID)
	}
}

func recorded(w *ledgerwithdrawal.Withdrawal) (*Outcome, error) {
	if w.Status().IsTerminal() {
		return &Outcome{Withdrawal: w}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInProgress, w.ID())
}
