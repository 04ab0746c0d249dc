package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/project-ledger/internal/ledger"
	"github.com/aevon-lab/project-ledger/internal/ledger/money"
	assettransfer "github.com/aevon-lab/project-ledger/internal/ledger/transfer"
	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInProgress is returned for a transfer id that is initiated but not finished.
var ErrInProgress = errors.New("transfer already in progress")

type Request struct {
	TransferID  string          `json:"transfer_id"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
}

// Outcome is the transfer state after a request. Result is nil when the
// transfer had already finished and no saga ran.
type Outcome struct {
	Transfer *assettransfer.AssetTransfer
	Result   *saga.Result
}

// Service records an AssetTransfer around each transfer saga: initiated
// before the first step, completed or failed from the saga's outcome.
type Service struct {
	ledger   Ledger
	sagaOpts []saga.Option
	logger   *slog.Logger
}

func NewService(ledger Ledger, logger *slog.Logger, sagaOpts ...saga.Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, sagaOpts: sagaOpts, logger: logger}
}

// Execute runs one transfer. A request repeating a finished transfer id
// returns the recorded state without moving funds again.
//
// The error is non-nil for invalid requests and for compensation failures.
// In the latter case the Outcome is returned too and the transfer stays
// initiated until an operator resolves it.
func (s *Service) Execute(ctx context.Context, req Request) (*Outcome, error) {
	sg, replayed, err := s.start(ctx, req)
	if sg == nil {
		return replayed, err
	}

	result, sagaErr := sg.Execute(ctx)
	if result == nil {
		return nil, sagaErr
	}
	return s.complete(ctx, result, sagaErr)
}

// BatchItem is the outcome of one request of a batch. Outcome and Err follow
// the same rules as the return values of Execute.
type BatchItem struct {
	Outcome *Outcome
	Err     error
}

// ExecuteBatch runs independent transfers with at most limit sagas in flight
// (limit <= 0 means unbounded). Items are returned in request order.
//
// Every transfer is initiated before any saga starts, so a transfer id that
// repeats inside the batch is rejected with ErrInProgress.
func (s *Service) ExecuteBatch(ctx context.Context, limit int, reqs []Request) []BatchItem {
	items := make([]BatchItem, len(reqs))
	sagas := make([]*saga.Saga, 0, len(reqs))
	slots := make([]int, 0, len(reqs))

	for i, req := range reqs {
		sg, replayed, err := s.start(ctx, req)
		if sg == nil {
			items[i] = BatchItem{Outcome: replayed, Err: err}
			continue
		}
		sagas = append(sagas, sg)
		slots = append(slots, i)
	}

	// Per-saga compensation failures are read from each Result.
	results, _ := saga.RunAll(ctx, limit, sagas...)
	for j, result := range results {
		i := slots[j]
		if result == nil {
			items[i].Err = fmt.Errorf("transfer %s: saga did not run", reqs[i].TransferID)
			continue
		}
		items[i].Outcome, items[i].Err = s.complete(ctx, result, result.CompensationErr)
	}

	s.logger.Info("[Transfer] Batch finished", "requests", len(reqs), "sagas", len(sagas))
	return items
}

// start validates req and initiates its transfer. It returns a ready saga, or
// the recorded outcome of a finished transfer, or an error.
func (s *Service) start(ctx context.Context, req Request) (*saga.Saga, *Outcome, error) {
	asset, err := money.NormalizeAsset(req.Asset)
	if err != nil {
		return nil, nil, err
	}
	if err := money.ValidateAmount(req.Amount); err != nil {
		return nil, nil, err
	}
	if req.TransferID == "" {
		req.TransferID = uuid.NewString()
	}

	existing, err := s.ledger.Transfer(ctx, req.TransferID)
	switch {
	case err == nil:
		outcome, err := s.recorded(existing)
		return nil, outcome, err
	case !errors.Is(err, ledger.ErrTransferNotFound):
		return nil, nil, err
	}

	// Only the request that initiates the transfer runs its saga. A racing
	// request with the same id lands here and reports the recorded state.
	_, err = s.ledger.InitiateTransfer(ctx, req.TransferID, req.Source, req.Destination, asset, req.Amount)
	if errors.Is(err, ledger.ErrAlreadyExists) {
		existing, readErr := s.ledger.Transfer(ctx, req.TransferID)
		if readErr != nil {
			return nil, nil, readErr
		}
		outcome, err := s.recorded(existing)
		return nil, outcome, err
	}
	if err != nil {
		return nil, nil, err
	}

	sg, err := saga.New(NewSaga(s.ledger), saga.Context{
		KeyTransferID:  req.TransferID,
		KeySource:      req.Source,
		KeyDestination: req.Destination,
		KeyAsset:       asset,
		KeyAmount:      req.Amount,
	}, s.sagaOpts...)
	if err != nil {
		return nil, nil, err
	}
	return sg, nil, nil
}

// recorded reports a transfer some earlier request started.
func (s *Service) recorded(tr *assettransfer.AssetTransfer) (*Outcome, error) {
	if tr.Status().IsTerminal() {
		return &Outcome{Transfer: tr}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInProgress, tr.ID())
}

func (s *Service) complete(ctx context.Context, result *saga.Result, sagaErr error) (*Outcome, error) {
	transferID := result.Context.String(KeyTransferID)
	tr, err := s.finalize(context.WithoutCancel(ctx), transferID, result)
	if err != nil {
		return nil, errors.Join(sagaErr, err)
	}
	return &Outcome{Transfer: tr, Result: result}, sagaErr
}

func (s *Service) finalize(ctx context.Context, transferID string, result *saga.Result) (*assettransfer.AssetTransfer, error) {
	switch {
	case result.IsSuccess():
		return s.ledger.CompleteTransfer(ctx, transferID)

	case result.Status == saga.StatusCompensated, result.Status == saga.StatusFailed:
		reason := "transfer aborted"
		if result.Err != nil {
			reason = result.Err.Error()
		}
		return s.ledger.FailTransfer(ctx, transferID, reason)

	default:
		s.logger.Error("[Transfer] Left initiated after compensation failure",
			"alert", true,
			"transfer_id", transferID,
			"saga_id", result.SagaID)
		return s.ledger.Transfer(ctx, transferID)
	}
}
