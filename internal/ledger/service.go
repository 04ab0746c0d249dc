// Package ledger executes account and transfer commands against the event log.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aevon-lab/project-ledger/internal/core/aggregate"
	"github.com/aevon-lab/project-ledger/internal/core/hashguard"
	"github.com/aevon-lab/project-ledger/internal/core/partition"
	"github.com/aevon-lab/project-ledger/internal/core/storage"
	"github.com/aevon-lab/project-ledger/internal/ledger/account"
	"github.com/aevon-lab/project-ledger/internal/ledger/transfer"
	"github.com/aevon-lab/project-ledger/internal/ledger/withdrawal"
	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrTransferNotFound   = errors.New("transfer not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")

	// ErrAlreadyExists is returned when a transfer or withdrawal id was
	// already started, by this caller or another.
	ErrAlreadyExists = errors.New("already exists")
)

// DefaultMaxAttempts bounds reload-and-retry on version conflicts.
const DefaultMaxAttempts = 3

// Store is the storage surface the service needs.
type Store interface {
	storage.EventLog
	storage.HashIndex
}

type Option func(*Service)

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service serializes commands per aggregate and persists them through a
// hash guard.
//
// Commands for the same aggregate take the same partition lock for the
// retrieve, command and persist sequence only. The event log's version check
// still backs it up across processes.
type Service struct {
	accounts    *aggregate.Repository[*account.Account]
	transfers   *aggregate.Repository[*transfer.AssetTransfer]
	withdrawals *aggregate.Repository[*withdrawal.Withdrawal]
	locks       [partition.Count]sync.Mutex
	maxAttempts int
	logger      *slog.Logger
}

func NewService(store Store, opts ...Option) *Service {
	codec := aggregate.NewCodec()
	account.Register(codec)
	transfer.Register(codec)
	withdrawal.Register(codec)

	guard := hashguard.New(store, store)
	s := &Service{
		accounts:    aggregate.NewRepository(guard, codec, account.New),
		transfers:   aggregate.NewRepository(guard, codec, transfer.New),
		withdrawals: aggregate.NewRepository(guard, codec, withdrawal.New),
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Account returns the current state of an opened account.
func (s *Service) Account(ctx context.Context, id string) (*account.Account, error) {
	acc, err := s.accounts.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acc.Root().Exists() {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return acc, nil
}

// Transfer returns the current state of an initiated transfer.
func (s *Service) Transfer(ctx context.Context, id string) (*transfer.AssetTransfer, error) {
	tr, err := s.transfers.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tr.Root().Exists() {
		return nil, fmt.Errorf("%w: %s", ErrTransferNotFound, id)
	}
	return tr, nil
}

func (s *Service) OpenAccount(ctx context.Context, id, owner, asset string) (*account.Account, error) {
	return execute(ctx, s, s.accounts, id, "open", func(a *account.Account) error {
		return a.Open(owner, asset)
	})
}

func (s *Service) Credit(ctx context.Context, id string, amount decimal.Decimal, reference string) error {
	_, err := execute(ctx, s, s.accounts, id, "credit", func(a *account.Account) error {
		return a.Credit(amount, reference)
	})
	return err
}

func (s *Service) Debit(ctx context.Context, id string, amount decimal.Decimal, reference string) error {
	_, err := execute(ctx, s, s.accounts, id, "debit", func(a *account.Account) error {
		return a.Debit(amount, reference)
	})
	return err
}

func (s *Service) Freeze(ctx context.Context, id, reason, reference string) error {
	_, err := execute(ctx, s, s.accounts, id, "freeze", func(a *account.Account) error {
		return a.Freeze(reason, reference)
	})
	return err
}

func (s *Service) Unfreeze(ctx context.Context, id, reference string) error {
	_, err := execute(ctx, s, s.accounts, id, "unfreeze", func(a *account.Account) error {
		return a.Unfreeze(reference)
	})
	return err
}

// InitiateTransfer records a new transfer. Exactly one caller initiates a
// given id; every other attempt, concurrent or repeated, gets ErrAlreadyExists.
func (s *Service) InitiateTransfer(ctx context.Context, id, source, destination, asset string, amount decimal.Decimal) (*transfer.AssetTransfer, error) {
	return create(ctx, s, s.transfers, id, "initiate", func(t *transfer.AssetTransfer) error {
		return t.Initiate(source, destination, asset, amount)
	})
}

func (s *Service) CompleteTransfer(ctx context.Context, id string) (*transfer.AssetTransfer, error) {
	return execute(ctx, s, s.transfers, id, "complete", func(t *transfer.AssetTransfer) error {
		return t.Complete()
	})
}

func (s *Service) FailTransfer(ctx context.Context, id, reason string) (*transfer.AssetTransfer, error) {
	return execute(ctx, s, s.transfers, id, "fail", func(t *transfer.AssetTransfer) error {
		return t.Fail(reason)
	})
}

// Withdrawal returns the current state of a requested withdrawal.
func (s *Service) Withdrawal(ctx context.Context, id string) (*withdrawal.Withdrawal, error) {
	w, err := s.withdrawals.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.Root().Exists() {
		return nil, fmt.Errorf("%w: %s", ErrWithdrawalNotFound, id)
	}
	return w, nil
}

// RequestWithdrawal records a new withdrawal with the same exclusivity as
// InitiateTransfer.
func (s *Service) RequestWithdrawal(ctx context.Context, id, accountID, asset string, amount decimal.Decimal, destination string) (*withdrawal.Withdrawal, error) {
	return create(ctx, s, s.withdrawals, id, "request", func(w *withdrawal.Withdrawal) error {
		return w.Request(accountID, asset, amount, destination)
	})
}

func (s *Service) CompleteWithdrawal(ctx context.Context, id, payoutID string) (*withdrawal.Withdrawal, error) {
	return execute(ctx, s, s.withdrawals, id, "complete", func(w *withdrawal.Withdrawal) error {
		return w.Complete(payoutID)
	})
}

func (s *Service) FailWithdrawal(ctx context.Context, id, reason string) (*withdrawal.Withdrawal, error) {
	return execute(ctx, s, s.withdrawals, id, "fail", func(w *withdrawal.Withdrawal) error {
		return w.Fail(reason)
	})
}

// create runs the command that starts an aggregate's lifecycle. Unlike
// execute it never reports a duplicate as success: an existing stream, or a
// racing writer that got there first, yields ErrAlreadyExists.
func create[T aggregate.Aggregate](ctx context.Context, s *Service, repo *aggregate.Repository[T], id, command string, fn func(T) error) (T, error) {
	agg, err := run(ctx, s, repo, id, command, false, func(agg T) error {
		if agg.Root().Exists() {
			return fmt.Errorf("%w: %s %s", ErrAlreadyExists, agg.Root().Kind(), id)
		}
		return fn(agg)
	})
	if errors.Is(err, storage.ErrDuplicateCommand) {
		return agg, fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	}
	return agg, err
}

// execute runs one command against a freshly retrieved aggregate.
//
// storage.ErrVersionConflict is retried from a fresh retrieve up to
// maxAttempts. storage.ErrDuplicateCommand means the command already took
// effect: the current state is returned with a nil error.
func execute[T aggregate.Aggregate](ctx context.Context, s *Service, repo *aggregate.Repository[T], id, command string, fn func(T) error) (T, error) {
	return run(ctx, s, repo, id, command, true, fn)
}

func run[T aggregate.Aggregate](ctx context.Context, s *Service, repo *aggregate.Repository[T], id, command string, duplicateOK bool, fn func(T) error) (T, error) {
	var zero T
	lock := &s.locks[partition.For(id)]

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		lock.Lock()
		agg, err := runOnce(ctx, repo, id, fn)
		lock.Unlock()

		switch {
		case err == nil:
			return agg, nil

		case errors.Is(err, storage.ErrDuplicateCommand) && duplicateOK:
			s.logger.Info("[Ledger] Duplicate command, already applied",
				"aggregate_id", id,
				"command", command)
			return repo.Retrieve(ctx, id)

		case errors.Is(err, storage.ErrVersionConflict) && attempt < s.maxAttempts:
			s.logger.Warn("[Ledger] Version conflict, retrying from fresh state",
				"aggregate_id", id,
				"command", command,
				"attempt", attempt)

		default:
			return zero, err
		}
	}
}

func runOnce[T aggregate.Aggregate](ctx context.Context, repo *aggregate.Repository[T], id string, fn func(T) error) (T, error) {
	agg, err := repo.Retrieve(ctx, id)
	if err != nil {
		return agg, err
	}
	if sagaID, ok := saga.IDFromContext(ctx); ok {
		agg.Root().Annotate("saga_id", sagaID)
	}
	if err := fn(agg); err != nil {
		return agg, err
	}
	return agg, repo.Persist(ctx, agg)
}
