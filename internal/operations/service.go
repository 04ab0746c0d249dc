// Package operations exposes the ledger workflows over HTTP.
package operations

import (
	"context"

	"github.com/aevon-lab/project-ledger/internal/ledger/account"
	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/aevon-lab/project-ledger/internal/workflow/deposit"
	"github.com/aevon-lab/project-ledger/internal/workflow/transfer"
	"github.com/aevon-lab/project-ledger/internal/workflow/withdrawal"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

type TransferExecutor interface {
	Execute(ctx context.Context, req transfer.Request) (*transfer.Outcome, error)
	ExecuteBatch(ctx context.Context, limit int, reqs []transfer.Request) []transfer.BatchItem
}

type DepositExecutor interface {
	Execute(ctx context.Context, req deposit.Request) (*saga.Result, error)
}

type WithdrawalExecutor interface {
	Execute(ctx context.Context, req withdrawal.Request) (*withdrawal.Outcome, error)
}

type AccountReader interface {
	Account(ctx context.Context, id string) (*account.Account, error)
}

type Service struct {
	transfers        TransferExecutor
	deposits         DepositExecutor
	withdrawals      WithdrawalExecutor
	accounts         AccountReader
	journal          saga.Journal
	maxBodySizeBytes int
	maxBatchSize     int
	batchParallelism int
	journalReads     singleflight.Group // Dedupe concurrent reads of one saga record
}

// DefaultMaxBatchSize caps the transfers accepted by one batch request.
const DefaultMaxBatchSize = 100

type Option func(*Service)

// WithBatchParallelism bounds the transfer sagas a batch runs at once.
func WithBatchParallelism(n int) Option {
	return func(s *Service) { s.batchParallelism = n }
}

func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

func NewService(
	transfers TransferExecutor,
	deposits DepositExecutor,
	withdrawals WithdrawalExecutor,
	accounts AccountReader,
	journal saga.Journal,
	maxBodySizeMB int,
	opts ...Option,
) *Service {
	if transfers == nil || deposits == nil || withdrawals == nil {
		panic("operations: workflow services must not be nil")
	}
	if accounts == nil {
		panic("operations: account reader must not be nil")
	}
	if journal == nil {
		panic("operations: journal must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	s := &Service{
		transfers:        transfers,
		deposits:         deposits,
		withdrawals:      withdrawals,
		accounts:         accounts,
		journal:          journal,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		maxBatchSize:     DefaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes registers the operations routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/transfers", s.TransferHandler)
	v1.POST("/transfers/batch", s.TransferBatchHandler)
	v1.POST("/deposits", s.DepositHandler)
	v1.POST("/withdrawals", s.WithdrawalHandler)
	v1.GET("/accounts/:id", s.AccountHandler)
	v1.GET("/sagas/:id", s.SagaHandler)
}
