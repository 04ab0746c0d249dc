// Package compliance screens money movements before any funds move.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/shopspring/decimal"
)

// StepName is the name of the screening step in every workflow.
const StepName = "ScreenCompliance"

var (
	ErrBlocked       = errors.New("account is on the deny list")
	ErrLimitExceeded = errors.New("amount exceeds single-operation limit")
)

// Screener rejects deny-listed accounts and amounts above a single-operation limit.
type Screener struct {
	blocked   map[string]struct{}
	maxSingle decimal.Decimal
}

// NewScreener builds a screener. A zero maxSingle disables the limit.
func NewScreener(blocked []string, maxSingle decimal.Decimal) *Screener {
	s := &Screener{blocked: make(map[string]struct{}, len(blocked)), maxSingle: maxSingle}
	for _, id := range blocked {
		s.blocked[id] = struct{}{}
	}
	return s
}

// Screen checks one movement of amount touching accountID.
func (s *Screener) Screen(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.blocked[accountID]; ok {
		slog.Warn("[Compliance] Blocked account", "account_id", accountID)
		return fmt.Errorf("%w: %s", ErrBlocked, accountID)
	}
	if s.maxSingle.IsPositive() && amount.GreaterThan(s.maxSingle) {
		return fmt.Errorf("%w: %s > %s", ErrLimitExceeded, amount, s.maxSingle)
	}
	return nil
}

// Step screens every account named by accountKeys, with the amount stored at
// amountKey. Screening has no side effects, so the step has no compensation.
func (s *Screener) Step(amountKey string, accountKeys ...string) saga.Step {
	return saga.Func{
		StepName: StepName,
		Run: func(ctx context.Context, sc saga.Context) (saga.Context, error) {
			amount, err := sc.Decimal(amountKey)
			if err != nil {
				return nil, err
			}
			for _, key := range accountKeys {
				id, err := sc.RequireString(key)
				if err != nil {
					return nil, err
				}
				if err := s.Screen(ctx, id, amount); err != nil {
					return nil, err
				}
			}
			return saga.Context{"compliance": "cleared"}, nil
		},
	}
}
