package custodian

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sandbox is an in-process Custodian for development and tests.
// Deposits are registered up front; failures can be injected per operation.
type Sandbox struct {
	mu          sync.Mutex
	payouts     map[string]*Payout
	deposits    map[string]Deposit
	failures    map[string]error
	latency     time.Duration
	minConfirms int
}

const (
	OpRequestPayout  = "request_payout"
	OpCancelPayout   = "cancel_payout"
	OpConfirmDeposit = "confirm_deposit"
)

// NewSandbox creates a sandbox custodian. latency is applied to every call.
func NewSandbox(latency time.Duration, minConfirms int) *Sandbox {
	return &Sandbox{
		payouts:     make(map[string]*Payout),
		deposits:    make(map[string]Deposit),
		failures:    make(map[string]error),
		latency:     latency,
		minConfirms: minConfirms,
	}
}

// Start keeps the sandbox alive until ctx is done.
func (s *Sandbox) Start(ctx context.Context) error {
	slog.Info("[Sandbox] Custodian started", "latency", s.latency, "min_confirmations", s.minConfirms)
	<-ctx.Done()
	slog.Info("[Sandbox] Custodian stopped")
	return nil
}

// RegisterDeposit makes an incoming deposit visible to ConfirmDeposit.
func (s *Sandbox) RegisterDeposit(dep Deposit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deposits[dep.Reference] = dep
}

// FailNext makes the next call of op return err.
func (s *Sandbox) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Payout returns a copy of a recorded payout.
func (s *Sandbox) Payout(id string) (Payout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payouts[id]
	if !ok {
		return Payout{}, false
	}
	return *p, true
}

func (s *Sandbox) RequestPayout(ctx context.Context, req PayoutRequest) (Payout, error) {
	if err := s.call(ctx, OpRequestPayout); err != nil {
		return Payout{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.payouts[req.ID]; ok {
		return *p, nil
	}
	if !req.Amount.IsPositive() {
		return Payout{}, fmt.Errorf("%w: amount %s", ErrRejected, req.Amount)
	}
	p := &Payout{ID: req.ID, Status: PayoutPending}
	s.payouts[req.ID] = p
	slog.Debug("[Sandbox] Payout requested", "payout_id", req.ID, "amount", req.Amount.String(), "asset", req.Asset)
	return *p, nil
}

func (s *Sandbox) CancelPayout(ctx context.Context, payoutID string) error {
	if err := s.call(ctx, OpCancelPayout); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payouts[payoutID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPayout, payoutID)
	}
	p.Status = PayoutCancelled
	return nil
}

func (s *Sandbox) ConfirmDeposit(ctx context.Context, reference string) (Deposit, error) {
	if err := s.call(ctx, OpConfirmDeposit); err != nil {
		return Deposit{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dep, ok := s.deposits[reference]
	if !ok {
		return Deposit{}, fmt.Errorf("%w: %s", ErrUnknownDeposit, reference)
	}
	if dep.Confirmations < s.minConfirms {
		return Deposit{}, fmt.Errorf("%w: %s has %d/%d", ErrUnconfirmed, reference, dep.Confirmations, s.minConfirms)
	}
	return dep, nil
}

// call applies latency and any injected failure for op.
func (s *Sandbox) call(ctx context.Context, op string) error {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrExternalTimeout, op, ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExternalTimeout, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}
