// Package custodian defines the external custody collaborator used by the
// deposit and withdrawal workflows.
package custodian

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrExternalTimeout = errors.New("custodian timed out")
	ErrRejected        = errors.New("custodian rejected request")
	ErrUnknownPayout   = errors.New("unknown payout")
	ErrUnknownDeposit  = errors.New("unknown deposit")
	ErrUnconfirmed     = errors.New("deposit not yet confirmed")
)

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCancelled PayoutStatus = "cancelled"
)

// PayoutRequest asks the custodian to send funds out. ID is the idempotency key.
type PayoutRequest struct {
	ID          string
	AccountID   string
	Asset       string
	Amount      decimal.Decimal
	Destination string
}

type Payout struct {
	ID     string
	Status PayoutStatus
}

// Deposit is an incoming transfer as seen by the custodian.
type Deposit struct {
	Reference     string
	AccountID     string
	Asset         string
	Amount        decimal.Decimal
	Confirmations int
}

// Custodian holds assets outside the ledger. Calls may block on the network
// and must honour ctx cancellation.
type Custodian interface {
	// RequestPayout is idempotent by req.ID.
	RequestPayout(ctx context.Context, req PayoutRequest) (Payout, error)
	// CancelPayout reverses a pending payout. Cancelling twice is not an error.
	CancelPayout(ctx context.Context, payoutID string) error
	// ConfirmDeposit returns the deposit once it has enough confirmations.
	ConfirmDeposit(ctx context.Context, reference string) (Deposit, error)
}
