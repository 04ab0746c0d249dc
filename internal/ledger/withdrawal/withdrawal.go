// Package withdrawal implements the Withdrawal aggregate that records the
// lifecycle of funds leaving the ledger through the custodian.
package withdrawal

import (
	"fmt"

	"github.com/aevon-lab/project-ledger/internal/core/aggregate"
	"github.com/aevon-lab/project-ledger/internal/core/hashguard"
	"github.com/aevon-lab/project-ledger/internal/ledger/money"
	"github.com/shopspring/decimal"
)

// Kind is the aggregate type stored on withdrawal events.
const Kind = "withdrawal"

const (
	EventRequested = "withdrawal.requested"
	EventCompleted = "withdrawal.completed"
	EventFailed    = "withdrawal.failed"
)

// Status of a Withdrawal. completed and failed are terminal.
type Status string

const (
	StatusNone      Status = "none"
	StatusRequested Status = "requested"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) IsTerminal() bool { return s == StatusCompleted || s == StatusFailed }

type WithdrawalRequested struct {
	AccountID   string          `json:"account_id"`
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}

func (*WithdrawalRequested) EventType() string { return EventRequested }

type WithdrawalCompleted struct {
	PayoutID string `json:"payout_id"`
}

func (*WithdrawalCompleted) EventType() string { return EventCompleted }

type WithdrawalFailed struct {
	Reason string `json:"reason"`
}

func (*WithdrawalFailed) EventType() string { return EventFailed }

// Register adds the withdrawal event variants to codec.
func Register(codec *aggregate.Codec) {
	codec.Register(
		func() aggregate.Payload { return &WithdrawalRequested{} },
		func() aggregate.Payload { return &WithdrawalCompleted{} },
		func() aggregate.Payload { return &WithdrawalFailed{} },
	)
}

type Withdrawal struct {
	root        aggregate.Root
	status      Status
	accountID   string
	asset       string
	amount      decimal.Decimal
	destination string
	payoutID    string
	reason      string
}

func New(id string) *Withdrawal {
	return &Withdrawal{root: aggregate.NewRoot(Kind, id), status: StatusNone, amount: decimal.Zero}
}

func (w *Withdrawal) Root() *aggregate.Root { return &w.root }

func (w *Withdrawal) ID() string              { return w.root.ID() }
func (w *Withdrawal) Status() Status          { return w.status }
func (w *Withdrawal) AccountID() string       { return w.accountID }
func (w *Withdrawal) Asset() string           { return w.asset }
func (w *Withdrawal) Amount() decimal.Decimal { return w.amount }
func (w *Withdrawal) Destination() string     { return w.destination }
func (w *Withdrawal) PayoutID() string        { return w.payoutID }
func (w *Withdrawal) FailureReason() string   { return w.reason }

func (w *Withdrawal) Apply(p aggregate.Payload) {
	switch e := p.(type) {
	case *WithdrawalRequested:
		w.status = StatusRequested
		w.accountID = e.AccountID
		w.asset = e.Asset
		w.amount = e.Amount
		w.destination = e.Destination
	case *WithdrawalCompleted:
		w.status = StatusCompleted
		w.payoutID = e.PayoutID
	case *WithdrawalFailed:
		w.status = StatusFailed
		w.reason = e.Reason
	}
}

// Request moves none -> requested.
func (w *Withdrawal) Request(accountID, asset string, amount decimal.Decimal, destination string) error {
	code, err := money.NormalizeAsset(asset)
	if err != nil {
		return err
	}
	if err := money.ValidateAmount(amount); err != nil {
		return err
	}
	hash := hashguard.Compute("request", accountID, code, amount.String(), destination)
	if w.root.Seen(hash) {
		return aggregate.Duplicate(Kind, w.ID(), "request")
	}
	if w.status != StatusNone {
		return aggregate.InvalidTransition(Kind, "request", string(w.status))
	}
	if accountID == "" || destination == "" {
		return fmt.Errorf("withdrawal %s: account and destination are required", w.ID())
	}
	aggregate.Record(w, hash, &WithdrawalRequested{
		AccountID:   accountID,
		Asset:       code,
		Amount:      amount,
		Destination: destination,
	})
	return nil
}

// Complete moves requested -> completed.
func (w *Withdrawal) Complete(payoutID string) error {
	hash := hashguard.Compute("complete")
	if w.root.Seen(hash) {
		return aggregate.Duplicate(Kind, w.ID(), "complete")
	}
	if w.status != StatusRequested {
		return aggregate.InvalidTransition(Kind, "complete", string(w.status))
	}
	aggregate.Record(w, hash, &WithdrawalCompleted{PayoutID: payoutID})
	return nil
}

// Fail moves requested -> failed.
func (w *Withdrawal) Fail(reason string) error {
	hash := hashguard.Compute("fail")
	if w.root.Seen(hash) {
		return aggregate.Duplicate(Kind, w.ID(), "fail")
	}
	if w.status != StatusRequested {
		return aggregate.InvalidTransition(Kind, "fail", string(w.status))
	}
	aggregate.Record(w, hash, &WithdrawalFailed{Reason: reason})
	return nil
}
