// Package transfer implements the AssetTransfer aggregate that records the
// lifecycle of a movement between two accounts.
package transfer

import (
	"errors"
	"fmt"

	"github.com/aevon-lab/project-ledger/internal/core/aggregate"
	"github.com/aevon-lab/project-ledger/internal/core/hashguard"
	"github.com/aevon-lab/project-ledger/internal/ledger/money"
	"github.com/shopspring/decimal"
)

// Kind is the aggregate type stored on transfer events.
const Kind = "asset_transfer"

const (
	EventInitiated = "transfer.initiated"
	EventCompleted = "transfer.completed"
	EventFailed    = "transfer.failed"
)

var ErrSameAccount = errors.New("source and destination must differ")

// Status of an AssetTransfer. completed and failed are terminal.
type Status string

const (
	StatusNone      Status = "none"
	StatusInitiated Status = "initiated"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) IsTerminal() bool { return s == StatusCompleted || s == StatusFailed }

type TransferInitiated struct {
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
}

func (*TransferInitiated) EventType() string { return EventInitiated }

type TransferCompleted struct{}

func (*TransferCompleted) EventType() string { return EventCompleted }

type TransferFailed struct {
	Reason string `json:"reason"`
}

func (*TransferFailed) EventType() string { return EventFailed }

// Register adds the transfer event variants to codec.
func Register(codec *aggregate.Codec) {
	codec.Register(
		func() aggregate.Payload { return &TransferInitiated{} },
		func() aggregate.Payload { return &TransferCompleted{} },
		func() aggregate.Payload { return &TransferFailed{} },
	)
}

type AssetTransfer struct {
	root        aggregate.Root
	status      Status
	source      string
	destination string
	asset       string
	amount      decimal.Decimal
	reason      string
}

func New(id string) *AssetTransfer {
	return &AssetTransfer{root: aggregate.NewRoot(Kind, id), status: StatusNone, amount: decimal.Zero}
}

func (t *AssetTransfer) Root() *aggregate.Root { return &t.root }

func (t *AssetTransfer) ID() string              { return t.root.ID() }
func (t *AssetTransfer) Status() Status          { return t.status }
func (t *AssetTransfer) Source() string          { return t.source }
func (t *AssetTransfer) Destination() string     { return t.destination }
func (t *AssetTransfer) Asset() string           { return t.asset }
func (t *AssetTransfer) Amount() decimal.Decimal { return t.amount }
func (t *AssetTransfer) FailureReason() string   { return t.reason }

func (t *AssetTransfer) Apply(p aggregate.Payload) {
	switch e := p.(type) {
	case *TransferInitiated:
		t.status = StatusInitiated
		t.source = e.Source
		t.destination = e.Destination
		t.asset = e.Asset
		t.amount = e.Amount
	case *TransferCompleted:
		t.status = StatusCompleted
	case *TransferFailed:
		t.status = StatusFailed
		t.reason = e.Reason
	}
}

// Initiate moves none -> initiated.
func (t *AssetTransfer) Initiate(source, destination, asset string, amount decimal.Decimal) error {
	code, err := money.NormalizeAsset(asset)
	if err != nil {
		return err
	}
	if err := money.ValidateAmount(amount); err != nil {
		return err
	}
	hash := hashguard.Compute("initiate", source, destination, code, amount.String())
	if t.root.Seen(hash) {
		return aggregate.Duplicate(Kind, t.ID(), "initiate")
	}
	if t.status != StatusNone {
		return aggregate.InvalidTransition(Kind, "initiate", string(t.status))
	}
	if source == "" || destination == "" {
		return fmt.Errorf("transfer %s: source and destination are required", t.ID())
	}
	if source == destination {
		return fmt.Errorf("transfer %s: %w", t.ID(), ErrSameAccount)
	}
	aggregate.Record(t, hash, &TransferInitiated{
		Source:      source,
		Destination: destination,
		Asset:       code,
		Amount:      amount,
	})
	return nil
}

// Complete moves initiated -> completed.
func (t *AssetTransfer) Complete() error {
	hash := hashguard.Compute("complete")
	if t.root.Seen(hash) {
		return aggregate.Duplicate(Kind, t.ID(), "complete")
	}
	if t.status != StatusInitiated {
		return aggregate.InvalidTransition(Kind, "complete", string(t.status))
	}
	aggregate.Record(t, hash, &TransferCompleted{})
	return nil
}

// Fail moves initiated -> failed.
func (t *AssetTransfer) Fail(reason string) error {
	hash := hashguard.Compute("fail")
	if t.root.Seen(hash) {
		return aggregate.Duplicate(Kind, t.ID(), "fail")
	}
	if t.status != StatusInitiated {
		return aggregate.InvalidTransition(Kind, "fail", string(t.status))
	}
	aggregate.Record(t, hash, &TransferFailed{Reason: reason})
	return nil
}
