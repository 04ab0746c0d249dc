// Package account implements the account aggregate: a single-asset balance
// that can be credited, debited and frozen.
package account

import (
	"errors"
	"fmt"

	"github.com/aevon-lab/project-ledger/internal/core/aggregate"
	"github.com/aevon-lab/project-ledger/internal/core/hashguard"
	"github.com/aevon-lab/project-ledger/internal/ledger/money"
	"github.com/shopspring/decimal"
)

// Kind is the aggregate type stored on account events.
const Kind = "account"

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrFrozen            = errors.New("account frozen")
	ErrNotOpen           = errors.New("account not open")
	ErrMissingReference  = errors.New("command reference is required")
)

type Status string

const (
	StatusNone   Status = ""
	StatusActive Status = "active"
	StatusFrozen Status = "frozen"
)

// Account is rebuilt from its events only; fields are read through accessors.
type Account struct {
	root         aggregate.Root
	owner        string
	asset        string
	balance      decimal.Decimal
	status       Status
	freezeReason string
}

func New(id string) *Account {
	return &Account{root: aggregate.NewRoot(Kind, id), balance: decimal.Zero}
}

func (a *Account) Root() *aggregate.Root { return &a.root }

func (a *Account) ID() string               { return a.root.ID() }
func (a *Account) Owner() string            { return a.owner }
func (a *Account) Asset() string            { return a.asset }
func (a *Account) Balance() decimal.Decimal { return a.balance }
func (a *Account) Status() Status           { return a.status }
func (a *Account) FreezeReason() string     { return a.freezeReason }
func (a *Account) IsOpen() bool             { return a.status != StatusNone }

func (a *Account) Apply(p aggregate.Payload) {
	switch e := p.(type) {
	case *AccountOpened:
		a.owner = e.Owner
		a.asset = e.Asset
		a.status = StatusActive
	case *MoneyCredited:
		a.balance = a.balance.Add(e.Amount)
	case *MoneyDebited:
		a.balance = a.balance.Sub(e.Amount)
	case *AccountFrozen:
		a.status = StatusFrozen
		a.freezeReason = e.Reason
	case *AccountUnfrozen:
		a.status = StatusActive
		a.freezeReason = ""
	}
}

// Open creates the account for owner in a single asset.
func (a *Account) Open(owner, asset string) error {
	code, err := money.NormalizeAsset(asset)
	if err != nil {
		return err
	}
	hash := hashguard.Compute("open", owner, code)
	if a.root.Seen(hash) {
		return aggregate.Duplicate(Kind, a.ID(), "open")
	}
	if a.IsOpen() {
		return aggregate.InvalidTransition(Kind, "open", string(a.status))
	}
	if owner == "" {
		return fmt.Errorf("account %s: owner is required", a.ID())
	}
	aggregate.Record(a, hash, &AccountOpened{Owner: owner, Asset: code})
	return nil
}

// Credit adds amount to the balance. Credits are accepted while frozen.
// reference identifies the business operation; repeating it is a duplicate.
func (a *Account) Credit(amount decimal.Decimal, reference string) error {
	hash, err := a.movementHash("credit", amount, reference)
	if err != nil {
		return err
	}
	if a.root.Seen(hash) {
		return aggregate.Duplicate(Kind, a.ID(), "credit "+reference)
	}
	if !a.IsOpen() {
		return fmt.Errorf("%w: %s", ErrNotOpen, a.ID())
	}
	aggregate.Record(a, hash, &MoneyCredited{Amount: amount, Reference: reference})
	return nil
}

// Debit removes amount from the balance. The balance never goes negative.
func (a *Account) Debit(amount decimal.Decimal, reference string) error {
	hash, err := a.movementHash("debit", amount, reference)
	if err != nil {
		return err
	}
	if a.root.Seen(hash) {
		return aggregate.Duplicate(Kind, a.ID(), "debit "+reference)
	}
	switch a.status {
	case StatusNone:
		return fmt.Errorf("%w: %s", ErrNotOpen, a.ID())
	case StatusFrozen:
		return fmt.Errorf("%w: %s (%s)", ErrFrozen, a.ID(), a.freezeReason)
	}
	if a.balance.LessThan(amount) {
		return fmt.Errorf("%w: %s has %s %s, needs %s", ErrInsufficientFunds, a.ID(), a.balance, a.asset, amount)
	}
	aggregate.Record(a, hash, &MoneyDebited{Amount: amount, Reference: reference})
	return nil
}

// Freeze blocks debits until Unfreeze.
func (a *Account) Freeze(reason, reference string) error {
	if reference == "" {
		return ErrMissingReference
	}
	hash := hashguard.Compute("freeze", reference)
	if a.root.Seen(hash) {
		return aggregate.Duplicate(Kind, a.ID(), "freeze "+reference)
	}
	if a.status != StatusActive {
		return aggregate.InvalidTransition(Kind, "freeze", string(a.status))
	}
	aggregate.Record(a, hash, &AccountFrozen{Reason: reason, Reference: reference})
	return nil
}

func (a *Account) Unfreeze(reference string) error {
	if reference == "" {
		return ErrMissingReference
	}
	hash := hashguard.Compute("unfreeze", reference)
	if a.root.Seen(hash) {
		return aggregate.Duplicate(Kind, a.ID(), "unfreeze "+reference)
	}
	if a.status != StatusFrozen {
		return aggregate.InvalidTransition(Kind, "unfreeze", string(a.status))
	}
	aggregate.Record(a, hash, &AccountUnfrozen{Reference: reference})
	return nil
}

func (a *Account) movementHash(op string, amount decimal.Decimal, reference string) (string, error) {
	if reference == "" {
		return "", ErrMissingReference
	}
	if err := money.ValidateAmount(amount); err != nil {
		return "", err
	}
	return hashguard.Compute(op, amount.String(), a.asset, reference), nil
}
