package account

import (
	"github.com/aevon-lab/project-ledger/internal/core/aggregate"
	"github.com/shopspring/decimal"
)

const (
	EventOpened   = "account.opened"
	EventCredited = "account.credited"
	EventDebited  = "account.debited"
	EventFrozen   = "account.frozen"
	EventUnfrozen = "account.unfrozen"
)

type AccountOpened struct {
	Owner string `json:"owner"`
	Asset string `json:"asset"`
}

func (*AccountOpened) EventType() string { return EventOpened }

type MoneyCredited struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

func (*MoneyCredited) EventType() string { return EventCredited }

type MoneyDebited struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

func (*MoneyDebited) EventType() string { return EventDebited }

type AccountFrozen struct {
	Reason    string `json:"reason"`
	Reference string `json:"reference"`
}

func (*AccountFrozen) EventType() string { return EventFrozen }

type AccountUnfrozen struct {
	Reference string `json:"reference"`
}

func (*AccountUnfrozen) EventType() string { return EventUnfrozen }

// Register adds the account event variants to codec.
func Register(codec *aggregate.Codec) {
	codec.Register(
		func() aggregate.Payload { return &AccountOpened{} },
		func() aggregate.Payload { return &MoneyCredited{} },
		func() aggregate.Payload { return &MoneyDebited{} },
		func() aggregate.Payload { return &AccountFrozen{} },
		func() aggregate.Payload { return &AccountUnfrozen{} },
	)
}
