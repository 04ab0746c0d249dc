// Package monitor tails the event log and alerts on transfers that stay
// initiated for too long.
//
// Saga state is not persisted, so a process that dies between the first
// transfer step and the final Complete/Fail leaves the AssetTransfer
// initiated forever. Likewise a failed compensation leaves it initiated on
// purpose. Both need an operator; the monitor finds them.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	v1 "github.com/aevon-lab/project-ledger/internal/api/v1"
	"github.com/aevon-lab/project-ledger/internal/core/storage"
	assettransfer "github.com/aevon-lab/project-ledger/internal/ledger/transfer"
	"github.com/shopspring/decimal"
)

const (
	defaultInterval   = 30 * time.Second
	defaultStallAfter = 5 * time.Minute
	defaultBatchSize  = 1000

	// maxConsecutiveBatches bounds one drain; the rest waits for the next tick.
	maxConsecutiveBatches = 100
)

// Parameters control polling cadence and the stall threshold.
type Parameters struct {
	Interval   time.Duration
	StallAfter time.Duration
	BatchSize  int
}

func (p Parameters) normalized() Parameters {
	n := p
	if n.Interval <= 0 {
		n.Interval = defaultInterval
	}
	if n.StallAfter <= 0 {
		n.StallAfter = defaultStallAfter
	}
	if n.BatchSize <= 0 {
		n.BatchSize = defaultBatchSize
	}
	return n
}

// Alert describes one transfer stuck in initiated.
type Alert struct {
	TransferID  string
	Source      string
	Destination string
	Asset       string
	Amount      decimal.Decimal
	InitiatedAt time.Time
	Age         time.Duration
}

type pendingTransfer struct {
	initiated assettransfer.TransferInitiated
	at        time.Time
	alerted   bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithNotifier replaces the default notifier, which logs at Error with alert=true.
func WithNotifier(fn func(Alert)) Option {
	return func(m *Monitor) { m.notify = fn }
}

// WithClock replaces time.Now when measuring transfer age.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.nowFn = now }
}

// Monitor keeps the set of initiated transfers seen on the event feed.
// It is rebuilt from cursor 0 on every start, so no checkpoint is stored.
type Monitor struct {
	feed   storage.EventFeed
	params Parameters
	notify func(Alert)
	nowFn  func() time.Time

	mu      sync.Mutex
	cursor  int64
	pending map[string]*pendingTransfer
}

func New(feed storage.EventFeed, params Parameters, opts ...Option) *Monitor {
	m := &Monitor{
		feed:    feed,
		params:  params.normalized(),
		nowFn:   func() time.Time { return time.Now().UTC() },
		pending: make(map[string]*pendingTransfer),
	}
	m.notify = logAlert
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func logAlert(a Alert) {
	slog.Error("[Monitor] Transfer stalled in initiated, manual remediation required",
		"alert", true,
		"transfer_id", a.TransferID,
		"source", a.Source,
		"destination", a.Destination,
		"asset", a.Asset,
		"amount", a.Amount.String(),
		"age", a.Age)
}

// Start polls on the configured interval until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.params.Interval)
	defer ticker.Stop()

	slog.Info("[Monitor] Starting stalled transfer monitor",
		"interval", m.params.Interval,
		"stall_after", m.params.StallAfter,
		"batch_size", m.params.BatchSize,
	)

	m.tick(ctx)

	for {
		select {
		case <-ticker.C:
			m.tick(ctx)
		case <-ctx.Done():
			slog.Info("[Monitor] Stopping (context cancelled)", "pending", m.Pending())
			return nil
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	if _, err := m.Poll(ctx); err != nil {
		slog.Error("[Monitor] Poll failed", "error", err)
	}
}

// Poll drains the feed and notifies about transfers that crossed the stall
// threshold since the last poll. Each transfer is reported once.
func (m *Monitor) Poll(ctx context.Context) ([]Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.drainBacklog(ctx); err != nil {
		return nil, err
	}

	now := m.nowFn()
	var alerts []Alert
	for id, p := range m.pending {
		age := now.Sub(p.at)
		if p.alerted || age < m.params.StallAfter {
			continue
		}
		p.alerted = true
		alerts = append(alerts, Alert{
			TransferID:  id,
			Source:      p.initiated.Source,
			Destination: p.initiated.Destination,
			Asset:       p.initiated.Asset,
			Amount:      p.initiated.Amount,
			InitiatedAt: p.at,
			Age:         age,
		})
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].InitiatedAt.Before(alerts[j].InitiatedAt) })

	for _, a := range alerts {
		m.notify(a)
	}
	return alerts, nil
}

// Pending returns how many transfers are initiated and not yet terminal.
func (m *Monitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// drainBacklog reads the feed in batches until it runs dry. Caller holds m.mu.
func (m *Monitor) drainBacklog(ctx context.Context) error {
	for batch := 0; batch < maxConsecutiveBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		events, err := m.feed.RetrieveEventsAfterCursor(ctx, m.cursor, m.params.BatchSize)
		if err != nil {
			return fmt.Errorf("query events after cursor %d: %w", m.cursor, err)
		}

		for _, evt := range events {
			if err := m.observe(evt); err != nil {
				return err
			}
			m.cursor = evt.LogSeq
		}

		if len(events) < m.params.BatchSize {
			return nil
		}
		slog.Debug("[Monitor] Backlog detected, continuing to drain", "cursor", m.cursor)
	}

	slog.Warn("[Monitor] Max consecutive batches reached, pausing drain",
		"max_batches", maxConsecutiveBatches,
		"cursor", m.cursor)
	return nil
}

func (m *Monitor) observe(evt *v1.Event) error {
	if evt.AggregateType != assettransfer.Kind {
		return nil
	}
	id := strings.TrimPrefix(evt.AggregateID, assettransfer.Kind+":")

	switch evt.Type {
	case assettransfer.EventInitiated:
		var payload assettransfer.TransferInitiated
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			return fmt.Errorf("decode %s event %s: %w", evt.Type, evt.ID, err)
		}
		m.pending[id] = &pendingTransfer{initiated: payload, at: evt.OccurredAt}

	case assettransfer.EventCompleted, assettransfer.EventFailed:
		if p, ok := m.pending[id]; ok && p.alerted {
			slog.Info("[Monitor] Stalled transfer resolved", "transfer_id", id, "outcome", evt.Type)
		}
		delete(m.pending, id)
	}
	return nil
}
