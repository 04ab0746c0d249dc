package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	v1 "github.com/aevon-lab/project-ledger/internal/api/v1"
	"github.com/aevon-lab/project-ledger/internal/core/storage"
)

// EventLog is an in-memory implementation of storage.Store.
// Useful for testing and development.
type EventLog struct {
	mu      sync.RWMutex
	streams map[string][]*v1.Event
	hashes  map[string]map[string]struct{}
	all     []*v1.Event
	nowFn   func() time.Time
}

// NewEventLog creates a new in-memory event log.
func NewEventLog() *EventLog {
	return &EventLog{
		streams: make(map[string][]*v1.Event),
		hashes:  make(map[string]map[string]struct{}),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (l *EventLog) Append(ctx context.Context, aggregateID string, expectedVersion int64, events []*v1.Event) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stream := l.streams[aggregateID]
	current := int64(len(stream))
	if current != expectedVersion {
		return 0, fmt.Errorf("%w: aggregate %s at version %d, expected %d",
			storage.ErrVersionConflict, aggregateID, current, expectedVersion)
	}
	if len(events) == 0 {
		return current, nil
	}

	// Validate the whole batch before touching state so the append stays atomic.
	seen := l.hashes[aggregateID]
	batch := make(map[string]struct{}, len(events))
	for i, evt := range events {
		if evt.AggregateID != aggregateID {
			return 0, fmt.Errorf("event %s belongs to %s, not %s", evt.ID, evt.AggregateID, aggregateID)
		}
		if want := expectedVersion + int64(i) + 1; evt.Sequence != want {
			return 0, fmt.Errorf("event %s has sequence %d, want %d", evt.ID, evt.Sequence, want)
		}
		if _, dup := seen[evt.CommandHash]; dup {
			return 0, fmt.Errorf("%w: aggregate %s hash %s", storage.ErrDuplicateCommand, aggregateID, evt.CommandHash)
		}
		if _, dup := batch[evt.CommandHash]; dup {
			return 0, fmt.Errorf("%w: aggregate %s hash %s", storage.ErrDuplicateCommand, aggregateID, evt.CommandHash)
		}
		batch[evt.CommandHash] = struct{}{}
	}

	if seen == nil {
		seen = make(map[string]struct{}, len(events))
		l.hashes[aggregateID] = seen
	}
	recordedAt := l.nowFn()
	for _, evt := range events {
		// Store a copy to prevent external modification
		stored := *evt
		stored.RecordedAt = recordedAt
		stored.LogSeq = int64(len(l.all)) + 1
		evt.RecordedAt = stored.RecordedAt
		evt.LogSeq = stored.LogSeq

		stream = append(stream, &stored)
		l.all = append(l.all, &stored)
		seen[evt.CommandHash] = struct{}{}
	}
	l.streams[aggregateID] = stream

	return int64(len(stream)), nil
}

func (l *EventLog) Load(ctx context.Context, aggregateID string) ([]*v1.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	stream := l.streams[aggregateID]
	result := make([]*v1.Event, 0, len(stream))
	for _, evt := range stream {
		// Return a copy to prevent external modification
		copy := *evt
		result = append(result, &copy)
	}
	return result, nil
}

func (l *EventLog) HasCommandHash(ctx context.Context, aggregateID string, commandHash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.hashes[aggregateID][commandHash]
	return ok, nil
}

func (l *EventLog) RetrieveEventsAfterCursor(ctx context.Context, cursor int64, limit int) ([]*v1.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if cursor < 0 {
		cursor = 0
	}
	var result []*v1.Event
	// LogSeq is the 1-based index into l.all.
	for i := cursor; i < int64(len(l.all)); i++ {
		if limit > 0 && len(result) >= limit {
			break
		}
		copy := *l.all[i]
		result = append(result, &copy)
	}
	return result, nil
}

// Len returns the number of events stored for one aggregate.
func (l *EventLog) Len(aggregateID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.streams[aggregateID])
}

// Ping satisfies the server health checker.
func (l *EventLog) Ping(ctx context.Context) error {
	return ctx.Err()
}

var _ storage.Store = (*EventLog)(nil)
