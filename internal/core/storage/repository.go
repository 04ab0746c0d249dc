package storage

import (
	"context"
	"errors"

	v1 "github.com/aevon-lab/project-ledger/internal/api/v1"
)

var (
	// ErrVersionConflict is returned when an append's expected version does not match
	// the stream's current version. The caller must reload and retry.
	ErrVersionConflict = errors.New("event stream version conflict")

	// ErrDuplicateCommand is returned when a command hash was already recorded for the
	// aggregate. Callers treat it as idempotent success: the effect already happened.
	ErrDuplicateCommand = errors.New("duplicate command")
)

// EventLog is the append-only, per-aggregate ordered event storage.
type EventLog interface {
	// Append atomically stores events at the end of the aggregate's stream.
	// expectedVersion is the last sequence the caller observed (0 for a new stream).
	// Events must carry sequences expectedVersion+1, expectedVersion+2, ...
	// Returns the new stream version, ErrVersionConflict or ErrDuplicateCommand.
	Append(ctx context.Context, aggregateID string, expectedVersion int64, events []*v1.Event) (int64, error)

	// Load returns every event of the stream ordered by Sequence ASC.
	// An unknown aggregate yields an empty slice, not an error.
	Load(ctx context.Context, aggregateID string) ([]*v1.Event, error)
}

// HashIndex answers whether a command hash has already produced an event.
type HashIndex interface {
	HasCommandHash(ctx context.Context, aggregateID string, commandHash string) (bool, error)
}

// EventFeed tails the whole log in strict total order.
type EventFeed interface {
	// RetrieveEventsAfterCursor fetches events with LogSeq > cursor ordered by LogSeq ASC.
	// cursor=0 means "from the beginning"
	RetrieveEventsAfterCursor(ctx context.Context, cursor int64, limit int) ([]*v1.Event, error)
}

// Store is the full storage surface a backend provides.
type Store interface {
	EventLog
	HashIndex
	EventFeed
}
