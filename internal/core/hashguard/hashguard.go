package hashguard

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"

	v1 "github.com/aevon-lab/project-ledger/internal/api/v1"
	"github.com/aevon-lab/project-ledger/internal/core/storage"
)

// fieldSeparator keeps ("ab","c") and ("a","bc") from hashing alike.
const fieldSeparator = "\x1f"

// Compute returns the SHA-256 command hash of the semantically significant
// command fields, e.g. Compute("credit", amount.String(), currency, nonce).
func Compute(fields ...string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(strings.Join(fields, fieldSeparator))))
}

// Guard wraps an EventLog and refuses to append an event whose command hash
// was already recorded for the aggregate.
//
// The check here gives callers a cheap early answer; stores enforce the same
// uniqueness inside the append so a check/append race cannot double-apply.
type Guard struct {
	log   storage.EventLog
	index storage.HashIndex
}

// New creates a guard around log, using index to look up recorded hashes.
func New(log storage.EventLog, index storage.HashIndex) *Guard {
	if log == nil {
		panic("hashguard: event log must not be nil")
	}
	if index == nil {
		panic("hashguard: hash index must not be nil")
	}
	return &Guard{log: log, index: index}
}

// Append checks every event's command hash, then delegates to the wrapped log.
// Returns storage.ErrDuplicateCommand without appending anything if any hash repeats.
func (g *Guard) Append(ctx context.Context, aggregateID string, expectedVersion int64, events []*v1.Event) (int64, error) {
	batch := make(map[string]struct{}, len(events))
	for _, evt := range events {
		if evt.CommandHash == "" {
			return 0, fmt.Errorf("event %s (%s) has no command hash", evt.ID, evt.Type)
		}
		if _, dup := batch[evt.CommandHash]; dup {
			return 0, g.duplicate(aggregateID, evt)
		}
		batch[evt.CommandHash] = struct{}{}

		seen, err := g.index.HasCommandHash(ctx, aggregateID, evt.CommandHash)
		if err != nil {
			return 0, fmt.Errorf("check command hash: %w", err)
		}
		if seen {
			return 0, g.duplicate(aggregateID, evt)
		}
	}

	return g.log.Append(ctx, aggregateID, expectedVersion, events)
}

// Load passes through to the wrapped log.
func (g *Guard) Load(ctx context.Context, aggregateID string) ([]*v1.Event, error) {
	return g.log.Load(ctx, aggregateID)
}

func (g *Guard) duplicate(aggregateID string, evt *v1.Event) error {
	slog.Info("[HashGuard] Duplicate command rejected",
		"aggregate_id", aggregateID,
		"event_type", evt.Type,
		"command_hash", evt.CommandHash)
	return fmt.Errorf("%w: aggregate %s hash %s", storage.ErrDuplicateCommand, aggregateID, evt.CommandHash)
}

var _ storage.EventLog = (*Guard)(nil)
