package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/project-ledger/internal/api/v1"
	"github.com/aevon-lab/project-ledger/internal/core/storage"
	"github.com/google/uuid"
)

// Repository loads aggregates by replaying their streams and persists staged events.
type Repository[T Aggregate] struct {
	log     storage.EventLog
	codec   *Codec
	factory func(id string) T
	nowFn   func() time.Time
	newID   func() string
}

// NewRepository creates a repository. log is normally a hashguard.Guard so every
// persisted command is deduplicated by its hash.
func NewRepository[T Aggregate](log storage.EventLog, codec *Codec, factory func(id string) T) *Repository[T] {
	if log == nil {
		panic("aggregate: event log must not be nil")
	}
	if codec == nil {
		panic("aggregate: codec must not be nil")
	}
	if factory == nil {
		panic("aggregate: factory must not be nil")
	}
	return &Repository[T]{
		log:     log,
		codec:   codec,
		factory: factory,
		nowFn:   func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Retrieve loads every event for id and replays it in ascending sequence order.
// An id without events yields a fresh aggregate whose Root().Exists() is false.
func (r *Repository[T]) Retrieve(ctx context.Context, id string) (T, error) {
	agg := r.factory(id)
	agg.Root().nowFn = r.nowFn

	events, err := r.log.Load(ctx, agg.Root().StreamID())
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s %s: %w", agg.Root().Kind(), id, err)
	}

	if err := Replay(agg, r.codec, events); err != nil {
		var zero T
		return zero, err
	}
	return agg, nil
}

// Replay applies historical events to agg in order.
// Events must continue the aggregate's current version without gaps.
func Replay(agg Aggregate, codec *Codec, events []*v1.Event) error {
	root := agg.Root()
	if len(root.pending) > 0 {
		return fmt.Errorf("replay %s %s: aggregate has uncommitted events", root.kind, root.id)
	}

	for _, evt := range events {
		if want := root.version + 1; evt.Sequence != want {
			return fmt.Errorf("%w: %s %s has sequence %d, want %d",
				ErrCorruptStream, root.kind, root.id, evt.Sequence, want)
		}
		p, err := codec.Decode(evt.Type, evt.Data)
		if err != nil {
			return fmt.Errorf("replay %s %s seq %d: %w", root.kind, root.id, evt.Sequence, err)
		}
		agg.Apply(p)
		root.version = evt.Sequence
		root.remember(evt.CommandHash)
	}
	return nil
}

// Persist flushes staged events through the event log, using the version read
// at Retrieve time as the expected version.
//
// storage.ErrVersionConflict and storage.ErrDuplicateCommand are returned
// wrapped. Either way the in-memory aggregate no longer matches the log and
// must be discarded; retry from a fresh Retrieve.
func (r *Repository[T]) Persist(ctx context.Context, agg T) error {
	root := agg.Root()
	if len(root.pending) == 0 {
		return nil
	}

	events := make([]*v1.Event, 0, len(root.pending))
	for i, p := range root.pending {
		data, err := r.codec.Encode(p.Payload)
		if err != nil {
			return err
		}
		evt := &v1.Event{
			ID:            r.newID(),
			AggregateID:   root.StreamID(),
			AggregateType: root.kind,
			Sequence:      root.version + int64(i) + 1,
			Type:          p.Payload.EventType(),
			CommandHash:   p.CommandHash,
			Metadata:      p.Metadata,
			OccurredAt:    p.OccurredAt,
			Data:          data,
		}
		if err := evt.Validate(); err != nil {
			return fmt.Errorf("invalid %s event: %w", evt.Type, err)
		}
		events = append(events, evt)
	}

	newVersion, err := r.log.Append(ctx, root.StreamID(), root.version, events)
	if err != nil {
		return fmt.Errorf("persist %s %s: %w", root.kind, root.id, err)
	}

	slog.Debug("[Aggregate] Persisted events",
		"aggregate_type", root.kind,
		"aggregate_id", root.id,
		"events", len(events),
		"version", newVersion)

	root.version = newVersion
	root.pending = nil
	return nil
}
