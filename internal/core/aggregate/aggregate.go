package aggregate

import (
	"errors"
	"fmt"
	"time"

	"github.com/aevon-lab/project-ledger/internal/core/storage"
)

var (
	// ErrInvalidStateTransition is returned when a command is issued against an
	// aggregate that is not in the required prior state.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrCorruptStream is returned when a loaded stream is out of order or has gaps.
	ErrCorruptStream = errors.New("corrupt event stream")

	// ErrUnknownEventType is returned when no payload is registered for an event type.
	ErrUnknownEventType = errors.New("unknown event type")
)

// Duplicate reports a command whose hash is already on the stream.
// It matches storage.ErrDuplicateCommand so callers handle both paths alike.
func Duplicate(kind, id, command string) error {
	return fmt.Errorf("%w: %s %s already applied %s", storage.ErrDuplicateCommand, kind, id, command)
}

// InvalidTransition builds an ErrInvalidStateTransition for a rejected command.
func InvalidTransition(kind, command, state string) error {
	return fmt.Errorf("%w: %s cannot %s from state %q", ErrInvalidStateTransition, kind, command, state)
}

// Payload is one variant of an aggregate's event union.
// Payloads are pointer types so a Codec can decode into fresh instances.
type Payload interface {
	EventType() string
}

// Aggregate is a replay-driven state machine.
//
// Apply is the only code path allowed to mutate state. It is called for
// freshly recorded events and for historical replay alike, must not perform
// I/O, and must not fail on any event that was valid enough to be appended.
type Aggregate interface {
	Root() *Root
	Apply(p Payload)
}

// Pending is an event staged by a command but not yet persisted.
type Pending struct {
	Payload     Payload
	CommandHash string
	OccurredAt  time.Time
	Metadata    map[string]string
}

// Root carries the identity, version and pending buffer shared by all aggregates.
// Embed it and return it from Root().
type Root struct {
	id       string
	kind     string
	version  int64
	pending  []Pending
	hashes   map[string]struct{}
	metadata map[string]string
	nowFn    func() time.Time
}

// NewRoot creates the root of a not-yet-loaded aggregate.
func NewRoot(kind, id string) Root {
	return Root{kind: kind, id: id}
}

// ID returns the aggregate's stable identifier.
func (r *Root) ID() string { return r.id }

// Kind returns the aggregate type name.
func (r *Root) Kind() string { return r.kind }

// StreamID names the aggregate's stream in the event log ("account:acc-1").
// Kinds share one log, so ids only need to be unique per kind.
func (r *Root) StreamID() string { return r.kind + ":" + r.id }

// Version returns the last persisted sequence number (0 for a new stream).
func (r *Root) Version() int64 { return r.version }

// Exists reports whether the aggregate has any applied state.
func (r *Root) Exists() bool { return r.version > 0 || len(r.pending) > 0 }

// Uncommitted returns a copy of the staged, unpersisted events.
func (r *Root) Uncommitted() []Pending {
	out := make([]Pending, len(r.pending))
	copy(out, r.pending)
	return out
}

// Seen reports whether commandHash was already recorded on this stream,
// persisted or staged. Commands check it before validating so a retried
// command reports a duplicate rather than a state error.
func (r *Root) Seen(commandHash string) bool {
	_, ok := r.hashes[commandHash]
	return ok
}

func (r *Root) remember(commandHash string) {
	if commandHash == "" {
		return
	}
	if r.hashes == nil {
		r.hashes = make(map[string]struct{})
	}
	r.hashes[commandHash] = struct{}{}
}

// Annotate attaches metadata to every event staged afterwards (e.g., saga_id).
func (r *Root) Annotate(key, value string) {
	if r.metadata == nil {
		r.metadata = make(map[string]string)
	}
	r.metadata[key] = value
}

func (r *Root) now() time.Time {
	if r.nowFn != nil {
		return r.nowFn()
	}
	return time.Now().UTC()
}

func (r *Root) stage(p Payload, commandHash string) {
	var md map[string]string
	if len(r.metadata) > 0 {
		md = make(map[string]string, len(r.metadata))
		for k, v := range r.metadata {
			md[k] = v
		}
	}
	r.remember(commandHash)
	r.pending = append(r.pending, Pending{
		Payload:     p,
		CommandHash: commandHash,
		OccurredAt:  r.now(),
		Metadata:    md,
	})
}

// Record stages a new event on agg and applies it immediately, so later
// commands in the same call chain observe the updated state.
// Command methods call Record after validating their preconditions.
func Record(agg Aggregate, commandHash string, p Payload) {
	agg.Apply(p)
	agg.Root().stage(p, commandHash)
}
