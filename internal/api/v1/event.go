package v1

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the atomic unit of the system: one immutable fact about one aggregate.
// It separates the "Envelope" (System Attributes) from the "Letter" (Data).
type Event struct {
	// --- System Attributes (The Envelope) ---

	// ID is a globally unique identifier assigned when the event is staged.
	ID string `json:"id"`

	// AggregateID identifies the stream this event belongs to.
	// Examples: "account:acc-123", "asset_transfer:4b1f..."
	AggregateID string `json:"aggregate_id"`

	// AggregateType is the kind of aggregate that owns the stream (e.g., "account").
	AggregateType string `json:"aggregate_type"`

	// Sequence is the position of the event within its aggregate stream.
	// Starts at 1, strictly increasing, gapless.
	Sequence int64 `json:"sequence"`

	// Type is the domain-specific event name (e.g., "account.credited").
	// This acts as the key for payload decoding.
	Type string `json:"type"`

	// CommandHash is the deduplication token of the command that produced this event.
	// Unique per AggregateID.
	CommandHash string `json:"command_hash"`

	// Metadata is a generic key-value store for context (e.g., saga_id, trace_id).
	Metadata map[string]string `json:"metadata,omitempty"`

	// OccurredAt is when the command was accepted by the aggregate.
	OccurredAt time.Time `json:"occurred_at"`

	// RecordedAt is when the event log durably stored the event.
	// Set by the store, not by the aggregate.
	RecordedAt time.Time `json:"recorded_at"`

	// LogSeq is a monotonic sequence number across all streams.
	// Set by the store, used only for cursor-based tailing.
	LogSeq int64 `json:"-"`

	// --- Payload (The Letter) ---

	// Data is the JSON-encoded domain payload.
	Data json.RawMessage `json:"data"`
}

// Validate ensures the event has all required system attributes.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}

	if e.AggregateID == "" {
		return fmt.Errorf("aggregate_id is required")
	}

	if e.Type == "" {
		return fmt.Errorf("type is required")
	}

	if e.Sequence <= 0 {
		return fmt.Errorf("sequence must be > 0, got %d", e.Sequence)
	}

	if e.CommandHash == "" {
		return fmt.Errorf("command_hash is required")
	}

	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}

	if len(e.Data) > 0 && !json.Valid(e.Data) {
		return fmt.Errorf("data must be valid JSON")
	}

	return nil
}
