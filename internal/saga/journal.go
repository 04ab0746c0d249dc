package saga

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Journal.Get for unknown saga ids.
var ErrNotFound = errors.New("saga not found")

// AuditRecord is the serialized outcome of a saga, as stored by a Journal.
type AuditRecord struct {
	SagaID            string       `json:"saga_id"`
	Name              string       `json:"name"`
	Status            Status       `json:"status"`
	ExecutedSteps     []StepRecord `json:"executed_steps"`
	Context           Context      `json:"context"`
	Error             string       `json:"error,omitempty"`
	CompensationError string       `json:"compensation_error,omitempty"`
	StartedAt         time.Time    `json:"started_at"`
	CompletedAt       time.Time    `json:"completed_at"`
}

// Journal receives terminal saga results. Records are written once per saga.
type Journal interface {
	Record(ctx context.Context, rec AuditRecord) error
	Get(ctx context.Context, sagaID string) (*AuditRecord, error)
}

// MemoryJournal keeps audit records in process memory.
type MemoryJournal struct {
	mu      sync.RWMutex
	records map[string]AuditRecord
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{records: make(map[string]AuditRecord)}
}

func (j *MemoryJournal) Record(_ context.Context, rec AuditRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records[rec.SagaID] = rec
	return nil
}

func (j *MemoryJournal) Get(_ context.Context, sagaID string) (*AuditRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	rec, ok := j.records[sagaID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}
