package saga

import (
	"encoding/json"
	"time"
)

// Result is the immutable outcome of one Execute call.
type Result struct {
	SagaID        string
	Name          string
	Status        Status
	ExecutedSteps []StepRecord
	Context       Context

	// Err is the business failure that triggered compensation, nil on success.
	Err error
	// CompensationErr is set only when Status is compensation_failed.
	CompensationErr error

	StartedAt   time.Time
	CompletedAt time.Time
}

func (r *Result) IsSuccess() bool { return r.Status.IsSuccess() }

func (r *Result) IsFailure() bool { return r.Status.IsFailure() }

func (r *Result) IsCompensated() bool { return r.Status.IsCompensated() }

// CompensatedSteps lists the steps undone during unwinding, in unwind order.
func (r *Result) CompensatedSteps() []string { return r.Context.CompensatedSteps() }

// Step returns the audit record for the named step.
func (r *Result) Step(name string) (StepRecord, bool) {
	for _, rec := range r.ExecutedSteps {
		if rec.Name == name {
			return rec, true
		}
	}
	return StepRecord{}, false
}

// Audit flattens the result into its serializable form. The record owns its
// steps and context, so later changes to r do not reach it.
func (r *Result) Audit() AuditRecord {
	steps := make([]StepRecord, len(r.ExecutedSteps))
	for i, step := range r.ExecutedSteps {
		if step.Result != nil {
			step.Result = step.Result.Clone()
		}
		steps[i] = step
	}
	rec := AuditRecord{
		SagaID:        r.SagaID,
		Name:          r.Name,
		Status:        r.Status,
		ExecutedSteps: steps,
		Context:       r.Context.Clone(),
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	if r.CompensationErr != nil {
		rec.CompensationError = r.CompensationErr.Error()
	}
	return rec
}

// ToMap returns the audit form as a generic map, for log sinks that want one.
func (r *Result) ToMap() map[string]interface{} {
	a := r.Audit()
	m := map[string]interface{}{
		"saga_id":        a.SagaID,
		"name":           a.Name,
		"status":         string(a.Status),
		"executed_steps": a.ExecutedSteps,
		"context":        map[string]interface{}(a.Context),
		"started_at":     a.StartedAt,
		"completed_at":   a.CompletedAt,
	}
	if a.Error != "" {
		m["error"] = a.Error
	}
	if a.CompensationError != "" {
		m["compensation_error"] = a.CompensationError
	}
	return m
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Audit())
}
