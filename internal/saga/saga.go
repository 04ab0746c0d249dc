// Package saga sequences steps across aggregates and external collaborators,
// and unwinds completed steps in reverse order when a later one fails.
package saga

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type sagaIDKey struct{}

// IDFromContext returns the id of the saga whose step is running on ctx.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sagaIDKey{}).(string)
	return id, ok
}

// StepRecord is one entry of the execution audit trail.
type StepRecord struct {
	Index             int           `json:"index"`
	Name              string        `json:"name"`
	Status            StepStatus    `json:"status"`
	StartedAt         time.Time     `json:"started_at"`
	FinishedAt        time.Time     `json:"finished_at"`
	Duration          time.Duration `json:"duration_ns"`
	Result            Context       `json:"result,omitempty"`
	Error             string        `json:"error,omitempty"`
	Compensation      StepStatus    `json:"compensation,omitempty"`
	CompensationError string        `json:"compensation_error,omitempty"`
}

// Option configures a Saga.
type Option func(*Saga)

// WithID overrides the generated saga id.
func WithID(id string) Option {
	return func(s *Saga) { s.id = id }
}

// WithLogger sets the logger; defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saga) { s.logger = logger }
}

// WithJournal records every terminal result in j.
func WithJournal(j Journal) Option {
	return func(s *Saga) { s.journal = j }
}

// WithStepTimeout bounds each Execute and Compensate call. Zero means no timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(s *Saga) { s.stepTimeout = d }
}

// WithClock replaces time.Now for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Saga) { s.nowFn = now }
}

// Saga is a single-use orchestration of a fixed step list.
type Saga struct {
	id          string
	name        string
	steps       []Step
	logger      *slog.Logger
	journal     Journal
	stepTimeout time.Duration
	nowFn       func() time.Time

	mu          sync.Mutex
	status      Status
	sc          Context
	executed    []StepRecord
	startedAt   time.Time
	completedAt time.Time
	err         error
	compErr     error
}

// New builds a saga from def. The step list is fixed here; initial seeds the context.
func New(def Definition, initial Context, opts ...Option) (*Saga, error) {
	steps := def.DefineSteps()
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: %s declares no steps", ErrInvalidDefinition, def.Name())
	}
	names := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		if step == nil {
			return nil, fmt.Errorf("%w: %s step %d is nil", ErrInvalidDefinition, def.Name(), i)
		}
		if step.Name() == "" {
			return nil, fmt.Errorf("%w: %s step %d has no name", ErrInvalidDefinition, def.Name(), i)
		}
		if _, dup := names[step.Name()]; dup {
			return nil, fmt.Errorf("%w: %s step name %q repeats", ErrInvalidDefinition, def.Name(), step.Name())
		}
		names[step.Name()] = struct{}{}
	}

	s := &Saga{
		id:     uuid.NewString(),
		name:   def.Name(),
		steps:  append([]Step(nil), steps...),
		status: StatusCreated,
		sc:     initial.Clone(),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("saga_id", s.id, "saga", s.name)
	return s, nil
}

// ID returns the saga instance id.
func (s *Saga) ID() string { return s.id }

// Name returns the definition name.
func (s *Saga) Name() string { return s.name }

// Status returns the current status.
func (s *Saga) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Execute runs the steps in order and, on the first failure, compensates the
// completed ones in reverse order.
//
// Step failures never surface as the returned error: they are reported by
// Result.Status and Result.Err. The returned error is non-nil only when
// compensation itself failed (a *CompensationError, with the Result still
// returned) or when the saga was already executed (nil Result).
func (s *Saga) Execute(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.status != StatusCreated {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is %s", ErrSagaAlreadyExecuted, s.id, s.status)
	}
	s.status = StatusRunning
	s.startedAt = s.nowFn()
	s.mu.Unlock()

	s.logger.Info("[Saga] Starting", "steps", len(s.steps))
	ctx = context.WithValue(ctx, sagaIDKey{}, s.id)

	if err := ctx.Err(); err != nil {
		s.err = err
		s.transition(StatusFailed)
		s.logger.Warn("[Saga] Not started, context already done", "error", err)
		return s.finish(ctx), nil
	}

	for i, step := range s.steps {
		if err := s.runStep(ctx, i, step); err != nil {
			s.err = &StepError{SagaID: s.id, Index: i, Step: step.Name(), Err: err}
			s.logger.Warn("[Saga] Step failed, compensating",
				"step", step.Name(),
				"index", i,
				"error", err)
			return s.handleFailure(ctx)
		}
	}

	s.transition(StatusCompleted)
	s.logger.Info("[Saga] Completed", "steps", len(s.executed))
	return s.finish(ctx), nil
}

// runStep executes one step and appends its audit record.
// Cancellation observed before the step starts counts as the step's failure.
func (s *Saga) runStep(ctx context.Context, index int, step Step) error {
	rec := StepRecord{
		Index:     index,
		Name:      step.Name(),
		Status:    StepRunning,
		StartedAt: s.nowFn(),
	}

	var delta Context
	err := ctx.Err()
	if err == nil {
		stepCtx, cancel := s.stepContext(ctx)
		delta, err = safeExecute(stepCtx, step, s.sc.Clone())
		cancel()
	}

	rec.FinishedAt = s.nowFn()
	rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)
	if err != nil {
		rec.Status = StepFailed
		rec.Error = err.Error()
		s.executed = append(s.executed, rec)
		return err
	}

	s.sc.Merge(delta)
	if len(delta) > 0 {
		rec.Result = delta.Clone()
	}
	rec.Status = StepCompleted
	s.executed = append(s.executed, rec)

	s.logger.Debug("[Saga] Step completed", "step", step.Name(), "index", index, "duration", rec.Duration)
	return nil
}

func (s *Saga) handleFailure(ctx context.Context) (*Result, error) {
	s.transition(StatusCompensating)

	if err := s.compensate(ctx); err != nil {
		s.compErr = err
		s.transition(StatusCompensationFailed)
		s.logger.Error("[Saga] Compensation failed, manual remediation required",
			"alert", true,
			"error", err,
			"original_error", s.err,
			KeyCompensatedSteps, s.sc.CompensatedSteps())
		return s.finish(ctx), err
	}

	s.transition(StatusCompensated)
	s.logger.Info("[Saga] Compensated", KeyCompensatedSteps, s.sc.CompensatedSteps())
	return s.finish(ctx), nil
}

// compensate walks the audit trail backwards and undoes completed steps.
// It stops at the first compensation error.
func (s *Saga) compensate(ctx context.Context) error {
	// Compensation must run even when the caller's context was cancelled.
	base := context.WithoutCancel(ctx)
	compensated := make([]string, 0, len(s.executed))
	s.sc[KeyCompensatedSteps] = compensated

	for i := len(s.executed) - 1; i >= 0; i-- {
		rec := &s.executed[i]
		if rec.Status != StepCompleted {
			continue
		}
		step := s.steps[rec.Index]
		if !step.HasCompensation() {
			s.logger.Info("[Saga] Step has no compensation, skipping", "step", rec.Name, "index", rec.Index)
			continue
		}

		rec.Compensation = StepRunning
		stepCtx, cancel := s.stepContext(base)
		err := safeCompensate(stepCtx, step, s.sc.Clone())
		cancel()

		if err != nil {
			rec.Compensation = StepCompensationFailed
			rec.CompensationError = err.Error()
			return &CompensationError{SagaID: s.id, Index: rec.Index, Step: rec.Name, Err: err}
		}

		rec.Compensation = StepCompensated
		compensated = append(compensated, rec.Name)
		s.sc[KeyCompensatedSteps] = compensated
		s.logger.Info("[Saga] Step compensated", "step", rec.Name, "index", rec.Index)
	}
	return nil
}

func (s *Saga) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.stepTimeout > 0 {
		return context.WithTimeout(ctx, s.stepTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Saga) transition(next Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.CanTransitionTo(next) {
		panic(fmt.Sprintf("saga: illegal transition %s -> %s", s.status, next))
	}
	s.status = next
}

func (s *Saga) finish(ctx context.Context) *Result {
	s.mu.Lock()
	s.completedAt = s.nowFn()
	s.mu.Unlock()

	result := s.result()
	if s.journal != nil {
		if err := s.journal.Record(context.WithoutCancel(ctx), result.Audit()); err != nil {
			s.logger.Error("[Saga] Failed to journal result", "error", err, "status", result.Status)
		}
	}
	return result
}

func (s *Saga) result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	executed := make([]StepRecord, len(s.executed))
	copy(executed, s.executed)
	return &Result{
		SagaID:          s.id,
		Name:            s.name,
		Status:          s.status,
		ExecutedSteps:   executed,
		Context:         s.sc.Clone(),
		Err:             s.err,
		CompensationErr: s.compErr,
		StartedAt:       s.startedAt,
		CompletedAt:     s.completedAt,
	}
}

func safeExecute(ctx context.Context, step Step, sc Context) (delta Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStepPanicked, r)
		}
	}()
	return step.Execute(ctx, sc)
}

func safeCompensate(ctx context.Context, step Step, sc Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStepPanicked, r)
		}
	}()
	return step.Compensate(ctx, sc)
}
