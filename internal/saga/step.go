package saga

import "context"

// Step is one unit of work in a saga.
//
// Steps hold no state between invocations. Collaborators are constructor
// dependencies; anything compensation needs travels through the Context.
type Step interface {
	// Name identifies the step in logs and the audit trail.
	Name() string

	// HasCompensation declares whether Compensate undoes Execute.
	// Steps without side effects (validation, reads) return false.
	HasCompensation() bool

	// Execute performs the forward action and returns a delta to merge into
	// the saga context. A returned error triggers compensation.
	Execute(ctx context.Context, sc Context) (Context, error)

	// Compensate undoes a previously completed Execute.
	// Only called when HasCompensation is true.
	Compensate(ctx context.Context, sc Context) error
}

// Func adapts plain functions to Step. A nil Undo means no compensation.
type Func struct {
	StepName string
	Run      func(ctx context.Context, sc Context) (Context, error)
	Undo     func(ctx context.Context, sc Context) error
}

func (f Func) Name() string { return f.StepName }

func (f Func) HasCompensation() bool { return f.Undo != nil }

func (f Func) Execute(ctx context.Context, sc Context) (Context, error) {
	if f.Run == nil {
		return nil, nil
	}
	return f.Run(ctx, sc)
}

func (f Func) Compensate(ctx context.Context, sc Context) error {
	if f.Undo == nil {
		return nil
	}
	return f.Undo(ctx, sc)
}

// Definition declares a concrete saga: its name and fixed, ordered steps.
type Definition interface {
	Name() string
	DefineSteps() []Step
}
