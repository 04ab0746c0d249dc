package saga

import (
	"errors"
	"fmt"
)

var (
	// ErrSagaAlreadyExecuted is returned when Execute is called on a used saga.
	// Retries must build a new saga instance.
	ErrSagaAlreadyExecuted = errors.New("saga already executed")

	// ErrCompensationFailed matches every *CompensationError.
	ErrCompensationFailed = errors.New("saga compensation failed")

	// ErrStepPanicked wraps a panic recovered at the step boundary.
	ErrStepPanicked = errors.New("saga step panicked")

	// ErrInvalidDefinition is returned by New for unusable step lists.
	ErrInvalidDefinition = errors.New("invalid saga definition")
)

// StepError is the failure of a step's Execute. It triggers compensation and
// is preserved on the Result; it never escapes Execute as an error.
type StepError struct {
	SagaID string
	Index  int
	Step   string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga %s: step %d (%s) failed: %v", e.SagaID, e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// CompensationError is the failure of a step's Compensate. Unwinding stops at
// the first one and the saga ends in compensation_failed, which needs manual
// remediation.
type CompensationError struct {
	SagaID string
	Index  int
	Step   string
	Err    error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("saga %s: compensation of step %d (%s) failed: %v", e.SagaID, e.Index, e.Step, e.Err)
}

func (e *CompensationError) Unwrap() error { return e.Err }

func (e *CompensationError) Is(target error) bool { return target == ErrCompensationFailed }
