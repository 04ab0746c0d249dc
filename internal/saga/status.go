package saga

// Status is the lifecycle state of a saga execution.
//
// State transitions:
//
//	created → running → completed
//	               ↘
//	            compensating → compensated
//	                        ↘
//	                        compensation_failed
//
// running → failed is taken only when the caller's context is already done
// at Execute entry, so no step ran and there is nothing to unwind.
type Status string

const (
	StatusCreated            Status = "created"
	StatusRunning            Status = "running"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
	StatusCompensating       Status = "compensating"
	StatusCompensated        Status = "compensated"
	StatusCompensationFailed Status = "compensation_failed"
)

var statusTransitions = map[Status][]Status{
	StatusCreated:      {StatusRunning},
	StatusRunning:      {StatusCompleted, StatusFailed, StatusCompensating},
	StatusCompensating: {StatusCompensated, StatusCompensationFailed},
}

// CanTransitionTo reports whether moving from s to next is a legal forward step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can happen.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCompensated, StatusCompensationFailed:
		return true
	}
	return false
}

func (s Status) IsSuccess() bool { return s == StatusCompleted }

// IsFailure is true for failed and compensation_failed. A compensated saga is
// neither success nor failure: the business operation did not happen and
// nothing is left half-done.
func (s Status) IsFailure() bool {
	return s == StatusFailed || s == StatusCompensationFailed
}

func (s Status) IsCompensated() bool { return s == StatusCompensated }

// StepStatus is the status of one step execution record.
// The execution status is written once; compensation is tracked separately.
type StepStatus string

const (
	StepPending            StepStatus = "pending"
	StepRunning            StepStatus = "running"
	StepCompleted          StepStatus = "completed"
	StepFailed             StepStatus = "failed"
	StepCompensated        StepStatus = "compensated"
	StepCompensationFailed StepStatus = "compensation_failed"
)
