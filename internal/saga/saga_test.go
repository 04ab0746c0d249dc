package saga_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	sagamocks "github.com/aevon-lab/project-ledger/internal/mocks/saga"
	"github.com/aevon-lab/project-ledger/internal/saga"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type definition struct {
	name  string
	steps []saga.Step
}

func (d definition) Name() string             { return d.name }
func (d definition) DefineSteps() []saga.Step { return d.steps }

// recorder captures the order of Execute and Compensate calls.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) compensations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		if len(c) > 5 && c[:5] == "undo:" {
			out = append(out, c[5:])
		}
	}
	return out
}

func (r *recorder) step(name string, delta saga.Context) saga.Func {
	return saga.Func{
		StepName: name,
		Run: func(_ context.Context, _ saga.Context) (saga.Context, error) {
			r.add("run:" + name)
			return delta, nil
		},
		Undo: func(_ context.Context, _ saga.Context) error {
			r.add("undo:" + name)
			return nil
		},
	}
}

func (r *recorder) noUndo(name string) saga.Func {
	return saga.Func{
		StepName: name,
		Run: func(_ context.Context, _ saga.Context) (saga.Context, error) {
			r.add("run:" + name)
			return nil, nil
		},
	}
}

func (r *recorder) failing(name string, err error) saga.Func {
	return saga.Func{
		StepName: name,
		Run: func(_ context.Context, _ saga.Context) (saga.Context, error) {
			r.add("run:" + name)
			return nil, err
		},
		Undo: func(_ context.Context, _ saga.Context) error {
			r.add("undo:" + name)
			return nil
		},
	}
}

func newSaga(t *testing.T, steps []saga.Step, opts ...saga.Option) *saga.Saga {
	t.Helper()
	s, err := saga.New(definition{name: "test", steps: steps}, saga.Context{"seed": "x"}, opts...)
	require.NoError(t, err)
	return s
}

func statuses(res *saga.Result) []saga.StepStatus {
	out := make([]saga.StepStatus, len(res.ExecutedSteps))
	for i, rec := range res.ExecutedSteps {
		out[i] = rec.Status
	}
	return out
}

func TestExecute_AllStepsSucceed(t *testing.T) {
	rec := &recorder{}
	s := newSaga(t, []saga.Step{
		rec.step("one", saga.Context{"a": 1}),
		rec.step("two", saga.Context{"b": 2}),
		rec.step("three", saga.Context{"c": 3}),
	})

	res, err := s.Execute(context.Background())
	require.NoError(t, err)

	require.Equal(t, saga.StatusCompleted, res.Status)
	require.True(t, res.IsSuccess())
	require.False(t, res.IsFailure())
	require.Nil(t, res.Err)
	require.Len(t, res.ExecutedSteps, 3)
	require.Equal(t, []saga.StepStatus{saga.StepCompleted, saga.StepCompleted, saga.StepCompleted}, statuses(res))
	require.Equal(t, "x", res.Context["seed"])
	require.Equal(t, 1, res.Context["a"])
	require.Equal(t, 2, res.Context["b"])
	require.Equal(t, 3, res.Context["c"])
	require.Empty(t, rec.compensations())
	require.Equal(t, saga.StatusCompleted, s.Status())
	require.False(t, res.CompletedAt.Before(res.StartedAt))
}

func TestExecute_LaterStepsSeeEarlierDeltas(t *testing.T) {
	var seen string
	s := newSaga(t, []saga.Step{
		saga.Func{StepName: "produce", Run: func(_ context.Context, _ saga.Context) (saga.Context, error) {
			return saga.Context{"transfer_id": "tr-1"}, nil
		}},
		saga.Func{StepName: "consume", Run: func(_ context.Context, sc saga.Context) (saga.Context, error) {
			seen = sc.String("transfer_id")
			return nil, nil
		}},
	})

	_, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tr-1", seen)
}

func TestExecute_FailureCompensatesInReverse(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	s := newSaga(t, []saga.Step{
		rec.step("one", nil),
		rec.step("two", nil),
		rec.failing("three", boom),
	})

	res, err := s.Execute(context.Background())
	require.NoError(t, err)

	require.Equal(t, saga.StatusCompensated, res.Status)
	require.True(t, res.IsCompensated())
	require.Equal(t, []saga.StepStatus{saga.StepCompleted, saga.StepCompleted, saga.StepFailed}, statuses(res))
	require.Equal(t, []string{"two", "one"}, rec.compensations())
	require.Equal(t, []string{"two", "one"}, res.CompensatedSteps())

	require.ErrorIs(t, res.Err, boom)
	var stepErr *saga.StepError
	require.ErrorAs(t, res.Err, &stepErr)
	require.Equal(t, "three", stepErr.Step)
	require.Equal(t, 2, stepErr.Index)

	failed, ok := res.Step("three")
	require.True(t, ok)
	require.Equal(t, "boom", failed.Error)
	require.Empty(t, failed.Compensation)

	two, _ := res.Step("two")
	require.Equal(t, saga.StepCompensated, two.Compensation)
	require.Equal(t, saga.StepCompleted, two.Status)
}

func TestExecute_SkipsStepsWithoutCompensation(t *testing.T) {
	rec := &recorder{}
	s := newSaga(t, []saga.Step{
		rec.noUndo("validate"),
		rec.step("debit", nil),
		rec.failing("credit", errors.New("timeout")),
	})

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, saga.StatusCompensated, res.Status)
	require.Equal(t, []string{"debit"}, rec.compensations())
	require.Equal(t, []string{"debit"}, res.CompensatedSteps())

	validate, _ := res.Step("validate")
	require.Empty(t, validate.Compensation)
}

func TestExecute_CompensationFailureHaltsUnwind(t *testing.T) {
	rec := &recorder{}
	undoErr := errors.New("refund rejected")
	two := rec.step("two", nil)
	two.Undo = func(_ context.Context, _ saga.Context) error {
		rec.add("undo:two")
		return undoErr
	}
	s := newSaga(t, []saga.Step{
		rec.step("one", nil),
		two,
		rec.failing("three", errors.New("boom")),
	})

	res, err := s.Execute(context.Background())
	require.Error(t, err)
	require.NotNil(t, res)

	require.ErrorIs(t, err, saga.ErrCompensationFailed)
	require.ErrorIs(t, err, undoErr)
	var compErr *saga.CompensationError
	require.ErrorAs(t, err, &compErr)
	require.Equal(t, "two", compErr.Step)

	require.Equal(t, saga.StatusCompensationFailed, res.Status)
	require.True(t, res.IsFailure())
	require.Equal(t, []string{"two"}, rec.compensations())
	require.Empty(t, res.CompensatedSteps())
	require.ErrorIs(t, res.CompensationErr, undoErr)

	var stepErr *saga.StepError
	require.ErrorAs(t, res.Err, &stepErr)
	require.Equal(t, "three", stepErr.Step)

	one, _ := res.Step("one")
	require.Empty(t, one.Compensation)
	failedUndo, _ := res.Step("two")
	require.Equal(t, saga.StepCompensationFailed, failedUndo.Compensation)
	require.Equal(t, "refund rejected", failedUndo.CompensationError)
}

func TestExecute_CompensationOrderIsReverseOfCompletion(t *testing.T) {
	rec := &recorder{}
	s := newSaga(t, []saga.Step{
		rec.step("A", nil),
		rec.step("B", nil),
		rec.step("C", nil),
		rec.failing("external", errors.New("downstream rejected")),
	})

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"C", "B", "A"}, rec.compensations())
	require.Equal(t, []string{"C", "B", "A"}, res.CompensatedSteps())
	require.Equal(t, []string{
		"run:A", "run:B", "run:C", "run:external",
		"undo:C", "undo:B", "undo:A",
	}, rec.calls)
}

func TestExecute_PanicIsConvertedToStepFailure(t *testing.T) {
	rec := &recorder{}
	s := newSaga(t, []saga.Step{
		rec.step("one", nil),
		saga.Func{StepName: "explodes", Run: func(_ context.Context, _ saga.Context) (saga.Context, error) {
			panic("nil map write")
		}},
	})

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, saga.StatusCompensated, res.Status)
	require.ErrorIs(t, res.Err, saga.ErrStepPanicked)
	require.Equal(t, []string{"one"}, rec.compensations())
}

func TestExecute_PanickingCompensationFailsSaga(t *testing.T) {
	s := newSaga(t, []saga.Step{
		saga.Func{
			StepName: "one",
			Run:      func(_ context.Context, _ saga.Context) (saga.Context, error) { return nil, nil },
			Undo:     func(_ context.Context, _ saga.Context) error { panic("undo exploded") },
		},
		saga.Func{StepName: "two", Run: func(_ context.Context, _ saga.Context) (saga.Context, error) {
			return nil, errors.New("boom")
		}},
	})

	res, err := s.Execute(context.Background())
	require.ErrorIs(t, err, saga.ErrCompensationFailed)
	require.ErrorIs(t, err, saga.ErrStepPanicked)
	require.Equal(t, saga.StatusCompensationFailed, res.Status)
}

func TestExecute_StepTimeoutTriggersCompensation(t *testing.T) {
	rec := &recorder{}
	s := newSaga(t, []saga.Step{
		rec.step("debit", nil),
		saga.Func{StepName: "await_bank", Run: func(ctx context.Context, _ saga.Context) (saga.Context, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	}, saga.WithStepTimeout(20*time.Millisecond))

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, saga.StatusCompensated, res.Status)
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)
	require.Equal(t, []string{"debit"}, rec.compensations())
}

func TestExecute_CancellationBetweenStepsCompensatesWithLiveContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var undoCtxErr error
	secondRan := false
	s := newSaga(t, []saga.Step{
		saga.Func{
			StepName: "debit",
			Run: func(_ context.Context, _ saga.Context) (saga.Context, error) {
				cancel()
				return nil, nil
			},
			Undo: func(ctx context.Context, _ saga.Context) error {
				undoCtxErr = ctx.Err()
				return nil
			},
		},
		saga.Func{StepName: "credit", Run: func(_ context.Context, _ saga.Context) (saga.Context, error) {
			secondRan = true
			return nil, nil
		}},
	})

	res, err := s.Execute(ctx)
	require.NoError(t, err)
	require.False(t, secondRan)
	require.Equal(t, saga.StatusCompensated, res.Status)
	require.ErrorIs(t, res.Err, context.Canceled)
	require.Equal(t, []saga.StepStatus{saga.StepCompleted, saga.StepFailed}, statuses(res))
	require.NoError(t, undoCtxErr)
}

func TestExecute_ContextDoneBeforeStart(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSaga(t, []saga.Step{rec.step("one", nil)})
	res, err := s.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, saga.StatusFailed, res.Status)
	require.True(t, res.IsFailure())
	require.ErrorIs(t, res.Err, context.Canceled)
	require.Empty(t, res.ExecutedSteps)
	require.Empty(t, rec.calls)
}

func TestExecute_IsSingleUse(t *testing.T) {
	rec := &recorder{}
	s := newSaga(t, []saga.Step{rec.step("one", nil)})

	_, err := s.Execute(context.Background())
	require.NoError(t, err)

	res, err := s.Execute(context.Background())
	require.ErrorIs(t, err, saga.ErrSagaAlreadyExecuted)
	require.Nil(t, res)
	require.Equal(t, []string{"run:one"}, rec.calls)
}

func TestExecute_StepRecordsUseClock(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	rec := &recorder{}
	s := newSaga(t, []saga.Step{rec.step("one", nil)}, saga.WithClock(clock), saga.WithID("saga-fixed"))

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, "saga-fixed", res.SagaID)
	require.Equal(t, base.Add(time.Second), res.StartedAt)
	require.Equal(t, time.Second, res.ExecutedSteps[0].Duration)
	require.Equal(t, base.Add(4*time.Second), res.CompletedAt)
}

func TestNew_RejectsInvalidDefinitions(t *testing.T) {
	ok := saga.Func{StepName: "ok"}
	tests := []struct {
		name  string
		steps []saga.Step
	}{
		{"no steps", nil},
		{"nil step", []saga.Step{ok, nil}},
		{"unnamed step", []saga.Step{saga.Func{}}},
		{"repeated name", []saga.Step{ok, ok}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := saga.New(definition{name: "bad", steps: tt.steps}, nil)
			require.ErrorIs(t, err, saga.ErrInvalidDefinition)
		})
	}
}

func TestNew_GeneratesDistinctIDs(t *testing.T) {
	def := definition{name: "test", steps: []saga.Step{saga.Func{StepName: "one"}}}
	a, err := saga.New(def, nil)
	require.NoError(t, err)
	b, err := saga.New(def, nil)
	require.NoError(t, err)
	require.NotEqual(t, a.ID(), b.ID())
	require.Equal(t, saga.StatusCreated, a.Status())
}

func TestExecute_RecordsResultInJournal(t *testing.T) {
	journal := sagamocks.NewJournal(t)
	journal.EXPECT().
		Record(mock.Anything, mock.MatchedBy(func(rec saga.AuditRecord) bool {
			return rec.SagaID == "saga-1" &&
				rec.Status == saga.StatusCompensated &&
				rec.Error != "" &&
				len(rec.ExecutedSteps) == 2
		})).
		Return(nil).
		Once()

	rec := &recorder{}
	s := newSaga(t, []saga.Step{rec.step("one", nil), rec.failing("two", errors.New("boom"))},
		saga.WithID("saga-1"), saga.WithJournal(journal))

	_, err := s.Execute(context.Background())
	require.NoError(t, err)
}

func TestExecute_JournalFailureDoesNotChangeOutcome(t *testing.T) {
	journal := sagamocks.NewJournal(t)
	journal.EXPECT().Record(mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	rec := &recorder{}
	s := newSaga(t, []saga.Step{rec.step("one", nil)}, saga.WithJournal(journal))

	res, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, saga.StatusCompleted, res.Status)
}

func TestMemoryJournal(t *testing.T) {
	ctx := context.Background()
	j := saga.NewMemoryJournal()

	_, err := j.Get(ctx, "missing")
	require.ErrorIs(t, err, saga.ErrNotFound)

	rec := &recorder{}
	s := newSaga(t, []saga.Step{rec.step("one", saga.Context{"k": "v"})}, saga.WithJournal(j))
	res, err := s.Execute(ctx)
	require.NoError(t, err)

	got, err := j.Get(ctx, res.SagaID)
	require.NoError(t, err)
	require.Equal(t, saga.StatusCompleted, got.Status)
	require.Equal(t, "v", got.Context["k"])
}

func TestMemoryJournal_RecordIsDetachedFromResult(t *testing.T) {
	ctx := context.Background()
	j := saga.NewMemoryJournal()

	rec := &recorder{}
	s := newSaga(t, []saga.Step{rec.step("one", saga.Context{"k": "v"})}, saga.WithJournal(j))
	res, err := s.Execute(ctx)
	require.NoError(t, err)

	res.Context["k"] = "changed"
	res.ExecutedSteps[0].Name = "renamed"
	res.ExecutedSteps[0].Result["k"] = "changed"

	got, err := j.Get(ctx, res.SagaID)
	require.NoError(t, err)
	require.Equal(t, "v", got.Context["k"])
	require.Equal(t, "one", got.ExecutedSteps[0].Name)
	require.Equal(t, "v", got.ExecutedSteps[0].Result["k"])

	audit := res.Audit()
	audit.Context["extra"] = true
	require.NotContains(t, res.Context, "extra")
}

func TestResult_MarshalJSON(t *testing.T) {
	rec := &recorder{}
	s := newSaga(t, []saga.Step{rec.step("one", nil), rec.failing("two", errors.New("boom"))}, saga.WithID("saga-json"))
	res, err := s.Execute(context.Background())
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "saga-json", decoded["saga_id"])
	require.Equal(t, "compensated", decoded["status"])
	require.Contains(t, decoded["error"], "boom")
	require.Len(t, decoded["executed_steps"], 2)
	require.NotContains(t, decoded, "compensation_error")

	m := res.ToMap()
	require.Equal(t, "compensated", m["status"])
	require.Contains(t, m, "error")
}

func TestRunAll(t *testing.T) {
	rec := &recorder{}
	undoErr := errors.New("stuck")
	bad := rec.step("bad_one", nil)
	bad.Undo = func(_ context.Context, _ saga.Context) error { return undoErr }

	sagas := []*saga.Saga{
		newSaga(t, []saga.Step{rec.step("ok_one", nil)}),
		newSaga(t, []saga.Step{rec.step("comp_one", nil), rec.failing("comp_two", errors.New("boom"))}),
		newSaga(t, []saga.Step{bad, rec.failing("bad_two", errors.New("boom"))}),
	}

	results, err := saga.RunAll(context.Background(), 2, sagas...)
	require.ErrorIs(t, err, saga.ErrCompensationFailed)
	require.ErrorIs(t, err, undoErr)
	require.Len(t, results, 3)
	require.Equal(t, saga.StatusCompleted, results[0].Status)
	require.Equal(t, saga.StatusCompensated, results[1].Status)
	require.Equal(t, saga.StatusCompensationFailed, results[2].Status)
	for i, s := range sagas {
		require.Equal(t, s.ID(), results[i].SagaID)
	}
}

func TestRunAll_AllSucceed(t *testing.T) {
	rec := &recorder{}
	results, err := saga.RunAll(context.Background(), 0,
		newSaga(t, []saga.Step{rec.step("a", nil)}),
		newSaga(t, []saga.Step{rec.step("b", nil)}),
	)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestExecute_StepContextCarriesSagaID(t *testing.T) {
	var runID, undoID string
	s := newSaga(t, []saga.Step{
		saga.Func{
			StepName: "one",
			Run: func(ctx context.Context, _ saga.Context) (saga.Context, error) {
				runID, _ = saga.IDFromContext(ctx)
				return nil, nil
			},
			Undo: func(ctx context.Context, _ saga.Context) error {
				undoID, _ = saga.IDFromContext(ctx)
				return nil
			},
		},
		saga.Func{StepName: "two", Run: func(_ context.Context, _ saga.Context) (saga.Context, error) {
			return nil, errors.New("boom")
		}},
	}, saga.WithID("saga-ctx"))

	_, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, "saga-ctx", runID)
	require.Equal(t, "saga-ctx", undoID)

	_, ok := saga.IDFromContext(context.Background())
	require.False(t, ok)
}
