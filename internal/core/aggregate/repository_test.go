package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	v1 "github.com/aevon-lab/project-ledger/internal/api/v1"
	"github.com/aevon-lab/project-ledger/internal/core/hashguard"
	"github.com/aevon-lab/project-ledger/internal/core/storage"
	"github.com/aevon-lab/project-ledger/internal/core/storage/memory"
	storagemocks "github.com/aevon-lab/project-ledger/internal/mocks/storage"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type incremented struct {
	By    int    `json:"by"`
	Nonce string `json:"nonce"`
}

func (*incremented) EventType() string { return "counter.incremented" }

type reset struct{}

func (*reset) EventType() string { return "counter.reset" }

type counter struct {
	root  Root
	value int
	steps []int
}

func newCounter(id string) *counter {
	return &counter{root: NewRoot("counter", id)}
}

func (c *counter) Root() *Root { return &c.root }

func (c *counter) Apply(p Payload) {
	switch e := p.(type) {
	case *incremented:
		c.value += e.By
		c.steps = append(c.steps, e.By)
	case *reset:
		c.value = 0
	}
}

func (c *counter) Increment(by int, nonce string) {
	Record(c, hashguard.Compute("increment", nonce), &incremented{By: by, Nonce: nonce})
}

func newCodec() *Codec {
	codec := NewCodec()
	codec.Register(
		func() Payload { return &incremented{} },
		func() Payload { return &reset{} },
	)
	return codec
}

func newRepo(log storage.EventLog) *Repository[*counter] {
	repo := NewRepository(log, newCodec(), newCounter)
	repo.nowFn = func() time.Time { return time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC) }
	return repo
}

func guarded() (*memory.EventLog, *Repository[*counter]) {
	store := memory.NewEventLog()
	return store, newRepo(hashguard.New(store, store))
}

func TestRepository_RetrieveUnknownIsFresh(t *testing.T) {
	_, repo := guarded()

	c, err := repo.Retrieve(context.Background(), "c-1")
	require.NoError(t, err)
	require.False(t, c.Root().Exists())
	require.Equal(t, int64(0), c.Root().Version())
	require.Equal(t, "c-1", c.Root().ID())
	require.Equal(t, "counter:c-1", c.Root().StreamID())
}

func TestRepository_RecordAppliesImmediately(t *testing.T) {
	_, repo := guarded()
	c, err := repo.Retrieve(context.Background(), "c-1")
	require.NoError(t, err)

	c.Increment(2, "n1")
	c.Increment(3, "n2")

	require.Equal(t, 5, c.value)
	require.True(t, c.Root().Exists())
	require.Len(t, c.Root().Uncommitted(), 2)
	require.Equal(t, int64(0), c.Root().Version())
}

func TestRepository_PersistAndReplay(t *testing.T) {
	ctx := context.Background()
	store, repo := guarded()

	c, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)
	c.Root().Annotate("saga_id", "saga-1")
	c.Increment(2, "n1")
	c.Increment(3, "n2")
	require.NoError(t, repo.Persist(ctx, c))
	require.Equal(t, int64(2), c.Root().Version())
	require.Empty(t, c.Root().Uncommitted())

	events, err := store.Load(ctx, "counter:c-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "counter", events[0].AggregateType)
	require.Equal(t, "counter.incremented", events[0].Type)
	require.Equal(t, "saga-1", events[0].Metadata["saga_id"])
	require.JSONEq(t, `{"by":2,"nonce":"n1"}`, string(events[0].Data))

	reloaded, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)
	require.Equal(t, 5, reloaded.value)
	require.Equal(t, int64(2), reloaded.Root().Version())
}

func TestRepository_ReplayIsDeterministic(t *testing.T) {
	ctx := context.Background()
	_, repo := guarded()

	c, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)
	for i, by := range []int{4, -1, 7, 3} {
		c.Increment(by, string(rune('a'+i)))
	}
	require.NoError(t, repo.Persist(ctx, c))

	first, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)
	second, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)

	require.Equal(t, first.value, second.value)
	require.Equal(t, first.steps, second.steps)
	require.Equal(t, c.value, first.value)
}

func TestRepository_DuplicateCommandAppendsOnce(t *testing.T) {
	ctx := context.Background()
	store, repo := guarded()

	c, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)
	c.Increment(5, "same")
	require.NoError(t, repo.Persist(ctx, c))

	again, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)
	again.Increment(5, "same")
	err = repo.Persist(ctx, again)
	require.ErrorIs(t, err, storage.ErrDuplicateCommand)
	require.Equal(t, 1, store.Len("counter:c-1"))

	reloaded, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)
	require.Equal(t, 5, reloaded.value)
}

func TestRepository_ConcurrentPersistFromSameVersion(t *testing.T) {
	ctx := context.Background()
	store, repo := guarded()

	a, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)
	b, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)

	a.Increment(1, "from-a")
	b.Increment(1, "from-b")

	results := make(chan error, 2)
	go func() { results <- repo.Persist(ctx, a) }()
	go func() { results <- repo.Persist(ctx, b) }()

	var succeeded, conflicted int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, storage.ErrVersionConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, conflicted)
	require.Equal(t, 1, store.Len("counter:c-1"))
}

func TestRepository_CorruptStream(t *testing.T) {
	log := storagemocks.NewEventLog(t)
	log.EXPECT().Load(mock.Anything, "counter:c-1").Return([]*v1.Event{
		{ID: "e1", AggregateID: "counter:c-1", Type: "counter.incremented", Sequence: 1, Data: json.RawMessage(`{"by":1}`)},
		{ID: "e3", AggregateID: "counter:c-1", Type: "counter.incremented", Sequence: 3, Data: json.RawMessage(`{"by":1}`)},
	}, nil).Once()

	_, err := newRepo(log).Retrieve(context.Background(), "c-1")
	require.ErrorIs(t, err, ErrCorruptStream)
}

func TestRepository_UnknownEventType(t *testing.T) {
	log := storagemocks.NewEventLog(t)
	log.EXPECT().Load(mock.Anything, "counter:c-1").Return([]*v1.Event{
		{ID: "e1", AggregateID: "counter:c-1", Type: "counter.exploded", Sequence: 1},
	}, nil).Once()

	_, err := newRepo(log).Retrieve(context.Background(), "c-1")
	require.ErrorIs(t, err, ErrUnknownEventType)
}

func TestRepository_PersistWithoutPendingIsNoop(t *testing.T) {
	log := storagemocks.NewEventLog(t)
	log.EXPECT().Load(mock.Anything, "counter:c-1").Return(nil, nil).Once()

	repo := newRepo(log)
	c, err := repo.Retrieve(context.Background(), "c-1")
	require.NoError(t, err)
	require.NoError(t, repo.Persist(context.Background(), c))
}

func TestInvalidTransition(t *testing.T) {
	err := InvalidTransition("transfer", "complete", "failed")
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	require.ErrorContains(t, err, `transfer cannot complete from state "failed"`)
}

func TestCodec_RegisterTwicePanics(t *testing.T) {
	codec := newCodec()
	require.Panics(t, func() {
		codec.Register(func() Payload { return &reset{} })
	})
}

func TestRoot_SeenCoversReplayedAndStagedHashes(t *testing.T) {
	ctx := context.Background()
	_, repo := guarded()

	c, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)
	c.Increment(1, "persisted")
	require.NoError(t, repo.Persist(ctx, c))

	reloaded, err := repo.Retrieve(ctx, "c-1")
	require.NoError(t, err)
	require.True(t, reloaded.Root().Seen(hashguard.Compute("increment", "persisted")))
	require.False(t, reloaded.Root().Seen(hashguard.Compute("increment", "staged")))

	reloaded.Increment(1, "staged")
	require.True(t, reloaded.Root().Seen(hashguard.Compute("increment", "staged")))
}

func TestDuplicate(t *testing.T) {
	err := Duplicate("counter", "c-1", "increment")
	require.ErrorIs(t, err, storage.ErrDuplicateCommand)
	require.Contains(t, err.Error(), "c-1")
}
