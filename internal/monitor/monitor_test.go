package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	v1 "github.com/aevon-lab/project-ledger/internal/api/v1"
	"github.com/aevon-lab/project-ledger/internal/core/storage/memory"
	"github.com/aevon-lab/project-ledger/internal/ledger"
	storagemocks "github.com/aevon-lab/project-ledger/internal/mocks/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type feedFunc func(ctx context.Context, cursor int64, limit int) ([]*v1.Event, error)

func (f feedFunc) RetrieveEventsAfterCursor(ctx context.Context, cursor int64, limit int) ([]*v1.Event, error) {
	return f(ctx, cursor, limit)
}

func later(d time.Duration) func() time.Time {
	return func() time.Time { return time.Now().UTC().Add(d) }
}

func TestMonitor_AlertsOnceForStalledTransfer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventLog()
	svc := ledger.NewService(store)

	_, err := svc.InitiateTransfer(ctx, "tr-stuck", "acc-a", "acc-b", "USDC", decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = svc.InitiateTransfer(ctx, "tr-done", "acc-a", "acc-b", "USDC", decimal.NewFromInt(5))
	require.NoError(t, err)
	_, err = svc.CompleteTransfer(ctx, "tr-done")
	require.NoError(t, err)

	var notified []Alert
	m := New(store, Parameters{StallAfter: time.Minute, BatchSize: 10},
		WithClock(later(10*time.Minute)),
		WithNotifier(func(a Alert) { notified = append(notified, a) }))

	alerts, err := m.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, "tr-stuck", alerts[0].TransferID)
	require.Equal(t, "acc-a", alerts[0].Source)
	require.True(t, decimal.NewFromInt(10).Equal(alerts[0].Amount))
	require.GreaterOrEqual(t, alerts[0].Age, 9*time.Minute)
	require.Equal(t, 1, m.Pending())

	alerts, err = m.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, alerts)
	require.Len(t, notified, 1)
}

func TestMonitor_YoungTransferIsNotStalled(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventLog()
	svc := ledger.NewService(store)

	_, err := svc.InitiateTransfer(ctx, "tr-1", "acc-a", "acc-b", "USDC", decimal.NewFromInt(1))
	require.NoError(t, err)

	m := New(store, Parameters{StallAfter: time.Hour}, WithNotifier(func(Alert) {}))
	alerts, err := m.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, alerts)
	require.Equal(t, 1, m.Pending())
}

func TestMonitor_ResolvedTransferLeavesPendingSet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventLog()
	svc := ledger.NewService(store)

	_, err := svc.InitiateTransfer(ctx, "tr-1", "acc-a", "acc-b", "USDC", decimal.NewFromInt(1))
	require.NoError(t, err)

	m := New(store, Parameters{StallAfter: time.Minute, BatchSize: 1},
		WithClock(later(time.Hour)),
		WithNotifier(func(Alert) {}))
	alerts, err := m.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	_, err = svc.FailTransfer(ctx, "tr-1", "operator reversed")
	require.NoError(t, err)

	alerts, err = m.Poll(ctx)
	require.NoError(t, err)
	require.Empty(t, alerts)
	require.Zero(t, m.Pending())
}

func TestMonitor_DrainsInBatches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventLog()
	svc := ledger.NewService(store)

	for _, id := range []string{"tr-1", "tr-2", "tr-3"} {
		_, err := svc.InitiateTransfer(ctx, id, "acc-a", "acc-b", "USDC", decimal.NewFromInt(1))
		require.NoError(t, err)
	}
	_, err := svc.OpenAccount(ctx, "acc-a", "alice", "USDC")
	require.NoError(t, err)

	var calls []int64
	feed := feedFunc(func(ctx context.Context, cursor int64, limit int) ([]*v1.Event, error) {
		calls = append(calls, cursor)
		return store.RetrieveEventsAfterCursor(ctx, cursor, limit)
	})

	m := New(feed, Parameters{StallAfter: time.Minute, BatchSize: 2},
		WithClock(later(time.Hour)),
		WithNotifier(func(Alert) {}))
	alerts, err := m.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	require.Equal(t, []int64{0, 2, 4}, calls)
	require.Equal(t, 3, m.Pending())
}

func TestMonitor_FeedError(t *testing.T) {
	boom := errors.New("feed unavailable")
	feed := storagemocks.NewEventFeed(t)
	feed.EXPECT().RetrieveEventsAfterCursor(mock.Anything, int64(0), 1000).Return(nil, boom).Once()

	_, err := New(feed, Parameters{}).Poll(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestMonitor_CorruptPayload(t *testing.T) {
	m := New(feedFunc(func(_ context.Context, cursor int64, _ int) ([]*v1.Event, error) {
		if cursor > 0 {
			return nil, nil
		}
		return []*v1.Event{{
			ID:            "evt-1",
			AggregateID:   "asset_transfer:tr-1",
			AggregateType: "asset_transfer",
			Type:          "transfer.initiated",
			Data:          []byte(`{"amount":`),
			LogSeq:        1,
		}}, nil
	}), Parameters{})

	_, err := m.Poll(context.Background())
	require.ErrorContains(t, err, "evt-1")
}

func TestMonitor_StartStopsWithContext(t *testing.T) {
	m := New(memory.NewEventLog(), Parameters{Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
