package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/amqp"
	"folio/internal/core"
	"folio/internal/sheets/memory"
)

func seed(t *testing.T, s *memory.Store) core.Account {
	t.Helper()
	ctx := context.Background()
	a, err := s.AddAccount(ctx, core.Account{Type: core.Brokerage, Name: "PEA", Platform: "boursorama"})
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, core.Transaction{AccountID: a.ID, Kind: core.Deposit, Amount: decimal.NewFromInt(100), Recurrence: core.OneTime})
	require.NoError(t, err)
	return a
}

func TestMirrorWorker_Sync(t *testing.T) {
	ctx := context.Background()
	source, target := memory.New(), memory.New()
	seed(t, source)
	_, err := target.AddAccount(ctx, core.Account{Type: core.Crypto, Name: "stale", Platform: "other"})
	require.NoError(t, err)

	w := NewMirrorWorker(source, target, time.Minute)
	require.NoError(t, w.Sync(ctx))

	want, err := source.Snapshot(ctx)
	require.NoError(t, err)
	got, err := target.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Accounts, got.Accounts)
	assert.Equal(t, want.Transactions, got.Transactions)
	assert.Equal(t, 1, w.Syncs())
}

type failingMirror struct{ *memory.Store }

func (failingMirror) ReplaceAll(context.Context, core.Snapshot) error {
	return core.Unavailable("write workbook", errors.New("read-only"))
}

func TestMirrorWorker_SyncError(t *testing.T) {
	w := NewMirrorWorker(memory.New(), failingMirror{memory.New()}, time.Minute)
	err := w.Sync(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.Equal(t, 0, w.Syncs())
}

func TestMirrorWorker_HandleChangeEventSkipsCoveredEvents(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	w := NewMirrorWorker(memory.New(), memory.New(), time.Minute)
	w.now = func() time.Time { return clock }

	require.NoError(t, w.HandleChangeEvent(ctx, amqp.ChangeEvent{Kind: amqp.KindAccount, Op: amqp.OpCreate, Timestamp: clock.Add(-time.Second)}))
	assert.Equal(t, 1, w.Syncs())

	// older than the last sync start: already mirrored
	require.NoError(t, w.HandleChangeEvent(ctx, amqp.ChangeEvent{Kind: amqp.KindAccount, Op: amqp.OpUpdate, Timestamp: clock.Add(-time.Millisecond)}))
	assert.Equal(t, 1, w.Syncs())

	require.NoError(t, w.HandleChangeEvent(ctx, amqp.ChangeEvent{Kind: amqp.KindAccount, Op: amqp.OpDelete, Timestamp: clock.Add(time.Second)}))
	assert.Equal(t, 2, w.Syncs())
}

type fakeEvents struct {
	events []amqp.ChangeEvent
	done   chan struct{}
}

func (f *fakeEvents) Consume(ctx context.Context, handler func(context.Context, amqp.ChangeEvent) error) error {
	for _, e := range f.events {
		if err := handler(ctx, e); err != nil {
			return err
		}
	}
	close(f.done)
	<-ctx.Done()
	return ctx.Err()
}

func TestMirrorWorker_Run(t *testing.T) {
	source, target := memory.New(), memory.New()
	a := seed(t, source)

	w := NewMirrorWorker(source, target, time.Hour)
	events := &fakeEvents{
		events: []amqp.ChangeEvent{amqp.NewChangeEvent(amqp.KindAccount, amqp.OpCreate, a.ID)},
		done:   make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, events) }()

	select {
	case <-events.done:
	case <-time.After(5 * time.Second):
		t.Fatal("events were not consumed")
	}
	cancel()
	require.NoError(t, <-errc)

	accounts, err := target.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, a.ID, accounts[0].ID)
	assert.GreaterOrEqual(t, w.Syncs(), 1)
}

func TestMirrorWorker_RunWithoutEvents(t *testing.T) {
	source, target := memory.New(), memory.New()
	seed(t, source)
	w := NewMirrorWorker(source, target, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx, nil))
	assert.GreaterOrEqual(t, w.Syncs(), 2, "startup sync plus at least one tick")
}
