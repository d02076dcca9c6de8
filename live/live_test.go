package live_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crew-ledger/live"
	"github.com/warp/crew-ledger/records"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

// =============================================================================
// HUB
// =============================================================================

func TestHub_FiltersByTable(t *testing.T) {
	hub := live.NewHub()
	ch, cancel := hub.Subscribe(records.TableShiftAssignments)
	defer cancel()

	hub.Publish(records.Change{Table: records.TableEmployers, Op: records.OpInsert, ID: "e-1"})
	hub.Publish(records.Change{Table: records.TableShiftAssignments, Op: records.OpUpdate, ID: "a-1"})

	got := receive(t, ch)
	assert.Equal(t, records.TableShiftAssignments, got.Table)
	assert.Equal(t, "a-1", got.ID)

	select {
	case c := <-ch:
		t.Fatalf("unexpected change %+v", c)
	default:
	}
}

func TestHub_ResetReachesEveryone(t *testing.T) {
	hub := live.NewHub()
	ch, cancel := hub.Subscribe(records.TablePayments)
	defer cancel()

	hub.Publish(records.Change{Op: records.OpReset})

	assert.Equal(t, records.OpReset, receive(t, ch).Op)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := live.NewHub()
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(records.Change{Table: records.TableWorkers, Op: records.OpInsert})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	hub := live.NewHub()
	ch, cancel := hub.Subscribe()
	assert.Equal(t, 1, hub.SubscriberCount())

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.SubscriberCount())
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_RecomputesOnWrite(t *testing.T) {
	// GIVEN: a query that counts its evaluations
	hub := live.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int64
	values := live.Watch(ctx, hub, []records.Table{records.TableShiftAssignments}, zerolog.Nop(),
		func(context.Context) (int64, error) {
			return calls.Add(1), nil
		})

	// THEN: the initial value arrives without any write
	assert.Equal(t, int64(1), receive(t, values))

	// WHEN: an unrelated table changes nothing is recomputed
	hub.Publish(records.Change{Table: records.TableEmployers, Op: records.OpInsert})
	// WHEN: a watched table changes
	hub.Publish(records.Change{Table: records.TableShiftAssignments, Op: records.OpUpdate})

	assert.Equal(t, int64(2), receive(t, values))
}

func TestWatch_ErrorYieldsZeroValue(t *testing.T) {
	hub := live.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	values := live.Watch(ctx, hub, nil, zerolog.Nop(), func(context.Context) (string, error) {
		return "ignored", errors.New("boom")
	})

	assert.Equal(t, "", receive(t, values))
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	hub := live.NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	values := live.Watch(ctx, hub, nil, zerolog.Nop(), func(context.Context) (int, error) {
		return 7, nil
	})
	assert.Equal(t, 7, receive(t, values))

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-values:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
