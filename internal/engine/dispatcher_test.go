package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherJoinDrainsFanOut(t *testing.T) {
	d := NewDispatcher(testLogger())
	ctx := context.Background()

	var leaves atomic.Int32

	d.Subscribe("leaf", "count", func(_ context.Context, _ any) error {
		leaves.Add(1)
		return nil
	})

	// Each parent publishes more work than one join batch holds, so the
	// drain must loop.
	d.Subscribe("parent", "fanout", func(ctx context.Context, _ any) error {
		for i := 0; i < 125; i++ {
			d.Fire(ctx, "leaf", nil)
		}

		return nil
	})

	d.Fire(ctx, "parent", nil)
	d.Fire(ctx, "parent", nil)

	require.NoError(t, d.Join(ctx))

	assert.Equal(t, int32(250), leaves.Load())
	assert.Equal(t, 252, d.Submitted())
	assert.Equal(t, d.Submitted(), d.Processed(), "every fired event completes by join")
	assert.Equal(t, 250, d.Counts()["leaf"])
	assert.Equal(t, 2, d.Counts()["parent"])
}

func TestDispatcherConcurrencyCap(t *testing.T) {
	d := NewDispatcher(testLogger())
	ctx := context.Background()

	var running, peak atomic.Int32

	d.Subscribe("work", "gauge", func(_ context.Context, _ any) error {
		n := running.Add(1)

		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		time.Sleep(5 * time.Millisecond)
		running.Add(-1)

		return nil
	})

	for i := 0; i < 50; i++ {
		d.Fire(ctx, "work", nil)
	}

	require.NoError(t, d.Join(ctx))
	assert.LessOrEqual(t, peak.Load(), int32(concurrencyCap))
	assert.Greater(t, peak.Load(), int32(1), "handlers do run concurrently")
}

func TestDispatcherSurfacesHandlerError(t *testing.T) {
	d := NewDispatcher(testLogger())
	ctx := context.Background()

	boom := errors.New("handler exploded")

	var ok atomic.Int32

	d.Subscribe("work", "maybe", func(_ context.Context, payload any) error {
		if payload == "bad" {
			return boom
		}

		ok.Add(1)

		return nil
	})

	d.Fire(ctx, "work", "good")
	d.Fire(ctx, "work", "bad")
	d.Fire(ctx, "work", "good")

	err := d.Join(ctx)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int32(2), ok.Load(), "peer events are not canceled")
	assert.Equal(t, 3, d.Submitted())
	assert.Equal(t, 2, d.Processed(), "the failed event does not count as processed")
}

func TestDispatcherSubscribeSetSemantics(t *testing.T) {
	d := NewDispatcher(testLogger())
	ctx := context.Background()

	var calls atomic.Int32

	fn := func(_ context.Context, _ any) error {
		calls.Add(1)
		return nil
	}

	d.Subscribe("work", "once", fn)
	d.Subscribe("work", "once", fn)

	d.Fire(ctx, "work", nil)
	require.NoError(t, d.Join(ctx))

	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatcherHandlersRunSequentiallyPerEvent(t *testing.T) {
	d := NewDispatcher(testLogger())
	ctx := context.Background()

	var mu sync.Mutex

	var order []string

	record := func(name string) HandlerFunc {
		return func(_ context.Context, _ any) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()

			return nil
		}
	}

	d.Subscribe("work", "first", record("first"))
	d.Subscribe("work", "second", record("second"))

	d.Fire(ctx, "work", nil)
	require.NoError(t, d.Join(ctx))

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcherFirstHandlerErrorStopsEvent(t *testing.T) {
	d := NewDispatcher(testLogger())
	ctx := context.Background()

	boom := errors.New("first failed")

	var secondRan atomic.Bool

	d.Subscribe("work", "first", func(_ context.Context, _ any) error { return boom })
	d.Subscribe("work", "second", func(_ context.Context, _ any) error {
		secondRan.Store(true)
		return nil
	})

	d.Fire(ctx, "work", nil)

	require.ErrorIs(t, d.Join(ctx), boom)
	assert.False(t, secondRan.Load(), "later handlers are skipped after a failure")
}

func TestDispatcherJoinOnEmptyQueue(t *testing.T) {
	d := NewDispatcher(testLogger())

	require.NoError(t, d.Join(context.Background()))
	assert.Equal(t, 0, d.Submitted())
}
