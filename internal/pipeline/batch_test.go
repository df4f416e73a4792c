package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll_SettlesEveryTaskInOrder(t *testing.T) {
	boom := errors.New("task 2 failed")
	tasks := []Task[string]{
		func(ctx context.Context) (string, error) { return "one", nil },
		func(ctx context.Context) (string, error) { return "", boom },
		func(ctx context.Context) (string, error) { return "three", nil },
	}

	out := RunAll(context.Background(), 2, tasks)

	require.Len(t, out, 3)
	assert.True(t, out[0].OK())
	assert.Equal(t, "one", out[0].Value)
	assert.ErrorIs(t, out[1].Err, boom)
	assert.Equal(t, 1, out[1].Index)
	assert.True(t, out[2].OK())
	assert.Equal(t, "three", out[2].Value)
}

func TestRunAll_RecoversPanics(t *testing.T) {
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { panic("kaboom") },
		func(ctx context.Context) (int, error) { return 7, nil },
	}

	out := RunAll(context.Background(), 0, tasks)

	require.Error(t, out[0].Err)
	assert.Contains(t, out[0].Err.Error(), "kaboom")
	assert.Equal(t, 7, out[1].Value)
}

func TestRunAll_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	tasks := make([]Task[struct{}], 8)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return struct{}{}, nil
		}
	}

	RunAll(context.Background(), 3, tasks)

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestRunAll_CancelledContextSkipsTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Bool
	out := RunAll(ctx, 1, []Task[int]{
		func(ctx context.Context) (int, error) { ran.Store(true); return 1, nil },
	})

	assert.ErrorIs(t, out[0].Err, context.Canceled)
	assert.False(t, ran.Load())
}

func TestRunAll_Empty(t *testing.T) {
	assert.Empty(t, RunAll[int](context.Background(), 2, nil))
}

func TestStream_EmitsProgressThenDone(t *testing.T) {
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 0, errors.New("bad") },
		func(ctx context.Context) (int, error) { return 3, nil },
	}

	var events []Event[int]
	for ev := range Stream(context.Background(), 2, tasks) {
		events = append(events, ev)
	}

	require.Len(t, events, 4)
	seen := map[int]bool{}
	for i, ev := range events[:3] {
		assert.False(t, ev.Done)
		assert.Equal(t, i+1, ev.Completed)
		assert.Equal(t, 3, ev.Total)
		assert.InDelta(t, float64(i+1)/3, ev.Progress, 1e-9)
		seen[ev.Outcome.Index] = true
	}
	assert.Len(t, seen, 3)
	last := events[3]
	assert.True(t, last.Done)
	assert.Equal(t, 3, last.Completed)
	assert.Equal(t, 1.0, last.Progress)
}

func TestStream_EmptyBatchOnlySignalsDone(t *testing.T) {
	var events []Event[int]
	for ev := range Stream[int](context.Background(), 1, nil) {
		events = append(events, ev)
	}
	require.Len(t, events, 1)
	assert.True(t, events[0].Done)
}

func TestStream_CancelClosesChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	events := Stream(ctx, 2, []Task[int]{block, block, block})

	cancel()
	done := make(chan struct{})
	go func() {
		for range events {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
}
