package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	pool := NewWorkerPool(3, 10, time.Second, nil)
	pool.Start()

	var ran atomic.Int32
	for i := 0; i < 8; i++ {
		require.NoError(t, pool.Submit(Task{Name: "count", Run: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}}))
	}

	require.NoError(t, pool.Shutdown(time.Second))
	assert.Equal(t, int32(8), ran.Load())
	assert.Equal(t, int64(8), pool.GetMetrics().Processed)
}

func TestPoolRecordsFailuresAndPanics(t *testing.T) {
	pool := NewWorkerPool(1, 4, 0, nil)
	pool.Start()

	require.NoError(t, pool.Schedule("fails", func(ctx context.Context) error {
		return errors.New("boom")
	}))
	require.NoError(t, pool.Schedule("panics", func(ctx context.Context) error {
		panic("unexpected")
	}))
	require.NoError(t, pool.Schedule("ok", func(ctx context.Context) error {
		return nil
	}))

	require.NoError(t, pool.Shutdown(time.Second))
	m := pool.GetMetrics()
	assert.Equal(t, int64(2), m.Failed)
	assert.Equal(t, int64(1), m.Processed)
}

func TestPoolBackpressure(t *testing.T) {
	pool := NewWorkerPool(1, 1, 0, nil)

	// Not started, so the single slot fills and stays full
	require.NoError(t, pool.Submit(Task{Name: "first", Run: func(context.Context) error { return nil }}))
	err := pool.Submit(Task{Name: "second", Run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), pool.GetMetrics().BackpressureEvents)
	assert.Equal(t, "1/1", pool.GetMetrics().QueueUtilization)

	pool.Start()
	require.NoError(t, pool.Shutdown(time.Second))
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1, 1, 0, nil)
	pool.Start()
	require.NoError(t, pool.Shutdown(time.Second))
	require.NoError(t, pool.Shutdown(time.Second), "second shutdown is a no-op")

	err := pool.Submit(Task{Name: "late", Run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolAppliesTaskTimeout(t *testing.T) {
	pool := NewWorkerPool(1, 1, 20*time.Millisecond, nil)
	pool.Start()

	result := make(chan error, 1)
	require.NoError(t, pool.Schedule("slow", func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task deadline was not applied")
	}
	require.NoError(t, pool.Shutdown(time.Second))
}
