package async

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MannuMourya/Learner-API/pkg/observability"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newPool(t *testing.T, cfg PoolConfig) (*WorkerPool, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewNopMetrics()
	pool := NewWorkerPool(context.Background(), cfg, observability.NewNopLogger(), metrics)
	t.Cleanup(func() { pool.Shutdown(time.Second) })
	return pool, metrics
}

func TestSafeGo_Success(t *testing.T) {
	done := make(chan struct{})
	SafeGo(context.Background(), observability.NewNopLogger(), time.Second, "test", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}

func TestSafeGo_ErrorIsLogged(t *testing.T) {
	var buf syncBuffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	SafeGo(context.Background(), logger, 0, "failing", func(ctx context.Context) error {
		return errors.New("boom")
	})

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(buf.String()), []byte("boom"))
	}, time.Second, 10*time.Millisecond)
}

func TestSafeGo_Timeout(t *testing.T) {
	done := make(chan error, 1)
	SafeGo(context.Background(), observability.NewNopLogger(), 20*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("timeout not enforced")
	}
}

func TestSafeGo_PanicRecovery(t *testing.T) {
	var buf syncBuffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	SafeGo(context.Background(), logger, time.Second, "panicky", func(ctx context.Context) error {
		panic("test panic")
	})

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(buf.String()), []byte("PANIC recovered"))
	}, time.Second, 10*time.Millisecond)
}

func TestWorkerPool_Basic(t *testing.T) {
	pool, metrics := newPool(t, PoolConfig{Name: "test", Workers: 3, QueueSize: 10})

	var counter atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit("count", func(ctx context.Context) error {
			counter.Add(1)
			return nil
		}))
	}

	require.NoError(t, pool.Shutdown(time.Second))
	assert.Equal(t, int32(10), counter.Load())
	assert.Equal(t, 10.0, testutil.ToFloat64(metrics.BackgroundTasksTotal.WithLabelValues("count", OutcomeSucceeded)))
}

func TestWorkerPool_ErrorsAndPanics(t *testing.T) {
	pool, metrics := newPool(t, PoolConfig{Name: "test", Workers: 1, QueueSize: 4})

	require.NoError(t, pool.Submit("fails", func(ctx context.Context) error {
		return errors.New("task failed")
	}))
	require.NoError(t, pool.Submit("panics", func(ctx context.Context) error {
		panic("kaboom")
	}))
	require.NoError(t, pool.Shutdown(time.Second))

	var got []*TaskError
	for len(got) < 2 {
		select {
		case err := <-pool.Errors():
			var taskErr *TaskError
			require.ErrorAs(t, err, &taskErr)
			got = append(got, taskErr)
		case <-time.After(time.Second):
			t.Fatal("missing task errors")
		}
	}

	assert.Equal(t, "fails", got[0].Task)
	assert.Equal(t, "panics", got[1].Task)
	assert.Contains(t, got[1].Error(), "kaboom")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BackgroundTasksTotal.WithLabelValues("fails", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BackgroundTasksTotal.WithLabelValues("panics", OutcomePanicked)))
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool, metrics := newPool(t, PoolConfig{Name: "test", Workers: 1, QueueSize: 1})
	require.NoError(t, pool.Shutdown(time.Second))

	err := pool.Submit("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BackgroundTasksTotal.WithLabelValues("late", OutcomeRejected)))

	// Shutdown is idempotent.
	assert.NoError(t, pool.Shutdown(time.Second))
}

func TestWorkerPool_QueueFull(t *testing.T) {
	pool, _ := newPool(t, PoolConfig{Name: "test", Workers: 1, QueueSize: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit("block", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	require.NoError(t, pool.Submit("queued", func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, pool.Submit("overflow", func(ctx context.Context) error { return nil }), ErrQueueFull)

	close(release)
}

func TestWorkerPool_ShutdownTimeout(t *testing.T) {
	pool, _ := newPool(t, PoolConfig{Name: "test", Workers: 1, QueueSize: 1})

	cancelled := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit("stuck", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))
	<-started

	err := pool.Shutdown(20 * time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running task was not cancelled")
	}
}

func TestWorkerPool_TaskTimeout(t *testing.T) {
	pool, _ := newPool(t, PoolConfig{Name: "test", Workers: 1, QueueSize: 1, Timeout: 20 * time.Millisecond})

	require.NoError(t, pool.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	select {
	case err := <-pool.Errors():
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task timeout not enforced")
	}
}

func TestDrainErrors(t *testing.T) {
	var buf syncBuffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "test", Workers: 1, QueueSize: 2}, observability.NewNopLogger(), observability.NewNopMetrics())

	require.NoError(t, pool.Submit("fails", func(ctx context.Context) error {
		return errors.New("disk on fire")
	}))
	require.NoError(t, pool.Shutdown(time.Second))

	require.NoError(t, DrainErrors(context.Background(), pool, logger))
	out := buf.String()
	assert.Contains(t, out, "disk on fire")
	assert.Contains(t, out, `"task":"fails"`)
}
