package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MannuMourya/Learner-API/pkg/observability"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown
	ErrPoolClosed = errors.New("worker pool shut down")

	// ErrQueueFull is returned by Submit when no queue slot is free
	ErrQueueFull = errors.New("worker pool queue full")
)

// Task outcomes recorded in BackgroundTasksTotal
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomePanicked  = "panicked"
	OutcomeRejected  = "rejected"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement (timeout <= 0 means none)
// - Error logging
//
// Use this instead of bare `go func()` to prevent goroutine leaks and crashes.
//
// Example:
//
//	SafeGo(ctx, logger, 0, "task error drain", func(ctx context.Context) error {
//	    return drain(ctx, pool.Errors())
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := parentCtx, context.CancelFunc(func() {})
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(parentCtx, timeout)
		}
		defer cancel()

		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).WithField("task", taskName).Error("background task failed")
		}
	}()
}

// TaskError is a failed or panicked pool task
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// PoolConfig configures a WorkerPool
type PoolConfig struct {
	Name      string
	Workers   int
	QueueSize int
	// Timeout bounds each task; zero means no per-task timeout
	Timeout time.Duration
}

type job struct {
	name string
	fn   func(context.Context) error
}

// WorkerPool manages a pool of workers that process tasks from a channel.
// Tasks are detached from their submitter: results are only reported
// through Errors, logging and metrics.
type WorkerPool struct {
	cfg     PoolConfig
	logger  *observability.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	closed bool
	workCh chan job

	doneCh chan struct{}
	errCh  chan error
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorkerPool creates a new worker pool and starts its workers.
//
// Example:
//
//	pool := NewWorkerPool(ctx, PoolConfig{Name: "tasks", Workers: 2, QueueSize: 64}, logger, metrics)
//	defer pool.Shutdown(5 * time.Second)
//
//	pool.Submit("heavy", func(ctx context.Context) error {
//	    return work(ctx)
//	})
func NewWorkerPool(ctx context.Context, cfg PoolConfig, logger *observability.Logger, metrics *observability.Metrics) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	ctx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		cfg:     cfg,
		logger:  logger.WithField("pool", cfg.Name),
		metrics: metrics,
		workCh:  make(chan job, cfg.QueueSize),
		doneCh:  make(chan struct{}),
		errCh:   make(chan error, cfg.Workers*10),
		ctx:     ctx,
		cancel:  cancel,
	}

	go func() {
		var wg sync.WaitGroup
		for i := 0; i < cfg.Workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				pool.worker()
			}()
		}
		wg.Wait()
		close(pool.doneCh)
	}()

	return pool
}

// Submit queues fn without blocking. It returns ErrPoolClosed after
// Shutdown and ErrQueueFull when every queue slot is taken.
func (p *WorkerPool) Submit(name string, fn func(context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.metrics.BackgroundTasksTotal.WithLabelValues(name, OutcomeRejected).Inc()
		return ErrPoolClosed
	}

	select {
	case p.workCh <- job{name: name, fn: fn}:
		return nil
	default:
		p.metrics.BackgroundTasksTotal.WithLabelValues(name, OutcomeRejected).Inc()
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits up to timeout for queued and
// running tasks to finish. Running tasks are cancelled on timeout.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.workCh)
	p.mu.Unlock()

	select {
	case <-p.doneCh:
		p.cancel()
		return nil
	case <-time.After(timeout):
		p.cancel()
		return fmt.Errorf("worker pool shutdown timed out after %v", timeout)
	}
}

// Done is closed once every worker has exited
func (p *WorkerPool) Done() <-chan struct{} {
	return p.doneCh
}

// Errors returns a channel that receives *TaskError values.
// Non-blocking, use select to check for errors.
func (p *WorkerPool) Errors() <-chan error {
	return p.errCh
}

func (p *WorkerPool) worker() {
	for {
		select {
		case <-p.ctx.Done():
			return

		case j, ok := <-p.workCh:
			if !ok {
				return
			}
			p.run(j)
		}
	}
}

func (p *WorkerPool) run(j job) {
	ctx, cancel := p.ctx, context.CancelFunc(func() {})
	if p.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(p.ctx, p.cfg.Timeout)
	}
	defer cancel()

	outcome := OutcomeSucceeded
	defer func() {
		p.metrics.BackgroundTasksTotal.WithLabelValues(j.name, outcome).Inc()
	}()

	defer observability.RecoverPanicWithCallback(p.logger, j.name, func(r interface{}) {
		outcome = OutcomePanicked
		p.report(&TaskError{Task: j.name, Err: observability.PanicToError(r)})
	})

	if err := j.fn(ctx); err != nil {
		outcome = OutcomeFailed
		p.report(&TaskError{Task: j.name, Err: err})
	}
}

func (p *WorkerPool) report(err error) {
	select {
	case p.errCh <- err:
	default:
		p.logger.WithError(err).Warn("error channel full, dropping task error")
	}
}

// DrainErrors logs task errors from pool until ctx is done or the pool has
// stopped and its error channel is empty.
func DrainErrors(ctx context.Context, pool *WorkerPool, logger *observability.Logger) error {
	for {
		select {
		case err := <-pool.Errors():
			logTaskError(logger, err)
		case <-pool.Done():
			for {
				select {
				case err := <-pool.Errors():
					logTaskError(logger, err)
				default:
					return nil
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func logTaskError(logger *observability.Logger, err error) {
	entry := logger.WithError(err)
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		entry = entry.WithField("task", taskErr.Task)
	}
	entry.Error("background task failed")
}
