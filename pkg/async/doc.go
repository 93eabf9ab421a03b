// Package async provides safe concurrent execution primitives for background tasks.
//
// # Key Functions
//
// SafeGo: Execute function in goroutine with panic recovery and optional timeout
//
//	async.SafeGo(ctx, logger, 0, "task error drain", func(ctx context.Context) error {
//		return async.DrainErrors(ctx, pool, logger)
//	})
//
// WorkerPool: Managed pool of concurrent workers for fire-and-forget work
//
//	pool := async.NewWorkerPool(ctx, async.PoolConfig{Name: "tasks", Workers: 2, QueueSize: 64}, logger, metrics)
//	defer pool.Shutdown(5 * time.Second)
//
//	if err := pool.Submit("heavy", work); err != nil {
//		// ErrPoolClosed or ErrQueueFull
//	}
//
// Submit never blocks. Task failures and panics are reported on Errors and
// counted in learner_background_tasks_total; nothing is returned to the
// submitter.
package async
