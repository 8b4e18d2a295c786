package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of best-effort background work.
type Task func(ctx context.Context) error

// Runner runs fire-and-forget tasks. Each task gets its own failure boundary:
// errors and panics are logged and never reach the code that scheduled it.
type Runner struct {
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner creates a Runner. timeout bounds every task; zero means 30s.
func NewRunner(logger *zap.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{logger: logger, timeout: timeout}
}

// Go starts task in a new goroutine. The task's context keeps ctx's values but not its
// cancellation, so a finished HTTP request does not abort its side effects.
func (r *Runner) Go(ctx context.Context, name string, task Task, fields ...zap.Field) {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	log := r.logger.With(append(fields, zap.String("task", name))...)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				log.Error("background task panicked", zap.String("panic", fmt.Sprint(p)))
			}
		}()

		start := time.Now()
		if err := task(taskCtx); err != nil {
			log.Error("background task failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			return
		}
		log.Debug("background task finished", zap.Duration("elapsed", time.Since(start)))
	}()
}

// Wait blocks until every started task has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown waits for running tasks or gives up when ctx is done.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}
}
