package repository

import (
	"context"
	"errors"

	"parcelhub/internal/apperr"
	"parcelhub/internal/logx"
	"parcelhub/internal/ports/storetx"
	"parcelhub/internal/retry"
)

type counter interface {
	Inc()
}

// RetryingRunner reruns a whole unit of work after a transient store failure.
// fn must be safe to run again: nothing it did in a rolled back attempt survives.
type RetryingRunner struct {
	next    storetx.Runner
	logger  logx.Logger
	retries counter
	cfg     retry.Config
}

// NewRetryingRunner creates a new RetryingRunner. retries may be nil.
func NewRetryingRunner(next storetx.Runner, logger logx.Logger, retries counter, cfg retry.Config) *RetryingRunner {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryingRunner{next: next, logger: logger, retries: retries, cfg: cfg}
}

// WithTx implements storetx.Runner.
func (r *RetryingRunner) WithTx(ctx context.Context, fn func(tx storetx.Repository) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := r.next.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == r.cfg.MaxAttempts || !errors.Is(err, apperr.ErrTransient) {
			break
		}
		delay := retry.Backoff(r.cfg.BaseDelay, r.cfg.MaxDelay, attempt)
		if r.retries != nil {
			r.retries.Inc()
		}
		r.logger.Warn("store retry",
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !retry.Sleep(ctx, delay) {
			break
		}
	}
	return lastErr
}
