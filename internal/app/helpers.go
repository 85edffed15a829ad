package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"parcelhub/internal/logx"
	"parcelhub/internal/repository"
	"parcelhub/internal/retry"
)

var newPool = repository.NewPool

// dbStartupRetry covers Postgres coming up alongside the service in compose.
var dbStartupRetry = retry.Config{MaxAttempts: 10, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}

const dbAttemptTimeout = 3 * time.Second

// connectDbWithRetry opens the pool, backing off exponentially between failed attempts.
func connectDbWithRetry(ctx context.Context, logger logx.Logger, dsn string, cfg retry.Config) (*pgxpool.Pool, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, dbAttemptTimeout)
		pool, err := newPool(attemptCtx, dsn)
		cancel()
		if err == nil {
			logger.Info("db connected", logx.Int("attempt", attempt))
			return pool, nil
		}
		lastErr = err
		if attempt == cfg.MaxAttempts {
			break
		}
		delay := retry.Backoff(cfg.BaseDelay, cfg.MaxDelay, attempt)
		logger.Warn("db connect failed",
			logx.Int("attempt", attempt),
			logx.Int("max_attempts", cfg.MaxAttempts),
			logx.Duration("retry_in", delay),
			logx.Err(err),
		)
		if !retry.Sleep(ctx, delay) {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("db connect failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
