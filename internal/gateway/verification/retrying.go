package verifier

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"parcelhub/internal/logx"
	"parcelhub/internal/retry"
)

type gateway interface {
	GetByParcelID(context.Context, int64) (*Verification, error)
}

type counter interface {
	Inc()
}

// RetryingGateway retries transient gRPC failures with bounded backoff.
type RetryingGateway struct {
	next    gateway
	logger  logx.Logger
	retries counter
	cfg     retry.Config
}

// NewRetryingGateway wraps next. It returns nil when next is nil.
func NewRetryingGateway(next gateway, logger logx.Logger, retries counter, cfg retry.Config) *RetryingGateway {
	if next == nil {
		return nil
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryingGateway{next: next, logger: logger, retries: retries, cfg: cfg}
}

// GetByParcelID implements the gateway with retries.
func (g *RetryingGateway) GetByParcelID(ctx context.Context, parcelID int64) (*Verification, error) {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		v, err := g.next.GetByParcelID(ctx, parcelID)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == g.cfg.MaxAttempts || !isRetryable(err) {
			break
		}
		delay := retry.Backoff(g.cfg.BaseDelay, g.cfg.MaxDelay, attempt)
		if g.retries != nil {
			g.retries.Inc()
		}
		g.logger.Warn("verification gateway retry",
			logx.Int64("parcel_id", parcelID),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !retry.Sleep(ctx, delay) {
			break
		}
	}
	return nil, lastErr
}

func isRetryable(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.ResourceExhausted,
		codes.Unavailable,
		codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
