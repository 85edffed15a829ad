// Package verification turns delivery verification events into parcel outcomes.
package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
)

// Processor applies verified delivery outcomes.
type Processor struct {
	outcomes OutcomePort
	events   *prometheus.CounterVec
	logger   logx.Logger
	factory  *actionFactory
}

// NewProcessor creates a new Processor. events may be nil.
func NewProcessor(outcomes OutcomePort, events *prometheus.CounterVec, logger logx.Logger) *Processor {
	p := &Processor{
		outcomes: outcomes,
		events:   events,
		logger:   logger,
	}
	p.factory = newActionFactory(p.onVerified, p.onCancelled)
	return p
}

// Handle processes a single Event. A nil error acknowledges the message.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	fn, ok := p.factory.get(e.Event)
	if !ok {
		p.count("unknown")
		return nil
	}
	return fn(ctx, e)
}

// Result converts the event into the trusted verification result.
func (e Event) Result() domain.VerificationResult {
	return domain.VerificationResult{
		ParcelID:          e.ParcelID,
		RiderID:           e.RiderID,
		SelectedStatus:    domain.ParcelStatus(e.SelectedStatus),
		CollectedAmount:   e.CollectedAmount,
		ExpectedCODAmount: e.ExpectedCODAmount,
		VerifiedAt:        e.VerifiedAt,
	}
}

func (p *Processor) onVerified(ctx context.Context, e Event) error {
	scope := domain.SystemScope()
	scope.RiderID = e.RiderID

	res, err := p.outcomes.ApplyOutcome(ctx, scope, e.Result())
	switch {
	case err == nil:
		p.count("applied")
		p.logger.Debug("verification applied",
			logx.Int64("parcel_id", e.ParcelID),
			logx.String("status", string(res.To)),
		)
		return nil
	case errors.Is(err, apperr.ErrCustodyMismatch):
		p.count("rejected")
		p.logger.Warn("verification rider mismatch",
			logx.Int64("parcel_id", e.ParcelID),
			logx.Err(err),
		)
		return nil
	case errors.Is(err, apperr.ErrConflict):
		return p.onConflict(ctx, e, err)
	case errors.Is(err, apperr.ErrInvalid), errors.Is(err, apperr.ErrNotFound):
		p.count("rejected")
		p.logger.Warn("verification rejected",
			logx.Int64("parcel_id", e.ParcelID),
			logx.String("selected_status", e.SelectedStatus),
			logx.Err(err),
		)
		return nil
	default:
		p.count("failed")
		return err
	}
}

// onConflict tells a redelivered outcome from one that arrived before the
// parcel was dispatched. Only the first is acknowledged as a duplicate; the
// early one is retried so its COD credit is not lost.
func (p *Processor) onConflict(ctx context.Context, e Event, cause error) error {
	cur, err := p.outcomes.Get(ctx, e.ParcelID)
	if err != nil {
		p.count("failed")
		return fmt.Errorf("load parcel %d after conflict: %w", e.ParcelID, err)
	}
	log := p.logger.With(
		logx.Int64("parcel_id", e.ParcelID),
		logx.String("status", string(cur.Status)),
		logx.String("selected_status", e.SelectedStatus),
	)
	switch {
	case cur.Status == domain.ParcelStatus(e.SelectedStatus):
		p.count("duplicate")
		log.Info("verification already applied")
		return nil
	case cur.Status.AwaitsDispatch():
		p.count("early")
		log.Warn("verification ahead of dispatch, will retry", logx.Err(cause))
		return apperr.Transient(fmt.Errorf("parcel %d is %s: %w", e.ParcelID, cur.Status, cause))
	default:
		p.count("stale")
		log.Error("verification conflicts with recorded parcel status", logx.Err(cause))
		return nil
	}
}

func (p *Processor) onCancelled(_ context.Context, e Event) error {
	p.count("ignored")
	p.logger.Debug("verification cancelled", logx.Int64("parcel_id", e.ParcelID))
	return nil
}

func (p *Processor) count(result string) {
	if p.events != nil {
		p.events.WithLabelValues(result).Inc()
	}
}
