package parcel

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/ports/storetx"
)

// Change describes one guarded parcel mutation.
type Change struct {
	// To is the target status. Empty keeps the current status for bookkeeping-only updates.
	To domain.ParcelStatus
	// From narrows the legal source statuses of the transition table for this operation.
	From []domain.ParcelStatus
	// Check validates custody and inputs before anything is written.
	Check func(ctx context.Context, tx storetx.Repository, p *domain.Parcel) error
	// Apply sets the status-specific fields.
	Apply func(p *domain.Parcel, now time.Time)
	// After runs in the same transaction once the parcel row is written.
	After func(ctx context.Context, tx storetx.Repository, p *domain.Parcel, now time.Time) error
	Note  string
}

// hook is a side effect bound to a target status.
type hook func(ctx context.Context, tx storetx.Repository, scope domain.Scope, p *domain.Parcel, now time.Time, res *domain.TransitionResult) error

// Service is the parcel state machine.
type Service struct {
	runner           storetx.Runner
	poster           Poster
	publisher        Publisher
	transitions      *prometheus.CounterVec
	hooks            map[domain.ParcelStatus]hook
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates a new parcel Service.
func NewService(r storetx.Runner, p Poster, pub Publisher, transitions *prometheus.CounterVec, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if pub == nil {
		pub = NopPublisher{}
	}
	s := &Service{
		runner:           r,
		poster:           p,
		publisher:        pub,
		transitions:      transitions,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
	s.hooks = map[domain.ParcelStatus]hook{
		domain.StatusDelivered:       s.bookOutcome,
		domain.StatusPartialDelivery: s.bookOutcome,
		domain.StatusExchange:        s.bookOutcome,
		domain.StatusPaidReturn:      s.bookOutcome,
		domain.StatusReturned:        s.bookOutcome,
	}
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Mutate runs c against parcel id in one transaction: row lock, transition
// check, compare-and-swap write, history row, status hook.
func (s *Service) Mutate(ctx context.Context, scope domain.Scope, id int64, c Change) (domain.TransitionResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		res   domain.TransitionResult
		event domain.ParcelEvent
	)
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		p, err := tx.GetParcelForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFoundf("parcel %d not found", id)
		}
		from, to := p.Status, c.To
		if to == "" {
			to = from
		}
		if err := checkSource(p, c); err != nil {
			return err
		}
		if c.Check != nil {
			if err := c.Check(ctx, tx, p); err != nil {
				return err
			}
		}

		now := s.now()
		if c.Apply != nil {
			c.Apply(p, now)
		}
		p.Status = to
		p.UpdatedAt = now

		ok, err := tx.UpdateParcel(ctx, p, from)
		if err != nil {
			return fmt.Errorf("update parcel %d: %w", id, err)
		}
		if !ok {
			return apperr.Conflictf("parcel %d changed concurrently", id)
		}

		res = domain.TransitionResult{Parcel: *p, From: from, To: to}
		if from != to {
			event = newEvent(p, from, scope, c.Note, now)
			if err := tx.InsertParcelEvent(ctx, &event); err != nil {
				return fmt.Errorf("record parcel event: %w", err)
			}
			if h := s.hooks[to]; h != nil {
				if err := h(ctx, tx, scope, p, now, &res); err != nil {
					return err
				}
			}
		}
		if c.After != nil {
			if err := c.After(ctx, tx, p, now); err != nil {
				return err
			}
		}
		res.Parcel = p.Clone()
		return nil
	})
	if err != nil {
		return domain.TransitionResult{}, err
	}

	if res.From != res.To {
		s.committed(ctx, res, event)
	}
	return res, nil
}

func checkSource(p *domain.Parcel, c Change) error {
	if len(c.From) > 0 && !containsStatus(c.From, p.Status) {
		return apperr.Conflictf("parcel %d is %s, expected one of %v", p.ID, p.Status, c.From)
	}
	switch {
	case c.To == "":
		return nil
	case p.Status == c.To:
		return apperr.Conflictf("parcel %d is already %s", p.ID, p.Status)
	}
	if !domain.CanTransition(p.Status, c.To) {
		return apperr.Conflictf("parcel %d cannot move from %s to %s", p.ID, p.Status, c.To)
	}
	return nil
}

func containsStatus(set []domain.ParcelStatus, s domain.ParcelStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func newEvent(p *domain.Parcel, from domain.ParcelStatus, scope domain.Scope, note string, now time.Time) domain.ParcelEvent {
	return domain.ParcelEvent{
		ParcelID:       p.ID,
		TrackingNumber: p.TrackingNumber,
		MerchantID:     p.MerchantID,
		FromStatus:     from,
		ToStatus:       p.Status,
		ActorID:        scope.UserID,
		ActorRole:      scope.Role,
		HubID:          p.CurrentHubID,
		Note:           note,
		CreatedAt:      now,
	}
}

func (s *Service) committed(ctx context.Context, res domain.TransitionResult, e domain.ParcelEvent) {
	if s.transitions != nil {
		s.transitions.WithLabelValues(string(res.To)).Inc()
	}
	fields := []logx.Field{
		logx.String("event", "parcel_transition"),
		logx.Int64("parcel_id", res.Parcel.ID),
		logx.String("tracking_number", res.Parcel.TrackingNumber),
		logx.String("from", string(res.From)),
		logx.String("to", string(res.To)),
	}
	if res.Balance != nil {
		fields = append(fields, logx.Int("ledger_rows", len(res.Transactions)), logx.Decimal("merchant_balance", *res.Balance))
	}
	s.logger.Info("parcel transition", fields...)
	s.publish(ctx, e)
}

func (s *Service) publish(ctx context.Context, e domain.ParcelEvent) {
	if err := s.publisher.PublishParcelEvent(ctx, e); err != nil {
		s.logger.Warn("parcel event not published",
			logx.Int64("parcel_id", e.ParcelID),
			logx.String("to", string(e.ToStatus)),
			logx.Err(err),
		)
	}
}

// Get returns a parcel.
func (s *Service) Get(ctx context.Context, id int64) (domain.Parcel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out domain.Parcel
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		p, err := tx.GetParcel(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFoundf("parcel %d not found", id)
		}
		out = *p
		return nil
	})
	return out, err
}

// History returns the status history of a parcel, oldest first.
func (s *Service) History(ctx context.Context, id int64) ([]domain.ParcelEvent, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out []domain.ParcelEvent
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		p, err := tx.GetParcel(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFoundf("parcel %d not found", id)
		}
		out, err = tx.ListParcelEvents(ctx, id)
		return err
	})
	return out, err
}
