// Package settlement reconciles the cash riders hand over against what they collected.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/ports/storetx"
)

// Service is the rider settlement engine.
type Service struct {
	runner           storetx.Runner
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates a new settlement Service.
func NewService(r storetx.Runner, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		runner:           r,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Preview computes the settlement a rider would get now without storing it.
func (s *Service) Preview(ctx context.Context, scope domain.Scope, riderID int64, cash decimal.Decimal) (domain.RiderSettlement, error) {
	if cash.IsNegative() {
		return domain.RiderSettlement{}, apperr.Invalidf("cash received must not be negative")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out domain.RiderSettlement
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		r, err := tx.GetRider(ctx, riderID)
		if err != nil {
			return err
		}
		out, err = s.compute(ctx, tx, scope, r, riderID, cash)
		return err
	})
	return out, err
}

// Record stores an immutable settlement for the rider's open period. The
// rider row is locked so two settlements of one rider never overlap.
func (s *Service) Record(ctx context.Context, scope domain.Scope, riderID int64, cash decimal.Decimal, note string) (domain.RiderSettlement, error) {
	if scope.Role != domain.RoleHubManager {
		return domain.RiderSettlement{}, apperr.Custodyf("rider settlements are recorded by hub managers")
	}
	if cash.IsNegative() {
		return domain.RiderSettlement{}, apperr.Invalidf("cash received must not be negative")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out domain.RiderSettlement
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		r, err := tx.GetRiderForUpdate(ctx, riderID)
		if err != nil {
			return err
		}
		out, err = s.compute(ctx, tx, scope, r, riderID, cash)
		if err != nil {
			return err
		}
		out.Note = strings.TrimSpace(note)
		out.SettledBy = scope.UserID
		if err := tx.InsertSettlement(ctx, &out); err != nil {
			return fmt.Errorf("insert settlement: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.RiderSettlement{}, err
	}

	s.logger.Info("rider settled",
		logx.String("event", "rider_settled"),
		logx.Int64("settlement_id", out.ID),
		logx.Int64("rider_id", riderID),
		logx.Int64("hub_id", out.HubID),
		logx.Decimal("collected", out.TotalCollectedAmount),
		logx.Decimal("cash_received", out.CashReceived),
		logx.Decimal("new_due", out.NewDueAmount),
		logx.String("status", string(out.Status)),
	)
	if out.DiscrepancyAmount.IsNegative() {
		s.logger.Warn("rider cash short",
			logx.Int64("rider_id", riderID),
			logx.Decimal("discrepancy", out.DiscrepancyAmount),
		)
	}
	return out, nil
}

func (s *Service) compute(ctx context.Context, tx storetx.Repository, scope domain.Scope, r *domain.Rider, riderID int64, cash decimal.Decimal) (domain.RiderSettlement, error) {
	if r == nil {
		return domain.RiderSettlement{}, apperr.NotFoundf("rider %d not found", riderID)
	}
	if !scope.IsAdmin() && !scope.HoldsHub(&r.HubID) {
		return domain.RiderSettlement{}, apperr.Custodyf("rider %d belongs to hub %d", riderID, r.HubID)
	}
	last, err := tx.LastSettlement(ctx, riderID)
	if err != nil {
		return domain.RiderSettlement{}, err
	}
	now := s.now()
	start := domain.SettlementPeriodStart(last, r.CreatedAt)
	vs, err := tx.ListCompletedVerifications(ctx, riderID, start, now)
	if err != nil {
		return domain.RiderSettlement{}, err
	}
	return domain.ComputeSettlement(domain.SettlementInput{
		RiderID:        riderID,
		HubID:          r.HubID,
		RiderCreatedAt: r.CreatedAt,
		Last:           last,
		Verifications:  vs,
		CashReceived:   cash,
		Now:            now,
	}), nil
}

// Approve confirms a PENDING settlement.
func (s *Service) Approve(ctx context.Context, scope domain.Scope, id int64) (domain.RiderSettlement, error) {
	return s.review(ctx, scope, id, domain.ReviewApproved, "")
}

// Reject disputes a PENDING settlement. A reason is required.
func (s *Service) Reject(ctx context.Context, scope domain.Scope, id int64, reason string) (domain.RiderSettlement, error) {
	return s.review(ctx, scope, id, domain.ReviewRejected, reason)
}

func (s *Service) review(ctx context.Context, scope domain.Scope, id int64, status domain.ReviewStatus, reason string) (domain.RiderSettlement, error) {
	if !scope.IsAdmin() {
		return domain.RiderSettlement{}, apperr.Custodyf("settlement review requires an admin scope")
	}
	decision, err := domain.Decide(status, scope.UserID, s.now(), reason)
	if err != nil {
		if errors.Is(err, domain.ErrReasonRequired) {
			return domain.RiderSettlement{}, apperr.Invalidf("%v", err)
		}
		return domain.RiderSettlement{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out domain.RiderSettlement
	err = s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		cur, err := tx.GetSettlement(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return apperr.NotFoundf("settlement %d not found", id)
		}
		ok, err := tx.ReviewSettlement(ctx, id, decision)
		if err != nil {
			return fmt.Errorf("review settlement %d: %w", id, err)
		}
		if !ok {
			return apperr.Conflictf("settlement %d is already %s", id, cur.Review.Status)
		}
		cur.Review = decision
		out = *cur
		return nil
	})
	if err != nil {
		return domain.RiderSettlement{}, err
	}

	s.logger.Info("settlement reviewed",
		logx.String("event", "settlement_reviewed"),
		logx.Int64("settlement_id", id),
		logx.String("status", string(status)),
	)
	return out, nil
}

// List returns the settlements of a rider, oldest first.
func (s *Service) List(ctx context.Context, scope domain.Scope, riderID int64) ([]domain.RiderSettlement, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out []domain.RiderSettlement
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		r, err := tx.GetRider(ctx, riderID)
		if err != nil {
			return err
		}
		if r == nil {
			return apperr.NotFoundf("rider %d not found", riderID)
		}
		switch {
		case scope.IsAdmin():
		case scope.Role == domain.RoleRider && domain.SameID(scope.RiderID, &riderID):
		case scope.HoldsHub(&r.HubID):
		default:
			return apperr.Custodyf("rider %d is outside the acting scope", riderID)
		}
		out, err = tx.ListSettlements(ctx, riderID)
		return err
	})
	return out, err
}
