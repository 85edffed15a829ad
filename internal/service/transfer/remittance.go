package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/ports/storetx"
)

// NewRemittance is a hub manager's cash remittance declaration.
type NewRemittance struct {
	Amount decimal.Decimal
	Proof  domain.Proof
	Note   string
}

func hubOf(scope domain.Scope) (int64, error) {
	if scope.Role != domain.RoleHubManager || scope.HubID == nil {
		return 0, apperr.Custodyf("remittances are submitted by hub managers")
	}
	return *scope.HubID, nil
}

// CreateRemittance records a PENDING remittance with a snapshot of the cash
// the hub is expected to hold.
func (s *Service) CreateRemittance(ctx context.Context, scope domain.Scope, in NewRemittance) (domain.HubTransferRecord, error) {
	hubID, err := hubOf(scope)
	if err != nil {
		return domain.HubTransferRecord{}, err
	}
	if !in.Amount.IsPositive() {
		return domain.HubTransferRecord{}, apperr.Invalidf("amount must be positive")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec domain.HubTransferRecord
	err = s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		expected, err := cashOnHand(ctx, tx, hubID)
		if err != nil {
			return err
		}
		now := s.now()
		rec = domain.HubTransferRecord{
			HubID:          hubID,
			CreatedBy:      scope.UserID,
			Amount:         in.Amount,
			ExpectedAmount: expected,
			Proof:          in.Proof,
			Note:           strings.TrimSpace(in.Note),
			Review:         domain.Review{Status: domain.ReviewPending},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.InsertRemittance(ctx, &rec); err != nil {
			return fmt.Errorf("insert remittance: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.HubTransferRecord{}, err
	}

	s.logger.Info("remittance submitted",
		logx.String("event", "remittance_created"),
		logx.Int64("remittance_id", rec.ID),
		logx.Int64("hub_id", hubID),
		logx.Decimal("amount", rec.Amount),
		logx.Decimal("expected_amount", rec.ExpectedAmount),
	)
	return rec, nil
}

// cashOnHand is the cash settled by riders at the hub minus what the hub
// already remitted. Rejected records do not count.
func cashOnHand(ctx context.Context, tx storetx.Repository, hubID int64) (decimal.Decimal, error) {
	settled, err := tx.SumSettledCash(ctx, hubID)
	if err != nil {
		return decimal.Zero, err
	}
	remitted, err := tx.SumRemitted(ctx, hubID)
	if err != nil {
		return decimal.Zero, err
	}
	return settled.Sub(remitted), nil
}

// pendingOwned loads a remittance the scope created and that is still PENDING.
func pendingOwned(ctx context.Context, tx storetx.Repository, scope domain.Scope, id int64) (*domain.HubTransferRecord, error) {
	rec, err := tx.GetRemittance(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFoundf("remittance %d not found", id)
	}
	if rec.CreatedBy != scope.UserID {
		return nil, apperr.Custodyf("remittance %d was submitted by another user", id)
	}
	if rec.Review.Final() {
		return nil, apperr.Conflictf("remittance %d is already %s", id, rec.Review.Status)
	}
	return rec, nil
}

// UpdateRemittance edits a PENDING remittance of its creator.
func (s *Service) UpdateRemittance(ctx context.Context, scope domain.Scope, id int64, in domain.RemittanceUpdate) (domain.HubTransferRecord, error) {
	if in.Amount != nil && !in.Amount.IsPositive() {
		return domain.HubTransferRecord{}, apperr.Invalidf("amount must be positive")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out domain.HubTransferRecord
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		rec, err := pendingOwned(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if in.Amount != nil {
			rec.Amount = *in.Amount
		}
		if in.Proof != nil {
			rec.Proof = *in.Proof
		}
		if in.Note != nil {
			rec.Note = strings.TrimSpace(*in.Note)
		}
		rec.UpdatedAt = s.now()
		ok, err := tx.UpdatePendingRemittance(ctx, rec)
		if err != nil {
			return fmt.Errorf("update remittance %d: %w", id, err)
		}
		if !ok {
			return apperr.Conflictf("remittance %d was reviewed concurrently", id)
		}
		out = *rec
		return nil
	})
	return out, err
}

// DeleteRemittance removes a PENDING remittance of its creator.
func (s *Service) DeleteRemittance(ctx context.Context, scope domain.Scope, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		if _, err := pendingOwned(ctx, tx, scope, id); err != nil {
			return err
		}
		ok, err := tx.DeletePendingRemittance(ctx, id)
		if err != nil {
			return fmt.Errorf("delete remittance %d: %w", id, err)
		}
		if !ok {
			return apperr.Conflictf("remittance %d was reviewed concurrently", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("remittance deleted", logx.String("event", "remittance_deleted"), logx.Int64("remittance_id", id))
	return nil
}

// ApproveRemittance accepts a PENDING remittance.
func (s *Service) ApproveRemittance(ctx context.Context, scope domain.Scope, id int64) (domain.HubTransferRecord, error) {
	return s.review(ctx, scope, id, domain.ReviewApproved, "")
}

// RejectRemittance rejects a PENDING remittance. A reason is required.
func (s *Service) RejectRemittance(ctx context.Context, scope domain.Scope, id int64, reason string) (domain.HubTransferRecord, error) {
	return s.review(ctx, scope, id, domain.ReviewRejected, reason)
}

func (s *Service) review(ctx context.Context, scope domain.Scope, id int64, status domain.ReviewStatus, reason string) (domain.HubTransferRecord, error) {
	if !scope.IsAdmin() {
		return domain.HubTransferRecord{}, apperr.Custodyf("remittance review requires an admin scope")
	}
	decision, err := domain.Decide(status, scope.UserID, s.now(), reason)
	if err != nil {
		if errors.Is(err, domain.ErrReasonRequired) {
			return domain.HubTransferRecord{}, apperr.Invalidf("%v", err)
		}
		return domain.HubTransferRecord{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out domain.HubTransferRecord
	err = s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		rec, err := tx.GetRemittance(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperr.NotFoundf("remittance %d not found", id)
		}
		ok, err := tx.ReviewRemittance(ctx, id, decision)
		if err != nil {
			return fmt.Errorf("review remittance %d: %w", id, err)
		}
		if !ok {
			return apperr.Conflictf("remittance %d is already %s", id, rec.Review.Status)
		}
		rec.Review = decision
		out = *rec
		return nil
	})
	if err != nil {
		return domain.HubTransferRecord{}, err
	}

	s.logger.Info("remittance reviewed",
		logx.String("event", "remittance_reviewed"),
		logx.Int64("remittance_id", id),
		logx.String("status", string(status)),
		logx.Decimal("discrepancy", out.Discrepancy()),
	)
	return out, nil
}

// Remittances lists remittance records. Hub managers only see their own hub.
func (s *Service) Remittances(ctx context.Context, scope domain.Scope) ([]domain.HubTransferRecord, error) {
	var hubID *int64
	if !scope.IsAdmin() {
		id, err := hubOf(scope)
		if err != nil {
			return nil, err
		}
		hubID = &id
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out []domain.HubTransferRecord
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		var err error
		out, err = tx.ListRemittances(ctx, hubID)
		return err
	})
	return out, err
}
