package parcel

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/ports/storetx"
	"parcelhub/internal/service/ledger"
)

// ApplyOutcome moves an out-for-delivery parcel to the outcome chosen by the
// delivery verification flow. Financial outcomes book the merchant ledger in
// the same transaction.
func (s *Service) ApplyOutcome(ctx context.Context, scope domain.Scope, in domain.VerificationResult) (domain.TransitionResult, error) {
	to := in.SelectedStatus
	if !to.IsDeliveryOutcome() {
		return domain.TransitionResult{}, apperr.Invalidf("%q is not a delivery outcome", to)
	}
	if in.CollectedAmount != nil && in.CollectedAmount.IsNegative() {
		return domain.TransitionResult{}, apperr.Invalidf("collected amount must not be negative")
	}

	return s.Mutate(ctx, scope, in.ParcelID, Change{
		To: to,
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			if p.AssignedRiderID == nil {
				return apperr.Conflictf("parcel %d has no assigned rider", p.ID)
			}
			if err := requireHandler(scope, p); err != nil {
				return err
			}
			if in.RiderID != nil && !domain.SameID(in.RiderID, p.AssignedRiderID) {
				return apperr.Custodyf("verification rider %d is not assigned to parcel %d", *in.RiderID, p.ID)
			}
			if to.FreezesCollectedAmount() && p.IsCOD && in.CollectedAmount == nil {
				return apperr.Invalidf("collected amount is required for COD parcel %d", p.ID)
			}
			if !p.IsCOD && in.CollectedAmount != nil && in.CollectedAmount.IsPositive() {
				return apperr.Invalidf("parcel %d is not cash on delivery; nothing can be collected", p.ID)
			}
			return nil
		},
		Apply: func(p *domain.Parcel, now time.Time) {
			if !to.FreezesCollectedAmount() {
				return
			}
			if p.CODCollectedAmount == nil {
				amount := decimal.Zero
				if in.CollectedAmount != nil {
					amount = *in.CollectedAmount
				}
				p.CODCollectedAmount = &amount
			}
			p.DeliveredAt = &now
			if p.IsCOD && p.CODCollectedAmount.IsPositive() {
				p.PaymentStatus = domain.PaymentCollected
			}
			if !p.IsReturnParcel {
				p.FinancialStatus = domain.FinancialPendingClearance
				p.ClearanceRequired = true
			}
		},
		After: func(ctx context.Context, tx storetx.Repository, p *domain.Parcel, now time.Time) error {
			v := newVerification(p, in, now)
			if err := tx.InsertVerification(ctx, &v); err != nil {
				return fmt.Errorf("record verification: %w", err)
			}
			return nil
		},
	})
}

func newVerification(p *domain.Parcel, in domain.VerificationResult, now time.Time) domain.DeliveryVerification {
	collected := decimal.Zero
	if p.Status.FreezesCollectedAmount() && p.CODCollectedAmount != nil {
		collected = *p.CODCollectedAmount
	}
	expected := p.CODAmount
	if in.ExpectedCODAmount != nil {
		expected = *in.ExpectedCODAmount
	}
	var verifiedAt *time.Time
	if !in.VerifiedAt.IsZero() {
		at := in.VerifiedAt.UTC()
		verifiedAt = &at
	}
	return domain.DeliveryVerification{
		ParcelID:            p.ID,
		RiderID:             *p.AssignedRiderID,
		SelectedStatus:      p.Status,
		CollectedAmount:     collected,
		ExpectedCODAmount:   expected,
		Status:              domain.VerificationCompleted,
		DeliveryCompletedAt: now.UTC(),
		VerifiedAt:          verifiedAt,
	}
}

func (s *Service) bookOutcome(ctx context.Context, tx storetx.Repository, scope domain.Scope, p *domain.Parcel, now time.Time, res *domain.TransitionResult) error {
	b, ok := domain.BookingFor(*p)
	if !ok {
		return nil
	}
	out, err := s.poster.Post(ctx, tx, now, ledger.Posting{
		MerchantID: p.MerchantID,
		Entries:    b.Entries(*p, scope.UserID),
		Outcome:    p.Status,
	})
	if err != nil {
		return err
	}
	res.Transactions = out.Transactions
	balance := out.Finance.CurrentBalance
	res.Balance = &balance
	return nil
}
