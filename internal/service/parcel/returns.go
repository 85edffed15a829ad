package parcel

import (
	"context"
	"time"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/ports/storetx"
)

// ReturnResult pairs an original parcel with the return parcel spawned from it.
type ReturnResult struct {
	Original domain.Parcel
	Return   domain.Parcel
}

// SpawnReturn creates a RETURN_TO_MERCHANT parcel that carries goods of the
// original back to its merchant. The original keeps its status and money; only
// its return_initiated_at is set, so a second spawn is rejected.
func (s *Service) SpawnReturn(ctx context.Context, scope domain.Scope, originalID int64, note string) (ReturnResult, error) {
	var (
		ret   domain.Parcel
		event domain.ParcelEvent
	)
	res, err := s.Mutate(ctx, scope, originalID, Change{
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			if p.IsReturnParcel {
				return apperr.Conflictf("parcel %d is itself a return parcel", p.ID)
			}
			if !p.Status.CanSpawnReturn() {
				return apperr.Conflictf("parcel %d is %s and cannot be returned to its merchant", p.ID, p.Status)
			}
			if p.ReturnInitiatedAt != nil {
				return apperr.Conflictf("return already initiated for parcel %d", p.ID)
			}
			return requireHub(scope, p)
		},
		Apply: func(p *domain.Parcel, now time.Time) {
			p.ReturnInitiatedAt = &now
		},
		After: func(ctx context.Context, tx storetx.Repository, p *domain.Parcel, now time.Time) error {
			ret = returnParcel(p, now)
			var err error
			event, err = insertParcel(ctx, tx, scope, &ret, note, now)
			return err
		},
	})
	if err != nil {
		return ReturnResult{}, err
	}

	s.logger.Info("return parcel created",
		logx.String("event", "return_spawned"),
		logx.Int64("parcel_id", ret.ID),
		logx.Int64("original_parcel_id", originalID),
		logx.String("tracking_number", ret.TrackingNumber),
	)
	s.publish(ctx, event)
	return ReturnResult{Original: res.Parcel, Return: ret}, nil
}

// returnParcel builds the reverse leg of orig. Its recipient is the merchant
// store named by MerchantID and StoreID, so no customer is recorded.
func returnParcel(orig *domain.Parcel, now time.Time) domain.Parcel {
	hub := orig.CurrentHubID
	return domain.Parcel{
		TrackingNumber:   domain.NewTrackingNumber(),
		MerchantID:       orig.MerchantID,
		StoreID:          orig.StoreID,
		CurrentHubID:     cloneID(hub),
		OriginHubID:      cloneID(hub),
		PickupAreaID:     cloneID(orig.DeliveryAreaID),
		DeliveryAreaID:   cloneID(orig.PickupAreaID),
		ProductPrice:     orig.ProductPrice,
		Weight:           orig.Weight,
		Status:           domain.StatusReturnToMerchant,
		PaymentStatus:    domain.PaymentNotApplicable,
		FinancialStatus:  domain.FinancialNone,
		IsReturnParcel:   true,
		OriginalParcelID: domain.Int64Ptr(orig.ID),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func cloneID(v *int64) *int64 {
	if v == nil {
		return nil
	}
	return domain.Int64Ptr(*v)
}
