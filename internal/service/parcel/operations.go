package parcel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/ports/storetx"
)

// Create validates and stores a new PENDING parcel.
func (s *Service) Create(ctx context.Context, scope domain.Scope, in domain.NewParcel) (domain.Parcel, error) {
	if err := validateNew(scope, in); err != nil {
		return domain.Parcel{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	p := newParcel(in, now)
	var event domain.ParcelEvent
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		var err error
		event, err = insertParcel(ctx, tx, scope, &p, "created", now)
		return err
	})
	if err != nil {
		return domain.Parcel{}, err
	}

	s.logger.Info("parcel created",
		logx.String("event", "parcel_created"),
		logx.Int64("parcel_id", p.ID),
		logx.String("tracking_number", p.TrackingNumber),
		logx.Int64("merchant_id", p.MerchantID),
		logx.Bool("cod", p.IsCOD),
	)
	s.publish(ctx, event)
	return p, nil
}

func validateNew(scope domain.Scope, in domain.NewParcel) error {
	if in.MerchantID <= 0 {
		return apperr.Invalidf("merchant_id is required")
	}
	if scope.Role == domain.RoleMerchant && !domain.SameID(scope.MerchantID, &in.MerchantID) {
		return apperr.Custodyf("merchant scope cannot create parcels for merchant %d", in.MerchantID)
	}
	money := map[string]bool{
		"product_price":   in.ProductPrice.IsNegative(),
		"weight":          in.Weight.IsNegative(),
		"delivery_charge": in.DeliveryCharge.IsNegative(),
		"weight_charge":   in.WeightCharge.IsNegative(),
		"cod_charge":      in.CODCharge.IsNegative(),
		"return_charge":   in.ReturnCharge.IsNegative(),
		"cod_amount":      in.CODAmount.IsNegative(),
	}
	for _, name := range []string{"product_price", "weight", "delivery_charge", "weight_charge", "cod_charge", "return_charge", "cod_amount"} {
		if money[name] {
			return apperr.Invalidf("%s must not be negative", name)
		}
	}
	if !in.IsCOD && !in.CODAmount.IsZero() {
		return apperr.Invalidf("cod_amount is only allowed for COD parcels")
	}
	if strings.TrimSpace(in.Customer.Name) == "" || strings.TrimSpace(in.Customer.Address) == "" {
		return apperr.Invalidf("customer name and address are required")
	}
	return nil
}

func newParcel(in domain.NewParcel, now time.Time) domain.Parcel {
	payment := domain.PaymentNotApplicable
	if in.IsCOD {
		payment = domain.PaymentUnpaid
	}
	return domain.Parcel{
		TrackingNumber:  domain.NewTrackingNumber(),
		MerchantID:      in.MerchantID,
		StoreID:         in.StoreID,
		Customer:        in.Customer,
		CurrentHubID:    in.PickupHubID,
		OriginHubID:     in.PickupHubID,
		PickupAreaID:    in.PickupAreaID,
		DeliveryAreaID:  in.DeliveryAreaID,
		ProductPrice:    in.ProductPrice,
		Weight:          in.Weight,
		DeliveryCharge:  in.DeliveryCharge,
		WeightCharge:    in.WeightCharge,
		CODCharge:       in.CODCharge,
		TotalCharge:     domain.ComputeTotalCharge(in.DeliveryCharge, in.WeightCharge, in.CODCharge),
		ReturnCharge:    in.ReturnCharge,
		IsCOD:           in.IsCOD,
		CODAmount:       in.CODAmount,
		Status:          domain.StatusPending,
		PaymentStatus:   payment,
		FinancialStatus: domain.FinancialNone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func insertParcel(ctx context.Context, tx storetx.Repository, scope domain.Scope, p *domain.Parcel, note string, now time.Time) (domain.ParcelEvent, error) {
	if err := tx.InsertParcel(ctx, p); err != nil {
		return domain.ParcelEvent{}, fmt.Errorf("insert parcel: %w", err)
	}
	e := newEvent(p, "", scope, note, now)
	if err := tx.InsertParcelEvent(ctx, &e); err != nil {
		return domain.ParcelEvent{}, fmt.Errorf("record parcel event: %w", err)
	}
	return e, nil
}

// requireHub fails unless the scope acts for the parcel's custody hub. Admin
// and system scopes hold every hub.
func requireHub(scope domain.Scope, p *domain.Parcel) error {
	if scope.IsAdmin() {
		return nil
	}
	if p.CurrentHubID == nil {
		return apperr.Custodyf("parcel %d is not held by any hub", p.ID)
	}
	if !scope.HoldsHub(p.CurrentHubID) {
		return apperr.Custodyf("parcel %d is held by hub %d", p.ID, *p.CurrentHubID)
	}
	return nil
}

// requireHandler allows the custody hub or the assigned rider.
func requireHandler(scope domain.Scope, p *domain.Parcel) error {
	if scope.Role == domain.RoleRider {
		if !domain.SameID(scope.RiderID, p.AssignedRiderID) {
			return apperr.Custodyf("parcel %d is not assigned to this rider", p.ID)
		}
		return nil
	}
	return requireHub(scope, p)
}

func loadRider(ctx context.Context, tx storetx.Repository, riderID int64) (*domain.Rider, error) {
	r, err := tx.GetRider(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFoundf("rider %d not found", riderID)
	}
	return r, nil
}

// DispatchPickup sends a rider to collect the parcel from the merchant.
func (s *Service) DispatchPickup(ctx context.Context, scope domain.Scope, id, riderID int64) (domain.TransitionResult, error) {
	return s.Mutate(ctx, scope, id, Change{
		To: domain.StatusOutForPickup,
		Check: func(ctx context.Context, tx storetx.Repository, p *domain.Parcel) error {
			if p.CurrentHubID != nil {
				if err := requireHub(scope, p); err != nil {
					return err
				}
			}
			r, err := loadRider(ctx, tx, riderID)
			if err != nil {
				return err
			}
			if p.CurrentHubID != nil && r.HubID != *p.CurrentHubID {
				return apperr.Custodyf("rider %d belongs to hub %d", riderID, r.HubID)
			}
			return nil
		},
		Apply: func(p *domain.Parcel, now time.Time) {
			p.AssignedRiderID = domain.Int64Ptr(riderID)
			p.AssignedAt = &now
		},
	})
}

// ConfirmPickup records that the parcel left the merchant.
func (s *Service) ConfirmPickup(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error) {
	return s.Mutate(ctx, scope, id, Change{
		To:   domain.StatusPickedUp,
		From: []domain.ParcelStatus{domain.StatusPending, domain.StatusOutForPickup, domain.StatusReturnToMerchant},
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			switch {
			case scope.Role == domain.RoleRider:
				if p.AssignedRiderID != nil && !domain.SameID(scope.RiderID, p.AssignedRiderID) {
					return apperr.Custodyf("parcel %d is assigned to another rider", p.ID)
				}
			case p.CurrentHubID != nil:
				return requireHub(scope, p)
			case !scope.IsAdmin() && scope.HubID == nil:
				return apperr.Custodyf("pickup must be confirmed by a hub or a rider")
			}
			return nil
		},
		Apply: func(p *domain.Parcel, now time.Time) {
			if p.CurrentHubID == nil && scope.HubID != nil {
				p.CurrentHubID = domain.Int64Ptr(*scope.HubID)
				p.OriginHubID = domain.Int64Ptr(*scope.HubID)
			}
			p.PickedUpAt = &now
			p.AssignedRiderID = nil
			p.AssignedAt = nil
		},
	})
}

// ReceiveAtHub marks the parcel as received by its custody hub.
func (s *Service) ReceiveAtHub(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error) {
	return s.Mutate(ctx, scope, id, Change{
		To:   domain.StatusInHub,
		From: []domain.ParcelStatus{domain.StatusPending, domain.StatusPickedUp, domain.StatusReturnToMerchant},
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			return requireHub(scope, p)
		},
		Apply: func(p *domain.Parcel, now time.Time) {
			if p.PickedUpAt == nil {
				p.PickedUpAt = &now
			}
			p.AssignedRiderID = nil
			p.AssignedAt = nil
		},
	})
}

// AssignRider assigns a rider of the custody hub to deliver the parcel.
func (s *Service) AssignRider(ctx context.Context, scope domain.Scope, id, riderID int64) (domain.TransitionResult, error) {
	return s.Mutate(ctx, scope, id, Change{
		To: domain.StatusAssignedToRider,
		Check: func(ctx context.Context, tx storetx.Repository, p *domain.Parcel) error {
			if err := requireHub(scope, p); err != nil {
				return err
			}
			if p.AssignedRiderID != nil {
				return apperr.Conflictf("parcel %d is already assigned to rider %d", p.ID, *p.AssignedRiderID)
			}
			r, err := loadRider(ctx, tx, riderID)
			if err != nil {
				return err
			}
			if p.CurrentHubID == nil || r.HubID != *p.CurrentHubID {
				return apperr.Custodyf("rider %d does not belong to the custody hub", riderID)
			}
			return nil
		},
		Apply: func(p *domain.Parcel, now time.Time) {
			p.AssignedRiderID = domain.Int64Ptr(riderID)
			p.AssignedAt = &now
		},
	})
}

// Dispatch sends the assigned rider out for delivery.
func (s *Service) Dispatch(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error) {
	return s.Mutate(ctx, scope, id, Change{
		To: domain.StatusOutForDelivery,
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			if p.AssignedRiderID == nil {
				return apperr.Conflictf("parcel %d has no assigned rider", p.ID)
			}
			return requireHandler(scope, p)
		},
		Apply: func(p *domain.Parcel, now time.Time) {
			p.OutForDeliveryAt = &now
		},
	})
}

// PrepareRedelivery resets a rescheduled parcel for another delivery cycle.
func (s *Service) PrepareRedelivery(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error) {
	return s.Mutate(ctx, scope, id, Change{
		To:   domain.StatusInHub,
		From: []domain.ParcelStatus{domain.StatusDeliveryRescheduled},
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			return requireHub(scope, p)
		},
		Apply: func(p *domain.Parcel, _ time.Time) {
			p.AssignedRiderID = nil
			p.AssignedAt = nil
			p.OutForDeliveryAt = nil
			p.DeliveryAttempts++
		},
		Note: "prepared for redelivery",
	})
}

// ReceiveFailed takes a failed delivery back into the custody hub.
func (s *Service) ReceiveFailed(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error) {
	return s.Mutate(ctx, scope, id, Change{
		To: domain.StatusReturnedToHub,
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			return requireHub(scope, p)
		},
		Apply: func(p *domain.Parcel, _ time.Time) {
			p.AssignedRiderID = nil
			p.DeliveryAttempts++
		},
	})
}

// HandToThirdParty hands the parcel to an external provider.
func (s *Service) HandToThirdParty(ctx context.Context, scope domain.Scope, id int64, provider string) (domain.TransitionResult, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return domain.TransitionResult{}, apperr.Invalidf("provider is required")
	}
	return s.Mutate(ctx, scope, id, Change{
		To: domain.StatusAssignedToThirdParty,
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			return requireHub(scope, p)
		},
		Apply: func(p *domain.Parcel, _ time.Time) {
			p.ThirdPartyProvider = provider
		},
		Note: provider,
	})
}

// Cancel cancels a parcel that has not reached a hub yet.
func (s *Service) Cancel(ctx context.Context, scope domain.Scope, id int64, reason string) (domain.TransitionResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.TransitionResult{}, apperr.Invalidf("cancel reason is required")
	}
	return s.Mutate(ctx, scope, id, Change{
		To: domain.StatusCancelled,
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			switch scope.Role {
			case domain.RoleMerchant:
				if !domain.SameID(scope.MerchantID, &p.MerchantID) {
					return apperr.Custodyf("parcel %d belongs to another merchant", p.ID)
				}
				return nil
			case domain.RoleRider:
				return apperr.Custodyf("riders cannot cancel parcels")
			}
			if p.CurrentHubID == nil {
				if scope.IsAdmin() {
					return nil
				}
				return apperr.Custodyf("parcel %d is not held by any hub", p.ID)
			}
			return requireHub(scope, p)
		},
		Apply: func(p *domain.Parcel, now time.Time) {
			p.CancelledAt = &now
			p.CancelReason = reason
			p.AssignedRiderID = nil
		},
		Note: reason,
	})
}
