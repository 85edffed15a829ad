// Package transfer moves parcels between hubs, sends returns back to their
// merchants and keeps the hub cash remittance records.
package transfer

import (
	"context"
	"time"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/ports/storetx"
	"parcelhub/internal/service/parcel"
)

// Parcels is the part of the parcel state machine the transfer workflow drives.
type Parcels interface {
	Mutate(ctx context.Context, scope domain.Scope, id int64, c parcel.Change) (domain.TransitionResult, error)
	SpawnReturn(ctx context.Context, scope domain.Scope, originalID int64, note string) (parcel.ReturnResult, error)
}

// Service is the hub transfer workflow.
type Service struct {
	parcels          Parcels
	runner           storetx.Runner
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates a new transfer Service.
func NewService(p Parcels, r storetx.Runner, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		parcels:          p,
		runner:           r,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Transfer sends a parcel from its custody hub to destHubID.
func (s *Service) Transfer(ctx context.Context, scope domain.Scope, id, destHubID int64) (domain.TransitionResult, error) {
	if destHubID <= 0 {
		return domain.TransitionResult{}, apperr.Invalidf("destination hub is required")
	}
	return s.parcels.Mutate(ctx, scope, id, parcel.Change{
		To: domain.StatusInTransit,
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			if !scope.IsAdmin() && !scope.HoldsHub(p.CurrentHubID) {
				return apperr.Custodyf("parcel %d is not held by the acting hub", p.ID)
			}
			if p.CurrentHubID == nil {
				return apperr.Conflictf("parcel %d has no custody hub", p.ID)
			}
			if *p.CurrentHubID == destHubID {
				return apperr.Invalidf("parcel %d is already at hub %d", p.ID, destHubID)
			}
			return nil
		},
		Apply: func(p *domain.Parcel, now time.Time) {
			p.OriginHubID = domain.Int64Ptr(*p.CurrentHubID)
			p.DestinationHubID = domain.Int64Ptr(destHubID)
			p.InTransfer = true
			p.TransferredAt = &now
			p.ReceivedAtDestinationHub = nil
		},
	})
}

// Accept takes custody of an in-transit parcel at its destination hub.
func (s *Service) Accept(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error) {
	return s.parcels.Mutate(ctx, scope, id, parcel.Change{
		To:   domain.StatusInHub,
		From: []domain.ParcelStatus{domain.StatusInTransit},
		Check: func(_ context.Context, _ storetx.Repository, p *domain.Parcel) error {
			if p.DestinationHubID == nil {
				return apperr.Conflictf("parcel %d has no destination hub", p.ID)
			}
			if !scope.HoldsHub(p.DestinationHubID) {
				return apperr.Custodyf("parcel %d is addressed to hub %d", p.ID, *p.DestinationHubID)
			}
			return nil
		},
		Apply: func(p *domain.Parcel, now time.Time) {
			p.CurrentHubID = domain.Int64Ptr(*p.DestinationHubID)
			p.DestinationHubID = nil
			p.InTransfer = false
			p.ReceivedAtDestinationHub = &now
		},
		Note: "accepted at destination hub",
	})
}

// ReturnToMerchant spawns the return parcel for an original that came back.
func (s *Service) ReturnToMerchant(ctx context.Context, scope domain.Scope, id int64, note string) (parcel.ReturnResult, error) {
	if scope.Role != domain.RoleHubManager && !scope.IsAdmin() {
		return parcel.ReturnResult{}, apperr.Custodyf("only hub staff can return parcels to merchants")
	}
	return s.parcels.SpawnReturn(ctx, scope, id, note)
}
