package kafka

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"parcelhub/internal/domain"
	"parcelhub/internal/service/verification"
)

// VerificationDTO is the wire form of a delivery verification message.
// Money may arrive as a JSON string or number.
type VerificationDTO struct {
	Event             string           `json:"event"`
	ParcelID          int64            `json:"parcel_id"`
	RiderID           *int64           `json:"rider_id,omitempty"`
	SelectedStatus    string           `json:"selected_status"`
	CollectedAmount   *decimal.Decimal `json:"collected_amount,omitempty"`
	ExpectedCODAmount *decimal.Decimal `json:"expected_cod_amount,omitempty"`
	VerifiedAt        time.Time        `json:"verified_at"`
}

// ToDomain converts VerificationDTO to verification.Event
func ToDomain(dto VerificationDTO) verification.Event {
	return verification.Event{
		Event:             strings.ToLower(strings.TrimSpace(dto.Event)),
		ParcelID:          dto.ParcelID,
		RiderID:           dto.RiderID,
		SelectedStatus:    strings.ToUpper(strings.TrimSpace(dto.SelectedStatus)),
		CollectedAmount:   dto.CollectedAmount,
		ExpectedCODAmount: dto.ExpectedCODAmount,
		VerifiedAt:        dto.VerifiedAt.UTC(),
	}
}

// ParcelEventDTO is the wire form of a committed parcel status change.
type ParcelEventDTO struct {
	ID             int64     `json:"id"`
	ParcelID       int64     `json:"parcel_id"`
	TrackingNumber string    `json:"tracking_number"`
	MerchantID     int64     `json:"merchant_id"`
	FromStatus     string    `json:"from_status,omitempty"`
	ToStatus       string    `json:"to_status"`
	ActorID        int64     `json:"actor_id"`
	ActorRole      string    `json:"actor_role"`
	HubID          *int64    `json:"hub_id,omitempty"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FromParcelEvent converts a domain.ParcelEvent to its wire form.
func FromParcelEvent(e domain.ParcelEvent) ParcelEventDTO {
	return ParcelEventDTO{
		ID:             e.ID,
		ParcelID:       e.ParcelID,
		TrackingNumber: e.TrackingNumber,
		MerchantID:     e.MerchantID,
		FromStatus:     string(e.FromStatus),
		ToStatus:       string(e.ToStatus),
		ActorID:        e.ActorID,
		ActorRole:      string(e.ActorRole),
		HubID:          e.HubID,
		Note:           e.Note,
		CreatedAt:      e.CreatedAt.UTC(),
	}
}
