package verification

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is one message of the delivery verification flow.
type Event struct {
	Event             string           `json:"event"`
	ParcelID          int64            `json:"parcel_id"`
	RiderID           *int64           `json:"rider_id,omitempty"`
	SelectedStatus    string           `json:"selected_status"`
	CollectedAmount   *decimal.Decimal `json:"collected_amount,omitempty"`
	ExpectedCODAmount *decimal.Decimal `json:"expected_cod_amount,omitempty"`
	VerifiedAt        time.Time        `json:"verified_at"`
}
