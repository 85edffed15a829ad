package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Proof is the reference returned by the proof storage collaborator.
type Proof struct {
	URL         string
	SizeBytes   int64
	ContentType string
}

// HubTransferRecord is a hub manager's declaration of cash remitted to the operator.
type HubTransferRecord struct {
	ID             int64
	HubID          int64
	CreatedBy      int64
	Amount         decimal.Decimal
	ExpectedAmount decimal.Decimal
	Proof          Proof
	Note           string
	Review         Review
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Discrepancy returns the declared amount minus the cash the hub was expected to hold.
func (r HubTransferRecord) Discrepancy() decimal.Decimal {
	return r.Amount.Sub(r.ExpectedAmount)
}

// RemittanceUpdate carries the fields a creator may change while PENDING.
type RemittanceUpdate struct {
	Amount *decimal.Decimal
	Proof  *Proof
	Note   *string
}
