package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment state of a merchant invoice.
type InvoiceStatus string

// List of invoice statuses
const (
	InvoiceUnpaid     InvoiceStatus = "UNPAID"
	InvoiceProcessing InvoiceStatus = "PROCESSING"
	InvoicePaid       InvoiceStatus = "PAID"
)

// Bucket returns the projection bucket that holds the invoice amount in status s.
func (s InvoiceStatus) Bucket() Bucket {
	if s == InvoiceProcessing {
		return BucketProcessing
	}
	return BucketInvoiced
}

// Totals are the money sums of a group of parcels.
type Totals struct {
	Parcels         int
	Counts          OutcomeCounts
	CODAmount       decimal.Decimal
	CODCollected    decimal.Decimal
	DeliveryCharges decimal.Decimal
	ReturnCharges   decimal.Decimal
	Payable         decimal.Decimal
}

// Add folds one booked parcel into the totals.
func (t *Totals) Add(p Parcel) {
	b, ok := BookingFor(p)
	if !ok {
		return
	}
	t.Parcels++
	t.Counts.Add(p.Status)
	if p.IsCOD {
		t.CODAmount = t.CODAmount.Add(p.CODAmount)
	}
	t.CODCollected = t.CODCollected.Add(b.Credit)
	t.DeliveryCharges = t.DeliveryCharges.Add(b.DeliveryCharge)
	t.ReturnCharges = t.ReturnCharges.Add(b.ReturnCharge)
	t.Payable = t.CODCollected.Sub(t.DeliveryCharges).Sub(t.ReturnCharges)
}

// PaymentInfo is the metadata recorded when an invoice is paid.
type PaymentInfo struct {
	Method    string
	Reference string
}

// MerchantInvoice is a point-in-time batch of parcels payable to a merchant.
type MerchantInvoice struct {
	ID            int64
	InvoiceNumber string
	MerchantID    int64
	Totals        Totals
	Status        InvoiceStatus
	Payment       PaymentInfo
	PaidAt        *time.Time
	PaidBy        *int64
	CreatedBy     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ParcelIDs     []int64
}

// ClearanceItem is one merchant row of the read-only clearance list.
type ClearanceItem struct {
	MerchantID int64
	Totals     Totals
}

// BuildInvoice groups eligible parcels of one merchant into an UNPAID invoice.
func BuildInvoice(merchantID int64, parcels []Parcel, createdBy int64, now time.Time) MerchantInvoice {
	inv := MerchantInvoice{
		InvoiceNumber: NewInvoiceNumber(merchantID, now),
		MerchantID:    merchantID,
		Status:        InvoiceUnpaid,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, p := range parcels {
		if p.MerchantID != merchantID || !InvoiceEligible(p) {
			continue
		}
		inv.Totals.Add(p)
		inv.ParcelIDs = append(inv.ParcelIDs, p.ID)
	}
	return inv
}

// InvoiceEligible reports whether p can be grouped into a new invoice.
func InvoiceEligible(p Parcel) bool {
	return !p.PaidToMerchant && p.InvoiceID == nil && !p.IsReturnParcel && p.Status.IsFinancialOutcome()
}

// NewInvoiceNumber returns a unique invoice number.
func NewInvoiceNumber(merchantID int64, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("INV-%s-%d-%s", now.UTC().Format("20060102"), merchantID, suffix)
}
