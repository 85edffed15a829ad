package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Booking is the money a financial outcome books against the merchant.
type Booking struct {
	Outcome        ParcelStatus
	Credit         decimal.Decimal
	DeliveryCharge decimal.Decimal
	ReturnCharge   decimal.Decimal
}

// Net returns credit minus charges.
func (b Booking) Net() decimal.Decimal {
	return b.Credit.Sub(b.DeliveryCharge).Sub(b.ReturnCharge)
}

// BookingFor returns what reaching p.Status books for p. Only delivery_charge
// is debited; weight and COD charges stay informational parts of total_charge.
// Return parcels and non-financial statuses book nothing.
func BookingFor(p Parcel) (Booking, bool) {
	if p.IsReturnParcel || !p.Status.IsFinancialOutcome() {
		return Booking{}, false
	}
	b := Booking{Outcome: p.Status}
	switch p.Status {
	case StatusDelivered:
		b.Credit = p.CollectedOrExpected()
		b.DeliveryCharge = p.DeliveryCharge
	case StatusPartialDelivery, StatusExchange, StatusPaidReturn:
		b.Credit = p.CollectedOrExpected()
		b.DeliveryCharge = p.DeliveryCharge
		b.ReturnCharge = p.ReturnCharge
	case StatusReturned:
		b.ReturnCharge = p.ReturnCharge
	}
	return b, true
}

// Entries returns the ledger rows for the booking in posting order: the COD
// credit first, then the delivery charge, then the return charge. Zero-amount
// debits are skipped, except that a RETURNED outcome always keeps its return
// charge row.
func (b Booking) Entries(p Parcel, actorID int64) []LedgerEntry {
	id := p.ID
	base := LedgerEntry{
		MerchantID:    p.MerchantID,
		ReferenceID:   &id,
		ReferenceCode: p.TrackingNumber,
		CreatedBy:     actorID,
	}
	var out []LedgerEntry
	if ref, ok := OutcomeReference(b.Outcome); ok {
		e := base
		e.Type, e.Amount, e.ReferenceType = TxCredit, b.Credit, ref
		e.Description = fmt.Sprintf("COD collected for %s (%s)", p.TrackingNumber, b.Outcome)
		out = append(out, e)
	}
	if b.DeliveryCharge.IsPositive() {
		e := base
		e.Type, e.Amount, e.ReferenceType = TxDebit, b.DeliveryCharge, RefDeliveryCharge
		e.Description = fmt.Sprintf("delivery charge for %s", p.TrackingNumber)
		out = append(out, e)
	}
	if b.ReturnCharge.IsPositive() || b.Outcome == StatusReturned {
		e := base
		e.Type, e.Amount, e.ReferenceType = TxDebit, b.ReturnCharge, RefReturnCharge
		e.Description = fmt.Sprintf("return charge for %s", p.TrackingNumber)
		out = append(out, e)
	}
	return out
}
