package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MerchantFinance is the per-merchant balance projection of the ledger.
type MerchantFinance struct {
	MerchantID        int64
	CurrentBalance    decimal.Decimal
	PendingBalance    decimal.Decimal
	InvoicedBalance   decimal.Decimal
	ProcessingBalance decimal.Decimal
	HoldAmount        decimal.Decimal

	TotalEarned          decimal.Decimal
	TotalWithdrawn       decimal.Decimal
	TotalDeliveryCharges decimal.Decimal
	TotalReturnCharges   decimal.Decimal
	TotalCODCollected    decimal.Decimal
	ParcelsDelivered     int64
	ParcelsReturned      int64

	CreditLimit decimal.Decimal
	CreditUsed  decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMerchantFinance returns a zero projection for merchantID.
func NewMerchantFinance(merchantID int64, now time.Time) MerchantFinance {
	return MerchantFinance{MerchantID: merchantID, CreatedAt: now, UpdatedAt: now}
}

// Bucket names a reclassification bucket of the projection.
type Bucket string

// List of balance buckets
const (
	BucketPending    Bucket = "pending"
	BucketInvoiced   Bucket = "invoiced"
	BucketProcessing Bucket = "processing"
)

// Apply folds one posted row into the projection.
func (f *MerchantFinance) Apply(t LedgerTransaction) {
	a := t.Amount
	switch t.Type {
	case TxCredit:
		f.CurrentBalance = f.CurrentBalance.Add(a)
		switch {
		case t.ReferenceType.IsParcelOutcome():
			f.PendingBalance = f.PendingBalance.Add(a)
			f.TotalEarned = f.TotalEarned.Add(a)
			f.TotalCODCollected = f.TotalCODCollected.Add(a)
		case t.ReferenceType == RefRefund || t.ReferenceType == RefAdjustmentCredit:
			f.TotalEarned = f.TotalEarned.Add(a)
		}
	case TxDebit:
		f.CurrentBalance = f.CurrentBalance.Sub(a)
		switch t.ReferenceType {
		case RefDeliveryCharge:
			f.PendingBalance = f.PendingBalance.Sub(a)
			f.TotalDeliveryCharges = f.TotalDeliveryCharges.Add(a)
		case RefReturnCharge:
			f.PendingBalance = f.PendingBalance.Sub(a)
			f.TotalReturnCharges = f.TotalReturnCharges.Add(a)
		case RefInvoicePaid, RefWithdrawal:
			f.TotalWithdrawn = f.TotalWithdrawn.Add(a)
		}
	}
	f.CreditUsed = decimal.Max(decimal.Zero, f.CurrentBalance.Neg())
	f.UpdatedAt = t.CreatedAt
}

// CountOutcome bumps the lifetime parcel counters for a booked outcome.
func (f *MerchantFinance) CountOutcome(s ParcelStatus) {
	switch s {
	case StatusDelivered, StatusPartialDelivery, StatusExchange:
		f.ParcelsDelivered++
	case StatusPaidReturn, StatusReturned:
		f.ParcelsReturned++
	}
}

// Move reclassifies amount from one bucket to another. The current balance is untouched.
func (f *MerchantFinance) Move(from, to Bucket, amount decimal.Decimal) {
	*f.bucket(from) = f.bucket(from).Sub(amount)
	*f.bucket(to) = f.bucket(to).Add(amount)
}

// Release removes a settled amount from bucket b.
func (f *MerchantFinance) Release(b Bucket, amount decimal.Decimal) {
	*f.bucket(b) = f.bucket(b).Sub(amount)
}

func (f *MerchantFinance) bucket(b Bucket) *decimal.Decimal {
	switch b {
	case BucketInvoiced:
		return &f.InvoicedBalance
	case BucketProcessing:
		return &f.ProcessingBalance
	default:
		return &f.PendingBalance
	}
}

// Available returns the amount a debit may consume.
func (f *MerchantFinance) Available() decimal.Decimal {
	return f.CurrentBalance.Sub(f.HoldAmount).Add(f.CreditLimit)
}

// NextRow computes the posted form of entry against the current balance.
func (f *MerchantFinance) NextRow(e LedgerEntry, now time.Time) LedgerTransaction {
	before := f.CurrentBalance
	return LedgerTransaction{
		MerchantID:    e.MerchantID,
		Type:          e.Type,
		Amount:        e.Amount,
		BalanceBefore: before,
		BalanceAfter:  before.Add(e.Signed()),
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		ReferenceCode: e.ReferenceCode,
		Description:   e.Description,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     now,
	}
}
