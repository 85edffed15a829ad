package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// TxType is the direction of a ledger row.
	TxType string
	// ReferenceType says what a ledger row was posted for.
	ReferenceType string
)

// List of ledger directions
const (
	TxCredit TxType = "CREDIT"
	TxDebit  TxType = "DEBIT"
)

// List of ledger reference types
const (
	RefParcelDelivered       ReferenceType = "PARCEL_DELIVERED"
	RefParcelPartialDelivery ReferenceType = "PARCEL_PARTIAL_DELIVERY"
	RefParcelExchange        ReferenceType = "PARCEL_EXCHANGE"
	RefParcelPaidReturn      ReferenceType = "PARCEL_PAID_RETURN"
	RefDeliveryCharge        ReferenceType = "DELIVERY_CHARGE"
	RefReturnCharge          ReferenceType = "RETURN_CHARGE"
	RefInvoicePaid           ReferenceType = "INVOICE_PAID"
	RefWithdrawal            ReferenceType = "WITHDRAWAL"
	RefAdjustmentCredit      ReferenceType = "ADJUSTMENT_CREDIT"
	RefAdjustmentDebit       ReferenceType = "ADJUSTMENT_DEBIT"
	RefClearance             ReferenceType = "CLEARANCE"
	RefRefund                ReferenceType = "REFUND"
)

var allReferenceTypes = [...]ReferenceType{
	RefParcelDelivered, RefParcelPartialDelivery, RefParcelExchange, RefParcelPaidReturn,
	RefDeliveryCharge, RefReturnCharge, RefInvoicePaid, RefWithdrawal,
	RefAdjustmentCredit, RefAdjustmentDebit, RefClearance, RefRefund,
}

// Valid checks if the TxType is known.
func (t TxType) Valid() bool { return t == TxCredit || t == TxDebit }

// Valid checks if the ReferenceType is known.
func (r ReferenceType) Valid() bool {
	for _, v := range allReferenceTypes {
		if r == v {
			return true
		}
	}
	return false
}

// IsParcelOutcome reports whether r books the cash of a delivered parcel.
func (r ReferenceType) IsParcelOutcome() bool {
	switch r {
	case RefParcelDelivered, RefParcelPartialDelivery, RefParcelExchange, RefParcelPaidReturn:
		return true
	}
	return false
}

// OutcomeReference maps a financial delivery outcome to its credit reference.
func OutcomeReference(s ParcelStatus) (ReferenceType, bool) {
	switch s {
	case StatusDelivered:
		return RefParcelDelivered, true
	case StatusPartialDelivery:
		return RefParcelPartialDelivery, true
	case StatusExchange:
		return RefParcelExchange, true
	case StatusPaidReturn:
		return RefParcelPaidReturn, true
	}
	return "", false
}

// LedgerEntry is a ledger row that has not been posted yet.
type LedgerEntry struct {
	MerchantID    int64
	Type          TxType
	Amount        decimal.Decimal
	ReferenceType ReferenceType
	ReferenceID   *int64
	ReferenceCode string
	Description   string
	CreatedBy     int64
}

// LedgerTransaction is an immutable, posted ledger row.
type LedgerTransaction struct {
	ID            int64
	MerchantID    int64
	Type          TxType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	ReferenceType ReferenceType
	ReferenceID   *int64
	ReferenceCode string
	Description   string
	CreatedBy     int64
	CreatedAt     time.Time
}

// Signed returns the amount with the sign implied by the row direction.
func (t LedgerTransaction) Signed() decimal.Decimal {
	if t.Type == TxDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Signed returns the amount with the sign implied by the entry direction.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Type == TxDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Validate checks the entry shape. Amounts are never negative.
func (e LedgerEntry) Validate() error {
	switch {
	case e.MerchantID <= 0:
		return fmt.Errorf("merchant_id must be positive")
	case !e.Type.Valid():
		return fmt.Errorf("unknown transaction type %q", e.Type)
	case !e.ReferenceType.Valid():
		return fmt.Errorf("unknown reference type %q", e.ReferenceType)
	case e.Amount.IsNegative():
		return fmt.Errorf("amount must not be negative")
	}
	return nil
}

// Mismatch describes one row that breaks the running balance.
type Mismatch struct {
	TransactionID int64
	Expected      decimal.Decimal
	Found         decimal.Decimal
	Field         string
}

// LedgerReport is the result of replaying a merchant ledger from zero.
type LedgerReport struct {
	MerchantID      int64
	Rows            int
	ReplayedBalance decimal.Decimal
	StoredBalance   decimal.Decimal
	Consistent      bool
	Mismatches      []Mismatch
}

// ReplayLedger replays rows in creation order from balance zero and checks every
// balance_before/balance_after pair and the final projection value.
func ReplayLedger(merchantID int64, rows []LedgerTransaction, stored decimal.Decimal) LedgerReport {
	rep := LedgerReport{MerchantID: merchantID, Rows: len(rows), StoredBalance: stored}
	running := decimal.Zero
	for _, row := range rows {
		if !row.BalanceBefore.Equal(running) {
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				TransactionID: row.ID, Expected: running, Found: row.BalanceBefore, Field: "balance_before",
			})
		}
		running = running.Add(row.Signed())
		if !row.BalanceAfter.Equal(running) {
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				TransactionID: row.ID, Expected: running, Found: row.BalanceAfter, Field: "balance_after",
			})
		}
	}
	rep.ReplayedBalance = running
	if !running.Equal(stored) {
		rep.Mismatches = append(rep.Mismatches, Mismatch{Expected: running, Found: stored, Field: "current_balance"})
	}
	rep.Consistent = len(rep.Mismatches) == 0
	return rep
}
