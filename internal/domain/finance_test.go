package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"parcelhub/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func post(f *domain.MerchantFinance, rows *[]domain.LedgerTransaction, e domain.LedgerEntry) {
	row := f.NextRow(e, time.Unix(int64(len(*rows)), 0))
	row.ID = int64(len(*rows) + 1)
	f.Apply(row)
	*rows = append(*rows, row)
}

func codParcel() domain.Parcel {
	collected := dec("500")
	return domain.Parcel{
		ID:                 1,
		TrackingNumber:     "PH1",
		MerchantID:         7,
		IsCOD:              true,
		CODAmount:          dec("500"),
		CODCollectedAmount: &collected,
		DeliveryCharge:     dec("60"),
		TotalCharge:        dec("60"),
		ReturnCharge:       dec("30"),
		Status:             domain.StatusDelivered,
	}
}

func TestBooking_DeliveredScenario(t *testing.T) {
	t.Parallel()

	p := codParcel()
	b, ok := domain.BookingFor(p)
	require.True(t, ok)

	entries := b.Entries(p, 99)
	require.Len(t, entries, 2)
	require.Equal(t, domain.TxCredit, entries[0].Type)
	require.Equal(t, domain.RefParcelDelivered, entries[0].ReferenceType)
	require.True(t, entries[0].Amount.Equal(dec("500")))
	require.Equal(t, domain.TxDebit, entries[1].Type)
	require.Equal(t, domain.RefDeliveryCharge, entries[1].ReferenceType)
	require.True(t, entries[1].Amount.Equal(dec("60")))

	f := domain.NewMerchantFinance(7, time.Unix(0, 0))
	var rows []domain.LedgerTransaction
	for _, e := range entries {
		post(&f, &rows, e)
	}
	require.True(t, f.CurrentBalance.Equal(dec("440")))
	require.True(t, f.PendingBalance.Equal(dec("440")))
	require.True(t, f.TotalDeliveryCharges.Equal(dec("60")))
	require.True(t, f.TotalCODCollected.Equal(dec("500")))

	rep := domain.ReplayLedger(7, rows, f.CurrentBalance)
	require.True(t, rep.Consistent)
}

func TestBooking_DebitsDeliveryChargeNotTotal(t *testing.T) {
	t.Parallel()

	p := codParcel()
	p.WeightCharge = dec("15")
	p.CODCharge = dec("5")
	p.TotalCharge = domain.ComputeTotalCharge(p.DeliveryCharge, p.WeightCharge, p.CODCharge)
	require.True(t, p.TotalCharge.Equal(dec("80")))

	b, ok := domain.BookingFor(p)
	require.True(t, ok)
	require.True(t, b.DeliveryCharge.Equal(dec("60")))
	require.True(t, b.Net().Equal(dec("440")))

	entries := b.Entries(p, 1)
	require.Len(t, entries, 2)
	require.True(t, entries[1].Amount.Equal(dec("60")))

	var totals domain.Totals
	totals.Add(p)
	require.True(t, totals.DeliveryCharges.Equal(dec("60")))
	require.True(t, totals.Payable.Equal(dec("440")))
}

func TestBooking_PartialPostsCreditThenTwoDebits(t *testing.T) {
	t.Parallel()

	p := codParcel()
	p.Status = domain.StatusPartialDelivery
	b, _ := domain.BookingFor(p)
	entries := b.Entries(p, 1)
	require.Len(t, entries, 3)
	require.Equal(t, domain.RefParcelPartialDelivery, entries[0].ReferenceType)
	require.Equal(t, domain.RefDeliveryCharge, entries[1].ReferenceType)
	require.Equal(t, domain.RefReturnCharge, entries[2].ReferenceType)
	require.True(t, b.Net().Equal(dec("410")))
}

func TestBooking_ReturnedKeepsZeroReturnCharge(t *testing.T) {
	t.Parallel()

	p := codParcel()
	p.Status = domain.StatusReturned
	p.ReturnCharge = decimal.Zero
	b, ok := domain.BookingFor(p)
	require.True(t, ok)
	entries := b.Entries(p, 1)
	require.Len(t, entries, 1)
	require.Equal(t, domain.RefReturnCharge, entries[0].ReferenceType)
	require.True(t, entries[0].Amount.IsZero())
}

func TestBooking_ReturnParcelBooksNothing(t *testing.T) {
	t.Parallel()

	p := codParcel()
	p.IsReturnParcel = true
	_, ok := domain.BookingFor(p)
	require.False(t, ok)

	p.IsReturnParcel = false
	p.Status = domain.StatusFailedDelivery
	_, ok = domain.BookingFor(p)
	require.False(t, ok)
}

func TestMerchantFinance_MoveKeepsCurrentBalance(t *testing.T) {
	t.Parallel()

	f := domain.MerchantFinance{CurrentBalance: dec("440"), PendingBalance: dec("440")}
	f.Move(domain.BucketPending, domain.BucketInvoiced, dec("440"))
	require.True(t, f.PendingBalance.IsZero())
	require.True(t, f.InvoicedBalance.Equal(dec("440")))
	f.Move(domain.BucketInvoiced, domain.BucketProcessing, dec("440"))
	require.True(t, f.ProcessingBalance.Equal(dec("440")))
	require.True(t, f.CurrentBalance.Equal(dec("440")))

	f.Release(domain.BucketProcessing, dec("440"))
	require.True(t, f.ProcessingBalance.IsZero())
}

func TestMerchantFinance_CreditUsedTracksNegativeBalance(t *testing.T) {
	t.Parallel()

	f := domain.NewMerchantFinance(1, time.Unix(0, 0))
	f.Apply(f.NextRow(domain.LedgerEntry{MerchantID: 1, Type: domain.TxDebit, Amount: dec("25"), ReferenceType: domain.RefDeliveryCharge}, time.Unix(1, 0)))
	require.True(t, f.CurrentBalance.Equal(dec("-25")))
	require.True(t, f.CreditUsed.Equal(dec("25")))

	f.Apply(f.NextRow(domain.LedgerEntry{MerchantID: 1, Type: domain.TxCredit, Amount: dec("100"), ReferenceType: domain.RefAdjustmentCredit}, time.Unix(2, 0)))
	require.True(t, f.CreditUsed.IsZero())
}

func TestMerchantFinance_CountOutcome(t *testing.T) {
	t.Parallel()

	var f domain.MerchantFinance
	f.CountOutcome(domain.StatusDelivered)
	f.CountOutcome(domain.StatusExchange)
	f.CountOutcome(domain.StatusReturned)
	f.CountOutcome(domain.StatusPaidReturn)
	f.CountOutcome(domain.StatusInHub)
	require.EqualValues(t, 2, f.ParcelsDelivered)
	require.EqualValues(t, 2, f.ParcelsReturned)
}

func TestReplayLedger_DetectsDrift(t *testing.T) {
	t.Parallel()

	f := domain.NewMerchantFinance(3, time.Unix(0, 0))
	var rows []domain.LedgerTransaction
	post(&f, &rows, domain.LedgerEntry{MerchantID: 3, Type: domain.TxCredit, Amount: dec("100"), ReferenceType: domain.RefParcelDelivered})
	post(&f, &rows, domain.LedgerEntry{MerchantID: 3, Type: domain.TxDebit, Amount: dec("40"), ReferenceType: domain.RefDeliveryCharge})

	require.True(t, domain.ReplayLedger(3, rows, dec("60")).Consistent)

	rep := domain.ReplayLedger(3, rows, dec("75"))
	require.False(t, rep.Consistent)
	require.Len(t, rep.Mismatches, 1)
	require.Equal(t, "current_balance", rep.Mismatches[0].Field)

	rows[1].BalanceBefore = dec("90")
	rep = domain.ReplayLedger(3, rows, dec("60"))
	require.False(t, rep.Consistent)
	require.Equal(t, int64(2), rep.Mismatches[0].TransactionID)
}

func TestLedgerEntry_Validate(t *testing.T) {
	t.Parallel()

	ok := domain.LedgerEntry{MerchantID: 1, Type: domain.TxCredit, Amount: dec("1"), ReferenceType: domain.RefRefund}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.Amount = dec("-1")
	require.Error(t, bad.Validate())

	bad = ok
	bad.ReferenceType = "GIFT"
	require.Error(t, bad.Validate())

	bad = ok
	bad.MerchantID = 0
	require.Error(t, bad.Validate())
}
