package parcel_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/metrics"
	"parcelhub/internal/ports/storetx"
	"parcelhub/internal/service/ledger"
	"parcelhub/internal/service/parcel"
	"parcelhub/internal/testutil/memstore"
	"parcelhub/internal/testutil/testlog"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func amount(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

const (
	hubA       int64 = 10
	hubB       int64 = 20
	riderID    int64 = 5
	merchantID int64 = 7
)

var (
	hubManager = domain.Scope{UserID: 100, Role: domain.RoleHubManager, HubID: domain.Int64Ptr(hubA)}
	otherHub   = domain.Scope{UserID: 200, Role: domain.RoleHubManager, HubID: domain.Int64Ptr(hubB)}
	rider      = domain.Scope{UserID: 300, Role: domain.RoleRider, RiderID: domain.Int64Ptr(riderID)}
	system     = domain.SystemScope()
)

type publisherStub struct {
	mu     sync.Mutex
	err    error
	events []domain.ParcelEvent
}

func (p *publisherStub) PublishParcelEvent(_ context.Context, e domain.ParcelEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type fixture struct {
	store       *memstore.Store
	svc         *parcel.Service
	pub         *publisherStub
	transitions *prometheus.CounterVec
	rec         *testlog.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	store.SeedRider(domain.Rider{ID: riderID, HubID: hubA, Name: "R"})
	store.SeedRider(domain.Rider{ID: 6, HubID: hubB, Name: "Other"})
	pub := &publisherStub{}
	transitions := metrics.NewParcelTransitionsTotal()
	rec := testlog.New()
	poster := ledger.NewPoster(metrics.NewLedger(), logx.Nop())
	svc := parcel.NewService(store, poster, pub, transitions, time.Second, rec.Logger())
	return fixture{store: store, svc: svc, pub: pub, transitions: transitions, rec: rec}
}

func codParcel(status domain.ParcelStatus) domain.Parcel {
	return domain.Parcel{
		TrackingNumber:  domain.NewTrackingNumber(),
		MerchantID:      merchantID,
		StoreID:         3,
		CurrentHubID:    domain.Int64Ptr(hubA),
		OriginHubID:     domain.Int64Ptr(hubA),
		DeliveryCharge:  dec("60"),
		TotalCharge:     dec("60"),
		ReturnCharge:    dec("20"),
		IsCOD:           true,
		CODAmount:       dec("500"),
		Status:          status,
		PaymentStatus:   domain.PaymentUnpaid,
		FinancialStatus: domain.FinancialNone,
	}
}

func outForDelivery() domain.Parcel {
	p := codParcel(domain.StatusOutForDelivery)
	p.AssignedRiderID = domain.Int64Ptr(riderID)
	return p
}

func TestCreate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, hubManager, domain.NewParcel{
		MerchantID:     merchantID,
		Customer:       domain.Customer{Name: "Ann", Address: "Main st 1"},
		PickupHubID:    domain.Int64Ptr(hubA),
		DeliveryCharge: dec("50"),
		WeightCharge:   dec("7"),
		CODCharge:      dec("3"),
		IsCOD:          true,
		CODAmount:      dec("500"),
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, p.Status)
	require.Equal(t, domain.PaymentUnpaid, p.PaymentStatus)
	require.True(t, p.TotalCharge.Equal(dec("60")))
	require.Len(t, p.TrackingNumber, 14)

	events := f.store.Events(p.ID)
	require.Len(t, events, 1)
	require.Equal(t, domain.ParcelStatus(""), events[0].FromStatus)
	require.Len(t, f.pub.events, 1)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	base := domain.NewParcel{MerchantID: merchantID, Customer: domain.Customer{Name: "Ann", Address: "Main st 1"}}

	tests := []struct {
		name  string
		scope domain.Scope
		edit  func(*domain.NewParcel)
		want  error
	}{
		{name: "negative charge", scope: hubManager, edit: func(n *domain.NewParcel) { n.DeliveryCharge = dec("-1") }, want: apperr.ErrInvalid},
		{name: "cod amount without cod", scope: hubManager, edit: func(n *domain.NewParcel) { n.CODAmount = dec("10") }, want: apperr.ErrInvalid},
		{name: "missing customer", scope: hubManager, edit: func(n *domain.NewParcel) { n.Customer = domain.Customer{} }, want: apperr.ErrInvalid},
		{name: "foreign merchant", scope: domain.Scope{Role: domain.RoleMerchant, MerchantID: domain.Int64Ptr(8)}, edit: func(*domain.NewParcel) {}, want: apperr.ErrCustodyMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.edit(&in)
			_, err := f.svc.Create(ctx, tt.scope, in)
			require.ErrorIs(t, err, tt.want)
		})
	}
	require.Empty(t, f.store.Parcels())
}

func TestForwardFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.store.SeedParcel(codParcel(domain.StatusPending))

	_, err := f.svc.ReceiveAtHub(ctx, hubManager, id)
	require.NoError(t, err)

	_, err = f.svc.AssignRider(ctx, hubManager, id, 6)
	require.ErrorIs(t, err, apperr.ErrCustodyMismatch)
	_, err = f.svc.AssignRider(ctx, hubManager, id, 99)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	res, err := f.svc.AssignRider(ctx, hubManager, id, riderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAssignedToRider, res.To)
	require.NotNil(t, res.Parcel.AssignedAt)

	_, err = f.svc.AssignRider(ctx, hubManager, id, riderID)
	require.ErrorIs(t, err, apperr.ErrConflict)

	res, err = f.svc.Dispatch(ctx, rider, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusOutForDelivery, res.Parcel.Status)
	require.NotNil(t, res.Parcel.OutForDeliveryAt)

	require.Len(t, f.store.Events(id), 3)
	require.Equal(t, float64(1), testutil.ToFloat64(f.transitions.WithLabelValues(string(domain.StatusOutForDelivery))))
}

func TestReceiveAtHub_CustodyMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.store.SeedParcel(codParcel(domain.StatusPickedUp))

	_, err := f.svc.ReceiveAtHub(context.Background(), otherHub, id)
	require.ErrorIs(t, err, apperr.ErrCustodyMismatch)
	require.ErrorIs(t, err, apperr.ErrConflict)

	p, _ := f.store.Parcel(id)
	require.Equal(t, domain.StatusPickedUp, p.Status)
	require.Empty(t, f.store.Events(id))
}

// A COD parcel delivered with the full amount books CREDIT 500 then DEBIT 60.
func TestApplyOutcome_DeliveredBooksLedger(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.store.SeedParcel(outForDelivery())

	res, err := f.svc.ApplyOutcome(context.Background(), rider, domain.VerificationResult{
		ParcelID:        id,
		SelectedStatus:  domain.StatusDelivered,
		CollectedAmount: amount("500"),
	})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	require.True(t, res.Balance.Equal(dec("440")))

	rows := f.store.Ledger(merchantID)
	require.Len(t, rows, 2)
	require.Equal(t, domain.TxCredit, rows[0].Type)
	require.Equal(t, domain.RefParcelDelivered, rows[0].ReferenceType)
	require.True(t, rows[0].Amount.Equal(dec("500")))
	require.Equal(t, domain.TxDebit, rows[1].Type)
	require.Equal(t, domain.RefDeliveryCharge, rows[1].ReferenceType)
	require.True(t, rows[1].Amount.Equal(dec("60")))

	fin, _ := f.store.Finance(merchantID)
	require.True(t, fin.CurrentBalance.Equal(dec("440")))
	require.EqualValues(t, 1, fin.ParcelsDelivered)

	p, _ := f.store.Parcel(id)
	require.True(t, p.CODCollectedAmount.Equal(dec("500")))
	require.Equal(t, domain.PaymentCollected, p.PaymentStatus)
	require.Equal(t, domain.FinancialPendingClearance, p.FinancialStatus)
	require.True(t, p.ClearanceRequired)

	vs := f.store.Verifications()
	require.Len(t, vs, 1)
	require.Equal(t, domain.VerificationCompleted, vs[0].Status)
	require.Equal(t, riderID, vs[0].RiderID)

	require.Len(t, f.rec.Find("parcel transition"), 1)
}

func TestApplyOutcome_DebitsDeliveryChargeOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := outForDelivery()
	p.WeightCharge = dec("20")
	p.TotalCharge = domain.ComputeTotalCharge(p.DeliveryCharge, p.WeightCharge, p.CODCharge)
	id := f.store.SeedParcel(p)

	res, err := f.svc.ApplyOutcome(context.Background(), rider, domain.VerificationResult{
		ParcelID: id, SelectedStatus: domain.StatusDelivered, CollectedAmount: amount("500"),
	})
	require.NoError(t, err)
	require.True(t, res.Balance.Equal(dec("440")))

	rows := f.store.Ledger(merchantID)
	require.Len(t, rows, 2)
	require.Equal(t, domain.RefDeliveryCharge, rows[1].ReferenceType)
	require.True(t, rows[1].Amount.Equal(dec("60")))
}

func TestApplyOutcome_NonCODCollectsNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	p := outForDelivery()
	p.IsCOD = false
	p.CODAmount = decimal.Zero
	id := f.store.SeedParcel(p)

	_, err := f.svc.ApplyOutcome(ctx, rider, domain.VerificationResult{
		ParcelID: id, SelectedStatus: domain.StatusDelivered, CollectedAmount: amount("50"),
	})
	require.ErrorIs(t, err, apperr.ErrInvalid)
	require.Empty(t, f.store.Ledger(merchantID))

	res, err := f.svc.ApplyOutcome(ctx, rider, domain.VerificationResult{
		ParcelID: id, SelectedStatus: domain.StatusDelivered, CollectedAmount: amount("0"),
	})
	require.NoError(t, err)
	require.True(t, res.Balance.Equal(dec("-60")))
}

func TestApplyOutcome_ClockedAtCommitNotVerifier(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.store.SeedParcel(outForDelivery())
	verifiedAt := time.Now().UTC().Add(-72 * time.Hour)

	before := time.Now().UTC()
	_, err := f.svc.ApplyOutcome(context.Background(), rider, domain.VerificationResult{
		ParcelID: id, SelectedStatus: domain.StatusDelivered, CollectedAmount: amount("500"), VerifiedAt: verifiedAt,
	})
	require.NoError(t, err)

	vs := f.store.Verifications()
	require.Len(t, vs, 1)
	require.False(t, vs[0].DeliveryCompletedAt.Before(before))
	require.NotNil(t, vs[0].VerifiedAt)
	require.True(t, vs[0].VerifiedAt.Equal(verifiedAt))
}

func TestApplyOutcome_PartialBooksThreeRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.store.SeedParcel(outForDelivery())

	res, err := f.svc.ApplyOutcome(context.Background(), system, domain.VerificationResult{
		ParcelID:        id,
		RiderID:         domain.Int64Ptr(riderID),
		SelectedStatus:  domain.StatusPartialDelivery,
		CollectedAmount: amount("300"),
	})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 3)
	require.True(t, res.Balance.Equal(dec("220")))

	var credits, debits int
	for _, r := range f.store.Ledger(merchantID) {
		if r.Type == domain.TxCredit {
			credits++
		} else {
			debits++
		}
	}
	require.Equal(t, 1, credits)
	require.Equal(t, 2, debits)
}

func TestApplyOutcome_ReturnedKeepsCountableRow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := outForDelivery()
	p.ReturnCharge = decimal.Zero
	id := f.store.SeedParcel(p)

	res, err := f.svc.ApplyOutcome(context.Background(), rider, domain.VerificationResult{
		ParcelID: id, SelectedStatus: domain.StatusReturned, CollectedAmount: amount("0"),
	})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	require.Equal(t, domain.RefReturnCharge, res.Transactions[0].ReferenceType)

	fin, _ := f.store.Finance(merchantID)
	require.EqualValues(t, 1, fin.ParcelsReturned)
	require.True(t, fin.CurrentBalance.IsZero())
}

func TestApplyOutcome_RescheduleBooksNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.store.SeedParcel(outForDelivery())

	res, err := f.svc.ApplyOutcome(context.Background(), rider, domain.VerificationResult{
		ParcelID: id, SelectedStatus: domain.StatusDeliveryRescheduled,
	})
	require.NoError(t, err)
	require.Nil(t, res.Parcel.CODCollectedAmount)
	require.Empty(t, f.store.Ledger(merchantID))

	res, err = f.svc.PrepareRedelivery(context.Background(), hubManager, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInHub, res.Parcel.Status)
	require.Nil(t, res.Parcel.AssignedRiderID)
	require.Equal(t, 1, res.Parcel.DeliveryAttempts)
}

func TestApplyOutcome_Rejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.store.SeedParcel(outForDelivery())

	_, err := f.svc.ApplyOutcome(ctx, rider, domain.VerificationResult{ParcelID: id, SelectedStatus: domain.StatusInHub})
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = f.svc.ApplyOutcome(ctx, rider, domain.VerificationResult{ParcelID: id, SelectedStatus: domain.StatusDelivered})
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = f.svc.ApplyOutcome(ctx, rider, domain.VerificationResult{ParcelID: id, SelectedStatus: domain.StatusDelivered, CollectedAmount: amount("-1")})
	require.ErrorIs(t, err, apperr.ErrInvalid)

	stranger := domain.Scope{UserID: 9, Role: domain.RoleRider, RiderID: domain.Int64Ptr(6)}
	_, err = f.svc.ApplyOutcome(ctx, stranger, domain.VerificationResult{ParcelID: id, SelectedStatus: domain.StatusDelivered, CollectedAmount: amount("500")})
	require.ErrorIs(t, err, apperr.ErrCustodyMismatch)

	_, err = f.svc.ApplyOutcome(ctx, system, domain.VerificationResult{ParcelID: id, RiderID: domain.Int64Ptr(6), SelectedStatus: domain.StatusDelivered, CollectedAmount: amount("500")})
	require.ErrorIs(t, err, apperr.ErrCustodyMismatch)

	_, err = f.svc.ApplyOutcome(ctx, rider, domain.VerificationResult{ParcelID: 404, SelectedStatus: domain.StatusDelivered, CollectedAmount: amount("500")})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	p, _ := f.store.Parcel(id)
	require.Equal(t, domain.StatusOutForDelivery, p.Status)
	require.Empty(t, f.store.Ledger(merchantID))
}

// A ledger failure after the status write leaves neither applied.
func TestApplyOutcome_LedgerFailureRollsBackStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.store.SeedParcel(outForDelivery())
	f.store.FailNext("InsertTransaction", nil)
	f.store.FailNext("InsertTransaction", errors.New("connection reset"))

	_, err := f.svc.ApplyOutcome(context.Background(), rider, domain.VerificationResult{
		ParcelID: id, SelectedStatus: domain.StatusDelivered, CollectedAmount: amount("500"),
	})
	require.Error(t, err)
	require.Equal(t, 1, f.store.Calls("UpdateParcel"))

	p, _ := f.store.Parcel(id)
	require.Equal(t, domain.StatusOutForDelivery, p.Status)
	require.Nil(t, p.CODCollectedAmount)
	require.Empty(t, f.store.Ledger(merchantID))
	require.Empty(t, f.store.Events(id))
	require.Empty(t, f.store.Verifications())
	_, ok := f.store.Finance(merchantID)
	require.False(t, ok)
	require.Empty(t, f.pub.events)
}

func TestApplyOutcome_CollectedAmountIsFrozen(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.store.SeedParcel(outForDelivery())

	_, err := f.svc.ApplyOutcome(ctx, rider, domain.VerificationResult{ParcelID: id, SelectedStatus: domain.StatusDelivered, CollectedAmount: amount("500")})
	require.NoError(t, err)

	_, err = f.svc.ApplyOutcome(ctx, rider, domain.VerificationResult{ParcelID: id, SelectedStatus: domain.StatusPartialDelivery, CollectedAmount: amount("100")})
	require.ErrorIs(t, err, apperr.ErrConflict)

	p, _ := f.store.Parcel(id)
	require.True(t, p.CODCollectedAmount.Equal(dec("500")))
	require.Len(t, f.store.Ledger(merchantID), 2)
}

// lostRace reports every parcel write as a lost compare-and-swap.
type lostRace struct{ *memstore.Store }

func (l lostRace) WithTx(ctx context.Context, fn func(tx storetx.Repository) error) error {
	return l.Store.WithTx(ctx, func(tx storetx.Repository) error {
		return fn(casLost{tx})
	})
}

type casLost struct{ storetx.Repository }

func (casLost) UpdateParcel(context.Context, *domain.Parcel, domain.ParcelStatus) (bool, error) {
	return false, nil
}

func TestMutate_LostCompareAndSwapIsConflict(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	id := store.SeedParcel(codParcel(domain.StatusInHub))
	svc := parcel.NewService(lostRace{store}, ledger.NewPoster(metrics.NewLedger(), logx.Nop()), nil, nil, time.Second, logx.Nop())

	_, err := svc.HandToThirdParty(context.Background(), hubManager, id, "fastship")
	require.ErrorIs(t, err, apperr.ErrConflict)

	p, _ := store.Parcel(id)
	require.Equal(t, domain.StatusInHub, p.Status)
	require.Empty(t, store.Events(id))
}

func TestPublishFailureIsLogged(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	id := f.store.SeedParcel(codParcel(domain.StatusPending))

	_, err := f.svc.ReceiveAtHub(context.Background(), hubManager, id)
	require.NoError(t, err)
	require.Len(t, f.rec.Find("parcel event not published"), 1)
}

func TestCancel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := domain.Scope{UserID: 50, Role: domain.RoleMerchant, MerchantID: domain.Int64Ptr(merchantID)}
	foreign := domain.Scope{UserID: 51, Role: domain.RoleMerchant, MerchantID: domain.Int64Ptr(8)}
	id := f.store.SeedParcel(codParcel(domain.StatusPending))

	_, err := f.svc.Cancel(ctx, owner, id, "  ")
	require.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = f.svc.Cancel(ctx, foreign, id, "changed mind")
	require.ErrorIs(t, err, apperr.ErrCustodyMismatch)

	res, err := f.svc.Cancel(ctx, owner, id, "changed mind")
	require.NoError(t, err)
	require.Equal(t, "changed mind", res.Parcel.CancelReason)
	require.NotNil(t, res.Parcel.CancelledAt)

	inHub := f.store.SeedParcel(codParcel(domain.StatusInHub))
	_, err = f.svc.Cancel(ctx, owner, inHub, "late")
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestFailedDeliveryReturnsToHub(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.store.SeedParcel(outForDelivery())

	_, err := f.svc.ApplyOutcome(ctx, rider, domain.VerificationResult{ParcelID: id, SelectedStatus: domain.StatusFailedDelivery})
	require.NoError(t, err)

	_, err = f.svc.ReceiveFailed(ctx, otherHub, id)
	require.ErrorIs(t, err, apperr.ErrCustodyMismatch)

	res, err := f.svc.ReceiveFailed(ctx, hubManager, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReturnedToHub, res.Parcel.Status)
	require.Nil(t, res.Parcel.AssignedRiderID)
}

// RETURNED original spawns a new return parcel and keeps its own status.
func TestSpawnReturn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.store.SeedParcel(outForDelivery())
	_, err := f.svc.ApplyOutcome(ctx, rider, domain.VerificationResult{ParcelID: id, SelectedStatus: domain.StatusReturned, CollectedAmount: amount("0")})
	require.NoError(t, err)
	before, _ := f.store.Parcel(id)
	rowsBefore := len(f.store.Ledger(merchantID))

	_, err = f.svc.SpawnReturn(ctx, otherHub, id, "")
	require.ErrorIs(t, err, apperr.ErrCustodyMismatch)

	res, err := f.svc.SpawnReturn(ctx, hubManager, id, "back to merchant")
	require.NoError(t, err)
	require.Equal(t, domain.StatusReturned, res.Original.Status)
	require.NotNil(t, res.Original.ReturnInitiatedAt)
	require.Equal(t, before.FinancialStatus, res.Original.FinancialStatus)
	require.Equal(t, before.ClearanceRequired, res.Original.ClearanceRequired)

	ret := res.Return
	require.True(t, ret.IsReturnParcel)
	require.Equal(t, id, *ret.OriginalParcelID)
	require.Equal(t, domain.StatusReturnToMerchant, ret.Status)
	require.Equal(t, hubA, *ret.CurrentHubID)
	require.False(t, ret.IsCOD)
	require.True(t, ret.TotalCharge.IsZero())
	require.Equal(t, before.MerchantID, ret.MerchantID)
	require.Equal(t, before.StoreID, ret.StoreID)
	require.Equal(t, domain.Customer{}, ret.Customer)
	require.Len(t, f.store.Events(ret.ID), 1)
	require.Len(t, f.store.Ledger(merchantID), rowsBefore)

	_, err = f.svc.SpawnReturn(ctx, hubManager, id, "")
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.AssignRider(ctx, hubManager, id, riderID)
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.ReceiveAtHub(ctx, hubManager, ret.ID)
	require.NoError(t, err)
}

func TestSpawnReturn_FromNonSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.store.SeedParcel(codParcel(domain.StatusInHub))

	_, err := f.svc.SpawnReturn(context.Background(), hubManager, id, "")
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Len(t, f.store.Parcels(), 1)
}

// Every status pair outside the transition table is rejected without a write.
func TestMutate_OnlyTableEdgesSucceed(t *testing.T) {
	t.Parallel()

	for _, from := range domain.AllParcelStatuses() {
		for _, to := range domain.AllParcelStatuses() {
			from, to := from, to
			f := newFixture(t)
			p := codParcel(from)
			p.AssignedRiderID = domain.Int64Ptr(riderID)
			id := f.store.SeedParcel(p)

			_, err := f.svc.Mutate(context.Background(), system, id, parcel.Change{
				To: to,
				Apply: func(p *domain.Parcel, _ time.Time) {
					v := dec("0")
					p.CODCollectedAmount = &v
				},
			})
			got, _ := f.store.Parcel(id)
			if domain.CanTransition(from, to) {
				require.NoError(t, err, "%s -> %s", from, to)
				require.Equal(t, to, got.Status)
				continue
			}
			require.ErrorIs(t, err, apperr.ErrConflict, "%s -> %s", from, to)
			require.Equal(t, from, got.Status)
			require.Empty(t, f.store.Events(id))
		}
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.store.SeedParcel(codParcel(domain.StatusPending))
	_, err := f.svc.ReceiveAtHub(ctx, hubManager, id)
	require.NoError(t, err)
	_, err = f.svc.HandToThirdParty(ctx, hubManager, id, "fastship")
	require.NoError(t, err)

	events, err := f.svc.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.StatusInHub, events[0].ToStatus)
	require.Equal(t, domain.StatusAssignedToThirdParty, events[1].ToStatus)
	require.Equal(t, "fastship", events[1].Note)

	_, err = f.svc.History(ctx, 404)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
