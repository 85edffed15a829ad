// Package memstore is an in-memory storetx implementation for service tests.
// Transactions run one at a time against a private copy of the state that is
// swapped in on commit and thrown away on error or panic.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"parcelhub/internal/domain"
	"parcelhub/internal/ports/storetx"
)

type state struct {
	parcels       map[int64]domain.Parcel
	events        []domain.ParcelEvent
	riders        map[int64]domain.Rider
	verifications []domain.DeliveryVerification
	finances      map[int64]domain.MerchantFinance
	ledger        []domain.LedgerTransaction
	settlements   map[int64]domain.RiderSettlement
	remittances   map[int64]domain.HubTransferRecord
	invoices      map[int64]domain.MerchantInvoice
	seq           int64
}

func newState() *state {
	return &state{
		parcels:     map[int64]domain.Parcel{},
		riders:      map[int64]domain.Rider{},
		finances:    map[int64]domain.MerchantFinance{},
		settlements: map[int64]domain.RiderSettlement{},
		remittances: map[int64]domain.HubTransferRecord{},
		invoices:    map[int64]domain.MerchantInvoice{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.parcels {
		c.parcels[k] = v.Clone()
	}
	c.events = append([]domain.ParcelEvent(nil), s.events...)
	for k, v := range s.riders {
		c.riders[k] = v
	}
	c.verifications = append([]domain.DeliveryVerification(nil), s.verifications...)
	for k, v := range s.finances {
		c.finances[k] = v
	}
	c.ledger = append([]domain.LedgerTransaction(nil), s.ledger...)
	for k, v := range s.settlements {
		c.settlements[k] = v
	}
	for k, v := range s.remittances {
		c.remittances[k] = v
	}
	for k, v := range s.invoices {
		v.ParcelIDs = append([]int64(nil), v.ParcelIDs...)
		c.invoices[k] = v
	}
	c.seq = s.seq
	return c
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

// Store is a storetx.Runner backed by memory.
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string][]error
	calls    map[string]int
	commits  int
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		st:       newState(),
		failures: map[string][]error{},
		calls:    map[string]int{},
		now:      func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

// FailNext makes the next call of method return err. Calls queue up.
func (s *Store) FailNext(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = append(s.failures[method], err)
}

// Calls returns how many times method was invoked, including failed calls.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Commits returns the number of committed transactions.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// WithTx runs fn against a private copy of the state.
func (s *Store) WithTx(ctx context.Context, fn func(tx storetx.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txRepo{s: s, st: s.st.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	s.commits++
	return nil
}

// SeedRider stores r as committed data.
func (s *Store) SeedRider(r domain.Rider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.riders[r.ID] = r
}

// SeedParcel stores p as committed data and returns its id.
func (s *Store) SeedParcel(p domain.Parcel) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.st.next()
	} else if p.ID > s.st.seq {
		s.st.seq = p.ID
	}
	s.st.parcels[p.ID] = p.Clone()
	return p.ID
}

// SeedVerification stores v as committed data.
func (s *Store) SeedVerification(v domain.DeliveryVerification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.st.next()
	s.st.verifications = append(s.st.verifications, v)
}

// SeedSettlement stores a committed settlement.
func (s *Store) SeedSettlement(r domain.RiderSettlement) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.st.next()
	s.st.settlements[r.ID] = r
	return r.ID
}

// CorruptFinance overwrites a stored projection without touching the ledger.
func (s *Store) CorruptFinance(f domain.MerchantFinance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.finances[f.MerchantID] = f
}

// Parcel returns the committed parcel.
func (s *Store) Parcel(id int64) (domain.Parcel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.parcels[id]
	return p.Clone(), ok
}

// Parcels returns every committed parcel ordered by id.
func (s *Store) Parcels() []domain.Parcel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Parcel, 0, len(s.st.parcels))
	for _, p := range s.st.parcels {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ledger returns the committed ledger rows of merchantID.
func (s *Store) Ledger(merchantID int64) []domain.LedgerTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LedgerTransaction
	for _, t := range s.st.ledger {
		if t.MerchantID == merchantID {
			out = append(out, t)
		}
	}
	return out
}

// Finance returns the committed projection of merchantID.
func (s *Store) Finance(merchantID int64) (domain.MerchantFinance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.st.finances[merchantID]
	return f, ok
}

// Events returns the committed status history of parcelID.
func (s *Store) Events(parcelID int64) []domain.ParcelEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ParcelEvent
	for _, e := range s.st.events {
		if e.ParcelID == parcelID {
			out = append(out, e)
		}
	}
	return out
}

// Verifications returns every committed verification.
func (s *Store) Verifications() []domain.DeliveryVerification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DeliveryVerification(nil), s.st.verifications...)
}

type txRepo struct {
	s  *Store
	st *state
}

var _ storetx.Repository = (*txRepo)(nil)

// hook records the call and pops an injected failure. The store mutex is held
// by WithTx for the whole transaction.
func (r *txRepo) hook(method string) error {
	r.s.calls[method]++
	if q := r.s.failures[method]; len(q) > 0 {
		r.s.failures[method] = q[1:]
		return q[0]
	}
	return nil
}

func (r *txRepo) GetParcel(_ context.Context, id int64) (*domain.Parcel, error) {
	if err := r.hook("GetParcel"); err != nil {
		return nil, err
	}
	p, ok := r.st.parcels[id]
	if !ok {
		return nil, nil
	}
	cp := p.Clone()
	return &cp, nil
}

func (r *txRepo) GetParcelForUpdate(_ context.Context, id int64) (*domain.Parcel, error) {
	if err := r.hook("GetParcelForUpdate"); err != nil {
		return nil, err
	}
	p, ok := r.st.parcels[id]
	if !ok {
		return nil, nil
	}
	cp := p.Clone()
	return &cp, nil
}

func (r *txRepo) InsertParcel(_ context.Context, p *domain.Parcel) error {
	if err := r.hook("InsertParcel"); err != nil {
		return err
	}
	p.ID = r.st.next()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.s.now()
		p.UpdatedAt = p.CreatedAt
	}
	r.st.parcels[p.ID] = p.Clone()
	return nil
}

func (r *txRepo) UpdateParcel(_ context.Context, p *domain.Parcel, expected domain.ParcelStatus) (bool, error) {
	if err := r.hook("UpdateParcel"); err != nil {
		return false, err
	}
	cur, ok := r.st.parcels[p.ID]
	if !ok || cur.Status != expected {
		return false, nil
	}
	r.st.parcels[p.ID] = p.Clone()
	return true, nil
}

func (r *txRepo) InsertParcelEvent(_ context.Context, e *domain.ParcelEvent) error {
	if err := r.hook("InsertParcelEvent"); err != nil {
		return err
	}
	e.ID = r.st.next()
	r.st.events = append(r.st.events, *e)
	return nil
}

func (r *txRepo) ListParcelEvents(_ context.Context, parcelID int64) ([]domain.ParcelEvent, error) {
	if err := r.hook("ListParcelEvents"); err != nil {
		return nil, err
	}
	var out []domain.ParcelEvent
	for _, e := range r.st.events {
		if e.ParcelID == parcelID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *txRepo) sortedParcels(keep func(domain.Parcel) bool) []domain.Parcel {
	var out []domain.Parcel
	for _, p := range r.st.parcels {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *txRepo) ListUnpaidBooked(_ context.Context, merchantID *int64) ([]domain.Parcel, error) {
	if err := r.hook("ListUnpaidBooked"); err != nil {
		return nil, err
	}
	return r.sortedParcels(func(p domain.Parcel) bool {
		if merchantID != nil && p.MerchantID != *merchantID {
			return false
		}
		return !p.PaidToMerchant && !p.IsReturnParcel && p.Status.IsFinancialOutcome()
	}), nil
}

func (r *txRepo) EligibleMerchantIDs(_ context.Context) ([]int64, error) {
	if err := r.hook("EligibleMerchantIDs"); err != nil {
		return nil, err
	}
	seen := map[int64]bool{}
	var out []int64
	for _, p := range r.sortedParcels(domain.InvoiceEligible) {
		if !seen[p.MerchantID] {
			seen[p.MerchantID] = true
			out = append(out, p.MerchantID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *txRepo) ListEligibleForUpdate(_ context.Context, merchantID int64) ([]domain.Parcel, error) {
	if err := r.hook("ListEligibleForUpdate"); err != nil {
		return nil, err
	}
	return r.sortedParcels(func(p domain.Parcel) bool {
		return p.MerchantID == merchantID && domain.InvoiceEligible(p)
	}), nil
}

func (r *txRepo) SetParcelsInvoiced(_ context.Context, invoiceID int64, parcelIDs []int64, now time.Time) error {
	if err := r.hook("SetParcelsInvoiced"); err != nil {
		return err
	}
	for _, id := range parcelIDs {
		p := r.st.parcels[id]
		inv := invoiceID
		p.InvoiceID = &inv
		p.FinancialStatus = domain.FinancialInvoiced
		p.UpdatedAt = now
		r.st.parcels[id] = p
	}
	return nil
}

func (r *txRepo) MarkParcelsPaid(_ context.Context, invoiceID int64, at time.Time) (int64, error) {
	if err := r.hook("MarkParcelsPaid"); err != nil {
		return 0, err
	}
	var n int64
	for id, p := range r.st.parcels {
		if p.InvoiceID == nil || *p.InvoiceID != invoiceID || p.PaidToMerchant {
			continue
		}
		paidAt := at
		p.PaidToMerchant = true
		p.PaidToMerchantAt = &paidAt
		p.ClearanceDone = true
		p.FinancialStatus = domain.FinancialPaid
		p.UpdatedAt = at
		r.st.parcels[id] = p
		n++
	}
	return n, nil
}

func (r *txRepo) GetRider(_ context.Context, id int64) (*domain.Rider, error) {
	if err := r.hook("GetRider"); err != nil {
		return nil, err
	}
	rd, ok := r.st.riders[id]
	if !ok {
		return nil, nil
	}
	return &rd, nil
}

func (r *txRepo) GetRiderForUpdate(_ context.Context, id int64) (*domain.Rider, error) {
	if err := r.hook("GetRiderForUpdate"); err != nil {
		return nil, err
	}
	rd, ok := r.st.riders[id]
	if !ok {
		return nil, nil
	}
	return &rd, nil
}

func (r *txRepo) InsertVerification(_ context.Context, v *domain.DeliveryVerification) error {
	if err := r.hook("InsertVerification"); err != nil {
		return err
	}
	v.ID = r.st.next()
	r.st.verifications = append(r.st.verifications, *v)
	return nil
}

func (r *txRepo) ListCompletedVerifications(_ context.Context, riderID int64, from, to time.Time) ([]domain.DeliveryVerification, error) {
	if err := r.hook("ListCompletedVerifications"); err != nil {
		return nil, err
	}
	var out []domain.DeliveryVerification
	for _, v := range r.st.verifications {
		if v.RiderID != riderID || v.Status != domain.VerificationCompleted {
			continue
		}
		if v.DeliveryCompletedAt.Before(from) || !v.DeliveryCompletedAt.Before(to) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *txRepo) LockFinance(_ context.Context, merchantID int64, now time.Time) (*domain.MerchantFinance, error) {
	if err := r.hook("LockFinance"); err != nil {
		return nil, err
	}
	f, ok := r.st.finances[merchantID]
	if !ok {
		f = domain.NewMerchantFinance(merchantID, now)
		r.st.finances[merchantID] = f
	}
	return &f, nil
}

func (r *txRepo) GetFinance(_ context.Context, merchantID int64) (*domain.MerchantFinance, error) {
	if err := r.hook("GetFinance"); err != nil {
		return nil, err
	}
	f, ok := r.st.finances[merchantID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (r *txRepo) SaveFinance(_ context.Context, f *domain.MerchantFinance) error {
	if err := r.hook("SaveFinance"); err != nil {
		return err
	}
	r.st.finances[f.MerchantID] = *f
	return nil
}

func (r *txRepo) LastTransaction(_ context.Context, merchantID int64) (*domain.LedgerTransaction, error) {
	if err := r.hook("LastTransaction"); err != nil {
		return nil, err
	}
	for i := len(r.st.ledger) - 1; i >= 0; i-- {
		if r.st.ledger[i].MerchantID == merchantID {
			t := r.st.ledger[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (r *txRepo) InsertTransaction(_ context.Context, t *domain.LedgerTransaction) error {
	if err := r.hook("InsertTransaction"); err != nil {
		return err
	}
	t.ID = r.st.next()
	r.st.ledger = append(r.st.ledger, *t)
	return nil
}

func (r *txRepo) ListTransactions(_ context.Context, merchantID int64) ([]domain.LedgerTransaction, error) {
	if err := r.hook("ListTransactions"); err != nil {
		return nil, err
	}
	var out []domain.LedgerTransaction
	for _, t := range r.st.ledger {
		if t.MerchantID == merchantID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *txRepo) LastSettlement(_ context.Context, riderID int64) (*domain.RiderSettlement, error) {
	if err := r.hook("LastSettlement"); err != nil {
		return nil, err
	}
	var last *domain.RiderSettlement
	for _, s := range r.st.settlements {
		if s.RiderID != riderID {
			continue
		}
		if last == nil || s.SettledAt.After(last.SettledAt) || (s.SettledAt.Equal(last.SettledAt) && s.ID > last.ID) {
			cp := s
			last = &cp
		}
	}
	return last, nil
}

func (r *txRepo) InsertSettlement(_ context.Context, s *domain.RiderSettlement) error {
	if err := r.hook("InsertSettlement"); err != nil {
		return err
	}
	s.ID = r.st.next()
	r.st.settlements[s.ID] = *s
	return nil
}

func (r *txRepo) GetSettlement(_ context.Context, id int64) (*domain.RiderSettlement, error) {
	if err := r.hook("GetSettlement"); err != nil {
		return nil, err
	}
	s, ok := r.st.settlements[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *txRepo) ReviewSettlement(_ context.Context, id int64, rv domain.Review) (bool, error) {
	if err := r.hook("ReviewSettlement"); err != nil {
		return false, err
	}
	s, ok := r.st.settlements[id]
	if !ok || s.Review.Status != domain.ReviewPending {
		return false, nil
	}
	s.Review = rv
	r.st.settlements[id] = s
	return true, nil
}

func (r *txRepo) ListSettlements(_ context.Context, riderID int64) ([]domain.RiderSettlement, error) {
	if err := r.hook("ListSettlements"); err != nil {
		return nil, err
	}
	var out []domain.RiderSettlement
	for _, s := range r.st.settlements {
		if s.RiderID == riderID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *txRepo) SumSettledCash(_ context.Context, hubID int64) (decimal.Decimal, error) {
	if err := r.hook("SumSettledCash"); err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, s := range r.st.settlements {
		if s.HubID == hubID && s.Review.Status != domain.ReviewRejected {
			sum = sum.Add(s.CashReceived)
		}
	}
	return sum, nil
}

func (r *txRepo) InsertRemittance(_ context.Context, rec *domain.HubTransferRecord) error {
	if err := r.hook("InsertRemittance"); err != nil {
		return err
	}
	rec.ID = r.st.next()
	r.st.remittances[rec.ID] = *rec
	return nil
}

func (r *txRepo) GetRemittance(_ context.Context, id int64) (*domain.HubTransferRecord, error) {
	if err := r.hook("GetRemittance"); err != nil {
		return nil, err
	}
	rec, ok := r.st.remittances[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *txRepo) UpdatePendingRemittance(_ context.Context, rec *domain.HubTransferRecord) (bool, error) {
	if err := r.hook("UpdatePendingRemittance"); err != nil {
		return false, err
	}
	cur, ok := r.st.remittances[rec.ID]
	if !ok || cur.Review.Status != domain.ReviewPending {
		return false, nil
	}
	r.st.remittances[rec.ID] = *rec
	return true, nil
}

func (r *txRepo) DeletePendingRemittance(_ context.Context, id int64) (bool, error) {
	if err := r.hook("DeletePendingRemittance"); err != nil {
		return false, err
	}
	cur, ok := r.st.remittances[id]
	if !ok || cur.Review.Status != domain.ReviewPending {
		return false, nil
	}
	delete(r.st.remittances, id)
	return true, nil
}

func (r *txRepo) ReviewRemittance(_ context.Context, id int64, rv domain.Review) (bool, error) {
	if err := r.hook("ReviewRemittance"); err != nil {
		return false, err
	}
	cur, ok := r.st.remittances[id]
	if !ok || cur.Review.Status != domain.ReviewPending {
		return false, nil
	}
	cur.Review = rv
	r.st.remittances[id] = cur
	return true, nil
}

func (r *txRepo) ListRemittances(_ context.Context, hubID *int64) ([]domain.HubTransferRecord, error) {
	if err := r.hook("ListRemittances"); err != nil {
		return nil, err
	}
	var out []domain.HubTransferRecord
	for _, rec := range r.st.remittances {
		if hubID == nil || rec.HubID == *hubID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *txRepo) SumRemitted(_ context.Context, hubID int64) (decimal.Decimal, error) {
	if err := r.hook("SumRemitted"); err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, rec := range r.st.remittances {
		if rec.HubID == hubID && rec.Review.Status != domain.ReviewRejected {
			sum = sum.Add(rec.Amount)
		}
	}
	return sum, nil
}

func (r *txRepo) InsertInvoice(_ context.Context, inv *domain.MerchantInvoice) error {
	if err := r.hook("InsertInvoice"); err != nil {
		return err
	}
	inv.ID = r.st.next()
	cp := *inv
	cp.ParcelIDs = append([]int64(nil), inv.ParcelIDs...)
	r.st.invoices[inv.ID] = cp
	return nil
}

func (r *txRepo) GetInvoice(_ context.Context, id int64) (*domain.MerchantInvoice, error) {
	if err := r.hook("GetInvoice"); err != nil {
		return nil, err
	}
	inv, ok := r.st.invoices[id]
	if !ok {
		return nil, nil
	}
	inv.ParcelIDs = append([]int64(nil), inv.ParcelIDs...)
	return &inv, nil
}

func (r *txRepo) GetInvoiceForUpdate(_ context.Context, id int64) (*domain.MerchantInvoice, error) {
	if err := r.hook("GetInvoiceForUpdate"); err != nil {
		return nil, err
	}
	inv, ok := r.st.invoices[id]
	if !ok {
		return nil, nil
	}
	inv.ParcelIDs = append([]int64(nil), inv.ParcelIDs...)
	return &inv, nil
}

func (r *txRepo) UpdateInvoice(_ context.Context, inv *domain.MerchantInvoice, expected domain.InvoiceStatus) (bool, error) {
	if err := r.hook("UpdateInvoice"); err != nil {
		return false, err
	}
	cur, ok := r.st.invoices[inv.ID]
	if !ok || cur.Status != expected {
		return false, nil
	}
	cp := *inv
	cp.ParcelIDs = append([]int64(nil), inv.ParcelIDs...)
	r.st.invoices[inv.ID] = cp
	return true, nil
}

func (r *txRepo) ListInvoices(_ context.Context, merchantID *int64) ([]domain.MerchantInvoice, error) {
	if err := r.hook("ListInvoices"); err != nil {
		return nil, err
	}
	var out []domain.MerchantInvoice
	for _, inv := range r.st.invoices {
		if merchantID == nil || inv.MerchantID == *merchantID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
