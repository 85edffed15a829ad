// Package invoice batches booked parcels into merchant invoices and pays them out.
package invoice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/ports/storetx"
	"parcelhub/internal/service/ledger"
)

// Poster is the ledger writer used for payouts and bucket moves.
type Poster interface {
	Post(ctx context.Context, tx storetx.LedgerStore, now time.Time, in ledger.Posting) (ledger.Result, error)
	Reclassify(ctx context.Context, tx storetx.LedgerStore, now time.Time, merchantID int64, fn func(f *domain.MerchantFinance)) (domain.MerchantFinance, error)
}

// Service is the merchant invoice generator.
type Service struct {
	runner           storetx.Runner
	poster           Poster
	generated        prometheus.Counter
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates a new invoice Service.
func NewService(r storetx.Runner, p Poster, generated prometheus.Counter, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		runner:           r,
		poster:           p,
		generated:        generated,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// merchantFilter narrows a merchant scope to its own merchant.
func merchantFilter(scope domain.Scope, merchantID *int64) (*int64, error) {
	if scope.Role != domain.RoleMerchant {
		if !scope.IsAdmin() {
			return nil, apperr.Custodyf("merchant finance is visible to admins and the merchant only")
		}
		return merchantID, nil
	}
	if scope.MerchantID == nil || (merchantID != nil && *merchantID != *scope.MerchantID) {
		return nil, apperr.Custodyf("merchant scope cannot read another merchant")
	}
	return scope.MerchantID, nil
}

// ClearanceList sums the booked, unpaid parcels per merchant.
func (s *Service) ClearanceList(ctx context.Context, scope domain.Scope, merchantID *int64) ([]domain.ClearanceItem, error) {
	filter, err := merchantFilter(scope, merchantID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var parcels []domain.Parcel
	err = s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		var err error
		parcels, err = tx.ListUnpaidBooked(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	byMerchant := map[int64]*domain.ClearanceItem{}
	for _, p := range parcels {
		item, ok := byMerchant[p.MerchantID]
		if !ok {
			item = &domain.ClearanceItem{MerchantID: p.MerchantID}
			byMerchant[p.MerchantID] = item
		}
		item.Totals.Add(p)
	}
	out := make([]domain.ClearanceItem, 0, len(byMerchant))
	for _, item := range byMerchant {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MerchantID < out[j].MerchantID })
	return out, nil
}

// Generate creates one UNPAID invoice per merchant with eligible parcels.
// Each merchant is invoiced in its own transaction; a failure stops the run
// and returns the invoices already committed.
func (s *Service) Generate(ctx context.Context, scope domain.Scope, merchantID *int64) ([]domain.MerchantInvoice, error) {
	if !scope.IsAdmin() {
		return nil, apperr.Custodyf("invoice generation requires an admin scope")
	}

	ids, err := s.merchants(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	var out []domain.MerchantInvoice
	for _, id := range ids {
		inv, ok, err := s.generateOne(ctx, scope, id)
		if err != nil {
			return out, fmt.Errorf("invoice merchant %d: %w", id, err)
		}
		if !ok {
			continue
		}
		out = append(out, inv)
		if s.generated != nil {
			s.generated.Inc()
		}
		s.logger.Info("invoice generated",
			logx.String("event", "invoice_generated"),
			logx.Int64("invoice_id", inv.ID),
			logx.String("invoice_number", inv.InvoiceNumber),
			logx.Int64("merchant_id", id),
			logx.Int("parcels", inv.Totals.Parcels),
			logx.Decimal("payable", inv.Totals.Payable),
		)
	}
	return out, nil
}

func (s *Service) merchants(ctx context.Context, merchantID *int64) ([]int64, error) {
	if merchantID != nil {
		return []int64{*merchantID}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var ids []int64
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		var err error
		ids, err = tx.EligibleMerchantIDs(ctx)
		return err
	})
	return ids, err
}

func (s *Service) generateOne(ctx context.Context, scope domain.Scope, merchantID int64) (domain.MerchantInvoice, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var inv domain.MerchantInvoice
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		parcels, err := tx.ListEligibleForUpdate(ctx, merchantID)
		if err != nil {
			return err
		}
		now := s.now()
		inv = domain.BuildInvoice(merchantID, parcels, scope.UserID, now)
		if len(inv.ParcelIDs) == 0 {
			return nil
		}
		if err := tx.InsertInvoice(ctx, &inv); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		if err := tx.SetParcelsInvoiced(ctx, inv.ID, inv.ParcelIDs, now); err != nil {
			return fmt.Errorf("mark parcels invoiced: %w", err)
		}
		_, err = s.poster.Reclassify(ctx, tx, now, merchantID, func(f *domain.MerchantFinance) {
			f.Move(domain.BucketPending, domain.BucketInvoiced, inv.Totals.Payable)
		})
		return err
	})
	if err != nil {
		return domain.MerchantInvoice{}, false, err
	}
	return inv, len(inv.ParcelIDs) > 0, nil
}

func lockInvoice(ctx context.Context, tx storetx.Repository, id int64) (*domain.MerchantInvoice, error) {
	inv, err := tx.GetInvoiceForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperr.NotFoundf("invoice %d not found", id)
	}
	return inv, nil
}

func saveInvoice(ctx context.Context, tx storetx.Repository, inv *domain.MerchantInvoice, expected domain.InvoiceStatus) error {
	ok, err := tx.UpdateInvoice(ctx, inv, expected)
	if err != nil {
		return fmt.Errorf("update invoice %d: %w", inv.ID, err)
	}
	if !ok {
		return apperr.Conflictf("invoice %d changed concurrently", inv.ID)
	}
	return nil
}

// MarkProcessing moves an UNPAID invoice into payout processing.
func (s *Service) MarkProcessing(ctx context.Context, scope domain.Scope, id int64) (domain.MerchantInvoice, error) {
	if !scope.IsAdmin() {
		return domain.MerchantInvoice{}, apperr.Custodyf("invoice processing requires an admin scope")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out domain.MerchantInvoice
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		inv, err := lockInvoice(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.Status != domain.InvoiceUnpaid {
			return apperr.Conflictf("invoice %d is %s", id, inv.Status)
		}
		now := s.now()
		inv.Status = domain.InvoiceProcessing
		inv.UpdatedAt = now
		if err := saveInvoice(ctx, tx, inv, domain.InvoiceUnpaid); err != nil {
			return err
		}
		if _, err := s.poster.Reclassify(ctx, tx, now, inv.MerchantID, func(f *domain.MerchantFinance) {
			f.Move(domain.BucketInvoiced, domain.BucketProcessing, inv.Totals.Payable)
		}); err != nil {
			return err
		}
		out = *inv
		return nil
	})
	if err != nil {
		return domain.MerchantInvoice{}, err
	}

	s.logger.Info("invoice processing",
		logx.String("event", "invoice_processing"),
		logx.Int64("invoice_id", id),
	)
	return out, nil
}

// PaidResult is a paid invoice with the ledger rows its payout posted.
type PaidResult struct {
	Invoice      domain.MerchantInvoice
	Transactions []domain.LedgerTransaction
	Balance      domain.MerchantFinance
}

// MarkPaid pays an UNPAID or PROCESSING invoice: its parcels become paid to
// the merchant and the payable amount is posted as INVOICE_PAID.
func (s *Service) MarkPaid(ctx context.Context, scope domain.Scope, id int64, pay domain.PaymentInfo) (PaidResult, error) {
	if !scope.IsAdmin() {
		return PaidResult{}, apperr.Custodyf("invoice payment requires an admin scope")
	}
	pay.Method = strings.TrimSpace(pay.Method)
	pay.Reference = strings.TrimSpace(pay.Reference)
	if pay.Method == "" {
		return PaidResult{}, apperr.Invalidf("payment method is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out PaidResult
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		inv, err := lockInvoice(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.Status == domain.InvoicePaid {
			return apperr.Conflictf("invoice %d is already paid", id)
		}
		from := inv.Status
		now := s.now()

		if _, err := tx.MarkParcelsPaid(ctx, inv.ID, now); err != nil {
			return fmt.Errorf("mark parcels paid: %w", err)
		}

		res, err := s.poster.Post(ctx, tx, now, ledger.Posting{
			MerchantID: inv.MerchantID,
			Entries:    payoutEntries(inv, scope.UserID),
			Project: func(f *domain.MerchantFinance) {
				f.Release(from.Bucket(), inv.Totals.Payable)
			},
		})
		if err != nil {
			return err
		}

		paidBy := scope.UserID
		inv.Status = domain.InvoicePaid
		inv.Payment = pay
		inv.PaidAt = &now
		inv.PaidBy = &paidBy
		inv.UpdatedAt = now
		if err := saveInvoice(ctx, tx, inv, from); err != nil {
			return err
		}
		out = PaidResult{Invoice: *inv, Transactions: res.Transactions, Balance: res.Finance}
		return nil
	})
	if err != nil {
		return PaidResult{}, err
	}

	s.logger.Info("invoice paid",
		logx.String("event", "invoice_paid"),
		logx.Int64("invoice_id", id),
		logx.Int64("merchant_id", out.Invoice.MerchantID),
		logx.Decimal("payable", out.Invoice.Totals.Payable),
		logx.String("method", pay.Method),
	)
	return out, nil
}

// payoutEntries settles the payable amount. A negative payable means the
// merchant owes the operator and settles it with a credit.
func payoutEntries(inv *domain.MerchantInvoice, actorID int64) []domain.LedgerEntry {
	payable := inv.Totals.Payable
	if payable.IsZero() {
		return nil
	}
	id := inv.ID
	e := domain.LedgerEntry{
		MerchantID:    inv.MerchantID,
		Type:          domain.TxDebit,
		Amount:        payable,
		ReferenceType: domain.RefInvoicePaid,
		ReferenceID:   &id,
		ReferenceCode: inv.InvoiceNumber,
		Description:   fmt.Sprintf("payout of invoice %s", inv.InvoiceNumber),
		CreatedBy:     actorID,
	}
	if payable.IsNegative() {
		e.Type = domain.TxCredit
		e.Amount = payable.Neg()
		e.Description = fmt.Sprintf("merchant settlement of invoice %s", inv.InvoiceNumber)
	}
	return []domain.LedgerEntry{e}
}

// Get returns an invoice visible to the scope.
func (s *Service) Get(ctx context.Context, scope domain.Scope, id int64) (domain.MerchantInvoice, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out domain.MerchantInvoice
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		inv, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return apperr.NotFoundf("invoice %d not found", id)
		}
		if _, err := merchantFilter(scope, &inv.MerchantID); err != nil {
			return err
		}
		out = *inv
		return nil
	})
	return out, err
}

// List returns invoices, newest last.
func (s *Service) List(ctx context.Context, scope domain.Scope, merchantID *int64) ([]domain.MerchantInvoice, error) {
	filter, err := merchantFilter(scope, merchantID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out []domain.MerchantInvoice
	err = s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		var err error
		out, err = tx.ListInvoices(ctx, filter)
		return err
	})
	return out, err
}
