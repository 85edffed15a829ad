package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/metrics"
	"parcelhub/internal/ports/storetx"
)

// Posting is a batch of rows for one merchant, appended in order.
type Posting struct {
	MerchantID int64
	Entries    []domain.LedgerEntry
	// Outcome bumps the lifetime parcel counters when set.
	Outcome domain.ParcelStatus
	// Project runs projection-only moves after the rows are applied.
	Project func(f *domain.MerchantFinance)
}

// Result is what a posting committed to the ledger and the projection.
type Result struct {
	Finance      domain.MerchantFinance
	Transactions []domain.LedgerTransaction
}

// Poster is the only writer of ledger rows and merchant projections.
// It always runs inside the caller's transaction.
type Poster struct {
	metrics *metrics.Ledger
	logger  logx.Logger
}

// NewPoster creates a new Poster.
func NewPoster(m *metrics.Ledger, logger logx.Logger) *Poster {
	return &Poster{metrics: m, logger: logger}
}

// Post locks the merchant projection, checks it against the last ledger row,
// appends the entries and saves the projection.
func (p *Poster) Post(ctx context.Context, tx storetx.LedgerStore, now time.Time, in Posting) (Result, error) {
	for i, e := range in.Entries {
		if e.MerchantID != in.MerchantID {
			return Result{}, apperr.Invalidf("entry %d belongs to merchant %d, posting is for %d", i, e.MerchantID, in.MerchantID)
		}
		if err := e.Validate(); err != nil {
			return Result{}, apperr.Invalidf("entry %d: %v", i, err)
		}
	}

	f, err := p.lock(ctx, tx, in.MerchantID, now)
	if err != nil {
		return Result{}, err
	}

	rows := make([]domain.LedgerTransaction, 0, len(in.Entries))
	for _, e := range in.Entries {
		row := f.NextRow(e, now)
		if err := tx.InsertTransaction(ctx, &row); err != nil {
			return Result{}, fmt.Errorf("append ledger row: %w", err)
		}
		f.Apply(row)
		rows = append(rows, row)
	}
	if in.Outcome != "" {
		f.CountOutcome(in.Outcome)
	}
	if in.Project != nil {
		in.Project(f)
	}
	f.UpdatedAt = now
	if err := tx.SaveFinance(ctx, f); err != nil {
		return Result{}, fmt.Errorf("save merchant finance: %w", err)
	}

	for _, row := range rows {
		p.metrics.Postings.WithLabelValues(string(row.Type), string(row.ReferenceType)).Inc()
	}
	return Result{Finance: *f, Transactions: rows}, nil
}

// Reclassify applies projection-only moves under the same lock and checks as Post.
func (p *Poster) Reclassify(ctx context.Context, tx storetx.LedgerStore, now time.Time, merchantID int64, fn func(f *domain.MerchantFinance)) (domain.MerchantFinance, error) {
	res, err := p.Post(ctx, tx, now, Posting{MerchantID: merchantID, Project: fn})
	if err != nil {
		return domain.MerchantFinance{}, err
	}
	return res.Finance, nil
}

func (p *Poster) lock(ctx context.Context, tx storetx.LedgerStore, merchantID int64, now time.Time) (*domain.MerchantFinance, error) {
	f, err := tx.LockFinance(ctx, merchantID, now)
	if err != nil {
		return nil, fmt.Errorf("lock merchant finance %d: %w", merchantID, err)
	}
	last, err := tx.LastTransaction(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("last ledger row %d: %w", merchantID, err)
	}

	expected := decimal.Zero
	if last != nil {
		expected = last.BalanceAfter
	}
	if !f.CurrentBalance.Equal(expected) {
		p.metrics.Inconsistencies.Inc()
		p.logger.Error("ledger inconsistency",
			logx.String("event", "ledger_inconsistent"),
			logx.Int64("merchant_id", merchantID),
			logx.Decimal("current_balance", f.CurrentBalance),
			logx.Decimal("ledger_balance", expected),
		)
		return nil, apperr.Inconsistentf("merchant %d projection disagrees with ledger", merchantID)
	}
	return f, nil
}
