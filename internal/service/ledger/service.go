package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/ports/storetx"
)

// adjustmentTypes are the reference types an admin may post by hand, with their direction.
var adjustmentTypes = map[domain.ReferenceType]domain.TxType{
	domain.RefAdjustmentCredit: domain.TxCredit,
	domain.RefRefund:           domain.TxCredit,
	domain.RefAdjustmentDebit:  domain.TxDebit,
	domain.RefClearance:        domain.TxDebit,
	domain.RefWithdrawal:       domain.TxDebit,
}

// Adjustment is a manual ledger correction.
type Adjustment struct {
	MerchantID    int64
	ReferenceType domain.ReferenceType
	Amount        decimal.Decimal
	Description   string
}

// Service exposes merchant finance reads and admin corrections.
type Service struct {
	runner           storetx.Runner
	poster           *Poster
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates a new ledger Service.
func NewService(r storetx.Runner, p *Poster, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		runner:           r,
		poster:           p,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Finance returns the merchant projection.
func (s *Service) Finance(ctx context.Context, merchantID int64) (domain.MerchantFinance, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out domain.MerchantFinance
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		f, err := tx.GetFinance(ctx, merchantID)
		if err != nil {
			return err
		}
		if f == nil {
			return apperr.NotFoundf("merchant %d has no finance record", merchantID)
		}
		out = *f
		return nil
	})
	return out, err
}

// Transactions returns the merchant ledger in creation order.
func (s *Service) Transactions(ctx context.Context, merchantID int64) ([]domain.LedgerTransaction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out []domain.LedgerTransaction
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		rows, err := tx.ListTransactions(ctx, merchantID)
		out = rows
		return err
	})
	return out, err
}

// Verify replays the merchant ledger from zero and compares it to the projection.
func (s *Service) Verify(ctx context.Context, merchantID int64) (domain.LedgerReport, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rep domain.LedgerReport
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		f, err := tx.GetFinance(ctx, merchantID)
		if err != nil {
			return err
		}
		rows, err := tx.ListTransactions(ctx, merchantID)
		if err != nil {
			return err
		}
		if f == nil && len(rows) == 0 {
			return apperr.NotFoundf("merchant %d has no ledger", merchantID)
		}
		stored := decimal.Zero
		if f != nil {
			stored = f.CurrentBalance
		}
		rep = domain.ReplayLedger(merchantID, rows, stored)
		return nil
	})
	if err != nil {
		return domain.LedgerReport{}, err
	}
	if !rep.Consistent {
		s.poster.metrics.Inconsistencies.Inc()
		s.logger.Error("ledger replay mismatch",
			logx.String("event", "ledger_inconsistent"),
			logx.Int64("merchant_id", merchantID),
			logx.Decimal("replayed_balance", rep.ReplayedBalance),
			logx.Decimal("stored_balance", rep.StoredBalance),
			logx.Int("mismatches", len(rep.Mismatches)),
		)
	}
	return rep, nil
}

// PostAdjustment posts a manual correction. Debits may not exceed the available balance.
func (s *Service) PostAdjustment(ctx context.Context, scope domain.Scope, in Adjustment) (Result, error) {
	if !scope.IsAdmin() {
		return Result{}, apperr.Custodyf("ledger adjustments require an admin scope")
	}
	dir, ok := adjustmentTypes[in.ReferenceType]
	if !ok {
		return Result{}, apperr.Invalidf("reference type %q cannot be posted manually", in.ReferenceType)
	}
	if !in.Amount.IsPositive() {
		return Result{}, apperr.Invalidf("amount must be positive")
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return Result{}, apperr.Invalidf("description is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var res Result
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		if dir == domain.TxDebit {
			f, err := tx.LockFinance(ctx, in.MerchantID, s.now())
			if err != nil {
				return err
			}
			if in.Amount.GreaterThan(f.Available()) {
				return apperr.Conflictf("debit %s exceeds available balance %s", in.Amount, f.Available())
			}
		}
		var err error
		res, err = s.poster.Post(ctx, tx, s.now(), Posting{
			MerchantID: in.MerchantID,
			Entries: []domain.LedgerEntry{{
				MerchantID:    in.MerchantID,
				Type:          dir,
				Amount:        in.Amount,
				ReferenceType: in.ReferenceType,
				Description:   desc,
				CreatedBy:     scope.UserID,
			}},
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("ledger adjustment posted",
		logx.String("event", "ledger_posted"),
		logx.Int64("merchant_id", in.MerchantID),
		logx.String("reference_type", string(in.ReferenceType)),
		logx.Decimal("amount", in.Amount),
		logx.Decimal("balance", res.Finance.CurrentBalance),
	)
	return res, nil
}

// SetHold sets the amount of the balance that debits may not consume.
func (s *Service) SetHold(ctx context.Context, scope domain.Scope, merchantID int64, amount decimal.Decimal) (domain.MerchantFinance, error) {
	if !scope.IsAdmin() {
		return domain.MerchantFinance{}, apperr.Custodyf("setting a hold requires an admin scope")
	}
	if amount.IsNegative() {
		return domain.MerchantFinance{}, apperr.Invalidf("hold amount must not be negative")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out domain.MerchantFinance
	err := s.runner.WithTx(ctx, func(tx storetx.Repository) error {
		f, err := s.poster.Reclassify(ctx, tx, s.now(), merchantID, func(f *domain.MerchantFinance) {
			f.HoldAmount = amount
		})
		out = f
		return err
	})
	if err != nil {
		return domain.MerchantFinance{}, err
	}

	s.logger.Info("merchant hold set",
		logx.String("event", "hold_set"),
		logx.Int64("merchant_id", merchantID),
		logx.Decimal("hold_amount", amount),
	)
	return out, nil
}
