package repository

import (
	"context"
	"fmt"
	"time"

	"parcelhub/internal/domain"
)

const financeColumns = `
	merchant_id, current_balance, pending_balance, invoiced_balance, processing_balance, hold_amount,
	total_earned, total_withdrawn, total_delivery_charges, total_return_charges, total_cod_collected,
	parcels_delivered, parcels_returned, credit_limit, credit_used, created_at, updated_at`

func scanFinance(row rowScanner, f *domain.MerchantFinance) error {
	return row.Scan(
		&f.MerchantID, &f.CurrentBalance, &f.PendingBalance, &f.InvoicedBalance, &f.ProcessingBalance, &f.HoldAmount,
		&f.TotalEarned, &f.TotalWithdrawn, &f.TotalDeliveryCharges, &f.TotalReturnCharges, &f.TotalCODCollected,
		&f.ParcelsDelivered, &f.ParcelsReturned, &f.CreditLimit, &f.CreditUsed, &f.CreatedAt, &f.UpdatedAt,
	)
}

// LockFinance - lock the merchant projection row, creating a zero row first
// so the first posting for a merchant is serialized too.
func (r *TxRepo) LockFinance(ctx context.Context, merchantID int64, now time.Time) (*domain.MerchantFinance, error) {
	if _, err := r.tx.Exec(ctx, `
		INSERT INTO merchant_finances (merchant_id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (merchant_id) DO NOTHING
	`, merchantID, now); err != nil {
		return nil, fmt.Errorf("init finance of merchant %d: %w", merchantID, err)
	}
	f, err := one(r.tx.QueryRow(ctx, `
		SELECT `+financeColumns+` FROM merchant_finances WHERE merchant_id = $1 FOR UPDATE
	`, merchantID), scanFinance)
	if err != nil {
		return nil, fmt.Errorf("lock finance of merchant %d: %w", merchantID, err)
	}
	if f == nil {
		return nil, fmt.Errorf("lock finance of merchant %d: row vanished", merchantID)
	}
	return f, nil
}

// GetFinance - read the merchant projection without locking.
func (r *TxRepo) GetFinance(ctx context.Context, merchantID int64) (*domain.MerchantFinance, error) {
	f, err := one(r.tx.QueryRow(ctx, `
		SELECT `+financeColumns+` FROM merchant_finances WHERE merchant_id = $1
	`, merchantID), scanFinance)
	if err != nil {
		return nil, fmt.Errorf("get finance of merchant %d: %w", merchantID, err)
	}
	return f, nil
}

// SaveFinance - overwrite the projection row. The row must be locked.
func (r *TxRepo) SaveFinance(ctx context.Context, f *domain.MerchantFinance) error {
	ct, err := r.tx.Exec(ctx, `
		UPDATE merchant_finances SET
			current_balance = $2, pending_balance = $3, invoiced_balance = $4, processing_balance = $5,
			hold_amount = $6, total_earned = $7, total_withdrawn = $8, total_delivery_charges = $9,
			total_return_charges = $10, total_cod_collected = $11, parcels_delivered = $12,
			parcels_returned = $13, credit_limit = $14, credit_used = $15, updated_at = $16
		WHERE merchant_id = $1
	`,
		f.MerchantID, f.CurrentBalance, f.PendingBalance, f.InvoicedBalance, f.ProcessingBalance,
		f.HoldAmount, f.TotalEarned, f.TotalWithdrawn, f.TotalDeliveryCharges,
		f.TotalReturnCharges, f.TotalCODCollected, f.ParcelsDelivered,
		f.ParcelsReturned, f.CreditLimit, f.CreditUsed, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save finance of merchant %d: %w", f.MerchantID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("finance of merchant %d not found", f.MerchantID)
	}
	return nil
}

const transactionColumns = `
	id, merchant_id, type, amount, balance_before, balance_after,
	reference_type, reference_id, reference_code, description, created_by, created_at`

func scanTransaction(row rowScanner, t *domain.LedgerTransaction) error {
	var typ, ref string
	if err := row.Scan(
		&t.ID, &t.MerchantID, &typ, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
		&ref, &t.ReferenceID, &t.ReferenceCode, &t.Description, &t.CreatedBy, &t.CreatedAt,
	); err != nil {
		return err
	}
	t.Type = domain.TxType(typ)
	t.ReferenceType = domain.ReferenceType(ref)
	return nil
}

// LastTransaction - newest ledger row of a merchant.
func (r *TxRepo) LastTransaction(ctx context.Context, merchantID int64) (*domain.LedgerTransaction, error) {
	t, err := one(r.tx.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM merchant_finance_transactions
		WHERE merchant_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, merchantID), scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("last transaction of merchant %d: %w", merchantID, err)
	}
	return t, nil
}

// InsertTransaction - append a ledger row.
func (r *TxRepo) InsertTransaction(ctx context.Context, t *domain.LedgerTransaction) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO merchant_finance_transactions (
			merchant_id, type, amount, balance_before, balance_after,
			reference_type, reference_id, reference_code, description, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		t.MerchantID, string(t.Type), t.Amount, t.BalanceBefore, t.BalanceAfter,
		string(t.ReferenceType), t.ReferenceID, t.ReferenceCode, t.Description, t.CreatedBy, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert transaction for merchant %d: %w", t.MerchantID, err)
	}
	return nil
}

// ListTransactions - ledger of a merchant in creation order.
func (r *TxRepo) ListTransactions(ctx context.Context, merchantID int64) ([]domain.LedgerTransaction, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM merchant_finance_transactions
		WHERE merchant_id = $1
		ORDER BY id
	`, merchantID)
	out, err := many(rows, err, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("list transactions of merchant %d: %w", merchantID, err)
	}
	return out, nil
}
