package repository

import (
	"context"
	"fmt"

	"parcelhub/internal/domain"
)

const invoiceColumns = `
	i.id, i.invoice_number, i.merchant_id, i.parcels,
	i.delivered_count, i.partial_count, i.exchange_count, i.paid_return_count, i.returned_count,
	i.cod_amount, i.cod_collected, i.delivery_charges, i.return_charges, i.payable,
	i.status, i.payment_method, i.payment_reference, i.paid_at, i.paid_by,
	i.created_by, i.created_at, i.updated_at,
	COALESCE((SELECT array_agg(p.id ORDER BY p.id) FROM parcels p WHERE p.invoice_id = i.id), '{}')`

func scanInvoice(row rowScanner, inv *domain.MerchantInvoice) error {
	var status string
	t := &inv.Totals
	if err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.MerchantID, &t.Parcels,
		&t.Counts.Delivered, &t.Counts.Partial, &t.Counts.Exchange, &t.Counts.PaidReturn, &t.Counts.Returned,
		&t.CODAmount, &t.CODCollected, &t.DeliveryCharges, &t.ReturnCharges, &t.Payable,
		&status, &inv.Payment.Method, &inv.Payment.Reference, &inv.PaidAt, &inv.PaidBy,
		&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt,
		&inv.ParcelIDs,
	); err != nil {
		return err
	}
	inv.Status = domain.InvoiceStatus(status)
	return nil
}

// InsertInvoice - persist a new invoice. Parcels are attached separately.
func (r *TxRepo) InsertInvoice(ctx context.Context, inv *domain.MerchantInvoice) error {
	t := inv.Totals
	err := r.tx.QueryRow(ctx, `
		INSERT INTO merchant_invoices (
			invoice_number, merchant_id, parcels,
			delivered_count, partial_count, exchange_count, paid_return_count, returned_count,
			cod_amount, cod_collected, delivery_charges, return_charges, payable,
			status, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`,
		inv.InvoiceNumber, inv.MerchantID, t.Parcels,
		t.Counts.Delivered, t.Counts.Partial, t.Counts.Exchange, t.Counts.PaidReturn, t.Counts.Returned,
		t.CODAmount, t.CODCollected, t.DeliveryCharges, t.ReturnCharges, t.Payable,
		string(inv.Status), inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("insert invoice for merchant %d: %w", inv.MerchantID, err)
	}
	return nil
}

// GetInvoice - get invoice by id.
func (r *TxRepo) GetInvoice(ctx context.Context, id int64) (*domain.MerchantInvoice, error) {
	inv, err := one(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM merchant_invoices i WHERE i.id = $1`, id), scanInvoice)
	if err != nil {
		return nil, fmt.Errorf("get invoice %d: %w", id, err)
	}
	return inv, nil
}

// GetInvoiceForUpdate - lock the invoice row.
func (r *TxRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.MerchantInvoice, error) {
	inv, err := one(r.tx.QueryRow(ctx, `
		SELECT `+invoiceColumns+` FROM merchant_invoices i WHERE i.id = $1 FOR UPDATE OF i
	`, id), scanInvoice)
	if err != nil {
		return nil, fmt.Errorf("lock invoice %d: %w", id, err)
	}
	return inv, nil
}

// UpdateInvoice - write status and payment fields, guarded by the expected status.
func (r *TxRepo) UpdateInvoice(ctx context.Context, inv *domain.MerchantInvoice, expected domain.InvoiceStatus) (bool, error) {
	ok, err := affected(r.tx.Exec(ctx, `
		UPDATE merchant_invoices
		SET status = $3, payment_method = $4, payment_reference = $5, paid_at = $6, paid_by = $7, updated_at = $8
		WHERE id = $1 AND status = $2
	`,
		inv.ID, string(expected), string(inv.Status), inv.Payment.Method, inv.Payment.Reference,
		inv.PaidAt, inv.PaidBy, inv.UpdatedAt,
	))
	if err != nil {
		return false, fmt.Errorf("update invoice %d: %w", inv.ID, err)
	}
	return ok, nil
}

// ListInvoices - invoices of one merchant, or of all merchants when merchantID is nil.
func (r *TxRepo) ListInvoices(ctx context.Context, merchantID *int64) ([]domain.MerchantInvoice, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM merchant_invoices i
		WHERE $1::BIGINT IS NULL OR i.merchant_id = $1
		ORDER BY i.id
	`, merchantID)
	out, err := many(rows, err, scanInvoice)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}
