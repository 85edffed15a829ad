package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"parcelhub/internal/domain"
)

const remittanceColumns = `
	id, hub_id, created_by, amount, expected_amount,
	proof_url, proof_size_bytes, proof_content_type, note,
	review_status, reviewed_by, reviewed_at, review_reason, created_at, updated_at`

func scanRemittance(row rowScanner, rec *domain.HubTransferRecord) error {
	var review string
	if err := row.Scan(
		&rec.ID, &rec.HubID, &rec.CreatedBy, &rec.Amount, &rec.ExpectedAmount,
		&rec.Proof.URL, &rec.Proof.SizeBytes, &rec.Proof.ContentType, &rec.Note,
		&review, &rec.Review.ReviewedBy, &rec.Review.ReviewedAt, &rec.Review.Reason, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return err
	}
	rec.Review.Status = domain.ReviewStatus(review)
	return nil
}

// InsertRemittance - persist a hub remittance declaration.
func (r *TxRepo) InsertRemittance(ctx context.Context, rec *domain.HubTransferRecord) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO hub_transfer_records (
			hub_id, created_by, amount, expected_amount,
			proof_url, proof_size_bytes, proof_content_type, note,
			review_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		rec.HubID, rec.CreatedBy, rec.Amount, rec.ExpectedAmount,
		rec.Proof.URL, rec.Proof.SizeBytes, rec.Proof.ContentType, rec.Note,
		string(rec.Review.Status), rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert remittance for hub %d: %w", rec.HubID, err)
	}
	return nil
}

// GetRemittance - get remittance by id.
func (r *TxRepo) GetRemittance(ctx context.Context, id int64) (*domain.HubTransferRecord, error) {
	rec, err := one(r.tx.QueryRow(ctx, `SELECT `+remittanceColumns+` FROM hub_transfer_records WHERE id = $1`, id), scanRemittance)
	if err != nil {
		return nil, fmt.Errorf("get remittance %d: %w", id, err)
	}
	return rec, nil
}

// UpdatePendingRemittance - change amount, proof and note while still PENDING.
func (r *TxRepo) UpdatePendingRemittance(ctx context.Context, rec *domain.HubTransferRecord) (bool, error) {
	ok, err := affected(r.tx.Exec(ctx, `
		UPDATE hub_transfer_records
		SET amount = $2, proof_url = $3, proof_size_bytes = $4, proof_content_type = $5,
		    note = $6, updated_at = $7
		WHERE id = $1 AND review_status = $8
	`,
		rec.ID, rec.Amount, rec.Proof.URL, rec.Proof.SizeBytes, rec.Proof.ContentType,
		rec.Note, rec.UpdatedAt, string(domain.ReviewPending),
	))
	if err != nil {
		return false, fmt.Errorf("update remittance %d: %w", rec.ID, err)
	}
	return ok, nil
}

// DeletePendingRemittance - remove a PENDING remittance.
func (r *TxRepo) DeletePendingRemittance(ctx context.Context, id int64) (bool, error) {
	ok, err := affected(r.tx.Exec(ctx, `
		DELETE FROM hub_transfer_records WHERE id = $1 AND review_status = $2
	`, id, string(domain.ReviewPending)))
	if err != nil {
		return false, fmt.Errorf("delete remittance %d: %w", id, err)
	}
	return ok, nil
}

// ReviewRemittance - record the admin decision on a pending remittance.
func (r *TxRepo) ReviewRemittance(ctx context.Context, id int64, rv domain.Review) (bool, error) {
	ok, err := affected(r.tx.Exec(ctx, `
		UPDATE hub_transfer_records
		SET review_status = $2, reviewed_by = $3, reviewed_at = $4, review_reason = $5, updated_at = $4
		WHERE id = $1 AND review_status = $6
	`, id, string(rv.Status), rv.ReviewedBy, rv.ReviewedAt, rv.Reason, string(domain.ReviewPending)))
	if err != nil {
		return false, fmt.Errorf("review remittance %d: %w", id, err)
	}
	return ok, nil
}

// ListRemittances - remittances of one hub, or of all hubs when hubID is nil.
func (r *TxRepo) ListRemittances(ctx context.Context, hubID *int64) ([]domain.HubTransferRecord, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT `+remittanceColumns+`
		FROM hub_transfer_records
		WHERE $1::BIGINT IS NULL OR hub_id = $1
		ORDER BY id
	`, hubID)
	out, err := many(rows, err, scanRemittance)
	if err != nil {
		return nil, fmt.Errorf("list remittances: %w", err)
	}
	return out, nil
}

// SumRemitted - cash declared by a hub, excluding rejected remittances.
func (r *TxRepo) SumRemitted(ctx context.Context, hubID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM hub_transfer_records
		WHERE hub_id = $1 AND review_status <> $2
	`, hubID, string(domain.ReviewRejected)).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum remitted by hub %d: %w", hubID, err)
	}
	return sum, nil
}
