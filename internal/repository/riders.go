package repository

import (
	"context"
	"fmt"
	"time"

	"parcelhub/internal/domain"
)

func scanRider(row rowScanner, rd *domain.Rider) error {
	return row.Scan(&rd.ID, &rd.HubID, &rd.Name, &rd.Phone, &rd.CreatedAt)
}

// GetRider - get rider by id.
func (r *TxRepo) GetRider(ctx context.Context, id int64) (*domain.Rider, error) {
	rd, err := one(r.tx.QueryRow(ctx, `
		SELECT id, hub_id, name, phone, created_at FROM riders WHERE id = $1
	`, id), scanRider)
	if err != nil {
		return nil, fmt.Errorf("get rider %d: %w", id, err)
	}
	return rd, nil
}

// GetRiderForUpdate - lock the rider row so settlements of one rider serialize.
func (r *TxRepo) GetRiderForUpdate(ctx context.Context, id int64) (*domain.Rider, error) {
	rd, err := one(r.tx.QueryRow(ctx, `
		SELECT id, hub_id, name, phone, created_at FROM riders WHERE id = $1 FOR UPDATE
	`, id), scanRider)
	if err != nil {
		return nil, fmt.Errorf("lock rider %d: %w", id, err)
	}
	return rd, nil
}

// InsertRider - register a rider. Used by seeding and tests.
func (r *TxRepo) InsertRider(ctx context.Context, rd *domain.Rider) error {
	if rd.CreatedAt.IsZero() {
		rd.CreatedAt = time.Now().UTC()
	}
	err := r.tx.QueryRow(ctx, `
		INSERT INTO riders (hub_id, name, phone, created_at) VALUES ($1, $2, $3, $4) RETURNING id
	`, rd.HubID, rd.Name, rd.Phone, rd.CreatedAt).Scan(&rd.ID)
	if err != nil {
		return fmt.Errorf("insert rider: %w", err)
	}
	return nil
}

// InsertVerification - persist a trusted delivery outcome.
func (r *TxRepo) InsertVerification(ctx context.Context, v *domain.DeliveryVerification) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO delivery_verifications (
			parcel_id, rider_id, selected_status, collected_amount, expected_cod_amount,
			status, delivery_completed_at, verified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		v.ParcelID, v.RiderID, string(v.SelectedStatus), v.CollectedAmount, v.ExpectedCODAmount,
		string(v.Status), v.DeliveryCompletedAt, v.VerifiedAt,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert verification for parcel %d: %w", v.ParcelID, err)
	}
	return nil
}

// ListCompletedVerifications - completed outcomes of a rider inside [from, to).
func (r *TxRepo) ListCompletedVerifications(ctx context.Context, riderID int64, from, to time.Time) ([]domain.DeliveryVerification, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, parcel_id, rider_id, selected_status, collected_amount, expected_cod_amount,
		       status, delivery_completed_at, verified_at
		FROM delivery_verifications
		WHERE rider_id = $1
		  AND status = $2
		  AND delivery_completed_at >= $3
		  AND delivery_completed_at < $4
		ORDER BY delivery_completed_at, id
	`, riderID, string(domain.VerificationCompleted), from, to)
	out, err := many(rows, err, func(row rowScanner, v *domain.DeliveryVerification) error {
		var selected, status string
		if err := row.Scan(
			&v.ID, &v.ParcelID, &v.RiderID, &selected, &v.CollectedAmount, &v.ExpectedCODAmount,
			&status, &v.DeliveryCompletedAt, &v.VerifiedAt,
		); err != nil {
			return err
		}
		v.SelectedStatus = domain.ParcelStatus(selected)
		v.Status = domain.VerificationStatus(status)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list verifications of rider %d: %w", riderID, err)
	}
	return out, nil
}
