package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"parcelhub/internal/domain"
)

const settlementColumns = `
	id, rider_id, hub_id, period_start, period_end,
	total_collected_amount, previous_due_amount, total_due_to_hub, cash_received,
	discrepancy_amount, new_due_amount, settlement_status,
	delivered_count, partial_count, exchange_count, paid_return_count, returned_count,
	note, settled_by, settled_at, review_status, reviewed_by, reviewed_at, review_reason`

func scanSettlement(row rowScanner, s *domain.RiderSettlement) error {
	var status, review string
	if err := row.Scan(
		&s.ID, &s.RiderID, &s.HubID, &s.PeriodStart, &s.PeriodEnd,
		&s.TotalCollectedAmount, &s.PreviousDueAmount, &s.TotalDueToHub, &s.CashReceived,
		&s.DiscrepancyAmount, &s.NewDueAmount, &status,
		&s.Counts.Delivered, &s.Counts.Partial, &s.Counts.Exchange, &s.Counts.PaidReturn, &s.Counts.Returned,
		&s.Note, &s.SettledBy, &s.SettledAt, &review, &s.Review.ReviewedBy, &s.Review.ReviewedAt, &s.Review.Reason,
	); err != nil {
		return err
	}
	s.Status = domain.SettlementStatus(status)
	s.Review.Status = domain.ReviewStatus(review)
	return nil
}

// LastSettlement - newest settlement of a rider regardless of review outcome.
func (r *TxRepo) LastSettlement(ctx context.Context, riderID int64) (*domain.RiderSettlement, error) {
	s, err := one(r.tx.QueryRow(ctx, `
		SELECT `+settlementColumns+`
		FROM rider_settlements
		WHERE rider_id = $1
		ORDER BY settled_at DESC, id DESC
		LIMIT 1
	`, riderID), scanSettlement)
	if err != nil {
		return nil, fmt.Errorf("last settlement of rider %d: %w", riderID, err)
	}
	return s, nil
}

// InsertSettlement - persist a settlement.
func (r *TxRepo) InsertSettlement(ctx context.Context, s *domain.RiderSettlement) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO rider_settlements (
			rider_id, hub_id, period_start, period_end,
			total_collected_amount, previous_due_amount, total_due_to_hub, cash_received,
			discrepancy_amount, new_due_amount, settlement_status,
			delivered_count, partial_count, exchange_count, paid_return_count, returned_count,
			note, settled_by, settled_at, review_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`,
		s.RiderID, s.HubID, s.PeriodStart, s.PeriodEnd,
		s.TotalCollectedAmount, s.PreviousDueAmount, s.TotalDueToHub, s.CashReceived,
		s.DiscrepancyAmount, s.NewDueAmount, string(s.Status),
		s.Counts.Delivered, s.Counts.Partial, s.Counts.Exchange, s.Counts.PaidReturn, s.Counts.Returned,
		s.Note, s.SettledBy, s.SettledAt, string(s.Review.Status),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert settlement for rider %d: %w", s.RiderID, err)
	}
	return nil
}

// GetSettlement - get settlement by id.
func (r *TxRepo) GetSettlement(ctx context.Context, id int64) (*domain.RiderSettlement, error) {
	s, err := one(r.tx.QueryRow(ctx, `SELECT `+settlementColumns+` FROM rider_settlements WHERE id = $1`, id), scanSettlement)
	if err != nil {
		return nil, fmt.Errorf("get settlement %d: %w", id, err)
	}
	return s, nil
}

// ReviewSettlement - record the admin decision on a pending settlement.
func (r *TxRepo) ReviewSettlement(ctx context.Context, id int64, rv domain.Review) (bool, error) {
	ok, err := affected(r.tx.Exec(ctx, `
		UPDATE rider_settlements
		SET review_status = $2, reviewed_by = $3, reviewed_at = $4, review_reason = $5
		WHERE id = $1 AND review_status = $6
	`, id, string(rv.Status), rv.ReviewedBy, rv.ReviewedAt, rv.Reason, string(domain.ReviewPending)))
	if err != nil {
		return false, fmt.Errorf("review settlement %d: %w", id, err)
	}
	return ok, nil
}

// ListSettlements - settlements of a rider in creation order.
func (r *TxRepo) ListSettlements(ctx context.Context, riderID int64) ([]domain.RiderSettlement, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT `+settlementColumns+` FROM rider_settlements WHERE rider_id = $1 ORDER BY id
	`, riderID)
	out, err := many(rows, err, scanSettlement)
	if err != nil {
		return nil, fmt.Errorf("list settlements of rider %d: %w", riderID, err)
	}
	return out, nil
}

// SumSettledCash - cash received by a hub from riders, excluding rejected settlements.
func (r *TxRepo) SumSettledCash(ctx context.Context, hubID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(cash_received), 0)
		FROM rider_settlements
		WHERE hub_id = $1 AND review_status <> $2
	`, hubID, string(domain.ReviewRejected)).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum settled cash of hub %d: %w", hubID, err)
	}
	return sum, nil
}
