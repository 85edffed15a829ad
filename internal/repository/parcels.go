package repository

import (
	"context"
	"fmt"
	"time"

	"parcelhub/internal/domain"
)

const parcelColumns = `
	id, tracking_number, merchant_id, store_id,
	customer_id, customer_name, customer_phone, customer_address,
	assigned_rider_id, current_hub_id, origin_hub_id, destination_hub_id, in_transfer,
	pickup_area_id, delivery_area_id,
	product_price, weight, delivery_charge, weight_charge, cod_charge, total_charge, return_charge,
	is_cod, cod_amount, cod_collected_amount,
	status, payment_status, financial_status,
	picked_up_at, assigned_at, out_for_delivery_at, delivered_at, transferred_at,
	received_at_destination_hub, cancelled_at, cancel_reason, third_party_provider, delivery_attempts,
	is_return_parcel, original_parcel_id, return_initiated_at,
	paid_to_merchant, paid_to_merchant_at, clearance_required, clearance_done, invoice_id,
	created_at, updated_at`

func scanParcel(row rowScanner, p *domain.Parcel) error {
	var status, payment, financial string
	err := row.Scan(
		&p.ID, &p.TrackingNumber, &p.MerchantID, &p.StoreID,
		&p.Customer.ID, &p.Customer.Name, &p.Customer.Phone, &p.Customer.Address,
		&p.AssignedRiderID, &p.CurrentHubID, &p.OriginHubID, &p.DestinationHubID, &p.InTransfer,
		&p.PickupAreaID, &p.DeliveryAreaID,
		&p.ProductPrice, &p.Weight, &p.DeliveryCharge, &p.WeightCharge, &p.CODCharge, &p.TotalCharge, &p.ReturnCharge,
		&p.IsCOD, &p.CODAmount, &p.CODCollectedAmount,
		&status, &payment, &financial,
		&p.PickedUpAt, &p.AssignedAt, &p.OutForDeliveryAt, &p.DeliveredAt, &p.TransferredAt,
		&p.ReceivedAtDestinationHub, &p.CancelledAt, &p.CancelReason, &p.ThirdPartyProvider, &p.DeliveryAttempts,
		&p.IsReturnParcel, &p.OriginalParcelID, &p.ReturnInitiatedAt,
		&p.PaidToMerchant, &p.PaidToMerchantAt, &p.ClearanceRequired, &p.ClearanceDone, &p.InvoiceID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	p.Status = domain.ParcelStatus(status)
	p.PaymentStatus = domain.PaymentStatus(payment)
	p.FinancialStatus = domain.FinancialStatus(financial)
	return nil
}

// financialOutcomes lists the statuses that carry a booked result.
func financialOutcomes() []string {
	var out []string
	for _, s := range domain.AllParcelStatuses() {
		if s.IsFinancialOutcome() {
			out = append(out, string(s))
		}
	}
	return out
}

// GetParcel - get parcel by id.
func (r *TxRepo) GetParcel(ctx context.Context, id int64) (*domain.Parcel, error) {
	p, err := one(r.tx.QueryRow(ctx, `SELECT `+parcelColumns+` FROM parcels WHERE id = $1`, id), scanParcel)
	if err != nil {
		return nil, fmt.Errorf("get parcel %d: %w", id, err)
	}
	return p, nil
}

// GetParcelForUpdate - lock the parcel row. Fails fast when another
// transaction already holds it.
func (r *TxRepo) GetParcelForUpdate(ctx context.Context, id int64) (*domain.Parcel, error) {
	p, err := one(r.tx.QueryRow(ctx, `SELECT `+parcelColumns+` FROM parcels WHERE id = $1 FOR UPDATE NOWAIT`, id), scanParcel)
	if err != nil {
		return nil, fmt.Errorf("lock parcel %d: %w", id, err)
	}
	return p, nil
}

// InsertParcel - insert a new parcel.
func (r *TxRepo) InsertParcel(ctx context.Context, p *domain.Parcel) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
		p.UpdatedAt = p.CreatedAt
	}
	err := r.tx.QueryRow(ctx, `
		INSERT INTO parcels (
			tracking_number, merchant_id, store_id,
			customer_id, customer_name, customer_phone, customer_address,
			assigned_rider_id, current_hub_id, origin_hub_id, destination_hub_id, in_transfer,
			pickup_area_id, delivery_area_id,
			product_price, weight, delivery_charge, weight_charge, cod_charge, total_charge, return_charge,
			is_cod, cod_amount, cod_collected_amount,
			status, payment_status, financial_status,
			delivery_attempts, is_return_parcel, original_parcel_id,
			clearance_required, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33
		)
		RETURNING id
	`,
		p.TrackingNumber, p.MerchantID, p.StoreID,
		p.Customer.ID, p.Customer.Name, p.Customer.Phone, p.Customer.Address,
		p.AssignedRiderID, p.CurrentHubID, p.OriginHubID, p.DestinationHubID, p.InTransfer,
		p.PickupAreaID, p.DeliveryAreaID,
		p.ProductPrice, p.Weight, p.DeliveryCharge, p.WeightCharge, p.CODCharge, p.TotalCharge, p.ReturnCharge,
		p.IsCOD, p.CODAmount, p.CODCollectedAmount,
		string(p.Status), string(p.PaymentStatus), string(p.FinancialStatus),
		p.DeliveryAttempts, p.IsReturnParcel, p.OriginalParcelID,
		p.ClearanceRequired, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert parcel: %w", err)
	}
	return nil
}

// UpdateParcel - write every mutable column, guarded by the status the caller read.
func (r *TxRepo) UpdateParcel(ctx context.Context, p *domain.Parcel, expected domain.ParcelStatus) (bool, error) {
	ok, err := affected(r.tx.Exec(ctx, `
		UPDATE parcels SET
			assigned_rider_id = $3, current_hub_id = $4, origin_hub_id = $5, destination_hub_id = $6,
			in_transfer = $7, cod_collected_amount = $8,
			status = $9, payment_status = $10, financial_status = $11,
			picked_up_at = $12, assigned_at = $13, out_for_delivery_at = $14, delivered_at = $15,
			transferred_at = $16, received_at_destination_hub = $17, cancelled_at = $18,
			cancel_reason = $19, third_party_provider = $20, delivery_attempts = $21,
			return_initiated_at = $22, paid_to_merchant = $23, paid_to_merchant_at = $24,
			clearance_required = $25, clearance_done = $26, invoice_id = $27, updated_at = $28
		WHERE id = $1 AND status = $2
	`,
		p.ID, string(expected),
		p.AssignedRiderID, p.CurrentHubID, p.OriginHubID, p.DestinationHubID,
		p.InTransfer, p.CODCollectedAmount,
		string(p.Status), string(p.PaymentStatus), string(p.FinancialStatus),
		p.PickedUpAt, p.AssignedAt, p.OutForDeliveryAt, p.DeliveredAt,
		p.TransferredAt, p.ReceivedAtDestinationHub, p.CancelledAt,
		p.CancelReason, p.ThirdPartyProvider, p.DeliveryAttempts,
		p.ReturnInitiatedAt, p.PaidToMerchant, p.PaidToMerchantAt,
		p.ClearanceRequired, p.ClearanceDone, p.InvoiceID, p.UpdatedAt,
	))
	if err != nil {
		return false, fmt.Errorf("update parcel %d: %w", p.ID, err)
	}
	return ok, nil
}

// InsertParcelEvent - append a status history row.
func (r *TxRepo) InsertParcelEvent(ctx context.Context, e *domain.ParcelEvent) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO parcel_events (
			parcel_id, tracking_number, merchant_id, from_status, to_status,
			actor_id, actor_role, hub_id, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		e.ParcelID, e.TrackingNumber, e.MerchantID, string(e.FromStatus), string(e.ToStatus),
		e.ActorID, string(e.ActorRole), e.HubID, e.Note, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert parcel event: %w", err)
	}
	return nil
}

func scanParcelEvent(row rowScanner, e *domain.ParcelEvent) error {
	var from, to, role string
	if err := row.Scan(
		&e.ID, &e.ParcelID, &e.TrackingNumber, &e.MerchantID, &from, &to,
		&e.ActorID, &role, &e.HubID, &e.Note, &e.CreatedAt,
	); err != nil {
		return err
	}
	e.FromStatus = domain.ParcelStatus(from)
	e.ToStatus = domain.ParcelStatus(to)
	e.ActorRole = domain.Role(role)
	return nil
}

// ListParcelEvents - history of a parcel, oldest first.
func (r *TxRepo) ListParcelEvents(ctx context.Context, parcelID int64) ([]domain.ParcelEvent, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, parcel_id, tracking_number, merchant_id, from_status, to_status,
		       actor_id, actor_role, hub_id, note, created_at
		FROM parcel_events
		WHERE parcel_id = $1
		ORDER BY id
	`, parcelID)
	events, err := many(rows, err, scanParcelEvent)
	if err != nil {
		return nil, fmt.Errorf("list events of parcel %d: %w", parcelID, err)
	}
	return events, nil
}

// ListUnpaidBooked - booked parcels not yet paid out, optionally for one merchant.
func (r *TxRepo) ListUnpaidBooked(ctx context.Context, merchantID *int64) ([]domain.Parcel, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT `+parcelColumns+`
		FROM parcels
		WHERE paid_to_merchant = false
		  AND is_return_parcel = false
		  AND status = ANY($1)
		  AND ($2::BIGINT IS NULL OR merchant_id = $2)
		ORDER BY id
	`, financialOutcomes(), merchantID)
	parcels, err := many(rows, err, scanParcel)
	if err != nil {
		return nil, fmt.Errorf("list unpaid booked parcels: %w", err)
	}
	return parcels, nil
}

// EligibleMerchantIDs - merchants with at least one invoiceable parcel.
func (r *TxRepo) EligibleMerchantIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT DISTINCT merchant_id
		FROM parcels
		WHERE invoice_id IS NULL
		  AND paid_to_merchant = false
		  AND is_return_parcel = false
		  AND status = ANY($1)
		ORDER BY merchant_id
	`, financialOutcomes())
	ids, err := many(rows, err, func(row rowScanner, id *int64) error { return row.Scan(id) })
	if err != nil {
		return nil, fmt.Errorf("list invoiceable merchants: %w", err)
	}
	return ids, nil
}

// ListEligibleForUpdate - lock the invoiceable parcels of a merchant. Rows
// already locked by a concurrent generation are skipped.
func (r *TxRepo) ListEligibleForUpdate(ctx context.Context, merchantID int64) ([]domain.Parcel, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT `+parcelColumns+`
		FROM parcels
		WHERE merchant_id = $1
		  AND invoice_id IS NULL
		  AND paid_to_merchant = false
		  AND is_return_parcel = false
		  AND status = ANY($2)
		ORDER BY id
		FOR UPDATE SKIP LOCKED
	`, merchantID, financialOutcomes())
	parcels, err := many(rows, err, scanParcel)
	if err != nil {
		return nil, fmt.Errorf("lock invoiceable parcels of merchant %d: %w", merchantID, err)
	}
	return parcels, nil
}

// SetParcelsInvoiced - attach parcels to an invoice.
func (r *TxRepo) SetParcelsInvoiced(ctx context.Context, invoiceID int64, parcelIDs []int64, now time.Time) error {
	ct, err := r.tx.Exec(ctx, `
		UPDATE parcels
		SET invoice_id = $1, financial_status = $2, updated_at = $3
		WHERE id = ANY($4) AND invoice_id IS NULL
	`, invoiceID, string(domain.FinancialInvoiced), now, parcelIDs)
	if err != nil {
		return fmt.Errorf("attach parcels to invoice %d: %w", invoiceID, err)
	}
	if ct.RowsAffected() != int64(len(parcelIDs)) {
		return fmt.Errorf("attach parcels to invoice %d: %d of %d rows updated", invoiceID, ct.RowsAffected(), len(parcelIDs))
	}
	return nil
}

// MarkParcelsPaid - flag every parcel of a paid invoice.
func (r *TxRepo) MarkParcelsPaid(ctx context.Context, invoiceID int64, at time.Time) (int64, error) {
	ct, err := r.tx.Exec(ctx, `
		UPDATE parcels
		SET paid_to_merchant = true, paid_to_merchant_at = $2, clearance_done = true,
		    financial_status = $3, updated_at = $2
		WHERE invoice_id = $1 AND paid_to_merchant = false
	`, invoiceID, at, string(domain.FinancialPaid))
	if err != nil {
		return 0, fmt.Errorf("mark parcels of invoice %d paid: %w", invoiceID, err)
	}
	return ct.RowsAffected(), nil
}
