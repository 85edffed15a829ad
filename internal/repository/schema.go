package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the relational layout of the service. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS riders (
	id         BIGSERIAL PRIMARY KEY,
	hub_id     BIGINT NOT NULL,
	name       TEXT NOT NULL,
	phone      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS parcels (
	id                          BIGSERIAL PRIMARY KEY,
	tracking_number             TEXT NOT NULL UNIQUE,
	merchant_id                 BIGINT NOT NULL,
	store_id                    BIGINT NOT NULL DEFAULT 0,
	customer_id                 BIGINT,
	customer_name               TEXT NOT NULL DEFAULT '',
	customer_phone              TEXT NOT NULL DEFAULT '',
	customer_address            TEXT NOT NULL DEFAULT '',
	assigned_rider_id           BIGINT REFERENCES riders(id),
	current_hub_id              BIGINT,
	origin_hub_id               BIGINT,
	destination_hub_id          BIGINT,
	in_transfer                 BOOLEAN NOT NULL DEFAULT false,
	pickup_area_id              BIGINT,
	delivery_area_id            BIGINT,
	product_price               NUMERIC(14,2) NOT NULL DEFAULT 0,
	weight                      NUMERIC(10,3) NOT NULL DEFAULT 0,
	delivery_charge             NUMERIC(14,2) NOT NULL DEFAULT 0,
	weight_charge               NUMERIC(14,2) NOT NULL DEFAULT 0,
	cod_charge                  NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_charge                NUMERIC(14,2) NOT NULL DEFAULT 0,
	return_charge               NUMERIC(14,2) NOT NULL DEFAULT 0,
	is_cod                      BOOLEAN NOT NULL DEFAULT false,
	cod_amount                  NUMERIC(14,2) NOT NULL DEFAULT 0,
	cod_collected_amount        NUMERIC(14,2),
	status                      TEXT NOT NULL,
	payment_status              TEXT NOT NULL,
	financial_status            TEXT NOT NULL,
	picked_up_at                TIMESTAMPTZ,
	assigned_at                 TIMESTAMPTZ,
	out_for_delivery_at         TIMESTAMPTZ,
	delivered_at                TIMESTAMPTZ,
	transferred_at              TIMESTAMPTZ,
	received_at_destination_hub TIMESTAMPTZ,
	cancelled_at                TIMESTAMPTZ,
	cancel_reason               TEXT NOT NULL DEFAULT '',
	third_party_provider        TEXT NOT NULL DEFAULT '',
	delivery_attempts           INT NOT NULL DEFAULT 0,
	is_return_parcel            BOOLEAN NOT NULL DEFAULT false,
	original_parcel_id          BIGINT REFERENCES parcels(id),
	return_initiated_at         TIMESTAMPTZ,
	paid_to_merchant            BOOLEAN NOT NULL DEFAULT false,
	paid_to_merchant_at         TIMESTAMPTZ,
	clearance_required          BOOLEAN NOT NULL DEFAULT false,
	clearance_done              BOOLEAN NOT NULL DEFAULT false,
	invoice_id                  BIGINT,
	created_at                  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT cod_collected_non_negative CHECK (cod_collected_amount IS NULL OR cod_collected_amount >= 0)
);

CREATE INDEX IF NOT EXISTS parcels_invoice_eligible_idx
	ON parcels (merchant_id)
	WHERE invoice_id IS NULL AND paid_to_merchant = false AND is_return_parcel = false;

CREATE UNIQUE INDEX IF NOT EXISTS parcels_single_return_idx
	ON parcels (original_parcel_id)
	WHERE is_return_parcel;

CREATE TABLE IF NOT EXISTS parcel_events (
	id              BIGSERIAL PRIMARY KEY,
	parcel_id       BIGINT NOT NULL REFERENCES parcels(id),
	tracking_number TEXT NOT NULL,
	merchant_id     BIGINT NOT NULL,
	from_status     TEXT NOT NULL DEFAULT '',
	to_status       TEXT NOT NULL,
	actor_id        BIGINT NOT NULL DEFAULT 0,
	actor_role      TEXT NOT NULL,
	hub_id          BIGINT,
	note            TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS parcel_events_parcel_idx ON parcel_events (parcel_id, id);

CREATE TABLE IF NOT EXISTS delivery_verifications (
	id                    BIGSERIAL PRIMARY KEY,
	parcel_id             BIGINT NOT NULL REFERENCES parcels(id),
	rider_id              BIGINT NOT NULL REFERENCES riders(id),
	selected_status       TEXT NOT NULL,
	collected_amount      NUMERIC(14,2) NOT NULL DEFAULT 0,
	expected_cod_amount   NUMERIC(14,2) NOT NULL DEFAULT 0,
	status                TEXT NOT NULL,
	delivery_completed_at TIMESTAMPTZ NOT NULL,
	verified_at           TIMESTAMPTZ
);

ALTER TABLE delivery_verifications ADD COLUMN IF NOT EXISTS verified_at TIMESTAMPTZ;

CREATE INDEX IF NOT EXISTS delivery_verifications_rider_idx
	ON delivery_verifications (rider_id, delivery_completed_at);

CREATE TABLE IF NOT EXISTS merchant_finances (
	merchant_id            BIGINT PRIMARY KEY,
	current_balance        NUMERIC(14,2) NOT NULL DEFAULT 0,
	pending_balance        NUMERIC(14,2) NOT NULL DEFAULT 0,
	invoiced_balance       NUMERIC(14,2) NOT NULL DEFAULT 0,
	processing_balance     NUMERIC(14,2) NOT NULL DEFAULT 0,
	hold_amount            NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_earned           NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_withdrawn        NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_delivery_charges NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_return_charges   NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_cod_collected    NUMERIC(14,2) NOT NULL DEFAULT 0,
	parcels_delivered      BIGINT NOT NULL DEFAULT 0,
	parcels_returned       BIGINT NOT NULL DEFAULT 0,
	credit_limit           NUMERIC(14,2) NOT NULL DEFAULT 0,
	credit_used            NUMERIC(14,2) NOT NULL DEFAULT 0,
	created_at             TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS merchant_finance_transactions (
	id             BIGSERIAL PRIMARY KEY,
	merchant_id    BIGINT NOT NULL REFERENCES merchant_finances(merchant_id),
	type           TEXT NOT NULL CHECK (type IN ('CREDIT', 'DEBIT')),
	amount         NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
	balance_before NUMERIC(14,2) NOT NULL,
	balance_after  NUMERIC(14,2) NOT NULL,
	reference_type TEXT NOT NULL,
	reference_id   BIGINT,
	reference_code TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	created_by     BIGINT NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS merchant_finance_transactions_merchant_idx
	ON merchant_finance_transactions (merchant_id, id);

CREATE TABLE IF NOT EXISTS rider_settlements (
	id                     BIGSERIAL PRIMARY KEY,
	rider_id               BIGINT NOT NULL REFERENCES riders(id),
	hub_id                 BIGINT NOT NULL,
	period_start           TIMESTAMPTZ NOT NULL,
	period_end             TIMESTAMPTZ NOT NULL,
	total_collected_amount NUMERIC(14,2) NOT NULL,
	previous_due_amount    NUMERIC(14,2) NOT NULL,
	total_due_to_hub       NUMERIC(14,2) NOT NULL,
	cash_received          NUMERIC(14,2) NOT NULL,
	discrepancy_amount     NUMERIC(14,2) NOT NULL,
	new_due_amount         NUMERIC(14,2) NOT NULL,
	settlement_status      TEXT NOT NULL,
	delivered_count        INT NOT NULL DEFAULT 0,
	partial_count          INT NOT NULL DEFAULT 0,
	exchange_count         INT NOT NULL DEFAULT 0,
	paid_return_count      INT NOT NULL DEFAULT 0,
	returned_count         INT NOT NULL DEFAULT 0,
	note                   TEXT NOT NULL DEFAULT '',
	settled_by             BIGINT NOT NULL,
	settled_at             TIMESTAMPTZ NOT NULL,
	review_status          TEXT NOT NULL DEFAULT 'PENDING',
	reviewed_by            BIGINT,
	reviewed_at            TIMESTAMPTZ,
	review_reason          TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS rider_settlements_rider_idx ON rider_settlements (rider_id, settled_at);

CREATE TABLE IF NOT EXISTS hub_transfer_records (
	id                 BIGSERIAL PRIMARY KEY,
	hub_id             BIGINT NOT NULL,
	created_by         BIGINT NOT NULL,
	amount             NUMERIC(14,2) NOT NULL CHECK (amount > 0),
	expected_amount    NUMERIC(14,2) NOT NULL,
	proof_url          TEXT NOT NULL DEFAULT '',
	proof_size_bytes   BIGINT NOT NULL DEFAULT 0,
	proof_content_type TEXT NOT NULL DEFAULT '',
	note               TEXT NOT NULL DEFAULT '',
	review_status      TEXT NOT NULL DEFAULT 'PENDING',
	reviewed_by        BIGINT,
	reviewed_at        TIMESTAMPTZ,
	review_reason      TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS merchant_invoices (
	id                 BIGSERIAL PRIMARY KEY,
	invoice_number     TEXT NOT NULL UNIQUE,
	merchant_id        BIGINT NOT NULL,
	parcels            INT NOT NULL,
	delivered_count    INT NOT NULL DEFAULT 0,
	partial_count      INT NOT NULL DEFAULT 0,
	exchange_count     INT NOT NULL DEFAULT 0,
	paid_return_count  INT NOT NULL DEFAULT 0,
	returned_count     INT NOT NULL DEFAULT 0,
	cod_amount         NUMERIC(14,2) NOT NULL DEFAULT 0,
	cod_collected      NUMERIC(14,2) NOT NULL DEFAULT 0,
	delivery_charges   NUMERIC(14,2) NOT NULL DEFAULT 0,
	return_charges     NUMERIC(14,2) NOT NULL DEFAULT 0,
	payable            NUMERIC(14,2) NOT NULL DEFAULT 0,
	status             TEXT NOT NULL,
	payment_method     TEXT NOT NULL DEFAULT '',
	payment_reference  TEXT NOT NULL DEFAULT '',
	paid_at            TIMESTAMPTZ,
	paid_by            BIGINT,
	created_by         BIGINT NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
