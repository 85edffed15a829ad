package storetx

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"parcelhub/internal/domain"
)

// Getters return (nil, nil) when the row does not exist. Conditional writers
// return false when the guarded state no longer matches.

// ParcelStore is the parcel part of a transaction.
type ParcelStore interface {
	GetParcel(ctx context.Context, id int64) (*domain.Parcel, error)
	GetParcelForUpdate(ctx context.Context, id int64) (*domain.Parcel, error)
	InsertParcel(ctx context.Context, p *domain.Parcel) error
	UpdateParcel(ctx context.Context, p *domain.Parcel, expected domain.ParcelStatus) (bool, error)
	InsertParcelEvent(ctx context.Context, e *domain.ParcelEvent) error
	ListParcelEvents(ctx context.Context, parcelID int64) ([]domain.ParcelEvent, error)

	ListUnpaidBooked(ctx context.Context, merchantID *int64) ([]domain.Parcel, error)
	EligibleMerchantIDs(ctx context.Context) ([]int64, error)
	ListEligibleForUpdate(ctx context.Context, merchantID int64) ([]domain.Parcel, error)
	SetParcelsInvoiced(ctx context.Context, invoiceID int64, parcelIDs []int64, now time.Time) error
	MarkParcelsPaid(ctx context.Context, invoiceID int64, at time.Time) (int64, error)
}

// RiderStore reads riders.
type RiderStore interface {
	GetRider(ctx context.Context, id int64) (*domain.Rider, error)
	GetRiderForUpdate(ctx context.Context, id int64) (*domain.Rider, error)
}

// VerificationStore keeps trusted delivery outcomes.
type VerificationStore interface {
	InsertVerification(ctx context.Context, v *domain.DeliveryVerification) error
	ListCompletedVerifications(ctx context.Context, riderID int64, from, to time.Time) ([]domain.DeliveryVerification, error)
}

// LedgerStore is the append-only ledger and its projection.
type LedgerStore interface {
	LockFinance(ctx context.Context, merchantID int64, now time.Time) (*domain.MerchantFinance, error)
	GetFinance(ctx context.Context, merchantID int64) (*domain.MerchantFinance, error)
	SaveFinance(ctx context.Context, f *domain.MerchantFinance) error
	LastTransaction(ctx context.Context, merchantID int64) (*domain.LedgerTransaction, error)
	InsertTransaction(ctx context.Context, t *domain.LedgerTransaction) error
	ListTransactions(ctx context.Context, merchantID int64) ([]domain.LedgerTransaction, error)
}

// SettlementStore keeps rider settlements.
type SettlementStore interface {
	LastSettlement(ctx context.Context, riderID int64) (*domain.RiderSettlement, error)
	InsertSettlement(ctx context.Context, s *domain.RiderSettlement) error
	GetSettlement(ctx context.Context, id int64) (*domain.RiderSettlement, error)
	ReviewSettlement(ctx context.Context, id int64, r domain.Review) (bool, error)
	ListSettlements(ctx context.Context, riderID int64) ([]domain.RiderSettlement, error)
	SumSettledCash(ctx context.Context, hubID int64) (decimal.Decimal, error)
}

// RemittanceStore keeps hub cash remittances.
type RemittanceStore interface {
	InsertRemittance(ctx context.Context, r *domain.HubTransferRecord) error
	GetRemittance(ctx context.Context, id int64) (*domain.HubTransferRecord, error)
	UpdatePendingRemittance(ctx context.Context, r *domain.HubTransferRecord) (bool, error)
	DeletePendingRemittance(ctx context.Context, id int64) (bool, error)
	ReviewRemittance(ctx context.Context, id int64, r domain.Review) (bool, error)
	ListRemittances(ctx context.Context, hubID *int64) ([]domain.HubTransferRecord, error)
	SumRemitted(ctx context.Context, hubID int64) (decimal.Decimal, error)
}

// InvoiceStore keeps merchant invoices.
type InvoiceStore interface {
	InsertInvoice(ctx context.Context, inv *domain.MerchantInvoice) error
	GetInvoice(ctx context.Context, id int64) (*domain.MerchantInvoice, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.MerchantInvoice, error)
	UpdateInvoice(ctx context.Context, inv *domain.MerchantInvoice, expected domain.InvoiceStatus) (bool, error)
	ListInvoices(ctx context.Context, merchantID *int64) ([]domain.MerchantInvoice, error)
}

// Repository is everything a single transaction can touch.
type Repository interface {
	ParcelStore
	RiderStore
	VerificationStore
	LedgerStore
	SettlementStore
	RemittanceStore
	InvoiceStore
}

// Runner is a transaction runner
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
