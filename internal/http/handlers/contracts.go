package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"parcelhub/internal/domain"
	"parcelhub/internal/service/invoice"
	"parcelhub/internal/service/ledger"
	"parcelhub/internal/service/parcel"
	"parcelhub/internal/service/settlement"
	"parcelhub/internal/service/transfer"
)

// ParcelUsecase is the parcel lifecycle seen by HTTP.
type ParcelUsecase interface {
	Create(ctx context.Context, scope domain.Scope, in domain.NewParcel) (domain.Parcel, error)
	Get(ctx context.Context, id int64) (domain.Parcel, error)
	History(ctx context.Context, id int64) ([]domain.ParcelEvent, error)

	DispatchPickup(ctx context.Context, scope domain.Scope, id, riderID int64) (domain.TransitionResult, error)
	ConfirmPickup(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error)
	ReceiveAtHub(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error)
	AssignRider(ctx context.Context, scope domain.Scope, id, riderID int64) (domain.TransitionResult, error)
	Dispatch(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error)
	PrepareRedelivery(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error)
	ReceiveFailed(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error)
	HandToThirdParty(ctx context.Context, scope domain.Scope, id int64, provider string) (domain.TransitionResult, error)
	Cancel(ctx context.Context, scope domain.Scope, id int64, reason string) (domain.TransitionResult, error)
	ApplyOutcome(ctx context.Context, scope domain.Scope, in domain.VerificationResult) (domain.TransitionResult, error)
	SpawnReturn(ctx context.Context, scope domain.Scope, id int64, note string) (parcel.ReturnResult, error)
}

// TransferUsecase covers hub transfers and hub remittances.
type TransferUsecase interface {
	Transfer(ctx context.Context, scope domain.Scope, id, destHubID int64) (domain.TransitionResult, error)
	Accept(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error)
	ReturnToMerchant(ctx context.Context, scope domain.Scope, id int64, note string) (parcel.ReturnResult, error)

	CreateRemittance(ctx context.Context, scope domain.Scope, in transfer.NewRemittance) (domain.HubTransferRecord, error)
	UpdateRemittance(ctx context.Context, scope domain.Scope, id int64, in domain.RemittanceUpdate) (domain.HubTransferRecord, error)
	DeleteRemittance(ctx context.Context, scope domain.Scope, id int64) error
	ApproveRemittance(ctx context.Context, scope domain.Scope, id int64) (domain.HubTransferRecord, error)
	RejectRemittance(ctx context.Context, scope domain.Scope, id int64, reason string) (domain.HubTransferRecord, error)
	Remittances(ctx context.Context, scope domain.Scope) ([]domain.HubTransferRecord, error)
}

// SettlementUsecase covers rider cash settlements.
type SettlementUsecase interface {
	Preview(ctx context.Context, scope domain.Scope, riderID int64, cash decimal.Decimal) (domain.RiderSettlement, error)
	Record(ctx context.Context, scope domain.Scope, riderID int64, cash decimal.Decimal, note string) (domain.RiderSettlement, error)
	Approve(ctx context.Context, scope domain.Scope, id int64) (domain.RiderSettlement, error)
	Reject(ctx context.Context, scope domain.Scope, id int64, reason string) (domain.RiderSettlement, error)
	List(ctx context.Context, scope domain.Scope, riderID int64) ([]domain.RiderSettlement, error)
}

// InvoiceUsecase covers clearance and merchant invoices.
type InvoiceUsecase interface {
	ClearanceList(ctx context.Context, scope domain.Scope, merchantID *int64) ([]domain.ClearanceItem, error)
	Generate(ctx context.Context, scope domain.Scope, merchantID *int64) ([]domain.MerchantInvoice, error)
	MarkProcessing(ctx context.Context, scope domain.Scope, id int64) (domain.MerchantInvoice, error)
	MarkPaid(ctx context.Context, scope domain.Scope, id int64, pay domain.PaymentInfo) (invoice.PaidResult, error)
	Get(ctx context.Context, scope domain.Scope, id int64) (domain.MerchantInvoice, error)
	List(ctx context.Context, scope domain.Scope, merchantID *int64) ([]domain.MerchantInvoice, error)
}

// LedgerUsecase covers merchant finance reads and admin corrections.
type LedgerUsecase interface {
	Finance(ctx context.Context, merchantID int64) (domain.MerchantFinance, error)
	Transactions(ctx context.Context, merchantID int64) ([]domain.LedgerTransaction, error)
	Verify(ctx context.Context, merchantID int64) (domain.LedgerReport, error)
	PostAdjustment(ctx context.Context, scope domain.Scope, in ledger.Adjustment) (ledger.Result, error)
	SetHold(ctx context.Context, scope domain.Scope, merchantID int64, amount decimal.Decimal) (domain.MerchantFinance, error)
}

var (
	_ ParcelUsecase     = (*parcel.Service)(nil)
	_ TransferUsecase   = (*transfer.Service)(nil)
	_ SettlementUsecase = (*settlement.Service)(nil)
	_ InvoiceUsecase    = (*invoice.Service)(nil)
	_ LedgerUsecase     = (*ledger.Service)(nil)
)
