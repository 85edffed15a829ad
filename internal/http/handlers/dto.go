package handlers

import (
	"time"

	"github.com/shopspring/decimal"
)

type customerDTO struct {
	ID      *int64 `json:"id,omitempty"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type createParcelRequest struct {
	MerchantID     int64            `json:"merchant_id"`
	StoreID        int64            `json:"store_id"`
	Customer       customerDTO      `json:"customer"`
	PickupHubID    *int64           `json:"pickup_hub_id"`
	PickupAreaID   *int64           `json:"pickup_area_id"`
	DeliveryAreaID *int64           `json:"delivery_area_id"`
	ProductPrice   decimal.Decimal  `json:"product_price"`
	Weight         decimal.Decimal  `json:"weight"`
	DeliveryCharge decimal.Decimal  `json:"delivery_charge"`
	WeightCharge   decimal.Decimal  `json:"weight_charge"`
	CODCharge      decimal.Decimal  `json:"cod_charge"`
	ReturnCharge   decimal.Decimal  `json:"return_charge"`
	IsCOD          bool             `json:"is_cod"`
	CODAmount      *decimal.Decimal `json:"cod_amount"`
}

type riderRequest struct {
	RiderID int64 `json:"rider_id"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type providerRequest struct {
	Provider string `json:"provider"`
}

type transferRequest struct {
	DestinationHubID int64 `json:"destination_hub_id"`
}

type outcomeRequest struct {
	SelectedStatus    string           `json:"selected_status"`
	CollectedAmount   *decimal.Decimal `json:"collected_amount"`
	ExpectedCODAmount *decimal.Decimal `json:"expected_cod_amount"`
}

type parcelResponse struct {
	ID                 int64            `json:"id"`
	TrackingNumber     string           `json:"tracking_number"`
	MerchantID         int64            `json:"merchant_id"`
	StoreID            int64            `json:"store_id"`
	Customer           customerDTO      `json:"customer"`
	AssignedRiderID    *int64           `json:"assigned_rider_id"`
	CurrentHubID       *int64           `json:"current_hub_id"`
	OriginHubID        *int64           `json:"origin_hub_id"`
	DestinationHubID   *int64           `json:"destination_hub_id"`
	InTransfer         bool             `json:"in_transfer"`
	ProductPrice       decimal.Decimal  `json:"product_price"`
	TotalCharge        decimal.Decimal  `json:"total_charge"`
	ReturnCharge       decimal.Decimal  `json:"return_charge"`
	IsCOD              bool             `json:"is_cod"`
	CODAmount          decimal.Decimal  `json:"cod_amount"`
	CODCollectedAmount *decimal.Decimal `json:"cod_collected_amount"`
	Status             string           `json:"status"`
	PaymentStatus      string           `json:"payment_status"`
	FinancialStatus    string           `json:"financial_status"`
	DeliveryAttempts   int              `json:"delivery_attempts"`
	ThirdPartyProvider string           `json:"third_party_provider,omitempty"`
	CancelReason       string           `json:"cancel_reason,omitempty"`
	IsReturnParcel     bool             `json:"is_return_parcel"`
	OriginalParcelID   *int64           `json:"original_parcel_id,omitempty"`
	ReturnInitiatedAt  *time.Time       `json:"return_initiated_at,omitempty"`
	PaidToMerchant     bool             `json:"paid_to_merchant"`
	ClearanceRequired  bool             `json:"clearance_required"`
	ClearanceDone      bool             `json:"clearance_done"`
	InvoiceID          *int64           `json:"invoice_id,omitempty"`
	DeliveredAt        *time.Time       `json:"delivered_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type transactionResponse struct {
	ID            int64           `json:"id"`
	MerchantID    int64           `json:"merchant_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   *int64          `json:"reference_id,omitempty"`
	ReferenceCode string          `json:"reference_code,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

type transitionResponse struct {
	Parcel       parcelResponse        `json:"parcel"`
	From         string                `json:"from"`
	To           string                `json:"to"`
	Transactions []transactionResponse `json:"transactions"`
	Balance      *decimal.Decimal      `json:"balance,omitempty"`
}

type returnResponse struct {
	Original parcelResponse `json:"original"`
	Return   parcelResponse `json:"return"`
}

type eventResponse struct {
	ID         int64     `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    int64     `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	HubID      *int64    `json:"hub_id,omitempty"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type proofDTO struct {
	URL         string `json:"url"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

type createRemittanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Proof  proofDTO        `json:"proof"`
	Note   string          `json:"note"`
}

type updateRemittanceRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Proof  *proofDTO        `json:"proof"`
	Note   *string          `json:"note"`
}

type reviewResponse struct {
	Status     string     `json:"status"`
	ReviewedBy *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

type remittanceResponse struct {
	ID             int64           `json:"id"`
	HubID          int64           `json:"hub_id"`
	CreatedBy      int64           `json:"created_by"`
	Amount         decimal.Decimal `json:"amount"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	Discrepancy    decimal.Decimal `json:"discrepancy"`
	Proof          proofDTO        `json:"proof"`
	Note           string          `json:"note,omitempty"`
	Review         reviewResponse  `json:"review"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type countsDTO struct {
	Delivered  int `json:"delivered"`
	Partial    int `json:"partial"`
	Exchange   int `json:"exchange"`
	PaidReturn int `json:"paid_return"`
	Returned   int `json:"returned"`
}

type recordSettlementRequest struct {
	CashReceived decimal.Decimal `json:"cash_received"`
	Note         string          `json:"note"`
}

type settlementResponse struct {
	ID                   int64           `json:"id,omitempty"`
	RiderID              int64           `json:"rider_id"`
	HubID                int64           `json:"hub_id"`
	PeriodStart          time.Time       `json:"period_start"`
	PeriodEnd            time.Time       `json:"period_end"`
	TotalCollectedAmount decimal.Decimal `json:"total_collected_amount"`
	PreviousDueAmount    decimal.Decimal `json:"previous_due_amount"`
	TotalDueToHub        decimal.Decimal `json:"total_due_to_hub"`
	CashReceived         decimal.Decimal `json:"cash_received"`
	DiscrepancyAmount    decimal.Decimal `json:"discrepancy_amount"`
	NewDueAmount         decimal.Decimal `json:"new_due_amount"`
	Status               string          `json:"settlement_status"`
	Counts               countsDTO       `json:"counts"`
	Note                 string          `json:"note,omitempty"`
	SettledBy            int64           `json:"settled_by,omitempty"`
	SettledAt            time.Time       `json:"settled_at"`
	Review               reviewResponse  `json:"review"`
}

type totalsDTO struct {
	Parcels         int             `json:"parcels"`
	Counts          countsDTO       `json:"counts"`
	CODAmount       decimal.Decimal `json:"cod_amount"`
	CODCollected    decimal.Decimal `json:"cod_collected"`
	DeliveryCharges decimal.Decimal `json:"delivery_charges"`
	ReturnCharges   decimal.Decimal `json:"return_charges"`
	Payable         decimal.Decimal `json:"payable"`
}

type clearanceResponse struct {
	MerchantID int64     `json:"merchant_id"`
	Totals     totalsDTO `json:"totals"`
}

type generateInvoicesRequest struct {
	MerchantID *int64 `json:"merchant_id"`
}

type markPaidRequest struct {
	Method    string `json:"payment_method"`
	Reference string `json:"payment_reference"`
}

type invoiceResponse struct {
	ID               int64      `json:"id"`
	InvoiceNumber    string     `json:"invoice_number"`
	MerchantID       int64      `json:"merchant_id"`
	Totals           totalsDTO  `json:"totals"`
	Status           string     `json:"status"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PaidBy           *int64     `json:"paid_by,omitempty"`
	CreatedBy        int64      `json:"created_by"`
	ParcelIDs        []int64    `json:"parcel_ids"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type paidResponse struct {
	Invoice      invoiceResponse       `json:"invoice"`
	Transactions []transactionResponse `json:"transactions"`
	Balance      financeResponse       `json:"balance"`
}

type financeResponse struct {
	MerchantID           int64           `json:"merchant_id"`
	CurrentBalance       decimal.Decimal `json:"current_balance"`
	PendingBalance       decimal.Decimal `json:"pending_balance"`
	InvoicedBalance      decimal.Decimal `json:"invoiced_balance"`
	ProcessingBalance    decimal.Decimal `json:"processing_balance"`
	HoldAmount           decimal.Decimal `json:"hold_amount"`
	AvailableBalance     decimal.Decimal `json:"available_balance"`
	TotalEarned          decimal.Decimal `json:"total_earned"`
	TotalWithdrawn       decimal.Decimal `json:"total_withdrawn"`
	TotalDeliveryCharges decimal.Decimal `json:"total_delivery_charges"`
	TotalReturnCharges   decimal.Decimal `json:"total_return_charges"`
	TotalCODCollected    decimal.Decimal `json:"total_cod_collected"`
	ParcelsDelivered     int64           `json:"parcels_delivered"`
	ParcelsReturned      int64           `json:"parcels_returned"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type adjustmentRequest struct {
	ReferenceType string          `json:"reference_type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

type adjustmentResponse struct {
	Finance      financeResponse       `json:"finance"`
	Transactions []transactionResponse `json:"transactions"`
}

type holdRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type mismatchResponse struct {
	TransactionID int64           `json:"transaction_id"`
	Field         string          `json:"field"`
	Expected      decimal.Decimal `json:"expected"`
	Found         decimal.Decimal `json:"found"`
}

type ledgerReportResponse struct {
	MerchantID      int64              `json:"merchant_id"`
	Rows            int                `json:"rows"`
	ReplayedBalance decimal.Decimal    `json:"replayed_balance"`
	StoredBalance   decimal.Decimal    `json:"stored_balance"`
	Consistent      bool               `json:"consistent"`
	Mismatches      []mismatchResponse `json:"mismatches"`
}
