package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type (
	// PaymentStatus represents whether cash was collected from the customer.
	PaymentStatus string
	// FinancialStatus represents how far a parcel's money has been settled with the merchant.
	FinancialStatus string
)

// List of payment statuses
const (
	PaymentUnpaid        PaymentStatus = "UNPAID"
	PaymentCollected     PaymentStatus = "COLLECTED"
	PaymentNotApplicable PaymentStatus = "NOT_APPLICABLE"
)

// List of financial statuses
const (
	FinancialNone             FinancialStatus = "NONE"
	FinancialPendingClearance FinancialStatus = "PENDING_CLEARANCE"
	FinancialInvoiced         FinancialStatus = "INVOICED"
	FinancialPaid             FinancialStatus = "PAID"
)

// Customer is the recipient snapshot embedded in a parcel.
type Customer struct {
	ID      *int64
	Name    string
	Phone   string
	Address string
}

// Parcel is the unit of work moving through the network.
type Parcel struct {
	ID             int64
	TrackingNumber string

	MerchantID      int64
	StoreID         int64
	Customer        Customer
	AssignedRiderID *int64

	CurrentHubID     *int64
	OriginHubID      *int64
	DestinationHubID *int64
	InTransfer       bool
	PickupAreaID     *int64
	DeliveryAreaID   *int64

	ProductPrice       decimal.Decimal
	Weight             decimal.Decimal
	DeliveryCharge     decimal.Decimal
	WeightCharge       decimal.Decimal
	CODCharge          decimal.Decimal
	TotalCharge        decimal.Decimal
	ReturnCharge       decimal.Decimal
	IsCOD              bool
	CODAmount          decimal.Decimal
	CODCollectedAmount *decimal.Decimal

	Status          ParcelStatus
	PaymentStatus   PaymentStatus
	FinancialStatus FinancialStatus

	PickedUpAt               *time.Time
	AssignedAt               *time.Time
	OutForDeliveryAt         *time.Time
	DeliveredAt              *time.Time
	TransferredAt            *time.Time
	ReceivedAtDestinationHub *time.Time
	CancelledAt              *time.Time
	CancelReason             string
	ThirdPartyProvider       string
	DeliveryAttempts         int

	IsReturnParcel    bool
	OriginalParcelID  *int64
	ReturnInitiatedAt *time.Time

	PaidToMerchant    bool
	PaidToMerchantAt  *time.Time
	ClearanceRequired bool
	ClearanceDone     bool
	InvoiceID         *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewParcel carries the merchant-supplied fields of a parcel to create.
type NewParcel struct {
	MerchantID     int64
	StoreID        int64
	Customer       Customer
	PickupHubID    *int64
	PickupAreaID   *int64
	DeliveryAreaID *int64
	ProductPrice   decimal.Decimal
	Weight         decimal.Decimal
	DeliveryCharge decimal.Decimal
	WeightCharge   decimal.Decimal
	CODCharge      decimal.Decimal
	ReturnCharge   decimal.Decimal
	IsCOD          bool
	CODAmount      decimal.Decimal
}

// ComputeTotalCharge returns the operator charge for delivering a parcel.
func ComputeTotalCharge(delivery, weight, cod decimal.Decimal) decimal.Decimal {
	return delivery.Add(weight).Add(cod)
}

// CollectedOrExpected returns the frozen collected amount, falling back to the expected COD amount.
func (p *Parcel) CollectedOrExpected() decimal.Decimal {
	if p.CODCollectedAmount != nil {
		return *p.CODCollectedAmount
	}
	if p.IsCOD {
		return p.CODAmount
	}
	return decimal.Zero
}

// Clone returns a deep copy of the parcel.
func (p Parcel) Clone() Parcel {
	cp := p
	cp.Customer.ID = cloneInt64(p.Customer.ID)
	cp.AssignedRiderID = cloneInt64(p.AssignedRiderID)
	cp.CurrentHubID = cloneInt64(p.CurrentHubID)
	cp.OriginHubID = cloneInt64(p.OriginHubID)
	cp.DestinationHubID = cloneInt64(p.DestinationHubID)
	cp.PickupAreaID = cloneInt64(p.PickupAreaID)
	cp.DeliveryAreaID = cloneInt64(p.DeliveryAreaID)
	cp.OriginalParcelID = cloneInt64(p.OriginalParcelID)
	cp.InvoiceID = cloneInt64(p.InvoiceID)
	if p.CODCollectedAmount != nil {
		v := *p.CODCollectedAmount
		cp.CODCollectedAmount = &v
	}
	cp.PickedUpAt = cloneTime(p.PickedUpAt)
	cp.AssignedAt = cloneTime(p.AssignedAt)
	cp.OutForDeliveryAt = cloneTime(p.OutForDeliveryAt)
	cp.DeliveredAt = cloneTime(p.DeliveredAt)
	cp.TransferredAt = cloneTime(p.TransferredAt)
	cp.ReceivedAtDestinationHub = cloneTime(p.ReceivedAtDestinationHub)
	cp.CancelledAt = cloneTime(p.CancelledAt)
	cp.ReturnInitiatedAt = cloneTime(p.ReturnInitiatedAt)
	cp.PaidToMerchantAt = cloneTime(p.PaidToMerchantAt)
	return cp
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// NewTrackingNumber returns a human-facing unique tracking number.
func NewTrackingNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "PH" + id[:12]
}

// ParcelEvent is one row of a parcel's status history.
type ParcelEvent struct {
	ID             int64
	ParcelID       int64
	TrackingNumber string
	MerchantID     int64
	FromStatus     ParcelStatus
	ToStatus       ParcelStatus
	ActorID        int64
	ActorRole      Role
	HubID          *int64
	Note           string
	CreatedAt      time.Time
}

// VerificationResult is the output of the delivery verification flow and the
// only input trusted for terminal delivery transitions.
type VerificationResult struct {
	ParcelID          int64
	RiderID           *int64
	SelectedStatus    ParcelStatus
	CollectedAmount   *decimal.Decimal
	ExpectedCODAmount *decimal.Decimal
	VerifiedAt        time.Time
}

// VerificationStatus is the state of a delivery verification record.
type VerificationStatus string

// List of verification statuses
const (
	VerificationCompleted VerificationStatus = "COMPLETED"
)

// DeliveryVerification is the persisted record of a trusted delivery outcome.
type DeliveryVerification struct {
	ID                  int64
	ParcelID            int64
	RiderID             int64
	SelectedStatus      ParcelStatus
	CollectedAmount     decimal.Decimal
	ExpectedCODAmount   decimal.Decimal
	Status              VerificationStatus
	// DeliveryCompletedAt is when the outcome was committed; settlement periods
	// are cut on it. VerifiedAt is the verifier's own clock and may lag.
	DeliveryCompletedAt time.Time
	VerifiedAt          *time.Time
}

// Rider is a delivery rider attached to a hub.
type Rider struct {
	ID        int64
	HubID     int64
	Name      string
	Phone     string
	CreatedAt time.Time
}

// TransitionResult describes a committed parcel mutation.
type TransitionResult struct {
	Parcel       Parcel
	From         ParcelStatus
	To           ParcelStatus
	Transactions []LedgerTransaction
	Balance      *decimal.Decimal
}
