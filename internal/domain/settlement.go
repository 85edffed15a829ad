package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReviewStatus is the single-shot approval state shared by settlements and remittances.
type ReviewStatus string

// List of review statuses
const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
)

// Review holds the immutable audit fields written once a record leaves PENDING.
type Review struct {
	Status     ReviewStatus
	ReviewedBy *int64
	ReviewedAt *time.Time
	Reason     string
}

// Final reports whether the review has already been decided.
func (r Review) Final() bool { return r.Status != ReviewPending }

// ErrReasonRequired is returned when a rejection carries no reason.
var ErrReasonRequired = errors.New("rejection reason is required")

// Decide builds the final review of a record. Rejections need a reason.
func Decide(status ReviewStatus, by int64, at time.Time, reason string) (Review, error) {
	reason = strings.TrimSpace(reason)
	switch status {
	case ReviewApproved:
	case ReviewRejected:
		if reason == "" {
			return Review{}, ErrReasonRequired
		}
	default:
		return Review{}, fmt.Errorf("review status %q is not a decision", status)
	}
	reviewer := by
	return Review{Status: status, ReviewedBy: &reviewer, ReviewedAt: &at, Reason: reason}, nil
}

// SettlementStatus is the cash outcome of a rider settlement.
type SettlementStatus string

// List of settlement statuses
const (
	SettlementPending   SettlementStatus = "PENDING"
	SettlementPartial   SettlementStatus = "PARTIAL"
	SettlementCompleted SettlementStatus = "COMPLETED"
)

// OutcomeCounts is the per-outcome breakdown of verified deliveries.
type OutcomeCounts struct {
	Delivered  int
	Partial    int
	Exchange   int
	PaidReturn int
	Returned   int
}

// Add counts one verified outcome.
func (c *OutcomeCounts) Add(s ParcelStatus) {
	switch s {
	case StatusDelivered:
		c.Delivered++
	case StatusPartialDelivery:
		c.Partial++
	case StatusExchange:
		c.Exchange++
	case StatusPaidReturn:
		c.PaidReturn++
	case StatusReturned:
		c.Returned++
	}
}

// Total returns the number of counted outcomes.
func (c OutcomeCounts) Total() int {
	return c.Delivered + c.Partial + c.Exchange + c.PaidReturn + c.Returned
}

// RiderSettlement is an immutable record of cash handed over by a rider.
type RiderSettlement struct {
	ID                   int64
	RiderID              int64
	HubID                int64
	PeriodStart          time.Time
	PeriodEnd            time.Time
	TotalCollectedAmount decimal.Decimal
	PreviousDueAmount    decimal.Decimal
	TotalDueToHub        decimal.Decimal
	CashReceived         decimal.Decimal
	DiscrepancyAmount    decimal.Decimal
	NewDueAmount         decimal.Decimal
	Status               SettlementStatus
	Counts               OutcomeCounts
	Note                 string
	SettledBy            int64
	SettledAt            time.Time
	Review               Review
}

// SettlementInput is everything ComputeSettlement needs.
type SettlementInput struct {
	RiderID        int64
	HubID          int64
	RiderCreatedAt time.Time
	Last           *RiderSettlement
	Verifications  []DeliveryVerification
	CashReceived   decimal.Decimal
	Now            time.Time
}

// SettlementPeriodStart returns the start of the open settlement period.
func SettlementPeriodStart(last *RiderSettlement, riderCreatedAt time.Time) time.Time {
	if last != nil {
		return last.SettledAt
	}
	return riderCreatedAt
}

// ComputeSettlement aggregates completed verifications inside [start, now) and
// reconciles them against the cash handed over. Overpayment is not carried forward.
func ComputeSettlement(in SettlementInput) RiderSettlement {
	start := SettlementPeriodStart(in.Last, in.RiderCreatedAt)
	s := RiderSettlement{
		RiderID:      in.RiderID,
		HubID:        in.HubID,
		PeriodStart:  start,
		PeriodEnd:    in.Now,
		CashReceived: in.CashReceived,
		SettledAt:    in.Now,
		Review:       Review{Status: ReviewPending},
	}
	collected := decimal.Zero
	for _, v := range in.Verifications {
		if v.Status != VerificationCompleted {
			continue
		}
		if v.DeliveryCompletedAt.Before(start) || !v.DeliveryCompletedAt.Before(in.Now) {
			continue
		}
		collected = collected.Add(v.CollectedAmount)
		s.Counts.Add(v.SelectedStatus)
	}
	if in.Last != nil {
		s.PreviousDueAmount = in.Last.NewDueAmount
	}
	s.TotalCollectedAmount = collected
	s.TotalDueToHub = collected.Add(s.PreviousDueAmount)
	s.DiscrepancyAmount = in.CashReceived.Sub(s.TotalDueToHub)
	s.NewDueAmount = decimal.Max(s.TotalDueToHub.Sub(in.CashReceived), decimal.Zero)

	switch {
	case !s.NewDueAmount.IsPositive():
		s.Status = SettlementCompleted
	case in.CashReceived.IsPositive():
		s.Status = SettlementPartial
	default:
		s.Status = SettlementPending
	}
	return s
}
