package handlers

import (
	"strings"

	"parcelhub/internal/domain"
	"parcelhub/internal/service/invoice"
	"parcelhub/internal/service/ledger"
	"parcelhub/internal/service/parcel"
)

func (r createParcelRequest) toDomain() domain.NewParcel {
	in := domain.NewParcel{
		MerchantID: r.MerchantID,
		StoreID:    r.StoreID,
		Customer: domain.Customer{
			ID:      r.Customer.ID,
			Name:    strings.TrimSpace(r.Customer.Name),
			Phone:   strings.TrimSpace(r.Customer.Phone),
			Address: strings.TrimSpace(r.Customer.Address),
		},
		PickupHubID:    r.PickupHubID,
		PickupAreaID:   r.PickupAreaID,
		DeliveryAreaID: r.DeliveryAreaID,
		ProductPrice:   r.ProductPrice,
		Weight:         r.Weight,
		DeliveryCharge: r.DeliveryCharge,
		WeightCharge:   r.WeightCharge,
		CODCharge:      r.CODCharge,
		ReturnCharge:   r.ReturnCharge,
		IsCOD:          r.IsCOD,
	}
	if r.CODAmount != nil {
		in.CODAmount = *r.CODAmount
	}
	return in
}

func toParcelResponse(p domain.Parcel) parcelResponse {
	return parcelResponse{
		ID:             p.ID,
		TrackingNumber: p.TrackingNumber,
		MerchantID:     p.MerchantID,
		StoreID:        p.StoreID,
		Customer: customerDTO{
			ID:      p.Customer.ID,
			Name:    p.Customer.Name,
			Phone:   p.Customer.Phone,
			Address: p.Customer.Address,
		},
		AssignedRiderID:    p.AssignedRiderID,
		CurrentHubID:       p.CurrentHubID,
		OriginHubID:        p.OriginHubID,
		DestinationHubID:   p.DestinationHubID,
		InTransfer:         p.InTransfer,
		ProductPrice:       p.ProductPrice,
		TotalCharge:        p.TotalCharge,
		ReturnCharge:       p.ReturnCharge,
		IsCOD:              p.IsCOD,
		CODAmount:          p.CODAmount,
		CODCollectedAmount: p.CODCollectedAmount,
		Status:             string(p.Status),
		PaymentStatus:      string(p.PaymentStatus),
		FinancialStatus:    string(p.FinancialStatus),
		DeliveryAttempts:   p.DeliveryAttempts,
		ThirdPartyProvider: p.ThirdPartyProvider,
		CancelReason:       p.CancelReason,
		IsReturnParcel:     p.IsReturnParcel,
		OriginalParcelID:   p.OriginalParcelID,
		ReturnInitiatedAt:  p.ReturnInitiatedAt,
		PaidToMerchant:     p.PaidToMerchant,
		ClearanceRequired:  p.ClearanceRequired,
		ClearanceDone:      p.ClearanceDone,
		InvoiceID:          p.InvoiceID,
		DeliveredAt:        p.DeliveredAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func toTransactions(rows []domain.LedgerTransaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(rows))
	for _, t := range rows {
		out = append(out, transactionResponse{
			ID:            t.ID,
			MerchantID:    t.MerchantID,
			Type:          string(t.Type),
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			ReferenceType: string(t.ReferenceType),
			ReferenceID:   t.ReferenceID,
			ReferenceCode: t.ReferenceCode,
			Description:   t.Description,
			CreatedBy:     t.CreatedBy,
			CreatedAt:     t.CreatedAt,
		})
	}
	return out
}

func toTransitionResponse(res domain.TransitionResult) transitionResponse {
	return transitionResponse{
		Parcel:       toParcelResponse(res.Parcel),
		From:         string(res.From),
		To:           string(res.To),
		Transactions: toTransactions(res.Transactions),
		Balance:      res.Balance,
	}
}

func toReturnResponse(res parcel.ReturnResult) returnResponse {
	return returnResponse{Original: toParcelResponse(res.Original), Return: toParcelResponse(res.Return)}
}

func toEvents(events []domain.ParcelEvent) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:         e.ID,
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			ActorID:    e.ActorID,
			ActorRole:  string(e.ActorRole),
			HubID:      e.HubID,
			Note:       e.Note,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

func (p proofDTO) toDomain() domain.Proof {
	return domain.Proof{URL: strings.TrimSpace(p.URL), SizeBytes: p.SizeBytes, ContentType: p.ContentType}
}

func (r updateRemittanceRequest) toDomain() domain.RemittanceUpdate {
	u := domain.RemittanceUpdate{Amount: r.Amount, Note: r.Note}
	if r.Proof != nil {
		p := r.Proof.toDomain()
		u.Proof = &p
	}
	return u
}

func toReview(rv domain.Review) reviewResponse {
	return reviewResponse{
		Status:     string(rv.Status),
		ReviewedBy: rv.ReviewedBy,
		ReviewedAt: rv.ReviewedAt,
		Reason:     rv.Reason,
	}
}

func toRemittanceResponse(rec domain.HubTransferRecord) remittanceResponse {
	return remittanceResponse{
		ID:             rec.ID,
		HubID:          rec.HubID,
		CreatedBy:      rec.CreatedBy,
		Amount:         rec.Amount,
		ExpectedAmount: rec.ExpectedAmount,
		Discrepancy:    rec.Discrepancy(),
		Proof: proofDTO{
			URL:         rec.Proof.URL,
			SizeBytes:   rec.Proof.SizeBytes,
			ContentType: rec.Proof.ContentType,
		},
		Note:      rec.Note,
		Review:    toReview(rec.Review),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func toRemittances(recs []domain.HubTransferRecord) []remittanceResponse {
	out := make([]remittanceResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRemittanceResponse(rec))
	}
	return out
}

func toCounts(c domain.OutcomeCounts) countsDTO {
	return countsDTO{
		Delivered:  c.Delivered,
		Partial:    c.Partial,
		Exchange:   c.Exchange,
		PaidReturn: c.PaidReturn,
		Returned:   c.Returned,
	}
}

func toSettlementResponse(s domain.RiderSettlement) settlementResponse {
	return settlementResponse{
		ID:                   s.ID,
		RiderID:              s.RiderID,
		HubID:                s.HubID,
		PeriodStart:          s.PeriodStart,
		PeriodEnd:            s.PeriodEnd,
		TotalCollectedAmount: s.TotalCollectedAmount,
		PreviousDueAmount:    s.PreviousDueAmount,
		TotalDueToHub:        s.TotalDueToHub,
		CashReceived:         s.CashReceived,
		DiscrepancyAmount:    s.DiscrepancyAmount,
		NewDueAmount:         s.NewDueAmount,
		Status:               string(s.Status),
		Counts:               toCounts(s.Counts),
		Note:                 s.Note,
		SettledBy:            s.SettledBy,
		SettledAt:            s.SettledAt,
		Review:               toReview(s.Review),
	}
}

func toSettlements(list []domain.RiderSettlement) []settlementResponse {
	out := make([]settlementResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSettlementResponse(s))
	}
	return out
}

func toTotals(t domain.Totals) totalsDTO {
	return totalsDTO{
		Parcels:         t.Parcels,
		Counts:          toCounts(t.Counts),
		CODAmount:       t.CODAmount,
		CODCollected:    t.CODCollected,
		DeliveryCharges: t.DeliveryCharges,
		ReturnCharges:   t.ReturnCharges,
		Payable:         t.Payable,
	}
}

func toClearance(items []domain.ClearanceItem) []clearanceResponse {
	out := make([]clearanceResponse, 0, len(items))
	for _, it := range items {
		out = append(out, clearanceResponse{MerchantID: it.MerchantID, Totals: toTotals(it.Totals)})
	}
	return out
}

func toInvoiceResponse(inv domain.MerchantInvoice) invoiceResponse {
	ids := inv.ParcelIDs
	if ids == nil {
		ids = []int64{}
	}
	return invoiceResponse{
		ID:               inv.ID,
		InvoiceNumber:    inv.InvoiceNumber,
		MerchantID:       inv.MerchantID,
		Totals:           toTotals(inv.Totals),
		Status:           string(inv.Status),
		PaymentMethod:    inv.Payment.Method,
		PaymentReference: inv.Payment.Reference,
		PaidAt:           inv.PaidAt,
		PaidBy:           inv.PaidBy,
		CreatedBy:        inv.CreatedBy,
		ParcelIDs:        ids,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}

func toInvoices(list []domain.MerchantInvoice) []invoiceResponse {
	out := make([]invoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceResponse(inv))
	}
	return out
}

func toPaidResponse(res invoice.PaidResult) paidResponse {
	return paidResponse{
		Invoice:      toInvoiceResponse(res.Invoice),
		Transactions: toTransactions(res.Transactions),
		Balance:      toFinanceResponse(res.Balance),
	}
}

func toFinanceResponse(f domain.MerchantFinance) financeResponse {
	return financeResponse{
		MerchantID:           f.MerchantID,
		CurrentBalance:       f.CurrentBalance,
		PendingBalance:       f.PendingBalance,
		InvoicedBalance:      f.InvoicedBalance,
		ProcessingBalance:    f.ProcessingBalance,
		HoldAmount:           f.HoldAmount,
		AvailableBalance:     f.Available(),
		TotalEarned:          f.TotalEarned,
		TotalWithdrawn:       f.TotalWithdrawn,
		TotalDeliveryCharges: f.TotalDeliveryCharges,
		TotalReturnCharges:   f.TotalReturnCharges,
		TotalCODCollected:    f.TotalCODCollected,
		ParcelsDelivered:     f.ParcelsDelivered,
		ParcelsReturned:      f.ParcelsReturned,
		UpdatedAt:            f.UpdatedAt,
	}
}

func toAdjustmentResponse(res ledger.Result) adjustmentResponse {
	return adjustmentResponse{
		Finance:      toFinanceResponse(res.Finance),
		Transactions: toTransactions(res.Transactions),
	}
}

func toLedgerReport(rep domain.LedgerReport) ledgerReportResponse {
	out := ledgerReportResponse{
		MerchantID:      rep.MerchantID,
		Rows:            rep.Rows,
		ReplayedBalance: rep.ReplayedBalance,
		StoredBalance:   rep.StoredBalance,
		Consistent:      rep.Consistent,
		Mismatches:      make([]mismatchResponse, 0, len(rep.Mismatches)),
	}
	for _, m := range rep.Mismatches {
		out.Mismatches = append(out.Mismatches, mismatchResponse{
			TransactionID: m.TransactionID,
			Field:         m.Field,
			Expected:      m.Expected,
			Found:         m.Found,
		})
	}
	return out
}
