package handlers

import (
	"context"
	"net/http"
	"strings"

	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
)

// InvoiceHandler serves clearance and merchant invoices.
type InvoiceHandler struct {
	logger logx.Logger
	uc     InvoiceUsecase
}

// NewInvoiceHandler wires an InvoiceUsecase into HTTP handlers.
func NewInvoiceHandler(logger logx.Logger, uc InvoiceUsecase) *InvoiceHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &InvoiceHandler{logger: logger, uc: uc}
}

// Clearance handles GET /invoices/clearance?merchant_id=.
func (h *InvoiceHandler) Clearance(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	merchantID, err := optionalIDFromQuery(r, "merchant_id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.uc.ClearanceList(r.Context(), scope, merchantID)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toClearance(items))
}

// Generate handles POST /invoices/generate.
func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	var req generateInvoicesRequest
	if !decodeOptionalJSON(h.logger, w, r, &req) {
		return
	}
	if req.MerchantID != nil && *req.MerchantID <= 0 {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid merchant_id")
		return
	}
	list, err := h.uc.Generate(r.Context(), scope, req.MerchantID)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, toInvoices(list))
}

// List handles GET /invoices?merchant_id=.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	merchantID, err := optionalIDFromQuery(r, "merchant_id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.uc.List(r.Context(), scope, merchantID)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toInvoices(list))
}

// Get handles GET /invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	inv, err := h.uc.Get(r.Context(), scope, id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toInvoiceResponse(inv))
}

// MarkProcessing handles POST /invoices/{id}/processing.
func (h *InvoiceHandler) MarkProcessing() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, _ struct{}) (any, error) {
		inv, err := h.uc.MarkProcessing(ctx, scope, id)
		return toInvoiceResponse(inv), err
	})
}

// MarkPaid handles POST /invoices/{id}/pay.
func (h *InvoiceHandler) MarkPaid() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req markPaidRequest) (any, error) {
		res, err := h.uc.MarkPaid(ctx, scope, id, domain.PaymentInfo{
			Method:    strings.TrimSpace(req.Method),
			Reference: strings.TrimSpace(req.Reference),
		})
		return toPaidResponse(res), err
	})
}
