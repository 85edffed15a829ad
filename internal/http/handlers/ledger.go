package handlers

import (
	"context"
	"net/http"
	"strings"

	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/service/ledger"
)

// LedgerHandler serves merchant finance, the ledger and admin corrections.
type LedgerHandler struct {
	logger logx.Logger
	uc     LedgerUsecase
}

// NewLedgerHandler wires a LedgerUsecase into HTTP handlers.
func NewLedgerHandler(logger logx.Logger, uc LedgerUsecase) *LedgerHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &LedgerHandler{logger: logger, uc: uc}
}

// merchantRead resolves the merchant in the URL and checks the caller may see its finance.
func (h *LedgerHandler) merchantRead(w http.ResponseWriter, r *http.Request) (int64, bool) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return 0, false
	}
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	if err := canViewFinance(scope, id); err != nil {
		writeAppError(h.logger, w, r, err)
		return 0, false
	}
	return id, true
}

// Finance handles GET /merchants/{id}/finance.
func (h *LedgerHandler) Finance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.merchantRead(w, r)
	if !ok {
		return
	}
	f, err := h.uc.Finance(r.Context(), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toFinanceResponse(f))
}

// Transactions handles GET /merchants/{id}/transactions.
func (h *LedgerHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.merchantRead(w, r)
	if !ok {
		return
	}
	rows, err := h.uc.Transactions(r.Context(), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toTransactions(rows))
}

// Verify handles GET /merchants/{id}/ledger/verify.
func (h *LedgerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := h.merchantRead(w, r)
	if !ok {
		return
	}
	rep, err := h.uc.Verify(r.Context(), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toLedgerReport(rep))
}

// PostAdjustment handles POST /merchants/{id}/adjustments.
func (h *LedgerHandler) PostAdjustment() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req adjustmentRequest) (any, error) {
		res, err := h.uc.PostAdjustment(ctx, scope, ledger.Adjustment{
			MerchantID:    id,
			ReferenceType: domain.ReferenceType(strings.ToUpper(strings.TrimSpace(req.ReferenceType))),
			Amount:        req.Amount,
			Description:   strings.TrimSpace(req.Description),
		})
		return toAdjustmentResponse(res), err
	})
}

// SetHold handles PUT /merchants/{id}/hold.
func (h *LedgerHandler) SetHold() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req holdRequest) (any, error) {
		f, err := h.uc.SetHold(ctx, scope, id, req.Amount)
		return toFinanceResponse(f), err
	})
}
