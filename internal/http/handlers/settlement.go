package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
)

// SettlementHandler serves rider cash settlements.
type SettlementHandler struct {
	logger logx.Logger
	uc     SettlementUsecase
}

// NewSettlementHandler wires a SettlementUsecase into HTTP handlers.
func NewSettlementHandler(logger logx.Logger, uc SettlementUsecase) *SettlementHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &SettlementHandler{logger: logger, uc: uc}
}

// Preview handles GET /riders/{id}/settlement/preview?cash_received=.
func (h *SettlementHandler) Preview(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	riderID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	cash := decimal.Zero
	if s := r.URL.Query().Get("cash_received"); s != "" {
		cash, err = decimal.NewFromString(s)
		if err != nil {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid cash_received")
			return
		}
	}
	s, err := h.uc.Preview(r.Context(), scope, riderID, cash)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toSettlementResponse(s))
}

// Record handles POST /riders/{id}/settlements.
func (h *SettlementHandler) Record(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	riderID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req recordSettlementRequest
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	s, err := h.uc.Record(r.Context(), scope, riderID, req.CashReceived, strings.TrimSpace(req.Note))
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, toSettlementResponse(s))
}

// List handles GET /riders/{id}/settlements.
func (h *SettlementHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	riderID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	list, err := h.uc.List(r.Context(), scope, riderID)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toSettlements(list))
}

// Approve handles POST /settlements/{id}/approve.
func (h *SettlementHandler) Approve() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, _ struct{}) (any, error) {
		s, err := h.uc.Approve(ctx, scope, id)
		return toSettlementResponse(s), err
	})
}

// Reject handles POST /settlements/{id}/reject.
func (h *SettlementHandler) Reject() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req reasonRequest) (any, error) {
		s, err := h.uc.Reject(ctx, scope, id, strings.TrimSpace(req.Reason))
		return toSettlementResponse(s), err
	})
}
