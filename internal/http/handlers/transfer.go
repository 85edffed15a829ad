package handlers

import (
	"context"
	"net/http"
	"strings"

	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
	"parcelhub/internal/service/transfer"
)

// TransferHandler serves hub transfers, returns to merchant and hub remittances.
type TransferHandler struct {
	logger logx.Logger
	uc     TransferUsecase
}

// NewTransferHandler wires a TransferUsecase into HTTP handlers.
func NewTransferHandler(logger logx.Logger, uc TransferUsecase) *TransferHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &TransferHandler{logger: logger, uc: uc}
}

// Transfer handles POST /parcels/{id}/transfer.
func (h *TransferHandler) Transfer() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req transferRequest) (any, error) {
		res, err := h.uc.Transfer(ctx, scope, id, req.DestinationHubID)
		return toTransitionResponse(res), err
	})
}

// Accept handles POST /parcels/{id}/transfer/accept.
func (h *TransferHandler) Accept() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, _ struct{}) (any, error) {
		res, err := h.uc.Accept(ctx, scope, id)
		return toTransitionResponse(res), err
	})
}

// ReturnToMerchant handles POST /parcels/{id}/return-to-merchant.
func (h *TransferHandler) ReturnToMerchant() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req noteRequest) (any, error) {
		res, err := h.uc.ReturnToMerchant(ctx, scope, id, strings.TrimSpace(req.Note))
		return toReturnResponse(res), err
	})
}

// CreateRemittance handles POST /remittances.
func (h *TransferHandler) CreateRemittance(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	var req createRemittanceRequest
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	rec, err := h.uc.CreateRemittance(r.Context(), scope, transfer.NewRemittance{
		Amount: req.Amount,
		Proof:  req.Proof.toDomain(),
		Note:   strings.TrimSpace(req.Note),
	})
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, toRemittanceResponse(rec))
}

// ListRemittances handles GET /remittances.
func (h *TransferHandler) ListRemittances(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	list, err := h.uc.Remittances(r.Context(), scope)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toRemittances(list))
}

// UpdateRemittance handles PATCH /remittances/{id}.
func (h *TransferHandler) UpdateRemittance() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req updateRemittanceRequest) (any, error) {
		rec, err := h.uc.UpdateRemittance(ctx, scope, id, req.toDomain())
		return toRemittanceResponse(rec), err
	})
}

// DeleteRemittance handles DELETE /remittances/{id}.
func (h *TransferHandler) DeleteRemittance(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.uc.DeleteRemittance(r.Context(), scope, id); err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveRemittance handles POST /remittances/{id}/approve.
func (h *TransferHandler) ApproveRemittance() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, _ struct{}) (any, error) {
		rec, err := h.uc.ApproveRemittance(ctx, scope, id)
		return toRemittanceResponse(rec), err
	})
}

// RejectRemittance handles POST /remittances/{id}/reject.
func (h *TransferHandler) RejectRemittance() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req reasonRequest) (any, error) {
		rec, err := h.uc.RejectRemittance(ctx, scope, id, strings.TrimSpace(req.Reason))
		return toRemittanceResponse(rec), err
	})
}
