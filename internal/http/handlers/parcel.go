package handlers

import (
	"context"
	"net/http"
	"strings"

	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
)

// ParcelHandler serves the parcel lifecycle.
type ParcelHandler struct {
	logger logx.Logger
	uc     ParcelUsecase
}

// NewParcelHandler wires a ParcelUsecase into HTTP handlers.
func NewParcelHandler(logger logx.Logger, uc ParcelUsecase) *ParcelHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &ParcelHandler{logger: logger, uc: uc}
}

// Create handles POST /parcels.
func (h *ParcelHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	var req createParcelRequest
	if !decodeJSON(h.logger, w, r, &req) {
		return
	}
	p, err := h.uc.Create(r.Context(), scope, req.toDomain())
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, toParcelResponse(p))
}

// Get handles GET /parcels/{id}.
func (h *ParcelHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.uc.Get(r.Context(), id)
	if err == nil {
		err = canViewMerchant(scope, p.MerchantID)
	}
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toParcelResponse(p))
}

// History handles GET /parcels/{id}/history.
func (h *ParcelHandler) History(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(h.logger, w, r)
	if !ok {
		return
	}
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.uc.Get(r.Context(), id)
	if err == nil {
		err = canViewMerchant(scope, p.MerchantID)
	}
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	events, err := h.uc.History(r.Context(), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toEvents(events))
}

type transitionFunc func(ctx context.Context, scope domain.Scope, id int64) (domain.TransitionResult, error)

// transition runs a body-less transition on the parcel in the URL.
func (h *ParcelHandler) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOf(h.logger, w, r)
		if !ok {
			return
		}
		id, err := idFromURL(r, "id")
		if err != nil {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
			return
		}
		res, err := fn(r.Context(), scope, id)
		if err != nil {
			writeAppError(h.logger, w, r, err)
			return
		}
		writeJSON(h.logger, w, r, http.StatusOK, toTransitionResponse(res))
	}
}

// withBody decodes T and passes it to fn with the scope and parcel id.
func withBody[T any](logger logx.Logger, fn func(ctx context.Context, scope domain.Scope, id int64, body T) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOf(logger, w, r)
		if !ok {
			return
		}
		id, err := idFromURL(r, "id")
		if err != nil {
			writeError(logger, w, r, http.StatusBadRequest, "invalid id")
			return
		}
		var body T
		if !decodeOptionalJSON(logger, w, r, &body) {
			return
		}
		out, err := fn(r.Context(), scope, id, body)
		if err != nil {
			writeAppError(logger, w, r, err)
			return
		}
		writeJSON(logger, w, r, http.StatusOK, out)
	}
}

// DispatchPickup handles POST /parcels/{id}/pickup/dispatch.
func (h *ParcelHandler) DispatchPickup() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req riderRequest) (any, error) {
		res, err := h.uc.DispatchPickup(ctx, scope, id, req.RiderID)
		return toTransitionResponse(res), err
	})
}

// ConfirmPickup handles POST /parcels/{id}/pickup/confirm.
func (h *ParcelHandler) ConfirmPickup() http.HandlerFunc { return h.transition(h.uc.ConfirmPickup) }

// ReceiveAtHub handles POST /parcels/{id}/receive.
func (h *ParcelHandler) ReceiveAtHub() http.HandlerFunc { return h.transition(h.uc.ReceiveAtHub) }

// AssignRider handles POST /parcels/{id}/assign.
func (h *ParcelHandler) AssignRider() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req riderRequest) (any, error) {
		res, err := h.uc.AssignRider(ctx, scope, id, req.RiderID)
		return toTransitionResponse(res), err
	})
}

// Dispatch handles POST /parcels/{id}/dispatch.
func (h *ParcelHandler) Dispatch() http.HandlerFunc { return h.transition(h.uc.Dispatch) }

// PrepareRedelivery handles POST /parcels/{id}/redeliver.
func (h *ParcelHandler) PrepareRedelivery() http.HandlerFunc {
	return h.transition(h.uc.PrepareRedelivery)
}

// ReceiveFailed handles POST /parcels/{id}/receive-failed.
func (h *ParcelHandler) ReceiveFailed() http.HandlerFunc { return h.transition(h.uc.ReceiveFailed) }

// HandToThirdParty handles POST /parcels/{id}/third-party.
func (h *ParcelHandler) HandToThirdParty() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req providerRequest) (any, error) {
		res, err := h.uc.HandToThirdParty(ctx, scope, id, strings.TrimSpace(req.Provider))
		return toTransitionResponse(res), err
	})
}

// Cancel handles POST /parcels/{id}/cancel.
func (h *ParcelHandler) Cancel() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req reasonRequest) (any, error) {
		res, err := h.uc.Cancel(ctx, scope, id, strings.TrimSpace(req.Reason))
		return toTransitionResponse(res), err
	})
}

// RecordOutcome handles POST /parcels/{id}/outcome, a rider reporting the
// delivery result directly instead of through the verification stream.
func (h *ParcelHandler) RecordOutcome() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req outcomeRequest) (any, error) {
		res, err := h.uc.ApplyOutcome(ctx, scope, domain.VerificationResult{
			ParcelID:          id,
			RiderID:           scope.RiderID,
			SelectedStatus:    domain.ParcelStatus(strings.ToUpper(strings.TrimSpace(req.SelectedStatus))),
			CollectedAmount:   req.CollectedAmount,
			ExpectedCODAmount: req.ExpectedCODAmount,
		})
		return toTransitionResponse(res), err
	})
}

// SpawnReturn handles POST /parcels/{id}/return.
func (h *ParcelHandler) SpawnReturn() http.HandlerFunc {
	return withBody(h.logger, func(ctx context.Context, scope domain.Scope, id int64, req noteRequest) (any, error) {
		res, err := h.uc.SpawnReturn(ctx, scope, id, strings.TrimSpace(req.Note))
		return toReturnResponse(res), err
	})
}
