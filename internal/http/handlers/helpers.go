package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"parcelhub/internal/apperr"
	"parcelhub/internal/domain"
	mw "parcelhub/internal/http/middleware"
	"parcelhub/internal/logx"
)

func reqID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return "-"
}

func writeJSON(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil && logger != nil {
		logger.Error("json encode error",
			logx.String("req_id", reqID(r.Context())),
			logx.Err(err),
		)
	}
}

type errResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, msg string) {
	if logger != nil {
		logger.Warn("http error",
			logx.String("req_id", reqID(r.Context())),
			logx.Int("status", status),
			logx.String("msg", msg),
		)
	}
	writeJSON(logger, w, r, status, errResponse{Error: msg, Kind: string(apperr.KindValidation)})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindCustodyMismatch:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStateConflict:
		return http.StatusConflict
	case apperr.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError maps a service error to a response. The raw error is logged only.
func writeAppError(logger logx.Logger, w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)
	if logger != nil {
		log := logger.Warn
		if status >= http.StatusInternalServerError {
			log = logger.Error
		}
		log("request failed",
			logx.String("req_id", reqID(r.Context())),
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Int("status", status),
			logx.String("kind", string(kind)),
			logx.Err(err),
		)
	}
	writeJSON(logger, w, r, status, errResponse{Error: apperr.PublicMessage(err), Kind: string(kind)})
}

const (
	bodyLimit = 1 << 20
)

func decodeJSON[T any](logger logx.Logger, w http.ResponseWriter, r *http.Request, dst *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(logger, w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		writeError(logger, w, r, http.StatusBadRequest, "invalid json: trailing data")
		return false
	}
	return true
}

// decodeOptionalJSON accepts an empty body as the zero value of T.
func decodeOptionalJSON[T any](logger logx.Logger, w http.ResponseWriter, r *http.Request, dst *T) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return true
	}
	return decodeJSON(logger, w, r, dst)
}

func idFromURL(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func optionalIDFromQuery(r *http.Request, name string) (*int64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return nil, errors.New("invalid " + name)
	}
	return &v, nil
}

// scopeOf returns the scope stored by the scope middleware, or writes 401.
func scopeOf(logger logx.Logger, w http.ResponseWriter, r *http.Request) (domain.Scope, bool) {
	s, ok := mw.ScopeFrom(r.Context())
	if !ok {
		parsed, err := mw.ParseScope(r.Header)
		if err != nil {
			if logger != nil {
				logger.Warn("missing identity", logx.String("req_id", reqID(r.Context())), logx.Err(err))
			}
			writeJSON(logger, w, r, http.StatusUnauthorized, errResponse{Error: err.Error(), Kind: "unauthenticated"})
			return domain.Scope{}, false
		}
		s = parsed
	}
	return s, true
}

// canViewMerchant reports whether scope may read data owned by merchantID.
// Operational roles see every merchant; a merchant only sees itself.
func canViewMerchant(s domain.Scope, merchantID int64) error {
	if s.Role != domain.RoleMerchant {
		return nil
	}
	if !domain.SameID(s.MerchantID, &merchantID) {
		return apperr.Custodyf("merchant %d data is not visible to this merchant", merchantID)
	}
	return nil
}

// canViewFinance is stricter: ledger data is visible to admins and the owning merchant.
func canViewFinance(s domain.Scope, merchantID int64) error {
	if s.IsAdmin() {
		return nil
	}
	if s.Role == domain.RoleMerchant && domain.SameID(s.MerchantID, &merchantID) {
		return nil
	}
	return apperr.Custodyf("finance of merchant %d is not visible to this caller", merchantID)
}
