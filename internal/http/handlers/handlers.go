package handlers

import (
	"context"
	"net/http"
	"time"

	"parcelhub/internal/logx"
)

const healthPingTimeout = time.Second

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers serves the process-level endpoints.
type Handlers struct {
	logger logx.Logger
	db     Pinger
}

// New creates the base handlers. A nil db makes the healthcheck always pass.
func New(logger logx.Logger, db Pinger) *Handlers {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Handlers{logger: logger, db: db}
}

// Ping handles GET /ping.
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.logger, w, r, http.StatusOK, map[string]string{"message": "pong"})
}

// HealthcheckHead handles HEAD /healthcheck: 204 when Postgres answers, 503 otherwise.
func (h *Handlers) HealthcheckHead(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("healthcheck failed", logx.String("req_id", reqID(r.Context())), logx.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// NotFound returns a JSON 404 for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(h.logger, w, r, http.StatusNotFound, "route not found")
}
