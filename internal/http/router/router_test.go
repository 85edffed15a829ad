package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"parcelhub/internal/domain"
	"parcelhub/internal/http/handlers"
	"parcelhub/internal/http/router"
	"parcelhub/internal/logx"
	"parcelhub/internal/metrics"
	"parcelhub/internal/service/invoice"
	"parcelhub/internal/service/ledger"
	"parcelhub/internal/service/parcel"
	"parcelhub/internal/service/settlement"
	"parcelhub/internal/service/transfer"
	"parcelhub/internal/testutil/memstore"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

// newRouterWithStore mounts the real services over an in-memory store.
func newRouterWithStore(t *testing.T) (http.Handler, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	logger := logx.Nop()
	poster := ledger.NewPoster(metrics.NewLedger(), logger)
	parcels := parcel.NewService(store, poster, nil, nil, time.Second, logger)

	h := router.New(router.Deps{
		Logger:      logger,
		Metrics:     promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
		Base:        handlers.New(logger, okPinger{}),
		Parcels:     handlers.NewParcelHandler(logger, parcels),
		Transfers:   handlers.NewTransferHandler(logger, transfer.NewService(parcels, store, time.Second, logger)),
		Settlements: handlers.NewSettlementHandler(logger, settlement.NewService(store, time.Second, logger)),
		Invoices:    handlers.NewInvoiceHandler(logger, invoice.NewService(store, poster, nil, time.Second, logger)),
		Ledger:      handlers.NewLedgerHandler(logger, ledger.NewService(store, poster, time.Second, logger)),
	})
	return h, store
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	h, _ := newRouterWithStore(t)
	return h
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Ping(t *testing.T) {
	t.Parallel()

	rr := do(newRouter(t), httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}

func TestRouter_HealthcheckAndMetrics(t *testing.T) {
	t.Parallel()

	h := newRouter(t)
	require.Equal(t, http.StatusNoContent, do(h, httptest.NewRequest(http.MethodHead, "/healthcheck", nil)).Code)
	require.Equal(t, http.StatusOK, do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	t.Parallel()

	rr := do(newRouter(t), httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "route not found")
}

func TestRouter_DomainRoutesRequireIdentity(t *testing.T) {
	t.Parallel()

	h := newRouter(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/parcels/1"},
		{http.MethodPost, "/parcels/1/dispatch"},
		{http.MethodGet, "/remittances"},
		{http.MethodGet, "/riders/1/settlements"},
		{http.MethodPost, "/invoices/generate"},
		{http.MethodGet, "/merchants/1/finance"},
	} {
		rr := do(h, httptest.NewRequest(tc.method, tc.path, nil))
		require.Equalf(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/parcels", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Role")

	rr := do(newRouter(t), req)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRouter_ParcelRoutesReachService(t *testing.T) {
	t.Parallel()

	h, store := newRouterWithStore(t)
	id := store.SeedParcel(domain.Parcel{
		TrackingNumber: domain.NewTrackingNumber(),
		MerchantID:     7,
		CurrentHubID:   domain.Int64Ptr(10),
		DeliveryCharge: decimal.RequireFromString("60"),
		TotalCharge:    decimal.RequireFromString("60"),
		Status:         domain.StatusInHub,
		PaymentStatus:  domain.PaymentUnpaid,
	})
	hub := func(req *http.Request) *http.Request {
		req.Header.Set("X-User-ID", "100")
		req.Header.Set("X-Role", "HUB_MANAGER")
		req.Header.Set("X-Hub-ID", "10")
		return req
	}
	path := "/parcels/" + strconv.FormatInt(id, 10)

	rr := do(h, hub(httptest.NewRequest(http.MethodGet, path, nil)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"IN_HUB"`)

	rr = do(h, hub(httptest.NewRequest(http.MethodPost, path+"/third-party", strings.NewReader(`{"provider":"fastship"}`))))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(h, hub(httptest.NewRequest(http.MethodPost, path+"/dispatch", nil)))
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"kind":"state_conflict"`)

	p, _ := store.Parcel(id)
	require.Equal(t, domain.StatusAssignedToThirdParty, p.Status)
}
