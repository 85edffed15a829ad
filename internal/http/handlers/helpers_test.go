package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	mw "parcelhub/internal/http/middleware"
	"parcelhub/internal/logx"
)

func testLogger() logx.Logger { return logx.Nop() }

type errBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type reqOpt func(*http.Request)

func asRole(role string, ids map[string]string) reqOpt {
	return func(r *http.Request) {
		r.Header.Set(mw.HeaderUserID, "7")
		r.Header.Set(mw.HeaderRole, role)
		for k, v := range ids {
			r.Header.Set(k, v)
		}
	}
}

func asAdmin() reqOpt { return asRole("ADMIN", nil) }

func asHub(hub string) reqOpt {
	return asRole("HUB_MANAGER", map[string]string{mw.HeaderHubID: hub})
}

func asMerchant(merchant string) reqOpt {
	return asRole("MERCHANT", map[string]string{mw.HeaderMerchantID: merchant})
}

func asRider(rider string) reqOpt {
	return asRole("RIDER", map[string]string{mw.HeaderRiderID: rider})
}

// newRequest builds a request with the chi url params set as the router would.
func newRequest(method, target, body string, params map[string]string, opts ...reqOpt) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	for _, o := range opts {
		o(req)
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	require.Equal(t, status, rr.Code)
	body := decodeBody[errBody](t, rr)
	require.Equal(t, kind, body.Kind)
	require.NotEmpty(t, body.Error)
}
