package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"parcelhub/internal/http/handlers"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHandlers_Ping(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	handlers.New(nil, nil).Ping(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}

func TestHandlers_Healthcheck(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		db   handlers.Pinger
		want int
	}{
		{name: "no store", want: http.StatusNoContent},
		{name: "store up", db: pingerFunc(func(context.Context) error { return nil }), want: http.StatusNoContent},
		{name: "store down", db: pingerFunc(func(context.Context) error { return errors.New("conn refused") }), want: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rr := httptest.NewRecorder()
			handlers.New(testLogger(), tc.db).HealthcheckHead(rr, httptest.NewRequest(http.MethodHead, "/healthcheck", nil))
			require.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestHandlers_NotFound(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	handlers.New(testLogger(), nil).NotFound(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error":"route not found","kind":"validation"}`, rr.Body.String())
}
