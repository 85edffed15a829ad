package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"parcelhub/internal/testutil/testlog"
)

type stubLimiter struct {
	allow bool
	keys  []string
}

func (s *stubLimiter) Allow(key string) bool {
	s.keys = append(s.keys, key)
	return s.allow
}

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_AllowedRequestReachesNext(t *testing.T) {
	t.Parallel()

	calls := 0
	lim := &stubLimiter{allow: true}
	h := New(nil, nil, lim).Handler()(okHandler(&calls))

	r := httptest.NewRequest(http.MethodGet, "/parcels/1", nil)
	r.RemoteAddr = "1.2.3.4:5678"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, calls)
	require.Equal(t, []string{"ip:1.2.3.4"}, lim.keys)
}

func TestMiddleware_RejectedRequestIs429(t *testing.T) {
	t.Parallel()

	calls := 0
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "rate_limit_exceeded_total_test", Help: "test"})
	rec := testlog.New()
	h := New(rec.Logger(), counter, &stubLimiter{allow: false}).Handler()(okHandler(&calls))

	r := httptest.NewRequest(http.MethodPost, "/parcels/1/dispatch", nil)
	r.Header.Set(userHeader, "12")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Zero(t, calls)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Equal(t, "1", w.Header().Get("Retry-After"))
	require.JSONEq(t, rejection, w.Body.String())
	require.Equal(t, float64(1), testutil.ToFloat64(counter))

	entries := rec.Find("rate limit exceeded")
	require.Len(t, entries, 1)
	key, ok := entries[0].Field("key")
	require.True(t, ok)
	require.Equal(t, "user:12", key)
}

func TestMiddleware_NilLimiterAllowsEverything(t *testing.T) {
	t.Parallel()

	calls := 0
	h := New(nil, nil, nil).Handler()(okHandler(&calls))
	for i := 0; i < 5; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/invoices", nil))
	}
	require.Equal(t, 5, calls)
}

func TestMiddleware_KeyedLimiterIsolatesUsers(t *testing.T) {
	t.Parallel()

	lim := NewKeyedLimiter(newFakeClock(time.Unix(1000, 0)), Config{Rate: 1, Burst: 1})
	calls := 0
	h := New(nil, nil, lim).Handler()(okHandler(&calls))

	as := func(uid string) int {
		r := httptest.NewRequest(http.MethodGet, "/invoices", nil)
		r.Header.Set(userHeader, uid)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	require.Equal(t, http.StatusOK, as("1"))
	require.Equal(t, http.StatusTooManyRequests, as("1"))
	require.Equal(t, http.StatusOK, as("2"))
}
