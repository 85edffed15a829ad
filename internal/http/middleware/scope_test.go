package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"parcelhub/internal/domain"
	"parcelhub/internal/testutil/testlog"
)

func identity(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestParseScope_Valid(t *testing.T) {
	t.Parallel()

	s, err := ParseScope(identity(
		HeaderUserID, "12",
		HeaderRole, " hub_manager ",
		HeaderHubID, "3",
	))
	require.NoError(t, err)
	require.Equal(t, int64(12), s.UserID)
	require.Equal(t, domain.RoleHubManager, s.Role)
	require.NotNil(t, s.HubID)
	require.Equal(t, int64(3), *s.HubID)
	require.Nil(t, s.RiderID)
	require.Nil(t, s.MerchantID)
}

func TestParseScope_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]http.Header{
		"no user":         identity(HeaderRole, "ADMIN"),
		"zero user":       identity(HeaderUserID, "0", HeaderRole, "ADMIN"),
		"unknown role":    identity(HeaderUserID, "1", HeaderRole, "COURIER"),
		"system role":     identity(HeaderUserID, "1", HeaderRole, "SYSTEM"),
		"bad rider id":    identity(HeaderUserID, "1", HeaderRole, "RIDER", HeaderRiderID, "abc"),
		"negative hub id": identity(HeaderUserID, "1", HeaderRole, "HUB_MANAGER", HeaderHubID, "-4"),
	}
	for name, h := range cases {
		_, err := ParseScope(h)
		require.Errorf(t, err, name)
	}
}

func TestScope_StoresScopeInContext(t *testing.T) {
	t.Parallel()

	var got domain.Scope
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := ScopeFrom(r.Context())
		require.True(t, ok)
		got = s
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/parcels/1", nil)
	req.Header.Set(HeaderUserID, "5")
	req.Header.Set(HeaderRole, "MERCHANT")
	req.Header.Set(HeaderMerchantID, "44")
	rr := httptest.NewRecorder()

	Scope(testlog.New().Logger())(next).ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, domain.RoleMerchant, got.Role)
	require.True(t, domain.SameID(got.MerchantID, domain.Int64Ptr(44)))
}

func TestScope_MissingIdentityIs401(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next must not run")
	})

	rr := httptest.NewRecorder()
	Scope(rec.Logger())(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/invoices", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"error":"missing or invalid X-User-ID","kind":"unauthenticated"}`, rr.Body.String())
	require.Len(t, rec.Find("rejected request identity"), 1)
}

func TestScopeFrom_Empty(t *testing.T) {
	t.Parallel()

	_, ok := ScopeFrom(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.False(t, ok)
}
