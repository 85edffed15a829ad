package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"parcelhub/internal/domain"
	"parcelhub/internal/logx"
)

// Identity headers set by the identity collaborator in front of the API.
const (
	HeaderUserID     = "X-User-ID"
	HeaderRole       = "X-Role"
	HeaderHubID      = "X-Hub-ID"
	HeaderRiderID    = "X-Rider-ID"
	HeaderMerchantID = "X-Merchant-ID"
)

type scopeKey struct{}

// WithScope stores the acting scope in ctx.
func WithScope(ctx context.Context, s domain.Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the acting scope stored by Scope.
func ScopeFrom(ctx context.Context) (domain.Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(domain.Scope)
	return s, ok
}

// ParseScope builds a scope from identity headers.
// SYSTEM is reserved for background jobs and is never accepted from a request.
func ParseScope(h http.Header) (domain.Scope, error) {
	var s domain.Scope

	uid, err := strconv.ParseInt(strings.TrimSpace(h.Get(HeaderUserID)), 10, 64)
	if err != nil || uid <= 0 {
		return s, errors.New("missing or invalid " + HeaderUserID)
	}
	s.UserID = uid

	s.Role = domain.Role(strings.ToUpper(strings.TrimSpace(h.Get(HeaderRole))))
	if !s.Role.Valid() || s.Role == domain.RoleSystem {
		return s, errors.New("missing or invalid " + HeaderRole)
	}

	for _, f := range []struct {
		name string
		dst  **int64
	}{
		{HeaderHubID, &s.HubID},
		{HeaderRiderID, &s.RiderID},
		{HeaderMerchantID, &s.MerchantID},
	} {
		raw := strings.TrimSpace(h.Get(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return s, errors.New("invalid " + f.name)
		}
		*f.dst = domain.Int64Ptr(v)
	}
	return s, nil
}

// Scope rejects requests without a valid identity with 401 and stores the parsed scope.
func Scope(logger logx.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := ParseScope(r.Header)
			if err != nil {
				logger.Warn("rejected request identity",
					logx.String("path", r.URL.Path),
					logx.Err(err),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				if _, werr := io.WriteString(w, `{"error":"`+err.Error()+`","kind":"unauthenticated"}`); werr != nil {
					logger.Debug("scope response write failed", logx.Err(werr))
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), s)))
		})
	}
}
