package ratelimit

import (
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"parcelhub/internal/logx"
)

// userHeader identifies the acting user; requests without it are limited per client IP.
const userHeader = "X-User-ID"

// Middleware rejects requests over the limit with 429.
type Middleware struct {
	logger  logx.Logger
	counter prometheus.Counter
	limiter Limiter
}

// New creates a new Middleware. A nil limiter allows everything.
func New(logger logx.Logger, counter prometheus.Counter, limiter Limiter) *Middleware {
	if limiter == nil {
		limiter = NopLimiter{}
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Middleware{
		logger:  logger,
		counter: counter,
		limiter: limiter,
	}
}

// rejection mirrors the API error body so clients parse one shape.
const rejection = `{"error":"too many requests","kind":"rate_limited"}`

// Handler returns chi-style middleware keyed by acting user, then client IP.
func (m *Middleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limitKey(r)
			if m.limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, r, key)
		})
	}
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, key string) {
	if m.counter != nil {
		m.counter.Inc()
	}
	m.logger.Warn("rate limit exceeded",
		logx.String("key", key),
		logx.String("method", r.Method),
		logx.String("path", r.URL.Path),
	)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	if _, err := io.WriteString(w, rejection); err != nil {
		m.logger.Debug("rate limit response write failed", logx.String("key", key), logx.Err(err))
	}
}

func limitKey(r *http.Request) string {
	if uid := strings.TrimSpace(r.Header.Get(userHeader)); uid != "" {
		return "user:" + uid
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
