// Package pprofserver exposes runtime profiles on a separate listener.
package pprofserver

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"parcelhub/internal/config"
	"parcelhub/internal/logx"
)

const realm = `Basic realm="parcelhub-pprof"`

// NewServer returns the debug server bound to cfg.Addr.
func NewServer(cfg config.PprofConfig, logger logx.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           Handler(cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Handler mounts chi's profiler under /debug. Loopback callers pass freely,
// everyone else needs the configured basic auth pair.
func Handler(cfg config.PprofConfig, logger logx.Logger) http.Handler {
	if logger == nil {
		logger = logx.Nop()
	}
	r := chi.NewRouter()
	r.Use(guard(cfg.User, cfg.Pass, logger))
	r.Mount("/debug", middleware.Profiler())
	return r
}

func guard(user, pass string, logger logx.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isLoopback(r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}
			u, p, ok := r.BasicAuth()
			if user == "" || pass == "" || !ok || !secureEq(u, user) || !secureEq(p, pass) {
				logger.Warn("pprof access denied",
					logx.String("remote", r.RemoteAddr),
					logx.String("path", r.URL.Path),
				)
				w.Header().Set("WWW-Authenticate", realm)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secureEq(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func isLoopback(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(strings.TrimSpace(host))
	return ip != nil && ip.IsLoopback()
}
