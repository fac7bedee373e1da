package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// readyTimeout bounds a single readiness probe.
const readyTimeout = 2 * time.Second

// RouterConfig holds configuration for the admin router.
type RouterConfig struct {
	// Metrics serves GET /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// Ready reports whether the server can take traffic. Nil means always
	// ready.
	Ready func(ctx context.Context) error

	Logger logger.Logger

	// AllowList restricts clients to these IPs or CIDR blocks. Empty allows
	// every client.
	AllowList []string

	// RateLimit is the per-client request rate in requests per second; zero
	// disables limiting.
	RateLimit float64
	RateBurst int
}

// NewRouter builds the admin handler with its middleware chain.
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg == nil {
		cfg = &RouterConfig{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("GET /readyz", readyHandler(cfg.Ready, log))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	// Order: Recover -> RequestID -> NetworkACL -> RateLimit -> AccessLog -> mux
	middlewares := []Middleware{Recover(log), RequestID()}
	if len(cfg.AllowList) > 0 {
		middlewares = append(middlewares, NetworkACL(cfg.AllowList, log))
	}
	if cfg.RateLimit > 0 {
		middlewares = append(middlewares, RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	middlewares = append(middlewares, AccessLog(log))

	return Chain(mux, middlewares...)
}

func readyHandler(ready func(context.Context) error, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := ready(ctx); err != nil {
				log.Warn("readiness check failed", "error", err)
				writeText(w, http.StatusServiceUnavailable, "not ready: "+err.Error())
				return
			}
		}
		writeText(w, http.StatusOK, "ready")
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body + "\n"))
}
