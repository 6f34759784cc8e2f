// Package server wires the JSON API, metrics and middleware into an
// http.Handler.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/maruel/pagetable/internal/loader"
	"github.com/maruel/pagetable/internal/metrics"
	"github.com/maruel/pagetable/internal/server/handlers"
	"github.com/maruel/pagetable/internal/server/ratelimit"
)

// Config configures the router.
type Config struct {
	Version string
	// RateLimit is the API request budget per client IP per minute. Zero
	// disables rate limiting.
	RateLimit int
}

// NewRouter returns the API handler. The returned limiter, if any, must be
// run by the caller with Limiter.Run to evict idle clients.
func NewRouter(cfg Config, co *loader.Coordinator, cursor handlers.Cursor, m *metrics.Metrics) (http.Handler, *ratelimit.Limiter) {
	mux := http.NewServeMux()
	h := handlers.New(co, cursor, cfg.Version)

	mux.Handle("GET /api/v1/health", Wrap(h.Health))
	mux.Handle("GET /api/v1/view", Wrap(h.View))
	mux.Handle("POST /api/v1/load", Wrap(h.Load))
	mux.Handle("POST /api/v1/more", Wrap(h.More))
	mux.Handle("POST /api/v1/sort", Wrap(h.Sort))
	mux.Handle("DELETE /api/v1/rows/{index}", Wrap(h.RemoveRow))
	mux.Handle("POST /api/v1/clear", Wrap(h.Clear))
	mux.Handle("GET /metrics", m.Handler())

	var limiter *ratelimit.Limiter
	var handler http.Handler = mux
	if cfg.RateLimit > 0 {
		limiter = ratelimit.NewLimiter(cfg.RateLimit, time.Minute, max(cfg.RateLimit/4, 1))
		handler = RateLimitMiddleware(limiter, handler)
	}
	handler = LoggingMiddleware(m, mux, handler)
	handler = RequestContextMiddleware(handler)
	return handler, limiter
}

// RunLimiter evicts idle buckets until ctx is done. It is a no-op for a nil
// limiter.
func RunLimiter(ctx context.Context, l *ratelimit.Limiter) {
	if l == nil {
		return
	}
	l.Run(ctx)
}
