package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maruel/ksid"

	apierrors "github.com/maruel/pagetable/internal/errors"
	"github.com/maruel/pagetable/internal/metrics"
	"github.com/maruel/pagetable/internal/server/ratelimit"
	"github.com/maruel/pagetable/internal/server/reqctx"
)

// RequestContextMiddleware tags the request context with a fresh request
// ID and the client IP, and echoes the ID in X-Request-ID.
func RequestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ksid.NewID()
		ctx := reqctx.WithRequestID(r.Context(), id)
		ctx = reqctx.WithClientIP(ctx, reqctx.ClientIPFromRequest(r))
		w.Header().Set("X-Request-ID", id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware rejects API clients over their budget with 429.
// Non-API paths are not limited.
func RateLimitMiddleware(l *ratelimit.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		ip := reqctx.ClientIP(r.Context())
		if ip == "" {
			ip = reqctx.ClientIPFromRequest(r)
		}
		res := l.Allow("ip:" + ip)
		ratelimit.WriteHeaders(w, res)
		if !res.Allowed {
			slog.WarnContext(r.Context(), "Rate limited", "ip", ip)
			writeError(r.Context(), w, apierrors.TooManyRequests())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// LoggingMiddleware logs every request and counts it per route pattern.
// mux resolves the pattern for the metric label.
func LoggingMiddleware(m *metrics.Metrics, mux *http.ServeMux, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		m.HTTPRequest(pattern, rec.status)
		ctx := r.Context()
		slog.InfoContext(ctx, "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"dur", time.Since(start).Round(time.Millisecond),
			"ip", reqctx.ClientIP(ctx),
			"id", reqctx.RequestID(ctx).String(),
		)
	})
}
