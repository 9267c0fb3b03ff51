package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/stationlink/stationlink/internal/metrics"
	"github.com/stationlink/stationlink/internal/observability"
)

// endpointFor labels r by its chi route pattern. Requests chi did not match
// fall back to a fixed set of labels so raw paths never become series.
func endpointFor(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := r.URL.Path
	switch {
	case path == "/health" || strings.HasPrefix(path, "/health/"):
		return "/health/*"
	case strings.HasPrefix(path, "/v3/discord/patrons/"):
		return "/v3/discord/patrons/{id}"
	}
	switch path {
	case "/", "/version", "/metrics", "/v3/server", "/v3/ratelimits", "/v3/discord/patrons":
		return path
	}
	return "/unknown"
}

// RequestMetrics records request metrics and writes one access log line per
// request. It is a pass-through while telemetry is disabled.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		req := metrics.HTTPRequest{
			Method:       r.Method,
			Endpoint:     endpointFor(r),
			Status:       status,
			Duration:     time.Since(start),
			RequestSize:  max(r.ContentLength, 0),
			ResponseSize: int64(ww.BytesWritten()),
		}
		metrics.RecordHTTPRequest(req)

		if logger := observability.ServerLogger; logger != nil {
			logger.Info("HTTP request completed",
				zap.String("method", req.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", req.Endpoint),
				zap.Int("status", req.Status),
				zap.Duration("duration", req.Duration),
				zap.Int64("request_size", req.RequestSize),
				zap.Int64("response_size", req.ResponseSize),
				zap.String("request_id", GetRequestID(r.Context())))
		}
	})
}
