package telemetry

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// TelemetryMiddleware wraps console HTTP handlers to collect request metrics
type TelemetryMiddleware struct {
	telemetry *ClientTelemetry
}

// NewTelemetryMiddleware creates a new telemetry middleware
func NewTelemetryMiddleware(telemetry *ClientTelemetry) *TelemetryMiddleware {
	return &TelemetryMiddleware{
		telemetry: telemetry,
	}
}

// Middleware returns the HTTP middleware function
func (tm *TelemetryMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapper, r)

		metrics := ConsoleRequestMetrics{
			Method:     r.Method,
			Route:      routeTemplate(r),
			StatusCode: wrapper.statusCode,
			Duration:   time.Since(start),
		}
		tm.telemetry.RecordConsoleRequest(r.Context(), metrics)

		slog.Debug("Console request served",
			"method", metrics.Method,
			"route", metrics.Route,
			"status_code", metrics.StatusCode,
			"duration_ms", metrics.Duration.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// routeTemplate returns the mux path template so ids don't explode cardinality
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	return w.ResponseWriter.Write(data)
}
