package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "brands-console"

// ClientTelemetry records metrics for calls to the brands API, the query cache,
// mutations and the console HTTP surface. A nil *ClientTelemetry is valid and records nothing.
type ClientTelemetry struct {
	meter metric.Meter

	// Remote API calls
	requestCounter    metric.Int64Counter
	errorCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram

	// Core
	cacheFetchCounter metric.Int64Counter
	mutationCounter   metric.Int64Counter

	// Console surface
	consoleRequestCounter    metric.Int64Counter
	consoleDurationHistogram metric.Float64Histogram
}

// RemoteCallMetrics contains the telemetry data for one call to the brands API
type RemoteCallMetrics struct {
	Method     string
	Endpoint   string
	StatusCode int
	Duration   time.Duration
	ErrorKind  string
}

// ConsoleRequestMetrics contains the telemetry data for one console HTTP request
type ConsoleRequestMetrics struct {
	Method     string
	Route      string
	StatusCode int
	Duration   time.Duration
}

// NewClientTelemetry creates a new instance of ClientTelemetry
func NewClientTelemetry() *ClientTelemetry {
	return &ClientTelemetry{}
}

// InitializeTelemetry sets up all the instruments against the global meter provider
func (t *ClientTelemetry) InitializeTelemetry(ctx context.Context) error {
	slog.Info("Initializing brands console telemetry")

	t.meter = otel.Meter(meterName)

	var err error

	t.requestCounter, err = t.meter.Int64Counter(
		"brands_api_requests_total",
		metric.WithDescription("Total number of requests sent to the brands API"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}

	t.errorCounter, err = t.meter.Int64Counter(
		"brands_api_errors_total",
		metric.WithDescription("Total number of failed requests to the brands API"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create error counter: %w", err)
	}

	t.durationHistogram, err = t.meter.Float64Histogram(
		"brands_api_request_duration_seconds",
		metric.WithDescription("Duration of requests to the brands API"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	t.cacheFetchCounter, err = t.meter.Int64Counter(
		"brands_query_cache_fetches_total",
		metric.WithDescription("Query cache loads by outcome (network, shared, superseded, stale)"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache fetch counter: %w", err)
	}

	t.mutationCounter, err = t.meter.Int64Counter(
		"brands_mutations_total",
		metric.WithDescription("Create, update and delete operations by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create mutation counter: %w", err)
	}

	t.consoleRequestCounter, err = t.meter.Int64Counter(
		"brands_console_requests_total",
		metric.WithDescription("Total number of requests served by the console API"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create console request counter: %w", err)
	}

	t.consoleDurationHistogram, err = t.meter.Float64Histogram(
		"brands_console_request_duration_seconds",
		metric.WithDescription("Duration of console API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create console duration histogram: %w", err)
	}

	slog.Info("Brands console telemetry initialized successfully")
	return nil
}

// RecordRemoteCall records one finished call to the brands API
func (t *ClientTelemetry) RecordRemoteCall(ctx context.Context, m RemoteCallMetrics) {
	if t == nil || t.requestCounter == nil {
		return
	}

	// Low-cardinality attributes only to prevent metric explosion
	attrs := []attribute.KeyValue{
		attribute.String("method", m.Method),
		attribute.String("endpoint", m.Endpoint),
		attribute.Int("status_code", m.StatusCode),
	}

	t.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.durationHistogram.Record(ctx, m.Duration.Seconds(), metric.WithAttributes(attrs...))

	if m.ErrorKind != "" {
		t.errorCounter.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("error_kind", m.ErrorKind))...))
	}

	slog.Debug("Recorded brands API call",
		"method", m.Method,
		"endpoint", m.Endpoint,
		"status_code", m.StatusCode,
		"error_kind", m.ErrorKind,
		"duration_ms", m.Duration.Milliseconds(),
	)
}

// RecordCacheFetch records how a query cache load was served
func (t *ClientTelemetry) RecordCacheFetch(ctx context.Context, resource, outcome string) {
	if t == nil || t.cacheFetchCounter == nil {
		return
	}
	t.cacheFetchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("outcome", outcome),
	))
}

// RecordMutation records the outcome of a create, update or delete
func (t *ClientTelemetry) RecordMutation(ctx context.Context, operation, outcome string) {
	if t == nil || t.mutationCounter == nil {
		return
	}
	t.mutationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordConsoleRequest records one request served by the console API
func (t *ClientTelemetry) RecordConsoleRequest(ctx context.Context, m ConsoleRequestMetrics) {
	if t == nil || t.consoleRequestCounter == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("method", m.Method),
		attribute.String("route", m.Route),
		attribute.Int("status_code", m.StatusCode),
	}
	t.consoleRequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.consoleDurationHistogram.Record(ctx, m.Duration.Seconds(), metric.WithAttributes(attrs...))
}

var (
	brandUpdatePath = regexp.MustCompile(`^/brand/[^/]+/update$`)
	brandItemPath   = regexp.MustCompile(`^/brand/[^/]+$`)
)

// GetEndpointFromPath normalizes a brands API path to its route template
func GetEndpointFromPath(path string) string {
	switch {
	case path == "/brands", path == "/brands/by-owner", path == "/brand":
		return path
	case brandUpdatePath.MatchString(path):
		return "/brand/{id}/update"
	case brandItemPath.MatchString(path):
		return "/brand/{id}"
	default:
		return path
	}
}
