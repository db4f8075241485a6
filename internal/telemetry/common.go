package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// ExporterScraper selects the prometheus pull exporter; anything else pushes over OTLP gRPC.
const ExporterScraper = "scraper"

// Structure for Open Telemetry variables
type Telemetry struct {
	server   *http.Server          // If type of metrics collection == "scraper".
	Provider *metric.MeterProvider // If not scraper use gRPC.
	ctx      context.Context
}

var (
	once sync.Once
)

// InitMetrics installs the global meter provider for the chosen exporter.
// metricsAddr is only used by the scraper exporter.
func (t *Telemetry) InitMetrics(ctx context.Context, exporter, metricsAddr string) *Telemetry {
	t.ctx = ctx

	once.Do(func() {
		if exporter == ExporterScraper {
			slog.Info("Starting metrics with scraper exporter", "address", metricsAddr)
			t.initScrapeMetrics(metricsAddr)
		} else {
			slog.Info("Starting metrics with grpc exporter")
			t.initGRPCMetrics()
		}
	})
	return t
}

// Close flushes pending metrics and stops the scrape server
func (t *Telemetry) Close() {
	if t.Provider != nil {
		if err := t.Provider.ForceFlush(t.ctx); err != nil {
			slog.Warn("Failed to flush metrics", "error", err)
		}
		if err := t.Provider.Shutdown(t.ctx); err != nil {
			slog.Warn("Failed to shut down meter provider", "error", err)
		}
	}
	t.shutdownScraperMetrics()
}

// Initialize GRPC metrics exporter. https://opentelemetry.io/docs/languages/go/exporters/#otlp-metrics-over-grpc.
func (t *Telemetry) initGRPCMetrics() {
	// The URL to export is set via environment variable
	// OTEL_EXPORTER_OTLP_METRICS_ENDPOINT and if not set it is "localhost:4317"
	exporter, err := otlpmetricgrpc.New(t.ctx)
	if err != nil {
		slog.Error("Creating GRPC exporter", "error", err)
		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(exporter)))
	otel.SetMeterProvider(t.Provider)
}

// Initialize scrape metrics exporter. https://github.com/open-telemetry/opentelemetry-go/blob/main/example/prometheus/main.go.
func (t *Telemetry) initScrapeMetrics(addr string) {
	// The exporter embeds a default OpenTelemetry Reader and
	// implements prometheus.Collector, allowing it to be used as
	// both a Reader and Collector.
	exporter, err := prometheus.New()
	if err != nil {
		slog.Error("Creating HTML scrape exporter", "error", err)
		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(t.Provider)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	t.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go t.serveMetrics()
}

// Run metrics server for "scraper" open telemetry collector
func (t *Telemetry) serveMetrics() {
	slog.Info("Serving metrics", "address", t.server.Addr, "path", "/metrics")

	if err := t.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("Metrics server closed")
		} else {
			slog.Error("ListenAndServe exited with", "error", err)
		}
	}
}

// Shutdown HTTP server used for "scraper" metrics collection.
func (t *Telemetry) shutdownScraperMetrics() {
	if t.server != nil {
		_ = t.server.Shutdown(t.ctx)
		slog.Info("Shutting down metrics server")
	}
}
