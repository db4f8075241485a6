package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brands-console/internal/client"
	"brands-console/internal/config"
	"brands-console/internal/events"
	"brands-console/internal/handlers"
	"brands-console/internal/services"
	"brands-console/internal/telemetry"
)

const metricsAddr = ":9080"

func main() {
	// Load configuration from .env file and environment variables
	cfg := config.LoadConfig()

	slog.Info("Starting Brands Console", "version", handlers.Version)

	// Initialize OpenTelemetry telemetry system
	ctx := context.Background()
	otelTelemetry := (&telemetry.Telemetry{}).InitMetrics(ctx, cfg.MetricsExporter, metricsAddr)
	slog.Info("OpenTelemetry telemetry initialized")

	clientTelemetry := telemetry.NewClientTelemetry()
	if err := clientTelemetry.InitializeTelemetry(ctx); err != nil {
		slog.Error("Failed to initialize console telemetry", "error", err)
		return
	}

	executor := client.NewExecutor(cfg.APIBaseURL,
		client.WithAPIKey(cfg.APIKey),
		client.WithTimeout(cfg.RequestTimeoutDuration()),
		client.WithTelemetry(clientTelemetry),
		client.WithLogger(slog.Default()))
	slog.Info("Brands API client initialized", "base_url", executor.BaseURL())

	notifications := events.NewNotificationQueue(events.QueueConfig{
		MaxEvents: cfg.MaxNotificationsCount(),
		TTL:       cfg.NotificationTTLDuration(),
		Logger:    slog.Default(),
	})

	view := services.NewBrandsView(services.ViewConfig{
		Source:        client.NewBrandsClient(executor),
		QuietPeriod:   cfg.DebounceQuietPeriodDuration(),
		Notifications: notifications,
		Telemetry:     clientTelemetry,
		Logger:        slog.Default(),
	})
	view.Start()

	r := handlers.NewRouter(handlers.RouterConfig{
		View:        view,
		ConsoleKeys: cfg.ConsoleKeys(),
		Telemetry:   clientTelemetry,
		Logger:      slog.Default(),
	})

	slog.Debug("Available endpoints",
		"view_endpoints", []string{
			"GET /v1/view (?wait=<seconds> waits for a change)",
			"PUT|DELETE /v1/view/filter",
			"POST /v1/view/refresh",
		},
		"brand_endpoints", []string{
			"POST|PATCH|DELETE /v1/brands/{id}/edit",
			"POST /v1/brands/{id}/edit/save",
			"DELETE /v1/brands/{id}?confirm=true",
		},
		"wizard_endpoints", []string{
			"GET|DELETE /v1/wizard",
			"PUT /v1/wizard/fields",
			"POST /v1/wizard/next|prev|submit",
		},
		"notification_endpoints", []string{
			"GET /v1/notifications?offset=<n>&limit=<n>&wait=<seconds>",
			"DELETE /v1/notifications/{id}",
		},
		"system_endpoints", []string{
			"GET /health",
		})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server ready to accept connections", "address", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Wake long polls before draining connections
	view.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	otelTelemetry.Close()
	slog.Info("Telemetry shutdown completed")

	slog.Info("Server exited")
}
