package handlers

import (
	"log/slog"

	"github.com/gorilla/mux"

	"brands-console/internal/middleware"
	"brands-console/internal/services"
	"brands-console/internal/telemetry"
)

// RouterConfig holds what the console router serves
type RouterConfig struct {
	View        *services.BrandsView
	ConsoleKeys []string
	Telemetry   *telemetry.ClientTelemetry
	Logger      *slog.Logger
}

// NewRouter builds the console HTTP surface over one view
func NewRouter(cfg RouterConfig) *mux.Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	viewHandler := NewViewHandler(cfg.View, cfg.Logger)
	brandsHandler := NewBrandsHandler(cfg.View, cfg.Logger)
	wizardHandler := NewWizardHandler(cfg.View.Wizard(), cfg.Logger)
	notificationsHandler := NewNotificationsHandler(cfg.View.Notifications(), cfg.Logger)
	healthHandler := NewHealthHandler(cfg.View)

	r := mux.NewRouter()

	// Apply telemetry middleware to all routes first
	r.Use(telemetry.NewTelemetryMiddleware(cfg.Telemetry).Middleware)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(middleware.AuthMiddleware(cfg.ConsoleKeys))

	// List view
	v1.HandleFunc("/view", viewHandler.GetView).Methods("GET")
	v1.HandleFunc("/view/filter", viewHandler.SetFilter).Methods("PUT")
	v1.HandleFunc("/view/filter", viewHandler.ClearFilter).Methods("DELETE")
	v1.HandleFunc("/view/refresh", viewHandler.Refresh).Methods("POST")

	// Inline edit and delete - specific routes first
	v1.HandleFunc("/brands/{id}/edit/save", brandsHandler.SaveEdit).Methods("POST")
	v1.HandleFunc("/brands/{id}/edit", brandsHandler.StartEdit).Methods("POST")
	v1.HandleFunc("/brands/{id}/edit", brandsHandler.UpdateDraft).Methods("PATCH")
	v1.HandleFunc("/brands/{id}/edit", brandsHandler.CancelEdit).Methods("DELETE")
	v1.HandleFunc("/brands/{id}", brandsHandler.DeleteBrand).Methods("DELETE")

	// Creation wizard
	v1.HandleFunc("/wizard", wizardHandler.GetWizard).Methods("GET")
	v1.HandleFunc("/wizard", wizardHandler.Reset).Methods("DELETE")
	v1.HandleFunc("/wizard/fields", wizardHandler.SetFields).Methods("PUT")
	v1.HandleFunc("/wizard/next", wizardHandler.Next).Methods("POST")
	v1.HandleFunc("/wizard/prev", wizardHandler.Prev).Methods("POST")
	v1.HandleFunc("/wizard/submit", wizardHandler.Submit).Methods("POST")

	// Notifications
	v1.HandleFunc("/notifications", notificationsHandler.GetNotifications).Methods("GET")
	v1.HandleFunc("/notifications/{id}", notificationsHandler.Dismiss).Methods("DELETE")

	// Health check endpoint (no auth required)
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	return r
}
