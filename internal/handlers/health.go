package handlers

import (
	"net/http"

	"brands-console/internal/models"
	"brands-console/internal/services"
)

// ServiceName is reported by the health check
const ServiceName = "brands-console"

// Version of the console
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	view *services.BrandsView
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(view *services.BrandsView) *HealthHandler {
	return &HealthHandler{view: view}
}

// Health handles GET /health - Health check endpoint with cache statistics
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Version: Version,
		Cache:   h.view.Stats(),
	})
}
