package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"brands-console/internal/services"
)

// FilterRequest is the body of PUT /v1/view/filter
type FilterRequest struct {
	Filter string `json:"filter"`
	// Apply settles the filter immediately and waits for its list instead of debouncing
	Apply bool `json:"apply"`
}

// ViewHandler exposes the brands page state and its list intents
type ViewHandler struct {
	view   *services.BrandsView
	logger *slog.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(view *services.BrandsView, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{
		view:   view,
		logger: logger,
	}
}

// GetView handles GET /v1/view. With ?wait=<seconds> it holds the request until the
// page state changes or the wait elapses.
func (h *ViewHandler) GetView(w http.ResponseWriter, r *http.Request) {
	waitSeconds := waitParam(r)
	if waitSeconds == 0 {
		writeJSONResponse(w, http.StatusOK, h.view.State())
		return
	}

	changed := make(chan services.ViewState, 1)
	unsubscribe := h.view.Subscribe(func(s services.ViewState) {
		select {
		case changed <- s:
		default:
		}
	})
	defer unsubscribe()

	timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
	defer timer.Stop()

	select {
	case state := <-changed:
		writeJSONResponse(w, http.StatusOK, state)
	case <-timer.C:
		writeJSONResponse(w, http.StatusOK, h.view.State())
	case <-r.Context().Done():
		h.logger.Debug("Client disconnected while waiting for a view change", "remote_addr", r.RemoteAddr)
	}
}

// SetFilter handles PUT /v1/view/filter
func (h *ViewHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !req.Apply {
		h.view.OnFilterChange(req.Filter)
		writeJSONResponse(w, http.StatusAccepted, h.view.State())
		return
	}

	state, err := h.view.ApplyFilter(r.Context(), req.Filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.logger.Debug("Owner filter applied", "filter", req.Filter, "brands_count", len(state.Brands))
	writeJSONResponse(w, http.StatusOK, state)
}

// ClearFilter handles DELETE /v1/view/filter
func (h *ViewHandler) ClearFilter(w http.ResponseWriter, r *http.Request) {
	h.view.ClearFilter()
	writeJSONResponse(w, http.StatusOK, h.view.State())
}

// Refresh handles POST /v1/view/refresh
func (h *ViewHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.view.Refresh(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, h.view.State())
}
