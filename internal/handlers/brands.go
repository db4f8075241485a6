package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"brands-console/internal/editsession"
	"brands-console/internal/models"
	"brands-console/internal/services"
)

// DraftRequest is the body of PATCH /v1/brands/{id}/edit. Absent fields stay as they are.
type DraftRequest struct {
	Name   *string `json:"name,omitempty"`
	Status *string `json:"status,omitempty"`
}

// BrandsHandler handles inline editing and deletion of listed brands
type BrandsHandler struct {
	view   *services.BrandsView
	logger *slog.Logger
}

// NewBrandsHandler creates a new brands handler
func NewBrandsHandler(view *services.BrandsView, logger *slog.Logger) *BrandsHandler {
	return &BrandsHandler{
		view:   view,
		logger: logger,
	}
}

// StartEdit handles POST /v1/brands/{id}/edit
func (h *BrandsHandler) StartEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := brandIDVar(w, r)
	if !ok {
		return
	}
	if err := h.view.StartEdit(id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, h.view.State().Editing)
}

// UpdateDraft handles PATCH /v1/brands/{id}/edit
func (h *BrandsHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := brandIDVar(w, r)
	if !ok {
		return
	}

	var req DraftRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var status *models.BrandStatus
	if req.Status != nil {
		parsed, err := models.ParseBrandStatus(*req.Status)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error(), []models.ErrorDetail{
				{Field: "status", Issue: "must be PENDIENTE, APROBADA or RECHAZADA"},
			})
			return
		}
		status = &parsed
	}

	if err := h.view.EditDraft(id, req.Name, status); err != nil {
		if errors.Is(err, editsession.ErrNotEditing) {
			writeErrorResponse(w, http.StatusConflict, "not_editing", "This brand is not being edited", nil)
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, h.view.State().Editing)
}

// CancelEdit handles DELETE /v1/brands/{id}/edit
func (h *BrandsHandler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := brandIDVar(w, r)
	if !ok {
		return
	}
	if current := h.view.State().Editing; current.Editing && current.EntityID == id {
		h.view.CancelEdit()
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveEdit handles POST /v1/brands/{id}/edit/save
func (h *BrandsHandler) SaveEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := brandIDVar(w, r)
	if !ok {
		return
	}
	if current := h.view.State().Editing; !current.Editing || current.EntityID != id {
		writeErrorResponse(w, http.StatusConflict, "not_editing", "This brand is not being edited", nil)
		return
	}

	updated, err := h.view.SaveEdit(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.logger.Info("Brand saved from console", "brand_id", id, "remote_addr", r.RemoteAddr)
	writeJSONResponse(w, http.StatusOK, updated)
}

// DeleteBrand handles DELETE /v1/brands/{id}?confirm=true
func (h *BrandsHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := brandIDVar(w, r)
	if !ok {
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := h.view.Delete(r.Context(), id, confirmed); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.logger.Info("Brand deleted from console", "brand_id", id, "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}
