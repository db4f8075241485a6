package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"brands-console/internal/client"
	"brands-console/internal/wizard"
)

// WizardFieldsRequest is the body of PUT /v1/wizard/fields. Absent fields keep their value.
type WizardFieldsRequest struct {
	BrandName *string `json:"brand_name,omitempty"`
	OwnerName *string `json:"owner_name,omitempty"`
}

// WizardHandler drives the brand creation wizard
type WizardHandler struct {
	wizard *wizard.Wizard
	logger *slog.Logger
}

// NewWizardHandler creates a new wizard handler
func NewWizardHandler(w *wizard.Wizard, logger *slog.Logger) *WizardHandler {
	return &WizardHandler{
		wizard: w,
		logger: logger,
	}
}

// GetWizard handles GET /v1/wizard
func (h *WizardHandler) GetWizard(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.wizard.State())
}

// SetFields handles PUT /v1/wizard/fields
func (h *WizardHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	var req WizardFieldsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BrandName != nil {
		h.wizard.SetBrandName(*req.BrandName)
	}
	if req.OwnerName != nil {
		h.wizard.SetOwnerName(*req.OwnerName)
	}
	writeJSONResponse(w, http.StatusOK, h.wizard.State())
}

// Next handles POST /v1/wizard/next
func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	if err := h.wizard.Next(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, h.wizard.State())
}

// Prev handles POST /v1/wizard/prev
func (h *WizardHandler) Prev(w http.ResponseWriter, r *http.Request) {
	h.wizard.Prev()
	writeJSONResponse(w, http.StatusOK, h.wizard.State())
}

// Submit handles POST /v1/wizard/submit. A server rejection is not an HTTP failure of the console:
// the wizard state carries the outcome and keeps the typed values.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	created, err := h.wizard.Submit(r.Context())
	var apiErr *client.APIError
	switch {
	case err == nil:
		h.logger.Info("Brand created from console", "brand_name", created.Name, "remote_addr", r.RemoteAddr)
		writeJSONResponse(w, http.StatusCreated, h.wizard.State())
	case errors.As(err, &apiErr):
		writeJSONResponse(w, upstreamStatus(apiErr), h.wizard.State())
	default:
		writeServiceError(w, r, err)
	}
}

// Reset handles DELETE /v1/wizard
func (h *WizardHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.wizard.Reset()
	writeJSONResponse(w, http.StatusOK, h.wizard.State())
}
