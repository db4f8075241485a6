package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"brands-console/internal/client"
	"brands-console/internal/editsession"
	"brands-console/internal/models"
	"brands-console/internal/services"
	"brands-console/internal/wizard"
)

// writeJSONResponse is a helper function to write JSON responses
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse is a helper function to write error responses
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, details []models.ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// writeServiceError maps an error of the view or the remote API to a console error response
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	message := err.Error()
	var details []models.ErrorDetail

	var apiErr *client.APIError
	switch {
	case errors.Is(err, services.ErrConfirmationRequired):
		status, code = http.StatusPreconditionRequired, "confirmation_required"
	case errors.Is(err, services.ErrBrandNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrEmptyPatch):
		status, code = http.StatusBadRequest, "empty_patch"
	case errors.Is(err, editsession.ErrNotEditing):
		status, code = http.StatusConflict, "not_editing"
	case errors.Is(err, editsession.ErrDiscardVetoed):
		status, code = http.StatusConflict, "discard_vetoed"
	case errors.Is(err, wizard.ErrCannotContinue):
		status, code = http.StatusBadRequest, "incomplete_step"
	case errors.Is(err, wizard.ErrNotOnSummary), errors.Is(err, wizard.ErrSubmitInProgress):
		status, code = http.StatusConflict, "wizard_state"
	case errors.As(err, &apiErr):
		status, code, message = upstreamStatus(apiErr), "upstream_"+string(apiErr.Kind), client.UserMessage(apiErr)
		details = fieldDetails(apiErr.FieldErrors)
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "upstream_timeout"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Console request failed", "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("Console request rejected", "path", r.URL.Path, "code", code, "error", err)
	}
	writeErrorResponse(w, status, code, message, details)
}

func upstreamStatus(apiErr *client.APIError) int {
	switch apiErr.Kind {
	case client.KindValidation:
		return http.StatusUnprocessableEntity
	case client.KindNotFoundOrConflict:
		return apiErr.Status
	case client.KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// fieldDetails flattens server field errors, sorted by field for stable output
func fieldDetails(fieldErrors map[string][]string) []models.ErrorDetail {
	if len(fieldErrors) == 0 {
		return nil
	}
	fields := make([]string, 0, len(fieldErrors))
	for field := range fieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var details []models.ErrorDetail
	for _, field := range fields {
		for _, issue := range fieldErrors[field] {
			details = append(details, models.ErrorDetail{Field: field, Issue: issue})
		}
	}
	return details
}

// brandIDVar reads the {id} route variable, writing a 400 when it is not a positive integer
func brandIDVar(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Brand ID must be a positive integer", []models.ErrorDetail{
			{Field: "id", Issue: "invalid"},
		})
		return 0, false
	}
	return id, true
}

// decodeBody decodes a JSON body into v, writing a 400 on malformed input
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return false
	}
	return true
}

// waitParam parses the optional ?wait=<seconds> long-poll parameter, capped at 60
func waitParam(r *http.Request) int {
	waitStr := r.URL.Query().Get("wait")
	if waitStr == "" {
		return 0
	}
	if parsedWait, err := strconv.Atoi(waitStr); err == nil && parsedWait >= 0 && parsedWait <= 60 {
		return parsedWait
	}
	return 0
}
