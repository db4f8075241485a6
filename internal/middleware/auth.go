package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"brands-console/internal/models"
)

// APIKeyHeader carries the console API key
const APIKeyHeader = "X-API-Key"

// AuthMiddleware returns a middleware accepting requests whose X-API-Key is one of keys.
// Blank keys are ignored; with no usable key every request is refused.
func AuthMiddleware(keys []string) mux.MiddlewareFunc {
	valid := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, k)
		}
	}
	if len(valid) == 0 {
		slog.Warn("No console API keys configured, every /v1 request will be refused")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				slog.Warn("Authentication failed: missing API key", "remote_addr", r.RemoteAddr)
				writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "API key required", nil)
				return
			}

			if !isValidAPIKey(valid, apiKey) {
				slog.Warn("Authentication failed: invalid API key", "remote_addr", r.RemoteAddr)
				writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Invalid API key", nil)
				return
			}

			slog.Debug("Authentication successful", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}

func isValidAPIKey(valid []string, apiKey string) bool {
	for _, k := range valid {
		if subtle.ConstantTimeCompare([]byte(k), []byte(apiKey)) == 1 {
			return true
		}
	}
	return false
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
