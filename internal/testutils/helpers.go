package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brands-console/internal/models"
)

// BrandFixtures contains predefined brands for consistent testing
type BrandFixtures struct {
	Acme    models.Brand
	Globex  models.Brand
	Initech models.Brand
}

// GetBrandFixtures returns a set of predefined brands owned by two owners
func GetBrandFixtures() *BrandFixtures {
	return &BrandFixtures{
		Acme: models.Brand{
			ID:     1,
			Name:   "Acme",
			Status: models.BrandStatusApproved,
			Owner:  models.Owner{ID: 5, Name: "acme"},
		},
		Globex: models.Brand{
			ID:     2,
			Name:   "Globex",
			Status: models.BrandStatusPending,
			Owner:  models.Owner{ID: 6, Name: "hank"},
		},
		Initech: models.Brand{
			ID:     3,
			Name:   "Initech",
			Status: models.BrandStatusRejected,
			Owner:  models.Owner{ID: 6, Name: "hank"},
		},
	}
}

// All returns every fixture brand ordered by id
func (f *BrandFixtures) All() []models.Brand {
	return []models.Brand{f.Acme, f.Globex, f.Initech}
}

// CreateTestBrand creates a brand with default values
func CreateTestBrand(id int64, owner string) models.Brand {
	return models.Brand{
		ID:     id,
		Name:   fmt.Sprintf("Test Brand %d", id),
		Status: models.BrandStatusPending,
		Owner:  models.Owner{ID: id + 100, Name: owner},
	}
}

// AssertHTTPResponse asserts HTTP response status and content type
func AssertHTTPResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedContentType string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "HTTP status code mismatch")
	assert.Equal(t, expectedContentType, w.Header().Get("Content-Type"), "Content-Type mismatch")
}

// AssertJSONResponse asserts HTTP response and unmarshals JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	AssertHTTPResponse(t, w, expectedStatus, "application/json")

	err := json.Unmarshal(w.Body.Bytes(), target)
	require.NoError(t, err, "Failed to unmarshal JSON response")
}

// AssertErrorResponse asserts that the response contains an error with expected code
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) models.ErrorResponse {
	t.Helper()
	var errorResp models.ErrorResponse
	AssertJSONResponse(t, w, expectedStatus, &errorResp)

	assert.Equal(t, expectedCode, errorResp.Code, "Error code mismatch")
	assert.NotEmpty(t, errorResp.Message, "Error message should not be empty")
	return errorResp
}

// CreateHTTPRequest creates an HTTP request with JSON body
func CreateHTTPRequest(method, url string, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = strings.NewReader(string(jsonBody))
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// CreateHTTPRequestWithAuth creates an HTTP request with authentication header
func CreateHTTPRequestWithAuth(method, url, apiKey string, body interface{}) (*http.Request, error) {
	req, err := CreateHTTPRequest(method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-API-Key", apiKey)
	return req, nil
}
