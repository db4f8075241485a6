package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brands-console/internal/models"
	"brands-console/internal/testutils"
)

func TestExecutor_BuildURL(t *testing.T) {
	testCases := []struct {
		name     string
		base     string
		path     string
		query    url.Values
		expected string
	}{
		{"leading slash", "http://api.test/api", "/brands", nil, "http://api.test/api/brands"},
		{"trailing base slash", "http://api.test/api/", "brands", nil, "http://api.test/api/brands"},
		{"owner param", "http://api.test/api", "/brands/by-owner", url.Values{"owner": {"acme"}}, "http://api.test/api/brands/by-owner?owner=acme"},
		{"empty param dropped", "http://api.test/api", "/brands", url.Values{"owner": {""}}, "http://api.test/api/brands"},
		{"param escaped", "http://api.test", "/brands", url.Values{"owner": {"a b&c"}}, "http://api.test/brands?owner=a+b%26c"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewExecutor(tc.base)
			assert.Equal(t, tc.expected, e.buildURL(tc.path, tc.query))
		})
	}
}

func TestExecutor_SendsStandardHeaders(t *testing.T) {
	fixtures := testutils.GetBrandFixtures()
	api := testutils.NewFakeBrandsAPI(t, fixtures.All()...)
	e := NewExecutor(api.URL(), WithAPIKey("secret"))

	_, err := Do[models.CreatedBrand](context.Background(), e, http.MethodPost, "/brand", nil,
		models.CreateBrandRequest{BrandName: "Umbrella", OwnerName: "alice"})
	require.NoError(t, err)

	_, err = Do[[]models.Brand](context.Background(), e, http.MethodGet, "/brands", nil, nil)
	require.NoError(t, err)

	calls := api.Calls()
	require.Len(t, calls, 2)

	post := calls[0]
	assert.Equal(t, "application/json", post.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", post.Header.Get("Accept"))
	assert.Equal(t, "secret", post.Header.Get("X-API-Key"))
	assert.NotEmpty(t, post.Header.Get("X-Request-ID"))
	assert.JSONEq(t, `{"brand_name":"Umbrella","owner_name":"alice"}`, string(post.Body))

	get := calls[1]
	assert.Empty(t, get.Header.Get("Content-Type"))
	assert.NotEqual(t, post.Header.Get("X-Request-ID"), get.Header.Get("X-Request-ID"))
}

func TestExecutor_OmitsAPIKeyWhenUnset(t *testing.T) {
	api := testutils.NewFakeBrandsAPI(t)
	e := NewExecutor(api.URL())

	require.NoError(t, e.Execute(context.Background(), http.MethodGet, "/brands", nil, nil, nil))
	assert.Empty(t, api.Calls()[0].Header.Get("X-API-Key"))
}

func TestExecutor_ErrorNormalization(t *testing.T) {
	testCases := []struct {
		name            string
		status          int
		body            string
		expectedKind    ErrorKind
		expectedMessage string
		expectedFields  map[string][]string
		sentinel        error
	}{
		{
			name:            "validation with field errors",
			status:          http.StatusBadRequest,
			body:            `{"success":false,"msg":"Validation error","errors":{"name":["required"]}}`,
			expectedKind:    KindValidation,
			expectedMessage: "Validation error",
			expectedFields:  map[string][]string{"name": {"required"}},
			sentinel:        ErrValidation,
		},
		{
			name:            "not found",
			status:          http.StatusNotFound,
			body:            `{"success":false,"msg":"Brand not found","errors":null}`,
			expectedKind:    KindNotFoundOrConflict,
			expectedMessage: "Brand not found",
			sentinel:        ErrNotFoundOrConflict,
		},
		{
			name:            "conflict uses message key",
			status:          http.StatusConflict,
			body:            `{"message":"already exists"}`,
			expectedKind:    KindNotFoundOrConflict,
			expectedMessage: "already exists",
			sentinel:        ErrNotFoundOrConflict,
		},
		{
			name:            "unstructured body",
			status:          http.StatusBadGateway,
			body:            `<html>bad gateway</html>`,
			expectedKind:    KindUnknownServer,
			expectedMessage: "HTTP 502",
			sentinel:        ErrUnknownServer,
		},
		{
			name:            "empty body",
			status:          http.StatusInternalServerError,
			body:            ``,
			expectedKind:    KindUnknownServer,
			expectedMessage: "HTTP 500",
			sentinel:        ErrUnknownServer,
		},
		{
			name:            "structured server failure",
			status:          http.StatusInternalServerError,
			body:            `{"success":false,"msg":"database down","errors":null}`,
			expectedKind:    KindServer,
			expectedMessage: "database down",
			sentinel:        ErrServer,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			err := NewExecutor(server.URL).Execute(context.Background(), http.MethodGet, "/brands", nil, nil, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.expectedKind, apiErr.Kind)
			assert.Equal(t, tc.expectedMessage, apiErr.Message)
			assert.Equal(t, tc.expectedFields, apiErr.FieldErrors)
			assert.Equal(t, tc.body, string(apiErr.Raw))
			assert.True(t, errors.Is(err, tc.sentinel))
		})
	}
}

func TestExecutor_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	err := NewExecutor(base, WithTimeout(time.Second)).Execute(context.Background(), http.MethodGet, "/brands", nil, nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.Status)
	assert.Equal(t, NetworkErrorMessage, apiErr.Message)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.False(t, apiErr.HasFieldErrors())
	assert.Equal(t, NetworkErrorMessage, UserMessage(err))
}

func TestExecutor_UndecodableSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": "not a list"}`))
	}))
	defer server.Close()

	_, err := Do[[]models.Brand](context.Background(), NewExecutor(server.URL), http.MethodGet, "/brands", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownServer))
}

func TestUserMessage(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), "boom"},
		{
			"brand_name wins",
			&APIError{Message: "Validation error", Status: 400, FieldErrors: map[string][]string{"owner_name": {"owner"}, "brand_name": {"taken"}}},
			"taken",
		},
		{
			"name before owner_name",
			&APIError{Message: "Validation error", Status: 400, FieldErrors: map[string][]string{"owner_name": {"owner"}, "name": {"required"}}},
			"required",
		},
		{
			"alphabetical fallback",
			&APIError{Message: "Validation error", Status: 400, FieldErrors: map[string][]string{"zeta": {"z"}, "alpha": {"a"}}},
			"a",
		},
		{"message fallback", &APIError{Message: "Brand not found", Status: 404}, "Brand not found"},
		{"status fallback", &APIError{Status: 503}, "HTTP 503"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, UserMessage(tc.err))
		})
	}
}
