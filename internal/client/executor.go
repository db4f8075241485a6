package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"brands-console/internal/models"
	"brands-console/internal/telemetry"
)

const defaultTimeout = 30 * time.Second

// Executor issues single HTTP calls against the brands API and normalizes their outcome.
// It never retries; callers decide what to do with a failure.
type Executor struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	telemetry  *telemetry.ClientTelemetry
	logger     *slog.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithAPIKey sends key as X-API-Key on every request
func WithAPIKey(key string) Option {
	return func(e *Executor) { e.apiKey = key }
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(e *Executor) { e.httpClient.Timeout = timeout }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.httpClient = c }
}

// WithTelemetry records every call through t
func WithTelemetry(t *telemetry.ClientTelemetry) Option {
	return func(e *Executor) { e.telemetry = t }
}

// WithLogger sets the logger used for per-call debug output
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an executor for the API rooted at baseURL
func NewExecutor(baseURL string, opts ...Option) *Executor {
	e := &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BaseURL returns the API root the executor talks to
func (e *Executor) BaseURL() string {
	return e.baseURL
}

// Execute performs one call. On success the envelope's data is decoded into out (when out is non-nil).
// Every failure after the request is built is returned as an *APIError.
func (e *Executor) Execute(ctx context.Context, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	endpoint := telemetry.GetEndpointFromPath("/" + strings.TrimPrefix(path, "/"))

	status, err := e.execute(ctx, method, path, query, body, out)

	metrics := telemetry.RemoteCallMetrics{
		Method:     method,
		Endpoint:   endpoint,
		StatusCode: status,
		Duration:   time.Since(start),
	}
	if apiErr, ok := err.(*APIError); ok {
		metrics.ErrorKind = string(apiErr.Kind)
	}
	e.telemetry.RecordRemoteCall(ctx, metrics)

	return err
}

func (e *Executor) execute(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.buildURL(path, query), reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if e.apiKey != "" {
		req.Header.Set("X-API-Key", e.apiKey)
	}

	e.logger.Debug("Calling brands API", "method", method, "url", req.URL.String())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Debug("Brands API unreachable", "method", method, "path", path, "error", err)
		return 0, newNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, newNetworkError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, decodeFailure(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, undecodable(resp.StatusCode, raw, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return resp.StatusCode, undecodable(resp.StatusCode, raw, err)
	}
	return resp.StatusCode, nil
}

// buildURL joins base and path with a single slash; empty query values are left out
func (e *Executor) buildURL(path string, query url.Values) string {
	target := e.baseURL + "/" + strings.TrimPrefix(path, "/")

	params := url.Values{}
	for key, values := range query {
		for _, v := range values {
			if v != "" {
				params.Add(key, v)
			}
		}
	}
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return target
}

func decodeFailure(status int, raw []byte) *APIError {
	var env models.Envelope
	structured := json.Unmarshal(raw, &env) == nil && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{"))

	apiErr := &APIError{
		Status: status,
		Raw:    raw,
	}
	if structured {
		apiErr.Message = env.Msg
		if apiErr.Message == "" {
			apiErr.Message = env.Message
		}
		if len(env.Errors) > 0 {
			apiErr.FieldErrors = env.Errors
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP %d", status)
	}
	apiErr.Kind = classify(status, structured, apiErr.FieldErrors)
	return apiErr
}

func undecodable(status int, raw []byte, cause error) *APIError {
	return &APIError{
		Message: "unexpected response from brands API",
		Status:  status,
		Raw:     raw,
		Kind:    KindUnknownServer,
		cause:   cause,
	}
}

// Do executes a call and decodes the envelope's data into a T
func Do[T any](ctx context.Context, e *Executor, method, path string, query url.Values, body any) (T, error) {
	var out T
	if err := e.Execute(ctx, method, path, query, body, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
