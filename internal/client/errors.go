package client

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// ErrorKind classifies a failed call to the brands API
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFoundOrConflict ErrorKind = "not_found_or_conflict"
	KindNetwork            ErrorKind = "network"
	KindUnknownServer      ErrorKind = "unknown_server"
	KindServer             ErrorKind = "server"
)

// Sentinel errors, matched with errors.Is against an *APIError
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFoundOrConflict = errors.New("resource not found or in conflict")
	ErrNetwork            = errors.New("network error")
	ErrUnknownServer      = errors.New("unknown server error")
	ErrServer             = errors.New("server error")
)

// NetworkErrorMessage is the message of every transport failure
const NetworkErrorMessage = "network error"

// APIError is the normalized failure of a single API call. Status is 0 when no response was received.
type APIError struct {
	Message     string
	Status      int
	FieldErrors map[string][]string
	Raw         []byte
	Kind        ErrorKind

	cause error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		if e.cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.cause)
		}
		return e.Message
	}
	return fmt.Sprintf("brands api returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Is lets errors.Is match the sentinel for the error's kind
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFoundOrConflict:
		return e.Kind == KindNotFoundOrConflict
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUnknownServer:
		return e.Kind == KindUnknownServer
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// HasFieldErrors reports whether the server flagged individual fields
func (e *APIError) HasFieldErrors() bool {
	return len(e.FieldErrors) > 0
}

func newNetworkError(cause error) *APIError {
	return &APIError{
		Message: NetworkErrorMessage,
		Kind:    KindNetwork,
		cause:   cause,
	}
}

// classify picks the kind for a non-2xx response. structured is false when the body had no envelope.
func classify(status int, structured bool, fieldErrors map[string][]string) ErrorKind {
	switch {
	case len(fieldErrors) > 0:
		return KindValidation
	case status == http.StatusNotFound, status == http.StatusConflict, status == http.StatusGone:
		return KindNotFoundOrConflict
	case !structured:
		return KindUnknownServer
	default:
		return KindServer
	}
}

// preferredFields are checked in order before falling back to the alphabetically first field
var preferredFields = []string{"brand_name", "name", "owner_name"}

// UserMessage returns the text shown to the user for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	if msg, ok := firstFieldMessage(apiErr.FieldErrors); ok {
		return msg
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	if apiErr.Status != 0 {
		return fmt.Sprintf("HTTP %d", apiErr.Status)
	}
	return NetworkErrorMessage
}

func firstFieldMessage(fieldErrors map[string][]string) (string, bool) {
	for _, field := range preferredFields {
		if msgs := fieldErrors[field]; len(msgs) > 0 {
			return msgs[0], true
		}
	}

	fields := make([]string, 0, len(fieldErrors))
	for field, msgs := range fieldErrors {
		if len(msgs) > 0 {
			fields = append(fields, field)
		}
	}
	if len(fields) == 0 {
		return "", false
	}
	sort.Strings(fields)
	return fieldErrors[fields[0]][0], true
}
