package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BrandStatus is the registration state of a brand
type BrandStatus string

const (
	BrandStatusPending  BrandStatus = "PENDIENTE"
	BrandStatusApproved BrandStatus = "APROBADA"
	BrandStatusRejected BrandStatus = "RECHAZADA"
)

// BrandStatuses lists every status the remote API accepts
var BrandStatuses = []BrandStatus{BrandStatusPending, BrandStatusApproved, BrandStatusRejected}

// Valid reports whether s is one of the known statuses
func (s BrandStatus) Valid() bool {
	for _, known := range BrandStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseBrandStatus accepts a status name in any case
func ParseBrandStatus(raw string) (BrandStatus, error) {
	status := BrandStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid brand status %q: must be one of %v", raw, BrandStatuses)
	}
	return status, nil
}

// Owner is the holder of a brand
type Owner struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Brand represents a registered brand as returned by the remote API
type Brand struct {
	ID     int64       `json:"id"`
	Name   string      `json:"name"`
	Status BrandStatus `json:"status"`
	Owner  Owner       `json:"owner"`
}

// Envelope is the response wrapper used by every remote endpoint
type Envelope struct {
	Success bool                `json:"success"`
	Msg     string              `json:"msg"`
	Message string              `json:"message,omitempty"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

// CreateBrandRequest is the body of POST /brand
type CreateBrandRequest struct {
	BrandName string `json:"brand_name"`
	OwnerName string `json:"owner_name"`
}

// CreatedBrand is the summary the remote API returns after a create
type CreatedBrand struct {
	Name      string      `json:"name"`
	Status    BrandStatus `json:"status"`
	OwnerName string      `json:"owner_name"`
}

// UpdateBrandRequest is the body of PATCH /brand/{id}/update. Nil fields are not transmitted.
type UpdateBrandRequest struct {
	Name   *string      `json:"name,omitempty"`
	Status *BrandStatus `json:"status,omitempty"`
}

// IsEmpty reports whether the patch carries no field at all
func (r UpdateBrandRequest) IsEmpty() bool {
	return r.Name == nil && r.Status == nil
}

// ErrorResponse represents the standard error response format of the console API
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service,omitempty"`
	Version string                 `json:"version,omitempty"`
	Cache   map[string]interface{} `json:"cache,omitempty"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// StatusPtr returns a pointer to s
func StatusPtr(s BrandStatus) *BrandStatus {
	return &s
}
