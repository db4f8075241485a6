package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"brands-console/internal/models"
)

// BrandsClient provides methods to interact with the remote brands API
type BrandsClient struct {
	executor *Executor
}

// NewBrandsClient creates a new brands client on top of executor
func NewBrandsClient(executor *Executor) *BrandsClient {
	return &BrandsClient{executor: executor}
}

// List retrieves all brands, optionally narrowed to an owner
func (c *BrandsClient) List(ctx context.Context, owner string) ([]models.Brand, error) {
	var query url.Values
	if owner != "" {
		query = url.Values{"owner": {owner}}
	}
	brands, err := Do[[]models.Brand](ctx, c.executor, http.MethodGet, "/brands", query, nil)
	if err != nil {
		return nil, err
	}
	return nonNil(brands), nil
}

// SearchByOwner retrieves the brands whose owner matches owner
func (c *BrandsClient) SearchByOwner(ctx context.Context, owner string) ([]models.Brand, error) {
	brands, err := Do[[]models.Brand](ctx, c.executor, http.MethodGet, "/brands/by-owner", url.Values{"owner": {owner}}, nil)
	if err != nil {
		return nil, err
	}
	return nonNil(brands), nil
}

// Create registers a new brand. The server assigns id and initial status.
func (c *BrandsClient) Create(ctx context.Context, req models.CreateBrandRequest) (*models.CreatedBrand, error) {
	created, err := Do[models.CreatedBrand](ctx, c.executor, http.MethodPost, "/brand", nil, req)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Update sends only the fields set on req
func (c *BrandsClient) Update(ctx context.Context, id int64, req models.UpdateBrandRequest) (*models.Brand, error) {
	updated, err := Do[models.Brand](ctx, c.executor, http.MethodPatch, fmt.Sprintf("/brand/%d/update", id), nil, req)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Remove hard-deletes a brand
func (c *BrandsClient) Remove(ctx context.Context, id int64) error {
	return c.executor.Execute(ctx, http.MethodDelete, fmt.Sprintf("/brand/%d", id), nil, nil, nil)
}

func nonNil(brands []models.Brand) []models.Brand {
	if brands == nil {
		return []models.Brand{}
	}
	return brands
}
