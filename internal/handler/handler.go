// Package handler provides HTTP request handlers for the REST API.
package handler

import (
	"context"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// ItemService is the catalog facade consumed by the REST handler.
type ItemService interface {
	Query(ctx context.Context, nameFilter string) ([]model.Item, error)
	GetByID(ctx context.Context, id string) (model.Item, error)
	Create(ctx context.Context, draft model.Draft) (model.Item, error)
	Update(ctx context.Context, id string, draft model.Draft) (model.Item, error)
	Delete(ctx context.Context, id string) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}
