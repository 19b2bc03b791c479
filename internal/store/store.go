// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// Store errors.
var (
	// ErrNotFound reports that no item currently has the requested ID.
	// It is an expected outcome, not a fault.
	ErrNotFound = errors.New("item not found")

	// ErrInvalidArgument reports a draft that failed validation.
	ErrInvalidArgument = model.ErrInvalidArgument

	// ErrStorage wraps failures of a durable backing medium.
	ErrStorage = errors.New("storage failure")
)

// Store defines the interface for item storage operations.
//
// Implementations must be safe for concurrent use. A Get that starts after
// Create returns observes the created item, and Update and Delete check
// existence and apply the change as a single step.
type Store interface {
	// List returns all items in insertion order.
	List(ctx context.Context) ([]model.Item, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id string) (model.Item, error)

	// Create validates the draft, assigns an ID and creation time, and stores the item.
	Create(ctx context.Context, draft model.Draft) (model.Item, error)

	// Update replaces the name and price of an existing item.
	Update(ctx context.Context, id string, draft model.Draft) (model.Item, error)

	// Delete removes an item by its ID.
	Delete(ctx context.Context, id string) error
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// canonicalID reports whether id is a UUID in the lowercase hyphenated form
// every store issues. Any other spelling (uppercase, braces, urn prefix) can
// never have been issued, so callers treat it as absent.
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return "", false
	}
	return id, true
}
