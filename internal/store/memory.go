package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]model.Item
	order []string
	newID func() string
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]model.Item),
		newID: func() string { return uuid.New().String() },
	}
}

// List returns all items from the store in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, s.items[id])
	}

	return items, nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.Item, error) {
	select {
	case <-ctx.Done():
		return model.Item{}, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return model.Item{}, ErrNotFound
	}

	return item, nil
}

// Create adds a new item to the store and returns it with generated ID.
func (s *MemoryStore) Create(ctx context.Context, draft model.Draft) (model.Item, error) {
	select {
	case <-ctx.Done():
		return model.Item{}, fmt.Errorf("create item: %w", ctx.Err())
	default:
	}

	if err := draft.Validate(); err != nil {
		return model.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	if _, taken := s.items[id]; taken {
		return model.Item{}, fmt.Errorf("create item: generated duplicate id %s", id)
	}

	item := model.Item{
		ID:        id,
		Name:      draft.Name,
		Price:     draft.Price,
		CreatedAt: time.Now().UTC(),
	}

	s.items[id] = item
	s.order = append(s.order, id)

	return item, nil
}

// Update replaces name and price of an existing item.
func (s *MemoryStore) Update(ctx context.Context, id string, draft model.Draft) (model.Item, error) {
	select {
	case <-ctx.Done():
		return model.Item{}, fmt.Errorf("update item: %w", ctx.Err())
	default:
	}

	if err := draft.Validate(); err != nil {
		return model.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.items[id]
	if !exists {
		return model.Item{}, ErrNotFound
	}

	updated := existing.WithDraft(draft)
	s.items[id] = updated

	return updated, nil
}

// Delete removes an item from the store by its ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ErrNotFound
	}

	delete(s.items, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}

	return nil
}

// Len returns the number of items currently stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}
