// Package catalog is the seam between the item store and the transports
// that expose it.
package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/model"
	"github.com/vyrodovalexey/catalog-service/internal/store"
)

// Notifier receives an event after every successful mutation.
type Notifier interface {
	Publish(event model.ChangeEvent)
}

// Service maps catalog requests onto store operations.
type Service struct {
	store    store.Store
	notifier Notifier
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the receiver of change events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service backed by st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query lists items, keeping only those whose name contains nameFilter
// case-insensitively. A blank filter returns every item.
func (s *Service) Query(ctx context.Context, nameFilter string) ([]model.Item, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(nameFilter) == "" {
		return items, nil
	}

	needle := strings.ToLower(nameFilter)
	filtered := make([]model.Item, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			filtered = append(filtered, item)
		}
	}

	return filtered, nil
}

// GetByID returns the item with the given id or store.ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (model.Item, error) {
	return s.store.Get(ctx, id)
}

// Create stores a new item built from draft.
func (s *Service) Create(ctx context.Context, draft model.Draft) (model.Item, error) {
	item, err := s.store.Create(ctx, draft)
	if err != nil {
		return model.Item{}, err
	}

	s.publish(model.ChangeTypeCreated, item)
	return item, nil
}

// Update replaces name and price of the item with the given id.
func (s *Service) Update(ctx context.Context, id string, draft model.Draft) (model.Item, error) {
	item, err := s.store.Update(ctx, id, draft)
	if err != nil {
		return model.Item{}, err
	}

	s.publish(model.ChangeTypeUpdated, item)
	return item, nil
}

// Delete removes the item with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(model.ChangeTypeDeleted, model.Item{ID: id})
	return nil
}

func (s *Service) publish(changeType model.ChangeType, item model.Item) {
	if s.notifier == nil {
		return
	}

	s.notifier.Publish(model.NewChangeEvent(changeType, item))
	s.logger.Debug("change event published",
		zap.String("type", string(changeType)),
		zap.String("item_id", item.ID),
	)
}
