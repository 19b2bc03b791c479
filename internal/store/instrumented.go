package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// Operation result labels.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultInvalid  = "invalid"
	resultError    = "error"
)

// InstrumentedStore records Prometheus metrics for every call to the wrapped Store.
type InstrumentedStore struct {
	next       Store
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewInstrumentedStore wraps next and registers its collectors with reg.
func NewInstrumentedStore(next Store, reg prometheus.Registerer) *InstrumentedStore {
	factory := promauto.With(reg)

	return &InstrumentedStore{
		next: next,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_store_operations_total",
				Help: "Total number of item store operations",
			},
			[]string{"operation", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_store_operation_duration_seconds",
				Help:    "Item store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// List returns all items from the wrapped store.
func (s *InstrumentedStore) List(ctx context.Context) ([]model.Item, error) {
	start := time.Now()
	items, err := s.next.List(ctx)
	s.observe("list", start, err)
	return items, err
}

// Get retrieves an item from the wrapped store.
func (s *InstrumentedStore) Get(ctx context.Context, id string) (model.Item, error) {
	start := time.Now()
	item, err := s.next.Get(ctx, id)
	s.observe("get", start, err)
	return item, err
}

// Create adds an item to the wrapped store.
func (s *InstrumentedStore) Create(ctx context.Context, draft model.Draft) (model.Item, error) {
	start := time.Now()
	item, err := s.next.Create(ctx, draft)
	s.observe("create", start, err)
	return item, err
}

// Update modifies an item in the wrapped store.
func (s *InstrumentedStore) Update(ctx context.Context, id string, draft model.Draft) (model.Item, error) {
	start := time.Now()
	item, err := s.next.Update(ctx, id, draft)
	s.observe("update", start, err)
	return item, err
}

// Delete removes an item from the wrapped store.
func (s *InstrumentedStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.observe("delete", start, err)
	return err
}

// Ping forwards to the wrapped store when it supports health checks.
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	if p, ok := s.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close forwards to the wrapped store when it holds resources.
func (s *InstrumentedStore) Close() error {
	if c, ok := s.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	s.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	s.operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrNotFound):
		return resultNotFound
	case errors.Is(err, ErrInvalidArgument):
		return resultInvalid
	default:
		return resultError
	}
}
