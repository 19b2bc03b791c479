package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// runContractTests exercises the behaviour every Store backend must share.
// newStore must return an empty, isolated store.
func runContractTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("empty list", func(t *testing.T) {
		s := newStore(t)

		items, err := s.List(context.Background())
		if err != nil {
			t.Fatalf("List() unexpected error: %v", err)
		}
		if items == nil {
			t.Error("List() should return an empty slice, not nil")
		}
		if len(items) != 0 {
			t.Errorf("List() returned %d items, want 0", len(items))
		}
	})

	t.Run("create then get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		before := time.Now().UTC().Add(-time.Millisecond)

		created, err := s.Create(ctx, model.Draft{Name: "Potion", Price: 10})
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		if created.ID == "" {
			t.Fatal("Create() should generate an ID")
		}
		if created.CreatedAt.Before(before) {
			t.Errorf("CreatedAt = %v, want at or after %v", created.CreatedAt, before)
		}

		got, err := s.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		if got.Name != "Potion" || got.Price != 10 {
			t.Errorf("Get() = %s/%v, want Potion/10", got.Name, got.Price)
		}
		if !got.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created.CreatedAt)
		}
	})

	t.Run("only the issued id spelling resolves", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Create(ctx, model.Draft{Name: "Potion", Price: 10})
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}

		for _, id := range []string{
			strings.ToUpper(created.ID),
			"{" + created.ID + "}",
			"urn:uuid:" + created.ID,
		} {
			if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(%q) error = %v, want %v", id, err, ErrNotFound)
			}
			if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Delete(%q) error = %v, want %v", id, err, ErrNotFound)
			}
		}

		if _, err := s.Get(ctx, created.ID); err != nil {
			t.Errorf("Get(%q) after rejected spellings: %v", created.ID, err)
		}
	})

	t.Run("list keeps insertion order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		names := []string{"Potion", "Antidote", "Hi-Potion", "Ether"}

		for _, name := range names {
			if _, err := s.Create(ctx, model.Draft{Name: name, Price: 1}); err != nil {
				t.Fatalf("Create(%s) unexpected error: %v", name, err)
			}
		}

		items, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() unexpected error: %v", err)
		}
		if len(items) != len(names) {
			t.Fatalf("List() returned %d items, want %d", len(items), len(names))
		}
		for i, name := range names {
			if items[i].Name != name {
				t.Errorf("items[%d].Name = %s, want %s", i, items[i].Name, name)
			}
		}
	})

	t.Run("update preserves identity", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Create(ctx, model.Draft{Name: "Elixir", Price: 50})
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}

		updated, err := s.Update(ctx, created.ID, model.Draft{Name: "Elixir+", Price: 75})
		if err != nil {
			t.Fatalf("Update() unexpected error: %v", err)
		}
		if updated.ID != created.ID {
			t.Errorf("Update() ID = %s, want %s", updated.ID, created.ID)
		}
		if !updated.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("Update() CreatedAt = %v, want %v", updated.CreatedAt, created.CreatedAt)
		}

		got, err := s.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		if got.ID != created.ID || got.Name != "Elixir+" || got.Price != 75 {
			t.Errorf("Get() = %+v, want Elixir+/75 under id %s", got, created.ID)
		}
		if !got.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("Get() CreatedAt = %v, want %v", got.CreatedAt, created.CreatedAt)
		}
	})

	t.Run("update keeps list position", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first, _ := s.Create(ctx, model.Draft{Name: "first", Price: 1})
		_, _ = s.Create(ctx, model.Draft{Name: "second", Price: 2})

		if _, err := s.Update(ctx, first.ID, model.Draft{Name: "first-renamed", Price: 3}); err != nil {
			t.Fatalf("Update() unexpected error: %v", err)
		}

		items, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() unexpected error: %v", err)
		}
		if len(items) != 2 || items[0].Name != "first-renamed" || items[1].Name != "second" {
			t.Errorf("List() = %+v, want [first-renamed second]", items)
		}
	})

	t.Run("delete twice", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Create(ctx, model.Draft{Name: "Phoenix Down", Price: 300})
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}

		if err := s.Delete(ctx, created.ID); err != nil {
			t.Fatalf("first Delete() unexpected error: %v", err)
		}
		if err := s.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete() error = %v, want %v", err, ErrNotFound)
		}
	})

	t.Run("deleted item is gone", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, _ := s.Create(ctx, model.Draft{Name: "Tent", Price: 40})
		if err := s.Delete(ctx, created.ID); err != nil {
			t.Fatalf("Delete() unexpected error: %v", err)
		}

		if _, err := s.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() after delete error = %v, want %v", err, ErrNotFound)
		}
		if _, err := s.Update(ctx, created.ID, model.Draft{Name: "Tent", Price: 1}); !errors.Is(err, ErrNotFound) {
			t.Errorf("Update() after delete error = %v, want %v", err, ErrNotFound)
		}

		items, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() unexpected error: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("List() after delete returned %d items, want 0", len(items))
		}
	})

	t.Run("unknown ids", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ids := []string{"", "non-existent-id", "3f1c2a4e-8a3b-4c2d-9e1f-000000000000"}

		for _, id := range ids {
			if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(%q) error = %v, want %v", id, err, ErrNotFound)
			}
			if _, err := s.Update(ctx, id, model.Draft{Name: "x", Price: 1}); !errors.Is(err, ErrNotFound) {
				t.Errorf("Update(%q) error = %v, want %v", id, err, ErrNotFound)
			}
			if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Delete(%q) error = %v, want %v", id, err, ErrNotFound)
			}
		}
	})

	t.Run("invalid drafts leave state unchanged", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		existing, err := s.Create(ctx, model.Draft{Name: "Potion", Price: 10})
		if err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}

		if _, err := s.Create(ctx, model.Draft{Name: "", Price: 5}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Create() empty name error = %v, want %v", err, ErrInvalidArgument)
		}
		if _, err := s.Create(ctx, model.Draft{Name: "Bad", Price: -1}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Create() negative price error = %v, want %v", err, ErrInvalidArgument)
		}
		if _, err := s.Update(ctx, existing.ID, model.Draft{Name: "", Price: 1}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Update() empty name error = %v, want %v", err, ErrInvalidArgument)
		}

		items, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() unexpected error: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("List() returned %d items, want 1", len(items))
		}
		if items[0].Name != "Potion" || items[0].Price != 10 {
			t.Errorf("item changed to %s/%v, want Potion/10", items[0].Name, items[0].Price)
		}
	})

	t.Run("concurrent creates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		numGoroutines := 50

		var wg sync.WaitGroup
		wg.Add(numGoroutines)
		ids := make(chan string, numGoroutines)

		for i := 0; i < numGoroutines; i++ {
			go func(n int) {
				defer wg.Done()
				created, err := s.Create(ctx, model.Draft{Name: "Test Item", Price: float64(n)})
				if err != nil {
					t.Errorf("Create() unexpected error: %v", err)
					return
				}
				ids <- created.ID
			}(i)
		}

		wg.Wait()
		close(ids)

		seen := make(map[string]bool)
		for id := range ids {
			if seen[id] {
				t.Errorf("duplicate ID generated: %s", id)
			}
			seen[id] = true
		}

		items, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() unexpected error: %v", err)
		}
		if len(items) != numGoroutines {
			t.Errorf("List() returned %d items, want %d", len(items), numGoroutines)
		}
	})

	t.Run("concurrent update and delete never resurrect", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for round := 0; round < 20; round++ {
			created, err := s.Create(ctx, model.Draft{Name: "Ether", Price: 1})
			if err != nil {
				t.Fatalf("Create() unexpected error: %v", err)
			}

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := s.Update(ctx, created.ID, model.Draft{Name: "Turbo Ether", Price: 2})
				if err != nil && !errors.Is(err, ErrNotFound) {
					t.Errorf("Update() unexpected error: %v", err)
				}
			}()
			go func() {
				defer wg.Done()
				if err := s.Delete(ctx, created.ID); err != nil {
					t.Errorf("Delete() unexpected error: %v", err)
				}
			}()
			wg.Wait()

			if _, err := s.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get() after concurrent delete error = %v, want %v", err, ErrNotFound)
			}
		}
	})
}
