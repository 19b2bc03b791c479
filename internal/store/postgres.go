package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

const createItemsTable = `
	create table if not exists catalog_items (
		seq        bigserial        not null,
		id         uuid             primary key,
		name       text             not null,
		price      double precision not null check (price >= 0),
		created_at timestamptz      not null
	)`

const itemColumns = `id::text, name, price, created_at`

// dbtx is the subset of pgxpool.Pool used by PostgresStore.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on top of a PostgreSQL table.
// Update and delete are single statements, so the existence check and the
// mutation cannot be interleaved with other writers.
type PostgresStore struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: pool, pool: pool}, nil
}

// EnsureSchema creates the items table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createItemsTable); err != nil {
		return fmt.Errorf("ensure schema: %w: %w", ErrStorage, err)
	}
	return nil
}

// List returns all items ordered by insertion.
func (s *PostgresStore) List(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.Query(ctx, `select `+itemColumns+` from catalog_items order by seq`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w: %w", ErrStorage, err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w: %w", ErrStorage, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w: %w", ErrStorage, err)
	}

	return items, nil
}

// Get retrieves an item by its ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (model.Item, error) {
	key, ok := canonicalID(id)
	if !ok {
		return model.Item{}, ErrNotFound
	}

	row := s.db.QueryRow(ctx, `select `+itemColumns+` from catalog_items where id = $1`, key)
	item, err := scanItem(row)
	if err != nil {
		return model.Item{}, mapRowError("get item", err)
	}

	return item, nil
}

// Create inserts a new item with a generated ID.
func (s *PostgresStore) Create(ctx context.Context, draft model.Draft) (model.Item, error) {
	if err := draft.Validate(); err != nil {
		return model.Item{}, err
	}

	// timestamptz keeps microseconds; truncate so the returned value matches later reads.
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	row := s.db.QueryRow(ctx,
		`insert into catalog_items (id, name, price, created_at)
		values ($1, $2, $3, $4)
		returning `+itemColumns,
		uuid.New().String(), draft.Name, draft.Price, createdAt,
	)
	item, err := scanItem(row)
	if err != nil {
		return model.Item{}, fmt.Errorf("create item: %w: %w", ErrStorage, err)
	}

	return item, nil
}

// Update replaces name and price of an existing item.
func (s *PostgresStore) Update(ctx context.Context, id string, draft model.Draft) (model.Item, error) {
	if err := draft.Validate(); err != nil {
		return model.Item{}, err
	}

	key, ok := canonicalID(id)
	if !ok {
		return model.Item{}, ErrNotFound
	}

	row := s.db.QueryRow(ctx,
		`update catalog_items set name = $2, price = $3
		where id = $1
		returning `+itemColumns,
		key, draft.Name, draft.Price,
	)
	item, err := scanItem(row)
	if err != nil {
		return model.Item{}, mapRowError("update item", err)
	}

	return item, nil
}

// Delete removes an item by its ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	key, ok := canonicalID(id)
	if !ok {
		return ErrNotFound
	}

	tag, err := s.db.Exec(ctx, `delete from catalog_items where id = $1`, key)
	if err != nil {
		return fmt.Errorf("delete item: %w: %w", ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w: %w", ErrStorage, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func scanItem(row pgx.Row) (model.Item, error) {
	var item model.Item
	if err := row.Scan(&item.ID, &item.Name, &item.Price, &item.CreatedAt); err != nil {
		return model.Item{}, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

// mapRowError turns pgx.ErrNoRows into ErrNotFound and everything else into ErrStorage.
func mapRowError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w: %w", operation, ErrStorage, err)
}
