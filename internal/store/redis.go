package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// DefaultRedisKeyPrefix namespaces every key written by RedisStore.
const DefaultRedisKeyPrefix = "catalog"

// listScript reads the order index and every item hash in one atomic step.
// Item keys are derived inside the script, so it assumes a single Redis node.
var listScript = redis.NewScript(`
local ids = redis.call('ZRANGE', KEYS[1], 0, -1)
local out = {}
for _, id in ipairs(ids) do
	local h = redis.call('HMGET', ARGV[1] .. id, 'name', 'price', 'created_at')
	if h[1] then
		table.insert(out, id)
		table.insert(out, h[1])
		table.insert(out, h[2])
		table.insert(out, h[3])
	end
end
return out
`)

// updateScript replaces name and price only when the item hash exists.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HSET', KEYS[1], 'name', ARGV[1], 'price', ARGV[2])
return redis.call('HMGET', KEYS[1], 'name', 'price', 'created_at')
`)

// deleteScript removes the item hash and its order index entry together.
var deleteScript = redis.NewScript(`
if redis.call('DEL', KEYS[1]) == 0 then
	return 0
end
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`)

// RedisStore implements Store on Redis hashes plus a sorted set holding
// insertion order. Mutations that need an existence check run as Lua scripts.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisClient parses redisURL, applies pool settings, and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultRedisKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// List returns all items in insertion order.
func (s *RedisStore) List(ctx context.Context) ([]model.Item, error) {
	vals, err := listScript.Run(ctx, s.client, []string{s.indexKey()}, s.itemKeyPrefix()).Slice()
	if err != nil {
		return nil, fmt.Errorf("list items: %w: %w", ErrStorage, err)
	}

	items := make([]model.Item, 0, len(vals)/4)
	for i := 0; i+3 < len(vals); i += 4 {
		id, _ := vals[i].(string)
		item, err := decodeItem(id, vals[i+1], vals[i+2], vals[i+3])
		if err != nil {
			return nil, fmt.Errorf("decode item %s: %w: %w", id, ErrStorage, err)
		}
		items = append(items, item)
	}

	return items, nil
}

// Get retrieves an item by its ID.
func (s *RedisStore) Get(ctx context.Context, id string) (model.Item, error) {
	key, ok := canonicalID(id)
	if !ok {
		return model.Item{}, ErrNotFound
	}

	vals, err := s.client.HMGet(ctx, s.itemKey(key), "name", "price", "created_at").Result()
	if err != nil {
		return model.Item{}, fmt.Errorf("get item: %w: %w", ErrStorage, err)
	}
	if vals[0] == nil {
		return model.Item{}, ErrNotFound
	}

	item, err := decodeItem(key, vals[0], vals[1], vals[2])
	if err != nil {
		return model.Item{}, fmt.Errorf("decode item %s: %w: %w", key, ErrStorage, err)
	}

	return item, nil
}

// Create stores a new item with a generated ID.
func (s *RedisStore) Create(ctx context.Context, draft model.Draft) (model.Item, error) {
	if err := draft.Validate(); err != nil {
		return model.Item{}, err
	}

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return model.Item{}, fmt.Errorf("create item: next sequence: %w: %w", ErrStorage, err)
	}

	item := model.Item{
		ID:        uuid.New().String(),
		Name:      draft.Name,
		Price:     draft.Price,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.itemKey(item.ID),
			"name", item.Name,
			"price", formatPrice(item.Price),
			"created_at", item.CreatedAt.Format(time.RFC3339Nano),
		)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(seq), Member: item.ID})
		return nil
	})
	if err != nil {
		return model.Item{}, fmt.Errorf("create item: %w: %w", ErrStorage, err)
	}

	return item, nil
}

// Update replaces name and price of an existing item.
func (s *RedisStore) Update(ctx context.Context, id string, draft model.Draft) (model.Item, error) {
	if err := draft.Validate(); err != nil {
		return model.Item{}, err
	}

	key, ok := canonicalID(id)
	if !ok {
		return model.Item{}, ErrNotFound
	}

	res, err := updateScript.Run(ctx, s.client, []string{s.itemKey(key)},
		draft.Name, formatPrice(draft.Price),
	).Result()
	if errors.Is(err, redis.Nil) {
		return model.Item{}, ErrNotFound
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("update item: %w: %w", ErrStorage, err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return model.Item{}, fmt.Errorf("update item: unexpected script reply %v: %w", res, ErrStorage)
	}

	item, err := decodeItem(key, vals[0], vals[1], vals[2])
	if err != nil {
		return model.Item{}, fmt.Errorf("decode item %s: %w: %w", key, ErrStorage, err)
	}

	return item, nil
}

// Delete removes an item by its ID.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	key, ok := canonicalID(id)
	if !ok {
		return ErrNotFound
	}

	removed, err := deleteScript.Run(ctx, s.client, []string{s.itemKey(key), s.indexKey()}, key).Int()
	if err != nil {
		return fmt.Errorf("delete item: %w: %w", ErrStorage, err)
	}
	if removed == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks the Redis connection health.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %w", ErrStorage, err)
	}
	return nil
}

// Close shuts down the underlying client.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

func (s *RedisStore) itemKeyPrefix() string {
	return s.prefix + ":item:"
}

// itemKey builds "{prefix}:item:{id}".
func (s *RedisStore) itemKey(id string) string {
	return s.itemKeyPrefix() + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":items"
}

func (s *RedisStore) seqKey() string {
	return s.prefix + ":seq"
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'g', -1, 64)
}

// decodeItem builds an item from raw hash values as returned by HMGET.
func decodeItem(id string, name, price, createdAt interface{}) (model.Item, error) {
	nameStr, ok := name.(string)
	if !ok {
		return model.Item{}, errors.New("missing name")
	}
	priceStr, ok := price.(string)
	if !ok {
		return model.Item{}, errors.New("missing price")
	}
	createdStr, ok := createdAt.(string)
	if !ok {
		return model.Item{}, errors.New("missing created_at")
	}

	p, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return model.Item{}, fmt.Errorf("parse price: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return model.Item{}, fmt.Errorf("parse created_at: %w", err)
	}

	return model.Item{
		ID:        id,
		Name:      nameStr,
		Price:     p,
		CreatedAt: ts.UTC(),
	}, nil
}
