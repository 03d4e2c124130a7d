package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openpharm/ledger/internal/domain/ledger"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/redis/go-redis/v9"
)

// RedisBalanceCache implements TransactionBalanceCache using Redis.
// Suitable for distributed deployments where multiple instances need to
// share cached balances.
type RedisBalanceCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// cachedSnapshot is the wire form of a cache entry. Present
// distinguishes a cached "provider has no balance" answer from a
// real snapshot.
type cachedSnapshot struct {
	Present  bool                    `json:"present"`
	Snapshot *ledger.BalanceSnapshot `json:"snapshot,omitempty"`
}

// NewRedisBalanceCache creates a new Redis-backed balance cache
func NewRedisBalanceCache(cfg RedisConfig) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBalanceCache{
		client:    client,
		keyPrefix: "ledger:balance:",
	}, nil
}

// NewRedisBalanceCacheWithClient creates a cache with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisBalanceCacheWithClient(client *redis.Client, keyPrefix string) *RedisBalanceCache {
	if keyPrefix == "" {
		keyPrefix = "ledger:balance:"
	}
	return &RedisBalanceCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached snapshot for id, reporting whether it was present
func (c *RedisBalanceCache) Get(ctx context.Context, id valueobject.ObjectID) (*ledger.BalanceSnapshot, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached balance: %w", err)
	}

	var entry cachedSnapshot
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is treated as a miss so the caller refetches
		return nil, false, nil
	}
	if !entry.Present {
		return nil, true, nil
	}
	return entry.Snapshot, true, nil
}

// Set stores a snapshot with the given TTL
func (c *RedisBalanceCache) Set(ctx context.Context, id valueobject.ObjectID, snapshot *ledger.BalanceSnapshot, ttl time.Duration) error {
	raw, err := json.Marshal(cachedSnapshot{Present: snapshot != nil, Snapshot: snapshot})
	if err != nil {
		return fmt.Errorf("failed to encode balance snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+id.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache balance: %w", err)
	}
	return nil
}

// Invalidate removes the cached snapshots for the given IDs
func (c *RedisBalanceCache) Invalidate(ctx context.Context, ids ...valueobject.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.keyPrefix+id.String())
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached balances: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}

var _ TransactionBalanceCache = (*RedisBalanceCache)(nil)
