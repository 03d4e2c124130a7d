package cache

import (
	"context"
	"sync"
	"time"

	"github.com/openpharm/ledger/internal/domain/ledger"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
)

// TransactionBalanceCache caches balance snapshots keyed by transaction
// group ID. A nil snapshot is a valid cached value (the provider knows
// nothing about the transaction), so Get distinguishes hit from miss.
type TransactionBalanceCache interface {
	Get(ctx context.Context, id valueobject.ObjectID) (*ledger.BalanceSnapshot, bool, error)
	Set(ctx context.Context, id valueobject.ObjectID, snapshot *ledger.BalanceSnapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, ids ...valueobject.ObjectID) error
	Close() error
}

type inMemoryEntry struct {
	snapshot  *ledger.BalanceSnapshot
	expiresAt time.Time
}

// InMemoryBalanceCache is a process-local TransactionBalanceCache.
// Suitable for single-instance deployments and testing; state is not
// shared across processes.
type InMemoryBalanceCache struct {
	mu      sync.RWMutex
	entries map[valueobject.ObjectID]inMemoryEntry
	now     func() time.Time
}

// NewInMemoryBalanceCache creates a new in-memory balance cache
func NewInMemoryBalanceCache() *InMemoryBalanceCache {
	return &InMemoryBalanceCache{
		entries: make(map[valueobject.ObjectID]inMemoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached snapshot for id, reporting whether it was present
func (c *InMemoryBalanceCache) Get(_ context.Context, id valueobject.ObjectID) (*ledger.BalanceSnapshot, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.snapshot, true, nil
}

// Set stores a snapshot with the given TTL. A zero TTL means no expiry.
func (c *InMemoryBalanceCache) Set(_ context.Context, id valueobject.ObjectID, snapshot *ledger.BalanceSnapshot, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[id] = inMemoryEntry{snapshot: snapshot, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

// Invalidate removes the cached snapshots for the given IDs
func (c *InMemoryBalanceCache) Invalidate(_ context.Context, ids ...valueobject.ObjectID) error {
	c.mu.Lock()
	for _, id := range ids {
		delete(c.entries, id)
	}
	c.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory cache
func (c *InMemoryBalanceCache) Close() error {
	return nil
}

var _ TransactionBalanceCache = (*InMemoryBalanceCache)(nil)
