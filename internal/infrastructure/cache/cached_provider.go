package cache

import (
	"context"
	"time"

	"github.com/openpharm/ledger/internal/domain/ledger"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// CachedBalanceProvider is a read-through cache in front of a
// BalanceProvider. Cache failures never fail a lookup; they degrade to
// the underlying provider.
type CachedBalanceProvider struct {
	provider ledger.BalanceProvider
	cache    TransactionBalanceCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCachedBalanceProvider creates a read-through balance provider
func NewCachedBalanceProvider(
	provider ledger.BalanceProvider,
	cache TransactionBalanceCache,
	ttl time.Duration,
	logger *zap.Logger,
) *CachedBalanceProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedBalanceProvider{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

// GetTransactionBalance returns the cached balance for id, fetching and
// caching it on a miss
func (p *CachedBalanceProvider) GetTransactionBalance(ctx context.Context, id valueobject.ObjectID) (*ledger.BalanceSnapshot, error) {
	snapshot, hit, err := p.cache.Get(ctx, id)
	if err != nil {
		p.logger.Warn("balance cache read failed",
			zap.String("transaction_id", id.String()),
			zap.Error(err),
		)
	} else if hit {
		return snapshot, nil
	}

	snapshot, err = p.provider.GetTransactionBalance(ctx, id)
	if err != nil {
		return nil, err
	}

	if cacheErr := p.cache.Set(ctx, id, snapshot, p.ttl); cacheErr != nil {
		p.logger.Warn("balance cache write failed",
			zap.String("transaction_id", id.String()),
			zap.Error(cacheErr),
		)
	}
	return snapshot, nil
}

var _ ledger.BalanceProvider = (*CachedBalanceProvider)(nil)
