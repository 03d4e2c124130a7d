package cache

import (
	"fmt"

	"github.com/openpharm/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// BalanceCacheFactory creates balance caches based on configuration
type BalanceCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// BalanceCacheFactoryOption is a functional option for configuring the factory
type BalanceCacheFactoryOption func(*BalanceCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) BalanceCacheFactoryOption {
	return func(f *BalanceCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory
// cache when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) BalanceCacheFactoryOption {
	return func(f *BalanceCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewBalanceCacheFactory creates a new factory
func NewBalanceCacheFactory(cfg config.RedisConfig, opts ...BalanceCacheFactoryOption) *BalanceCacheFactory {
	f := &BalanceCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed balance cache
func (f *BalanceCacheFactory) CreateRedisCache() (TransactionBalanceCache, error) {
	cache, err := NewRedisBalanceCache(RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis balance cache: %w", err)
	}
	return cache, nil
}

// CreateInMemoryCache creates an in-memory balance cache.
// WARNING: in-memory caches do not share state across process instances,
// so invalidations on one instance are invisible to the others.
func (f *BalanceCacheFactory) CreateInMemoryCache() TransactionBalanceCache {
	return NewInMemoryBalanceCache()
}

// CreateCache tries Redis first and falls back to in-memory when
// allowed
func (f *BalanceCacheFactory) CreateCache() (TransactionBalanceCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis balance cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for balance cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory balance cache. "+
		"Invalidations will not propagate across instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
