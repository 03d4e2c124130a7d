package cache

import (
	"context"

	"github.com/openpharm/ledger/internal/domain/ledger"
	"github.com/openpharm/ledger/internal/domain/shared"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// BalanceInvalidationHandler drops cached balances when a transaction
// group changes state. The group's own balance changes, and so does the
// availability of every funding source it draws from, so both sides of
// the edge are invalidated.
type BalanceInvalidationHandler struct {
	cache  TransactionBalanceCache
	logger *zap.Logger
}

// NewBalanceInvalidationHandler creates a new invalidation handler
func NewBalanceInvalidationHandler(cache TransactionBalanceCache, logger *zap.Logger) *BalanceInvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceInvalidationHandler{cache: cache, logger: logger}
}

// EventTypes returns the lifecycle events that move balances
func (h *BalanceInvalidationHandler) EventTypes() []string {
	return []string{
		ledger.EventTransactionGroupConfirmed,
		ledger.EventTransactionGroupUnlocked,
		ledger.EventTransactionGroupCancelled,
	}
}

// Handle invalidates the group's balance and the balances of its sources
func (h *BalanceInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	ids := []valueobject.ObjectID{event.AggregateID()}

	switch e := event.(type) {
	case *ledger.TransactionGroupConfirmedEvent:
		ids = append(ids, e.SourceIDs...)
	case *ledger.TransactionGroupUnlockedEvent:
		ids = append(ids, e.SourceIDs...)
	case *ledger.TransactionGroupCancelledEvent:
		ids = append(ids, e.SourceIDs...)
	}

	if err := h.cache.Invalidate(ctx, ids...); err != nil {
		return err
	}

	h.logger.Debug("invalidated cached balances",
		zap.String("event_type", event.EventType()),
		zap.Int("count", len(ids)),
	)
	return nil
}

var _ shared.EventHandler = (*BalanceInvalidationHandler)(nil)
