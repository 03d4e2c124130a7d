package ledger

import (
	"context"
	"time"

	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
)

// TransactionGroupFilter holds filter criteria for listing groups
type TransactionGroupFilter struct {
	Status         *GroupStatus
	OrganizationID *valueobject.ObjectID
	FromDate       *time.Time
	ToDate         *time.Time
	Search         string
	Page           int
	PageSize       int
}

// TransactionGroupRepository defines persistence operations for
// transaction groups
type TransactionGroupRepository interface {
	// FindByID finds a group with its entries, links and usages.
	// Returns nil (no error) when not found.
	FindByID(ctx context.Context, id valueobject.ObjectID) (*TransactionGroup, error)

	// FindByGroupNumber finds a group by its human-readable number
	FindByGroupNumber(ctx context.Context, groupNumber string) (*TransactionGroup, error)

	// FindReferencedBy returns snapshots of the groups that cite the
	// given transaction as a funding source, newest first
	FindReferencedBy(ctx context.Context, sourceID valueobject.ObjectID) ([]ReferencedByInfo, error)

	// List returns groups matching the filter plus the total count
	List(ctx context.Context, filter TransactionGroupFilter) ([]TransactionGroup, int64, error)

	// Create persists a new group with its children
	Create(ctx context.Context, group *TransactionGroup) error

	// SaveWithLock persists changes using optimistic locking on Version
	SaveWithLock(ctx context.Context, group *TransactionGroup) error

	// Delete removes a group and its children
	Delete(ctx context.Context, id valueobject.ObjectID) error
}

// BalanceProvider supplies backend-computed balances for transactions
// acting as funding sources. Implementations may cache; invalidation is
// driven by transaction lifecycle events.
type BalanceProvider interface {
	// GetTransactionBalance returns the balance snapshot for the given
	// transaction, or nil when no figure can be computed
	GetTransactionBalance(ctx context.Context, id valueobject.ObjectID) (*BalanceSnapshot, error)
}
