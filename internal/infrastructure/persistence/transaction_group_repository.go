package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpharm/ledger/internal/domain/ledger"
	"github.com/openpharm/ledger/internal/domain/shared"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"gorm.io/gorm"
)

// GormTransactionGroupRepository implements TransactionGroupRepository using GORM
type GormTransactionGroupRepository struct {
	db *gorm.DB
}

// NewGormTransactionGroupRepository creates a new GormTransactionGroupRepository
func NewGormTransactionGroupRepository(db *gorm.DB) *GormTransactionGroupRepository {
	return &GormTransactionGroupRepository{db: db}
}

// FindByID finds a transaction group with its entries, links and usage
// records. Returns nil without error when the group does not exist.
func (r *GormTransactionGroupRepository) FindByID(ctx context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	var group ledger.TransactionGroup
	if err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Links", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("FundingSourceUsages").
		First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// FindByGroupNumber finds a group by its human-readable number.
// Returns nil without error when not found.
func (r *GormTransactionGroupRepository) FindByGroupNumber(ctx context.Context, groupNumber string) (*ledger.TransactionGroup, error) {
	var group ledger.TransactionGroup
	if err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Links", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("FundingSourceUsages").
		First(&group, "group_number = ?", groupNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// FindReferencedBy returns snapshots of the groups that draw funding
// from the given transaction, newest first
func (r *GormTransactionGroupRepository) FindReferencedBy(ctx context.Context, sourceID valueobject.ObjectID) ([]ledger.ReferencedByInfo, error) {
	var groups []ledger.TransactionGroup
	if err := r.db.WithContext(ctx).
		Joins("JOIN transaction_links ON transaction_links.transaction_group_id = transaction_groups.id").
		Where("transaction_links.source_id = ?", sourceID).
		Order("transaction_groups.transaction_date DESC").
		Preload("Entries").
		Find(&groups).Error; err != nil {
		return nil, err
	}

	infos := make([]ledger.ReferencedByInfo, 0, len(groups))
	for i := range groups {
		g := &groups[i]
		infos = append(infos, ledger.ReferencedByInfo{
			TransactionID: g.ID,
			GroupNumber:   g.GroupNumber,
			Description:   g.Description,
			Date:          g.TransactionDate,
			TotalAmount:   g.TotalAmount(),
			Status:        g.Status,
		})
	}
	return infos, nil
}

// List returns groups matching the filter plus the total count
func (r *GormTransactionGroupRepository) List(ctx context.Context, filter ledger.TransactionGroupFilter) ([]ledger.TransactionGroup, int64, error) {
	query := r.db.WithContext(ctx).Model(&ledger.TransactionGroup{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OrganizationID != nil {
		query = query.Where("organization_id = ?", *filter.OrganizationID)
	}
	if filter.FromDate != nil {
		query = query.Where("transaction_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("transaction_date <= ?", *filter.ToDate)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("group_number ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var groups []ledger.TransactionGroup
	if err := query.
		Order("transaction_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Links", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Find(&groups).Error; err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// Create persists a new group with its children
func (r *GormTransactionGroupRepository) Create(ctx context.Context, group *ledger.TransactionGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

// SaveWithLock persists the group using optimistic locking on Version.
// Child rows are replaced wholesale; the entry list is small and fully
// owned by the aggregate.
func (r *GormTransactionGroupRepository) SaveWithLock(ctx context.Context, group *ledger.TransactionGroup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ledger.TransactionGroup{}).
			Where("id = ? AND version < ?", group.ID, group.Version).
			Select("group_number", "transaction_date", "description", "status",
				"organization_id", "invoice_number", "funding_type", "source_transaction_id",
				"confirmed_at", "cancelled_at", "version", "updated_at").
			Updates(group)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Where("transaction_group_id = ?", group.ID).Delete(&ledger.AccountingEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("transaction_group_id = ?", group.ID).Delete(&ledger.TransactionLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("transaction_group_id = ?", group.ID).Delete(&ledger.FundingSourceUsage{}).Error; err != nil {
			return err
		}

		if len(group.Entries) > 0 {
			if err := tx.Create(&group.Entries).Error; err != nil {
				return err
			}
		}
		if len(group.Links) > 0 {
			if err := tx.Create(&group.Links).Error; err != nil {
				return err
			}
		}
		if len(group.FundingSourceUsages) > 0 {
			if err := tx.Create(&group.FundingSourceUsages).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a group and its children
func (r *GormTransactionGroupRepository) Delete(ctx context.Context, id valueobject.ObjectID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transaction_group_id = ?", id).Delete(&ledger.AccountingEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("transaction_group_id = ?", id).Delete(&ledger.TransactionLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("transaction_group_id = ?", id).Delete(&ledger.FundingSourceUsage{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&ledger.TransactionGroup{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

var _ ledger.TransactionGroupRepository = (*GormTransactionGroupRepository)(nil)

// GormBalanceProvider computes real balances from stored groups and
// their referencing transactions
type GormBalanceProvider struct {
	repo *GormTransactionGroupRepository
}

// NewGormBalanceProvider creates a balance provider backed by the
// transaction group repository
func NewGormBalanceProvider(repo *GormTransactionGroupRepository) *GormBalanceProvider {
	return &GormBalanceProvider{repo: repo}
}

// GetTransactionBalance returns the group's face value and what remains
// after subtracting every non-cancelled referencing transaction.
// Returns nil when the transaction does not exist.
func (p *GormBalanceProvider) GetTransactionBalance(ctx context.Context, id valueobject.ObjectID) (*ledger.BalanceSnapshot, error) {
	group, err := p.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction group: %w", err)
	}
	if group == nil {
		return nil, nil
	}

	referencedBy, err := p.repo.FindReferencedBy(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load referencing transactions: %w", err)
	}

	total := group.TotalAmount()
	return &ledger.BalanceSnapshot{
		TotalAmount:     total,
		AvailableAmount: ledger.CalculateAvailableAmount(total, referencedBy),
		HasRealBalance:  true,
	}, nil
}

var _ ledger.BalanceProvider = (*GormBalanceProvider)(nil)
