package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/openpharm/ledger/internal/domain/ledger"
	"github.com/openpharm/ledger/internal/domain/shared"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EntryInput is one entry leg in a create/replace request
type EntryInput struct {
	AccountID   string
	AccountName string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// CreateTransactionGroupRequest carries the fields for a new draft group
type CreateTransactionGroupRequest struct {
	GroupNumber     string
	TransactionDate time.Time
	Description     string
	OrganizationID  *valueobject.ObjectID
	InvoiceNumber   string
	SourceIDs       []valueobject.ObjectID
	Entries         []EntryInput
}

// TransactionService handles the lifecycle of transaction groups
type TransactionService struct {
	repo      ledger.TransactionGroupRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	repo ledger.TransactionGroupRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateTransactionGroup creates a new draft group with entries and
// funding links
func (s *TransactionService) CreateTransactionGroup(ctx context.Context, req CreateTransactionGroupRequest) (*ledger.TransactionGroup, error) {
	existing, err := s.repo.FindByGroupNumber(ctx, req.GroupNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check group number: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Group number %s already exists", req.GroupNumber))
	}

	group, err := ledger.NewTransactionGroup(req.GroupNumber, req.TransactionDate, req.Description)
	if err != nil {
		return nil, err
	}
	group.OrganizationID = req.OrganizationID
	group.InvoiceNumber = req.InvoiceNumber
	group.FundingType = ledger.FundingTypeOriginal

	entries, err := buildEntries(req.Entries)
	if err != nil {
		return nil, err
	}
	if err := group.ReplaceEntries(entries); err != nil {
		return nil, err
	}
	if len(req.SourceIDs) > 0 {
		if err := group.LinkSources(req.SourceIDs...); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create transaction group: %w", err)
	}

	s.publishEvents(ctx, group)
	s.logger.Info("transaction group created",
		zap.String("group_id", group.ID.String()),
		zap.String("group_number", group.GroupNumber),
	)

	return group, nil
}

// ReplaceEntries replaces the entry list of a draft group
func (s *TransactionService) ReplaceEntries(ctx context.Context, id valueobject.ObjectID, inputs []EntryInput) (*ledger.TransactionGroup, error) {
	group, err := s.loadGroup(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := buildEntries(inputs)
	if err != nil {
		return nil, err
	}
	if err := group.ReplaceEntries(entries); err != nil {
		return nil, err
	}

	if err := s.repo.SaveWithLock(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to save transaction group: %w", err)
	}
	s.publishEvents(ctx, group)

	return group, nil
}

// Confirm transitions a balanced draft group to confirmed
func (s *TransactionService) Confirm(ctx context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	return s.transition(ctx, id, func(g *ledger.TransactionGroup) error { return g.Confirm() })
}

// Unlock transitions a confirmed group back to draft
func (s *TransactionService) Unlock(ctx context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	return s.transition(ctx, id, func(g *ledger.TransactionGroup) error { return g.Unlock() })
}

// Cancel cancels a group, releasing the funds it had claimed
func (s *TransactionService) Cancel(ctx context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	return s.transition(ctx, id, func(g *ledger.TransactionGroup) error { return g.Cancel() })
}

// Delete removes a draft group
func (s *TransactionService) Delete(ctx context.Context, id valueobject.ObjectID) error {
	group, err := s.loadGroup(ctx, id)
	if err != nil {
		return err
	}
	if !group.IsDraft() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot delete a %s group", group.Status))
	}
	if err := s.repo.Delete(ctx, group.ID); err != nil {
		return fmt.Errorf("failed to delete transaction group: %w", err)
	}
	s.logger.Info("transaction group deleted", zap.String("group_id", group.ID.String()))
	return nil
}

// GetTransactionGroup loads one group with its referenced-by snapshots
func (s *TransactionService) GetTransactionGroup(ctx context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	group, err := s.loadGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	referencedBy, err := s.repo.FindReferencedBy(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load referencing transactions: %w", err)
	}
	group.ReferencedBy = referencedBy
	return group, nil
}

// ListTransactionGroups lists groups matching the filter
func (s *TransactionService) ListTransactionGroups(ctx context.Context, filter ledger.TransactionGroupFilter) ([]ledger.TransactionGroup, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *TransactionService) transition(ctx context.Context, id valueobject.ObjectID, op func(*ledger.TransactionGroup) error) (*ledger.TransactionGroup, error) {
	group, err := s.loadGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := op(group); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to save transaction group: %w", err)
	}
	s.publishEvents(ctx, group)
	return group, nil
}

func (s *TransactionService) loadGroup(ctx context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	if !id.IsValid() {
		return nil, shared.ErrInvalidReference
	}
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction group: %w", err)
	}
	if group == nil {
		return nil, shared.ErrNotFound
	}
	return group, nil
}

func (s *TransactionService) publishEvents(ctx context.Context, group *ledger.TransactionGroup) {
	events := group.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish domain events",
			zap.String("group_id", group.ID.String()),
			zap.Error(err),
		)
	}
	group.ClearDomainEvents()
}

func buildEntries(inputs []EntryInput) ([]ledger.AccountingEntry, error) {
	entries := make([]ledger.AccountingEntry, 0, len(inputs))
	for i, input := range inputs {
		accountID, err := valueobject.ParseObjectID(input.AccountID)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_ACCOUNT", fmt.Sprintf("Entry %d: %v", i, err))
		}
		entry, err := ledger.NewAccountingEntry(accountID, input.AccountName, input.Debit, input.Credit, i)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
