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

// FundingSourceView is the per-source slice of a funding-flow view
type FundingSourceView struct {
	SourceID        valueobject.ObjectID `json:"source_id"`
	Navigable       bool                 `json:"navigable"`
	GroupNumber     string               `json:"group_number,omitempty"`
	Description     string               `json:"description,omitempty"`
	Status          ledger.GroupStatus   `json:"status,omitempty"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	UsedAmount      decimal.Decimal      `json:"used_amount"`
	AvailableAmount decimal.Decimal      `json:"available_amount"`
	Authoritative   bool                 `json:"authoritative"`
}

// ReferencedByView is one consumer of the viewed transaction
type ReferencedByView struct {
	TransactionID valueobject.ObjectID `json:"transaction_id"`
	Navigable     bool                 `json:"navigable"`
	GroupNumber   string               `json:"group_number"`
	Description   string               `json:"description"`
	Date          time.Time            `json:"date"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Status        ledger.GroupStatus   `json:"status"`
}

// FundingFlowView is the complete resolved funding picture of one
// transaction group
type FundingFlowView struct {
	TransactionID   valueobject.ObjectID `json:"transaction_id"`
	GroupNumber     string               `json:"group_number"`
	Description     string               `json:"description"`
	Status          ledger.GroupStatus   `json:"status"`
	FundingType     ledger.FundingType   `json:"funding_type,omitempty"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	Balanced        bool                 `json:"balanced"`
	AvailableAmount decimal.Decimal      `json:"available_amount"`
	Sources         []FundingSourceView  `json:"sources"`
	ReferencedBy    []ReferencedByView   `json:"referenced_by"`
	Flow            *ledger.FlowPair     `json:"flow,omitempty"`
	HasFlow         bool                 `json:"has_flow"`
}

// FundingFlowService resolves the funding graph around one transaction
// group into a presentable view. All computation is pure; the service
// only orchestrates fetching and assembly.
type FundingFlowService struct {
	repo     ledger.TransactionGroupRepository
	balances ledger.BalanceProvider
	logger   *zap.Logger
}

// NewFundingFlowService creates a new FundingFlowService
func NewFundingFlowService(
	repo ledger.TransactionGroupRepository,
	balances ledger.BalanceProvider,
	logger *zap.Logger,
) *FundingFlowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FundingFlowService{
		repo:     repo,
		balances: balances,
		logger:   logger,
	}
}

// GetFundingFlow loads a transaction group and computes its funding
// flow: totals, per-source usage and availability, referenced-by
// consumption and the directional flow pair.
func (s *FundingFlowService) GetFundingFlow(ctx context.Context, id valueobject.ObjectID) (*FundingFlowView, error) {
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

	referencedBy, err := s.repo.FindReferencedBy(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load referencing transactions: %w", err)
	}

	totals := group.Totals()
	sources := s.resolveSources(ctx, group)

	view := &FundingFlowView{
		TransactionID:   group.ID,
		GroupNumber:     group.GroupNumber,
		Description:     group.Description,
		Status:          group.Status,
		FundingType:     group.FundingType,
		TotalAmount:     totals.TotalAmount,
		Balanced:        totals.Balanced,
		AvailableAmount: ledger.CalculateAvailableAmount(totals.TotalAmount, referencedBy),
		Sources:         make([]FundingSourceView, 0, len(sources)),
		ReferencedBy:    make([]ReferencedByView, 0, len(referencedBy)),
	}

	for i := range sources {
		src := sources[i]
		used := ledger.CalculateUsedAmount(totals.TotalAmount, src, sources)

		var balance *ledger.BalanceSnapshot
		if src.Valid {
			balance, err = s.balances.GetTransactionBalance(ctx, src.SourceID)
			if err != nil {
				// A missing balance only degrades precision; fall back
				// to the snapshot path instead of failing the view.
				s.logger.Warn("balance lookup failed, using snapshot fallback",
					zap.String("source_id", src.SourceID.String()),
					zap.Error(err),
				)
				balance = nil
			}
		}

		view.Sources = append(view.Sources, FundingSourceView{
			SourceID:        src.SourceID,
			Navigable:       src.Valid,
			GroupNumber:     src.GroupNumber,
			Description:     src.Description,
			Status:          src.Status,
			TotalAmount:     src.TotalAmount,
			UsedAmount:      used,
			AvailableAmount: ledger.ResolveAvailableAmount(balance, src, used),
			Authoritative:   src.UsedAmount != nil || (balance != nil && balance.HasRealBalance),
		})
	}

	for i := range referencedBy {
		info := referencedBy[i]
		view.ReferencedBy = append(view.ReferencedBy, ReferencedByView{
			TransactionID: info.TransactionID,
			Navigable:     info.TransactionID.IsValid(),
			GroupNumber:   info.GroupNumber,
			Description:   info.Description,
			Date:          info.Date,
			TotalAmount:   info.TotalAmount,
			Status:        info.Status,
		})
	}

	view.Flow, view.HasFlow = ledger.RepresentativeFlow(group.Entries)

	return view, nil
}

// GetTransactionBalance exposes the provider's balance for one
// transaction, for callers that only need the figure
func (s *FundingFlowService) GetTransactionBalance(ctx context.Context, id valueobject.ObjectID) (*ledger.BalanceSnapshot, error) {
	if !id.IsValid() {
		return nil, shared.ErrInvalidReference
	}
	return s.balances.GetTransactionBalance(ctx, id)
}

// resolveSources builds the funding source slice for a group.
// Authoritative usage rows win; otherwise each linked source is loaded
// to recover its amounts, and sources that cannot be loaded degrade to
// an empty snapshot rather than failing the computation.
func (s *FundingFlowService) resolveSources(ctx context.Context, group *ledger.TransactionGroup) []ledger.FundingSource {
	sourceIDs := group.SourceIDs()
	sources := make([]ledger.FundingSource, 0, len(sourceIDs))

	for _, sourceID := range sourceIDs {
		src := ledger.FundingSource{
			SourceID: sourceID,
			Valid:    sourceID.IsValid(),
		}

		if usage := group.UsageFor(sourceID); usage != nil {
			used := usage.UsedAmount
			src.UsedAmount = &used
			src.TotalAmount = usage.SourceTotalAmount
			src.Description = usage.SourceDescription
			src.GroupNumber = usage.SourceGroupNumber
			sources = append(sources, src)
			continue
		}

		if src.Valid {
			sourceGroup, err := s.repo.FindByID(ctx, sourceID)
			if err != nil {
				s.logger.Warn("funding source lookup failed, treating amounts as unknown",
					zap.String("source_id", sourceID.String()),
					zap.Error(err),
				)
			} else if sourceGroup != nil {
				src.TotalAmount = sourceGroup.TotalAmount()
				src.Description = sourceGroup.Description
				src.GroupNumber = sourceGroup.GroupNumber
				src.Status = sourceGroup.Status
			}
		}
		sources = append(sources, src)
	}

	return sources
}
