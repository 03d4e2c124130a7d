package ledger

import (
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// FundingSource is one resolved funding edge of the transaction being
// viewed, carrying whatever amount data could be recovered for it.
// UsedAmount and AllocatedAmount are authoritative backend figures when
// present; TotalAmount comes from the source's snapshot or its fully
// resolved record and stays zero when unknown.
type FundingSource struct {
	SourceID        valueobject.ObjectID
	Valid           bool
	TotalAmount     decimal.Decimal
	AvailableAmount *decimal.Decimal
	UsedAmount      *decimal.Decimal
	AllocatedAmount *decimal.Decimal
	Description     string
	GroupNumber     string
	Status          GroupStatus
}

// CalculateUsedAmount computes how much of one funding source the
// current transaction consumes. Priority order, first applicable wins:
//
//  1. an explicit usedAmount from the backend is taken verbatim
//  2. an explicit allocatedAmount is taken verbatim
//  3. with multiple sources, the source's proportional share of the
//     pool, rounded to the whole currency unit; a zero pool attributes
//     the full current total to the source under evaluation
//  4. a single source without authoritative figures absorbs the entire
//     current total
//
// Backend figures win because they account for cross-transaction
// consistency the client cannot see; the proportional fallback is a
// deterministic estimate, not an exact allocation.
func CalculateUsedAmount(currentTotal decimal.Decimal, source FundingSource, allSources []FundingSource) decimal.Decimal {
	if source.UsedAmount != nil {
		return *source.UsedAmount
	}
	if source.AllocatedAmount != nil {
		return *source.AllocatedAmount
	}

	if len(allSources) > 1 {
		pool := decimal.Zero
		for i := range allSources {
			pool = pool.Add(allSources[i].TotalAmount)
		}
		if pool.IsZero() {
			return currentTotal
		}
		return source.TotalAmount.Div(pool).Mul(currentTotal).Round(0)
	}

	return currentTotal
}
