package ledger

import "github.com/shopspring/decimal"

// BalanceSnapshot is the backend-computed balance of a transaction
// acting as a funding source. HasRealBalance distinguishes exact
// figures from client-side estimates.
type BalanceSnapshot struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AvailableAmount decimal.Decimal `json:"available_amount"`
	HasRealBalance  bool            `json:"has_real_balance"`
}

// ResolveAvailableAmount computes how much of a funding source remains
// available, given the amount the viewing transaction consumes from it.
//
// When a real backend balance exists it is preferred, reconciled
// against the viewer's own usedAmount: consumption at or beyond the
// source total clamps to zero, and a backend snapshot that does not yet
// reflect this viewer is capped at total − used so the same funds are
// not counted twice. Without backend data the source's snapshot
// availableAmount is used, or its totalAmount when even that is absent
// (assume fully available). The result is never negative.
func ResolveAvailableAmount(balance *BalanceSnapshot, source FundingSource, usedAmount decimal.Decimal) decimal.Decimal {
	if balance != nil && balance.HasRealBalance {
		total := balance.TotalAmount
		available := balance.AvailableAmount
		if usedAmount.GreaterThanOrEqual(total) {
			return decimal.Zero
		}
		if available.Add(usedAmount).GreaterThan(total) {
			available = total.Sub(usedAmount)
		}
		return clampNonNegative(available)
	}

	if source.AvailableAmount != nil {
		return clampNonNegative(*source.AvailableAmount)
	}
	return clampNonNegative(source.TotalAmount)
}

// CalculateAvailableAmount is the target-side computation: how much of
// this transaction's total is still unclaimed by the transactions that
// reference it. Cancelled referencing transactions are excluded
// entirely; cancellation fully releases provisionally claimed funds.
func CalculateAvailableAmount(totalAmount decimal.Decimal, referencedBy []ReferencedByInfo) decimal.Decimal {
	consumed := decimal.Zero
	for i := range referencedBy {
		if referencedBy[i].Status == GroupStatusCancelled {
			continue
		}
		consumed = consumed.Add(referencedBy[i].TotalAmount)
	}
	return clampNonNegative(totalAmount.Sub(consumed))
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
