package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openpharm/ledger/internal/domain/ledger"
	"github.com/openpharm/ledger/internal/domain/shared"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func balancedGroup(t *testing.T, number string, total int64) *ledger.TransactionGroup {
	t.Helper()
	tg, err := ledger.NewTransactionGroup(number, time.Now(), "test group "+number)
	require.NoError(t, err)

	debit, err := ledger.NewAccountingEntry(valueobject.NewObjectID(), "Inventory", decimal.NewFromInt(total), decimal.Zero, 0)
	require.NoError(t, err)
	credit, err := ledger.NewAccountingEntry(valueobject.NewObjectID(), "Cash", decimal.Zero, decimal.NewFromInt(total), 1)
	require.NoError(t, err)
	require.NoError(t, tg.ReplaceEntries([]ledger.AccountingEntry{*debit, *credit}))
	tg.ClearDomainEvents()
	return tg
}

func TestGetFundingFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("single source absorbs the viewer's total", func(t *testing.T) {
		src := balancedGroup(t, "TG-SRC", 1000)
		viewer := balancedGroup(t, "TG-VIEW", 500)
		require.NoError(t, viewer.LinkSources(src.ID))

		repo := newFakeRepo(src, viewer)
		balances := newFakeBalances()
		svc := NewFundingFlowService(repo, balances, zap.NewNop())

		view, err := svc.GetFundingFlow(ctx, viewer.ID)
		require.NoError(t, err)
		require.Len(t, view.Sources, 1)
		assert.True(t, decimal.NewFromInt(500).Equal(view.Sources[0].UsedAmount))
		assert.True(t, decimal.NewFromInt(1000).Equal(view.Sources[0].TotalAmount))
		// No provider data: assume fully available.
		assert.True(t, decimal.NewFromInt(1000).Equal(view.Sources[0].AvailableAmount))
		assert.True(t, view.Sources[0].Navigable)
		assert.False(t, view.Sources[0].Authoritative)
		assert.True(t, view.Balanced)
		assert.True(t, view.HasFlow)
		assert.Equal(t, "Cash", view.Flow.From.AccountName)
	})

	t.Run("two sources split proportionally", func(t *testing.T) {
		a := balancedGroup(t, "TG-A", 300)
		b := balancedGroup(t, "TG-B", 700)
		viewer := balancedGroup(t, "TG-V", 500)
		require.NoError(t, viewer.LinkSources(a.ID, b.ID))

		repo := newFakeRepo(a, b, viewer)
		svc := NewFundingFlowService(repo, newFakeBalances(), zap.NewNop())

		view, err := svc.GetFundingFlow(ctx, viewer.ID)
		require.NoError(t, err)
		require.Len(t, view.Sources, 2)
		assert.True(t, decimal.NewFromInt(150).Equal(view.Sources[0].UsedAmount))
		assert.True(t, decimal.NewFromInt(350).Equal(view.Sources[1].UsedAmount))
	})

	t.Run("authoritative usage rows win over estimates", func(t *testing.T) {
		src := balancedGroup(t, "TG-SRC2", 1000)
		viewer := balancedGroup(t, "TG-V2", 500)
		require.NoError(t, viewer.LinkSources(src.ID))
		viewer.FundingSourceUsages = []ledger.FundingSourceUsage{{
			ID:                  valueobject.NewObjectID(),
			TransactionGroupID:  viewer.ID,
			SourceTransactionID: src.ID,
			UsedAmount:          decimal.NewFromInt(222),
			SourceTotalAmount:   decimal.NewFromInt(1000),
			SourceGroupNumber:   src.GroupNumber,
		}}

		repo := newFakeRepo(src, viewer)
		svc := NewFundingFlowService(repo, newFakeBalances(), zap.NewNop())

		view, err := svc.GetFundingFlow(ctx, viewer.ID)
		require.NoError(t, err)
		require.Len(t, view.Sources, 1)
		assert.True(t, decimal.NewFromInt(222).Equal(view.Sources[0].UsedAmount))
		assert.True(t, view.Sources[0].Authoritative)
	})

	t.Run("provider balance is reconciled against viewer usage", func(t *testing.T) {
		src := balancedGroup(t, "TG-SRC3", 1000)
		viewer := balancedGroup(t, "TG-V3", 300)
		require.NoError(t, viewer.LinkSources(src.ID))

		repo := newFakeRepo(src, viewer)
		balances := newFakeBalances()
		balances.snapshots[src.ID] = &ledger.BalanceSnapshot{
			TotalAmount:     decimal.NewFromInt(1000),
			AvailableAmount: decimal.NewFromInt(800),
			HasRealBalance:  true,
		}
		svc := NewFundingFlowService(repo, balances, zap.NewNop())

		view, err := svc.GetFundingFlow(ctx, viewer.ID)
		require.NoError(t, err)
		require.Len(t, view.Sources, 1)
		// 800 + 300 > 1000 → clamp to 700
		assert.True(t, decimal.NewFromInt(700).Equal(view.Sources[0].AvailableAmount))
		assert.True(t, view.Sources[0].Authoritative)
	})

	t.Run("balance provider failure degrades to snapshot math", func(t *testing.T) {
		src := balancedGroup(t, "TG-SRC4", 1000)
		viewer := balancedGroup(t, "TG-V4", 400)
		require.NoError(t, viewer.LinkSources(src.ID))

		repo := newFakeRepo(src, viewer)
		balances := newFakeBalances()
		balances.err = errors.New("redis down")
		svc := NewFundingFlowService(repo, balances, zap.NewNop())

		view, err := svc.GetFundingFlow(ctx, viewer.ID)
		require.NoError(t, err)
		require.Len(t, view.Sources, 1)
		assert.True(t, decimal.NewFromInt(1000).Equal(view.Sources[0].AvailableAmount))
	})

	t.Run("referenced-by consumption excludes cancelled consumers", func(t *testing.T) {
		src := balancedGroup(t, "TG-SRC5", 1000)
		consumerA := balancedGroup(t, "TG-CA", 400)
		require.NoError(t, consumerA.LinkSources(src.ID))
		require.NoError(t, consumerA.Confirm())
		consumerB := balancedGroup(t, "TG-CB", 200)
		require.NoError(t, consumerB.LinkSources(src.ID))
		require.NoError(t, consumerB.Cancel())

		repo := newFakeRepo(src, consumerA, consumerB)
		svc := NewFundingFlowService(repo, newFakeBalances(), zap.NewNop())

		view, err := svc.GetFundingFlow(ctx, src.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(600).Equal(view.AvailableAmount))
		assert.Len(t, view.ReferencedBy, 2)
	})

	t.Run("unknown id yields not found", func(t *testing.T) {
		svc := NewFundingFlowService(newFakeRepo(), newFakeBalances(), zap.NewNop())
		_, err := svc.GetFundingFlow(ctx, valueobject.NewObjectID())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("malformed id is rejected without a lookup", func(t *testing.T) {
		svc := NewFundingFlowService(newFakeRepo(), newFakeBalances(), zap.NewNop())
		_, err := svc.GetFundingFlow(ctx, valueobject.ObjectID("bad"))
		assert.ErrorIs(t, err, shared.ErrInvalidReference)
	})
}
