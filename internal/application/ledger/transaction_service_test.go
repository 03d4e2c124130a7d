package ledger

import (
	"context"
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

func entryInputs(total int64) []EntryInput {
	return []EntryInput{
		{AccountID: valueobject.NewObjectID().String(), AccountName: "Inventory", Debit: decimal.NewFromInt(total)},
		{AccountID: valueobject.NewObjectID().String(), AccountName: "Cash", Credit: decimal.NewFromInt(total)},
	}
}

func newServiceUnderTest(groups ...*ledger.TransactionGroup) (*TransactionService, *fakeRepo, *capturingPublisher) {
	repo := newFakeRepo(groups...)
	publisher := &capturingPublisher{}
	return NewTransactionService(repo, publisher, zap.NewNop()), repo, publisher
}

func TestCreateTransactionGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates draft with entries and links", func(t *testing.T) {
		source := balancedGroup(t, "TG-SRC", 1000)
		svc, repo, publisher := newServiceUnderTest(source)

		group, err := svc.CreateTransactionGroup(ctx, CreateTransactionGroupRequest{
			GroupNumber:     "TG-NEW",
			TransactionDate: time.Now(),
			Description:     "Extended purchase",
			SourceIDs:       []valueobject.ObjectID{source.ID},
			Entries:         entryInputs(400),
		})
		require.NoError(t, err)
		assert.Equal(t, ledger.GroupStatusDraft, group.Status)
		assert.Equal(t, ledger.FundingTypeExtended, group.FundingType)
		assert.True(t, decimal.NewFromInt(400).Equal(group.TotalAmount()))
		assert.NotNil(t, repo.groups[group.ID])
		assert.Contains(t, publisher.typesSeen(), ledger.EventTransactionGroupCreated)
		assert.Empty(t, group.GetDomainEvents(), "events cleared after publish")
	})

	t.Run("duplicate group number is rejected", func(t *testing.T) {
		existing := balancedGroup(t, "TG-DUP", 100)
		svc, _, _ := newServiceUnderTest(existing)

		_, err := svc.CreateTransactionGroup(ctx, CreateTransactionGroupRequest{
			GroupNumber:     "TG-DUP",
			TransactionDate: time.Now(),
			Entries:         entryInputs(100),
		})
		require.Error(t, err)
	})

	t.Run("malformed entry account id is rejected", func(t *testing.T) {
		svc, _, _ := newServiceUnderTest()
		_, err := svc.CreateTransactionGroup(ctx, CreateTransactionGroupRequest{
			GroupNumber:     "TG-BADACC",
			TransactionDate: time.Now(),
			Entries: []EntryInput{
				{AccountID: "not-an-id", Debit: decimal.NewFromInt(10)},
			},
		})
		require.Error(t, err)
	})
}

func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm then unlock round trip", func(t *testing.T) {
		group := balancedGroup(t, "TG-LIFE", 500)
		svc, _, publisher := newServiceUnderTest(group)

		confirmed, err := svc.Confirm(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.GroupStatusConfirmed, confirmed.Status)
		assert.Contains(t, publisher.typesSeen(), ledger.EventTransactionGroupConfirmed)

		unlocked, err := svc.Unlock(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.GroupStatusDraft, unlocked.Status)
		assert.Contains(t, publisher.typesSeen(), ledger.EventTransactionGroupUnlocked)
	})

	t.Run("unbalanced draft cannot confirm", func(t *testing.T) {
		group := balancedGroup(t, "TG-UNBAL", 500)
		svc, _, _ := newServiceUnderTest(group)

		_, err := svc.ReplaceEntries(ctx, group.ID, []EntryInput{
			{AccountID: valueobject.NewObjectID().String(), Debit: decimal.NewFromInt(500)},
			{AccountID: valueobject.NewObjectID().String(), Credit: decimal.NewFromInt(300)},
		})
		require.NoError(t, err)

		_, err = svc.Confirm(ctx, group.ID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNBALANCED_ENTRIES", domainErr.Code)
	})

	t.Run("cancel publishes source ids for invalidation", func(t *testing.T) {
		source := balancedGroup(t, "TG-SRC9", 1000)
		group := balancedGroup(t, "TG-CXL", 400)
		require.NoError(t, group.LinkSources(source.ID))
		group.ClearDomainEvents()
		svc, _, publisher := newServiceUnderTest(source, group)

		_, err := svc.Cancel(ctx, group.ID)
		require.NoError(t, err)

		var cancelled *ledger.TransactionGroupCancelledEvent
		for _, e := range publisher.events {
			if c, ok := e.(*ledger.TransactionGroupCancelledEvent); ok {
				cancelled = c
			}
		}
		require.NotNil(t, cancelled)
		assert.Equal(t, []valueobject.ObjectID{source.ID}, cancelled.SourceIDs)
		assert.Equal(t, ledger.GroupStatusDraft, cancelled.PreviousStatus)
	})

	t.Run("missing group yields not found", func(t *testing.T) {
		svc, _, _ := newServiceUnderTest()
		_, err := svc.Confirm(ctx, valueobject.NewObjectID())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("draft group deletes", func(t *testing.T) {
		group := balancedGroup(t, "TG-DEL", 100)
		svc, repo, _ := newServiceUnderTest(group)

		require.NoError(t, svc.Delete(ctx, group.ID))
		assert.NotContains(t, repo.groups, group.ID)
	})

	t.Run("confirmed group refuses deletion", func(t *testing.T) {
		group := balancedGroup(t, "TG-NODEL", 100)
		require.NoError(t, group.Confirm())
		svc, repo, _ := newServiceUnderTest(group)

		require.Error(t, svc.Delete(ctx, group.ID))
		assert.Contains(t, repo.groups, group.ID)
	})
}

func TestGetTransactionGroup(t *testing.T) {
	ctx := context.Background()

	source := balancedGroup(t, "TG-GETSRC", 1000)
	consumer := balancedGroup(t, "TG-GETC", 400)
	require.NoError(t, consumer.LinkSources(source.ID))
	svc, _, _ := newServiceUnderTest(source, consumer)

	got, err := svc.GetTransactionGroup(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, got.ReferencedBy, 1)
	assert.Equal(t, consumer.ID, got.ReferencedBy[0].TransactionID)
	assert.True(t, decimal.NewFromInt(400).Equal(got.ReferencedBy[0].TotalAmount))
}
