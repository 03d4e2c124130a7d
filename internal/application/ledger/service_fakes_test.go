package ledger

import (
	"context"
	"errors"

	"github.com/openpharm/ledger/internal/domain/ledger"
	"github.com/openpharm/ledger/internal/domain/shared"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
)

// fakeRepo is an in-memory TransactionGroupRepository for service tests
type fakeRepo struct {
	groups map[valueobject.ObjectID]*ledger.TransactionGroup
	failOn map[valueobject.ObjectID]error
}

func newFakeRepo(groups ...*ledger.TransactionGroup) *fakeRepo {
	r := &fakeRepo{
		groups: make(map[valueobject.ObjectID]*ledger.TransactionGroup),
		failOn: make(map[valueobject.ObjectID]error),
	}
	for _, g := range groups {
		r.groups[g.ID] = g
	}
	return r
}

func (r *fakeRepo) FindByID(_ context.Context, id valueobject.ObjectID) (*ledger.TransactionGroup, error) {
	if err, ok := r.failOn[id]; ok {
		return nil, err
	}
	return r.groups[id], nil
}

func (r *fakeRepo) FindByGroupNumber(_ context.Context, groupNumber string) (*ledger.TransactionGroup, error) {
	for _, g := range r.groups {
		if g.GroupNumber == groupNumber {
			return g, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) FindReferencedBy(_ context.Context, sourceID valueobject.ObjectID) ([]ledger.ReferencedByInfo, error) {
	var infos []ledger.ReferencedByInfo
	for _, g := range r.groups {
		for _, sid := range g.SourceIDs() {
			if sid == sourceID {
				infos = append(infos, ledger.ReferencedByInfo{
					TransactionID: g.ID,
					GroupNumber:   g.GroupNumber,
					Description:   g.Description,
					Date:          g.TransactionDate,
					TotalAmount:   g.TotalAmount(),
					Status:        g.Status,
				})
			}
		}
	}
	return infos, nil
}

func (r *fakeRepo) List(_ context.Context, _ ledger.TransactionGroupFilter) ([]ledger.TransactionGroup, int64, error) {
	out := make([]ledger.TransactionGroup, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, *g)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) Create(_ context.Context, group *ledger.TransactionGroup) error {
	if _, exists := r.groups[group.ID]; exists {
		return errors.New("duplicate id")
	}
	r.groups[group.ID] = group
	return nil
}

func (r *fakeRepo) SaveWithLock(_ context.Context, group *ledger.TransactionGroup) error {
	r.groups[group.ID] = group
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id valueobject.ObjectID) error {
	delete(r.groups, id)
	return nil
}

// fakeBalances is a canned BalanceProvider
type fakeBalances struct {
	snapshots map[valueobject.ObjectID]*ledger.BalanceSnapshot
	err       error
	calls     []valueobject.ObjectID
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{snapshots: make(map[valueobject.ObjectID]*ledger.BalanceSnapshot)}
}

func (b *fakeBalances) GetTransactionBalance(_ context.Context, id valueobject.ObjectID) (*ledger.BalanceSnapshot, error) {
	b.calls = append(b.calls, id)
	if b.err != nil {
		return nil, b.err
	}
	return b.snapshots[id], nil
}

// capturingPublisher records published events
type capturingPublisher struct {
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) typesSeen() []string {
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}
