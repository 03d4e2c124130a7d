package ledger

import (
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// FlowEndpoint is one side of a directional funding flow
type FlowEndpoint struct {
	AccountID   valueobject.ObjectID `json:"account_id"`
	AccountName string               `json:"account_name"`
	Amount      decimal.Decimal      `json:"amount"`
}

// FlowPair is the representative source → destination rendering of a
// transaction group: money flows from the credited account to the
// debited account.
type FlowPair struct {
	From FlowEndpoint `json:"from"`
	To   FlowEndpoint `json:"to"`
}

// RepresentativeFlow picks the first credit-side and first debit-side
// entries as the (from, to) pair for directional display. Groups with
// no entry on one side have no representable flow; that is a normal
// state for adjusting or compound postings, not an error.
func RepresentativeFlow(entries []AccountingEntry) (*FlowPair, bool) {
	if len(entries) < 2 {
		return nil, false
	}

	var debit, credit *AccountingEntry
	for i := range entries {
		if debit == nil && entries[i].IsDebit() {
			debit = &entries[i]
		}
		if credit == nil && entries[i].IsCredit() {
			credit = &entries[i]
		}
		if debit != nil && credit != nil {
			break
		}
	}
	if debit == nil || credit == nil {
		return nil, false
	}

	return &FlowPair{
		From: FlowEndpoint{
			AccountID:   credit.AccountID,
			AccountName: credit.AccountName,
			Amount:      credit.CreditAmount,
		},
		To: FlowEndpoint{
			AccountID:   debit.AccountID,
			AccountName: debit.AccountName,
			Amount:      debit.DebitAmount,
		},
	}, true
}
