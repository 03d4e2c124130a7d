package ledger

import "github.com/shopspring/decimal"

// balanceEpsilon is the currency rounding tolerance for the balance check
var balanceEpsilon = decimal.NewFromFloat(0.01)

// EntryTotals is the aggregated view of a transaction group's entry list.
// The debit side carries the transaction's face value by convention.
type EntryTotals struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	DebitTotal  decimal.Decimal `json:"debit_total"`
	CreditTotal decimal.Decimal `json:"credit_total"`
	Balanced    bool            `json:"balanced"`
}

// AggregateEntries sums the entry legs of a transaction group.
// An empty list yields a zero total and counts as balanced.
func AggregateEntries(entries []AccountingEntry) EntryTotals {
	debit := decimal.Zero
	credit := decimal.Zero
	for i := range entries {
		debit = debit.Add(entries[i].DebitAmount)
		credit = credit.Add(entries[i].CreditAmount)
	}
	return EntryTotals{
		TotalAmount: debit,
		DebitTotal:  debit,
		CreditTotal: credit,
		Balanced:    debit.Sub(credit).Abs().LessThan(balanceEpsilon),
	}
}
