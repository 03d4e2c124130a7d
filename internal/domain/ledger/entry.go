package ledger

import (
	"github.com/openpharm/ledger/internal/domain/shared"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AccountingEntry is one debit-or-credit leg of a transaction group.
// It is owned by its parent group and has no independent lifecycle.
type AccountingEntry struct {
	ID                 valueobject.ObjectID `gorm:"type:char(24);primary_key"`
	TransactionGroupID valueobject.ObjectID `gorm:"type:char(24);not null;index"`
	AccountID          valueobject.ObjectID `gorm:"type:char(24);not null;index"`
	AccountName        string               `gorm:"type:varchar(200)"` // Denormalized for display
	DebitAmount        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	CreditAmount       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Position           int                  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountingEntry) TableName() string {
	return "accounting_entries"
}

// NewAccountingEntry creates a new entry leg.
// Both sides are kept independently summable; entries with both sides
// set (or neither) are accepted, matching the permissive posting model.
func NewAccountingEntry(accountID valueobject.ObjectID, accountName string, debit, credit decimal.Decimal, position int) (*AccountingEntry, error) {
	if !accountID.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID must be a well-formed identifier")
	}
	if debit.IsNegative() || credit.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Entry amounts cannot be negative")
	}
	return &AccountingEntry{
		ID:           valueobject.NewObjectID(),
		AccountID:    accountID,
		AccountName:  accountName,
		DebitAmount:  debit,
		CreditAmount: credit,
		Position:     position,
	}, nil
}

// IsDebit returns true if the debit side carries the value
func (e *AccountingEntry) IsDebit() bool {
	return e.DebitAmount.IsPositive()
}

// IsCredit returns true if the credit side carries the value
func (e *AccountingEntry) IsCredit() bool {
	return e.CreditAmount.IsPositive()
}
