package ledger

import (
	"fmt"
	"time"

	"github.com/openpharm/ledger/internal/domain/shared"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// GroupStatus is the lifecycle status of a transaction group
type GroupStatus string

const (
	GroupStatusDraft     GroupStatus = "draft"
	GroupStatusConfirmed GroupStatus = "confirmed"
	GroupStatusCancelled GroupStatus = "cancelled"
)

// IsValid checks if the status is a known GroupStatus
func (s GroupStatus) IsValid() bool {
	return s == GroupStatusDraft || s == GroupStatusConfirmed || s == GroupStatusCancelled
}

// String returns the string representation
func (s GroupStatus) String() string {
	return string(s)
}

// CanEdit returns true if entries may be modified in this status
func (s GroupStatus) CanEdit() bool {
	return s == GroupStatusDraft
}

// CanConfirm returns true if the group may transition to confirmed
func (s GroupStatus) CanConfirm() bool {
	return s == GroupStatusDraft
}

// CanUnlock returns true if the group may transition back to draft
func (s GroupStatus) CanUnlock() bool {
	return s == GroupStatusConfirmed
}

// CanCancel returns true if the group may be cancelled
func (s GroupStatus) CanCancel() bool {
	return s == GroupStatusDraft || s == GroupStatusConfirmed
}

// IsTerminal returns true for terminal statuses
func (s GroupStatus) IsTerminal() bool {
	return s == GroupStatusCancelled
}

// FundingType tags how a transaction group is funded
type FundingType string

const (
	FundingTypeOriginal FundingType = "original"
	FundingTypeExtended FundingType = "extended"
)

// TransactionLink is an "extends" edge: the owning group draws funding
// from the linked source transaction.
type TransactionLink struct {
	ID                 valueobject.ObjectID `gorm:"type:char(24);primary_key"`
	TransactionGroupID valueobject.ObjectID `gorm:"type:char(24);not null;index"`
	SourceID           valueobject.ObjectID `gorm:"type:char(24);not null;index"`
	Position           int                  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TransactionLink) TableName() string {
	return "transaction_links"
}

// FundingSourceUsage is a backend-computed allocation record stating how
// much of a source transaction's amount this group has consumed.
type FundingSourceUsage struct {
	ID                  valueobject.ObjectID `gorm:"type:char(24);primary_key"`
	TransactionGroupID  valueobject.ObjectID `gorm:"type:char(24);not null;index"`
	SourceTransactionID valueobject.ObjectID `gorm:"type:char(24);not null;index"`
	UsedAmount          decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	SourceDescription   string               `gorm:"type:varchar(500)"` // Denormalized for display
	SourceGroupNumber   string               `gorm:"type:varchar(50)"`
	SourceDate          *time.Time
	SourceTotalAmount   decimal.Decimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (FundingSourceUsage) TableName() string {
	return "funding_source_usages"
}

// ReferencedByInfo is a snapshot of a transaction that cites this one as
// its funding source. Populated by the data-access layer, never stored
// on the aggregate itself.
type ReferencedByInfo struct {
	TransactionID valueobject.ObjectID `json:"transaction_id"`
	GroupNumber   string               `json:"group_number"`
	Description   string               `json:"description"`
	Date          time.Time            `json:"date"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Status        GroupStatus          `json:"status"`
}

// TransactionGroup is a double-entry bookkeeping record: an aggregate of
// ordered entry legs plus funding edges to and from other groups.
type TransactionGroup struct {
	shared.BaseAggregateRoot
	GroupNumber         string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	TransactionDate     time.Time             `gorm:"not null;index"`
	Description         string                `gorm:"type:varchar(500)"`
	Status              GroupStatus           `gorm:"type:varchar(20);not null;default:'draft';index"`
	OrganizationID      *valueobject.ObjectID `gorm:"type:char(24);index"`
	InvoiceNumber       string                `gorm:"type:varchar(100)"`
	FundingType         FundingType           `gorm:"type:varchar(20)"`
	SourceTransactionID *valueobject.ObjectID `gorm:"type:char(24);index"`
	Entries             []AccountingEntry     `gorm:"foreignKey:TransactionGroupID;references:ID"`
	Links               []TransactionLink     `gorm:"foreignKey:TransactionGroupID;references:ID"`
	FundingSourceUsages []FundingSourceUsage  `gorm:"foreignKey:TransactionGroupID;references:ID"`
	ConfirmedAt         *time.Time
	CancelledAt         *time.Time

	// ReferencedBy is resolved by the repository from the inverse edge
	ReferencedBy []ReferencedByInfo `gorm:"-" json:"referenced_by,omitempty"`
}

// TableName returns the table name for GORM
func (TransactionGroup) TableName() string {
	return "transaction_groups"
}

// NewTransactionGroup creates a new draft transaction group
func NewTransactionGroup(groupNumber string, transactionDate time.Time, description string) (*TransactionGroup, error) {
	if groupNumber == "" {
		return nil, shared.NewDomainError("INVALID_GROUP_NUMBER", "Group number cannot be empty")
	}
	if len(groupNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_GROUP_NUMBER", "Group number cannot exceed 50 characters")
	}
	if transactionDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Transaction date is required")
	}

	tg := &TransactionGroup{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		GroupNumber:         groupNumber,
		TransactionDate:     transactionDate,
		Description:         description,
		Status:              GroupStatusDraft,
		Entries:             make([]AccountingEntry, 0),
		Links:               make([]TransactionLink, 0),
		FundingSourceUsages: make([]FundingSourceUsage, 0),
	}

	tg.AddDomainEvent(NewTransactionGroupCreatedEvent(tg))

	return tg, nil
}

// Totals aggregates the entry legs
func (tg *TransactionGroup) Totals() EntryTotals {
	return AggregateEntries(tg.Entries)
}

// TotalAmount is the group's face value: the sum of debit legs
func (tg *TransactionGroup) TotalAmount() decimal.Decimal {
	return tg.Totals().TotalAmount
}

// IsBalanced returns true if debit and credit totals match within tolerance
func (tg *TransactionGroup) IsBalanced() bool {
	return tg.Totals().Balanced
}

// ReplaceEntries replaces the entry list of a draft group.
// Positions are renumbered in the given order.
func (tg *TransactionGroup) ReplaceEntries(entries []AccountingEntry) error {
	if !tg.Status.CanEdit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit entries of a %s group", tg.Status))
	}
	for i := range entries {
		entries[i].TransactionGroupID = tg.ID
		entries[i].Position = i
		if entries[i].ID.IsZero() {
			entries[i].ID = valueobject.NewObjectID()
		}
	}
	tg.Entries = entries
	tg.UpdatedAt = time.Now()
	tg.IncrementVersion()

	tg.AddDomainEvent(NewTransactionGroupEntriesReplacedEvent(tg))

	return nil
}

// LinkSources sets the funding sources of a draft group and tags it as
// extended funding.
func (tg *TransactionGroup) LinkSources(sourceIDs ...valueobject.ObjectID) error {
	if !tg.Status.CanEdit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot link sources of a %s group", tg.Status))
	}
	links := make([]TransactionLink, 0, len(sourceIDs))
	for i, sourceID := range sourceIDs {
		if !sourceID.IsValid() {
			return shared.NewDomainError("INVALID_REFERENCE", fmt.Sprintf("Source ID %q is not a well-formed identifier", sourceID))
		}
		if sourceID == tg.ID {
			return shared.NewDomainError("SELF_REFERENCE", "A transaction group cannot fund itself")
		}
		links = append(links, TransactionLink{
			ID:                 valueobject.NewObjectID(),
			TransactionGroupID: tg.ID,
			SourceID:           sourceID,
			Position:           i,
		})
	}
	tg.Links = links
	if len(links) > 0 {
		first := links[0].SourceID
		tg.SourceTransactionID = &first
		tg.FundingType = FundingTypeExtended
	} else {
		tg.SourceTransactionID = nil
		tg.FundingType = FundingTypeOriginal
	}
	tg.UpdatedAt = time.Now()
	tg.IncrementVersion()

	return nil
}

// SourceIDs returns the funding source IDs in link order
func (tg *TransactionGroup) SourceIDs() []valueobject.ObjectID {
	ids := make([]valueobject.ObjectID, 0, len(tg.Links))
	for i := range tg.Links {
		ids = append(ids, tg.Links[i].SourceID)
	}
	if len(ids) == 0 && tg.SourceTransactionID != nil {
		ids = append(ids, *tg.SourceTransactionID)
	}
	return ids
}

// Confirm transitions a balanced draft group to confirmed
func (tg *TransactionGroup) Confirm() error {
	if !tg.Status.CanConfirm() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm a %s group", tg.Status))
	}
	if !tg.IsBalanced() {
		return shared.NewDomainError("UNBALANCED_ENTRIES", "Only balanced groups can be confirmed")
	}

	now := time.Now()
	tg.Status = GroupStatusConfirmed
	tg.ConfirmedAt = &now
	tg.UpdatedAt = now
	tg.IncrementVersion()

	tg.AddDomainEvent(NewTransactionGroupConfirmedEvent(tg))

	return nil
}

// Unlock transitions a confirmed group back to draft
func (tg *TransactionGroup) Unlock() error {
	if !tg.Status.CanUnlock() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot unlock a %s group", tg.Status))
	}

	tg.Status = GroupStatusDraft
	tg.ConfirmedAt = nil
	tg.UpdatedAt = time.Now()
	tg.IncrementVersion()

	tg.AddDomainEvent(NewTransactionGroupUnlockedEvent(tg))

	return nil
}

// Cancel cancels the group. Cancelled groups release any funds they had
// claimed from their sources and are excluded from usage sums.
func (tg *TransactionGroup) Cancel() error {
	if !tg.Status.CanCancel() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel a %s group", tg.Status))
	}

	now := time.Now()
	previousStatus := tg.Status
	tg.Status = GroupStatusCancelled
	tg.CancelledAt = &now
	tg.UpdatedAt = now
	tg.IncrementVersion()

	tg.AddDomainEvent(NewTransactionGroupCancelledEvent(tg, previousStatus))

	return nil
}

// IsDraft returns true if the group is in draft status
func (tg *TransactionGroup) IsDraft() bool {
	return tg.Status == GroupStatusDraft
}

// IsConfirmed returns true if the group is confirmed
func (tg *TransactionGroup) IsConfirmed() bool {
	return tg.Status == GroupStatusConfirmed
}

// IsCancelled returns true if the group is cancelled
func (tg *TransactionGroup) IsCancelled() bool {
	return tg.Status == GroupStatusCancelled
}

// UsageFor returns the authoritative usage record for a source, if any
func (tg *TransactionGroup) UsageFor(sourceID valueobject.ObjectID) *FundingSourceUsage {
	for i := range tg.FundingSourceUsages {
		if tg.FundingSourceUsages[i].SourceTransactionID == sourceID {
			return &tg.FundingSourceUsages[i]
		}
	}
	return nil
}
