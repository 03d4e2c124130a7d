package ledger

import (
	"time"

	"github.com/openpharm/ledger/internal/domain/shared"
	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Event type names for transaction group lifecycle events
const (
	EventTransactionGroupCreated         = "TransactionGroupCreated"
	EventTransactionGroupEntriesReplaced = "TransactionGroupEntriesReplaced"
	EventTransactionGroupConfirmed       = "TransactionGroupConfirmed"
	EventTransactionGroupUnlocked        = "TransactionGroupUnlocked"
	EventTransactionGroupCancelled       = "TransactionGroupCancelled"
)

// TransactionGroupCreatedEvent is raised when a new group is created
type TransactionGroupCreatedEvent struct {
	shared.BaseDomainEvent
	GroupID         valueobject.ObjectID `json:"group_id"`
	GroupNumber     string               `json:"group_number"`
	TransactionDate time.Time            `json:"transaction_date"`
}

// EventType returns the event type name
func (e *TransactionGroupCreatedEvent) EventType() string {
	return EventTransactionGroupCreated
}

// NewTransactionGroupCreatedEvent creates a new TransactionGroupCreatedEvent
func NewTransactionGroupCreatedEvent(tg *TransactionGroup) *TransactionGroupCreatedEvent {
	return &TransactionGroupCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTransactionGroupCreated, "TransactionGroup", tg.ID),
		GroupID:         tg.ID,
		GroupNumber:     tg.GroupNumber,
		TransactionDate: tg.TransactionDate,
	}
}

// TransactionGroupEntriesReplacedEvent is raised when a draft group's
// entry list is replaced
type TransactionGroupEntriesReplacedEvent struct {
	shared.BaseDomainEvent
	GroupID     valueobject.ObjectID `json:"group_id"`
	GroupNumber string               `json:"group_number"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	Balanced    bool                 `json:"balanced"`
}

// EventType returns the event type name
func (e *TransactionGroupEntriesReplacedEvent) EventType() string {
	return EventTransactionGroupEntriesReplaced
}

// NewTransactionGroupEntriesReplacedEvent creates a new TransactionGroupEntriesReplacedEvent
func NewTransactionGroupEntriesReplacedEvent(tg *TransactionGroup) *TransactionGroupEntriesReplacedEvent {
	totals := tg.Totals()
	return &TransactionGroupEntriesReplacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTransactionGroupEntriesReplaced, "TransactionGroup", tg.ID),
		GroupID:         tg.ID,
		GroupNumber:     tg.GroupNumber,
		TotalAmount:     totals.TotalAmount,
		Balanced:        totals.Balanced,
	}
}

// TransactionGroupConfirmedEvent is raised when a group is confirmed.
// SourceIDs carries the funding edges so consumers can invalidate the
// balances of every source the confirmation consumes from.
type TransactionGroupConfirmedEvent struct {
	shared.BaseDomainEvent
	GroupID     valueobject.ObjectID   `json:"group_id"`
	GroupNumber string                 `json:"group_number"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
	SourceIDs   []valueobject.ObjectID `json:"source_ids"`
	ConfirmedAt time.Time              `json:"confirmed_at"`
}

// EventType returns the event type name
func (e *TransactionGroupConfirmedEvent) EventType() string {
	return EventTransactionGroupConfirmed
}

// NewTransactionGroupConfirmedEvent creates a new TransactionGroupConfirmedEvent
func NewTransactionGroupConfirmedEvent(tg *TransactionGroup) *TransactionGroupConfirmedEvent {
	var confirmedAt time.Time
	if tg.ConfirmedAt != nil {
		confirmedAt = *tg.ConfirmedAt
	}
	return &TransactionGroupConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTransactionGroupConfirmed, "TransactionGroup", tg.ID),
		GroupID:         tg.ID,
		GroupNumber:     tg.GroupNumber,
		TotalAmount:     tg.TotalAmount(),
		SourceIDs:       tg.SourceIDs(),
		ConfirmedAt:     confirmedAt,
	}
}

// TransactionGroupUnlockedEvent is raised when a confirmed group is
// unlocked back to draft
type TransactionGroupUnlockedEvent struct {
	shared.BaseDomainEvent
	GroupID     valueobject.ObjectID   `json:"group_id"`
	GroupNumber string                 `json:"group_number"`
	SourceIDs   []valueobject.ObjectID `json:"source_ids"`
}

// EventType returns the event type name
func (e *TransactionGroupUnlockedEvent) EventType() string {
	return EventTransactionGroupUnlocked
}

// NewTransactionGroupUnlockedEvent creates a new TransactionGroupUnlockedEvent
func NewTransactionGroupUnlockedEvent(tg *TransactionGroup) *TransactionGroupUnlockedEvent {
	return &TransactionGroupUnlockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTransactionGroupUnlocked, "TransactionGroup", tg.ID),
		GroupID:         tg.ID,
		GroupNumber:     tg.GroupNumber,
		SourceIDs:       tg.SourceIDs(),
	}
}

// TransactionGroupCancelledEvent is raised when a group is cancelled.
// Cancellation fully releases the funds the group had claimed.
type TransactionGroupCancelledEvent struct {
	shared.BaseDomainEvent
	GroupID        valueobject.ObjectID   `json:"group_id"`
	GroupNumber    string                 `json:"group_number"`
	PreviousStatus GroupStatus            `json:"previous_status"`
	SourceIDs      []valueobject.ObjectID `json:"source_ids"`
	CancelledAt    time.Time              `json:"cancelled_at"`
}

// EventType returns the event type name
func (e *TransactionGroupCancelledEvent) EventType() string {
	return EventTransactionGroupCancelled
}

// NewTransactionGroupCancelledEvent creates a new TransactionGroupCancelledEvent
func NewTransactionGroupCancelledEvent(tg *TransactionGroup, previousStatus GroupStatus) *TransactionGroupCancelledEvent {
	var cancelledAt time.Time
	if tg.CancelledAt != nil {
		cancelledAt = *tg.CancelledAt
	}
	return &TransactionGroupCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTransactionGroupCancelled, "TransactionGroup", tg.ID),
		GroupID:         tg.ID,
		GroupNumber:     tg.GroupNumber,
		PreviousStatus:  previousStatus,
		SourceIDs:       tg.SourceIDs(),
		CancelledAt:     cancelledAt,
	}
}
