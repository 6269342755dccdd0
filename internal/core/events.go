package core

import "time"

const (
	EventBudgetCreated  EventType = "budget.created"
	EventBudgetUpdated  EventType = "budget.updated"
	EventBudgetDeleted  EventType = "budget.deleted"
	EventAccountDeleted EventType = "account.deleted"
)

type EventType string

// LedgerEvent describes a committed change to a user's ledger or account.
type LedgerEvent struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	EntryID    string    `json:"entry_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewLedgerEvent(t EventType, userID, entryID string) LedgerEvent {
	return LedgerEvent{
		Type:       t,
		UserID:     userID,
		EntryID:    entryID,
		OccurredAt: time.Now().UTC(),
	}
}
