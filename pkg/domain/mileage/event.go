package mileage

import (
	"time"

	"github.com/google/uuid"
)

// EventTypeTransactionRecorded is the bus type of TransactionRecorded.
const EventTypeTransactionRecorded = "TransactionRecorded"

// TransactionRecorded is published by callers after a ledger write commits.
type TransactionRecorded struct {
	EventID       uuid.UUID `json:"event_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	AccountID     uuid.UUID `json:"account_id"`
	UserID        int64     `json:"user_id"`
	Kind          Kind      `json:"kind"`
	Points        int64     `json:"points"`
	BalanceAfter  int64     `json:"balance_after"`
	SourceType    string    `json:"source_type,omitempty"`
	SourceID      *int64    `json:"source_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Type implements eventbus.Event.
func (TransactionRecorded) Type() string { return EventTypeTransactionRecorded }

// NewTransactionRecorded builds the event for a committed transaction.
func NewTransactionRecorded(tx *Transaction) *TransactionRecorded {
	return &TransactionRecorded{
		EventID:       uuid.New(),
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		UserID:        tx.UserID,
		Kind:          tx.Kind,
		Points:        tx.Points,
		BalanceAfter:  tx.BalanceAfter,
		SourceType:    tx.Source.Type,
		SourceID:      tx.Source.ID,
		OccurredAt:    tx.CreatedAt,
	}
}
