package events

import (
	"context"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names a ledger change
type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
)

// TransactionEvent is published after a transaction change has been committed
type TransactionEvent struct {
	ID               uuid.UUID              `json:"id"`
	Type             EventType              `json:"type"`
	TransactionID    int64                  `json:"transaction_id"`
	AccountID        int64                  `json:"account_id"`
	PlannedPaymentID *int64                 `json:"planned_payment_id,omitempty"`
	Kind             models.TransactionKind `json:"kind"`
	Amount           decimal.Decimal        `json:"amount"`
	Balance          decimal.Decimal        `json:"balance"`
	OccurredAt       time.Time              `json:"occurred_at"`
}

// NewTransactionEvent describes txn after the change left its account at balance
func NewTransactionEvent(eventType EventType, txn models.Transaction, balance decimal.Decimal, at time.Time) TransactionEvent {
	return TransactionEvent{
		ID:               uuid.New(),
		Type:             eventType,
		TransactionID:    txn.ID,
		AccountID:        txn.AccountID,
		PlannedPaymentID: txn.PlannedPaymentID,
		Kind:             txn.Kind,
		Amount:           txn.Amount,
		Balance:          balance,
		OccurredAt:       at,
	}
}

// Publisher delivers ledger events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event TransactionEvent) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TransactionEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
