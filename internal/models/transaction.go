package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind tags the direction of a transaction's balance effect
type TransactionKind string

const (
	Debit  TransactionKind = "DEBIT"
	Credit TransactionKind = "CREDIT"
)

// Valid reports whether k is a known kind
func (k TransactionKind) Valid() bool {
	return k == Debit || k == Credit
}

// Transaction represents a posted ledger entry. Amount is always a positive magnitude;
// Kind decides the sign of the balance effect.
type Transaction struct {
	ID               int64           `json:"id"`
	AccountID        int64           `json:"account_id"`
	CategoryID       int64           `json:"category_id"`
	PlannedPaymentID *int64          `json:"planned_payment_id,omitempty"`
	Kind             TransactionKind `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	Date             time.Time       `json:"date"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Delta returns the signed change this transaction applies to its account balance
func (t Transaction) Delta() decimal.Decimal {
	if t.Kind == Credit {
		return t.Amount
	}
	return t.Amount.Neg()
}

// TransactionRequest is the input of the transaction engine
type TransactionRequest struct {
	AccountID        int64           `json:"account_id"`
	CategoryID       int64           `json:"category_id"`
	CurrencyID       int64           `json:"currency_id"`
	PlannedPaymentID *int64          `json:"planned_payment_id,omitempty"`
	Kind             TransactionKind `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	Date             time.Time       `json:"date"`
}

// TransactionFilter narrows a transaction listing. Zero values are ignored.
type TransactionFilter struct {
	OwnerID          int64
	AccountID        int64
	CategoryID       int64
	PlannedPaymentID int64
	From             time.Time
	To               time.Time
}

// Matches reports whether t satisfies every set field except OwnerID,
// which needs the account record to evaluate.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.AccountID != 0 && t.AccountID != f.AccountID {
		return false
	}
	if f.CategoryID != 0 && t.CategoryID != f.CategoryID {
		return false
	}
	if f.PlannedPaymentID != 0 && (t.PlannedPaymentID == nil || *t.PlannedPaymentID != f.PlannedPaymentID) {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	return true
}
