package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlannedPayment is a recurring debit instruction. Date is the next due day.
type PlannedPayment struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	CategoryID  int64           `json:"category_id"`
	FrequencyID int64           `json:"frequency_id"`
	Frequency   FrequencyType   `json:"frequency"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PlannedPaymentRequest is the full-replace input for create and edit
type PlannedPaymentRequest struct {
	AccountID   int64           `json:"account_id"`
	CategoryID  int64           `json:"category_id"`
	FrequencyID int64           `json:"frequency_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
}

// DateAdvance moves a planned payment from one due day to the next,
// provided it still sits on From.
type DateAdvance struct {
	PlannedPaymentID int64
	From             time.Time
	To               time.Time
}
