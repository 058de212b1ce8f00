package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a balance-bearing container owned by exactly one user
type Account struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	OwnerID    int64           `json:"owner_id"`
	Balance    decimal.Decimal `json:"balance"`
	CurrencyID int64           `json:"currency_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// AccountRequest carries the editable account fields
type AccountRequest struct {
	Name       string          `json:"name"`
	Balance    decimal.Decimal `json:"balance"`
	CurrencyID int64           `json:"currency_id"`
}
