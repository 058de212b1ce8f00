package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Statement is the ownership-checked input handed to statement exporters
type Statement struct {
	Account      Account         `json:"account"`
	Currency     Currency        `json:"currency"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Transactions []Transaction   `json:"transactions"`
	TotalDebit   decimal.Decimal `json:"total_debit"`
	TotalCredit  decimal.Decimal `json:"total_credit"`
	GeneratedAt  time.Time       `json:"generated_at"`
}
