package service

import (
	"context"
	"time"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// AccountStatement collects every transaction of an owned account between from and to,
// both inclusive, oldest first. A period without transactions yields an empty statement.
func (s *Service) AccountStatement(ctx context.Context, accountID int64, from, to time.Time, actingUserID int64) (*models.Statement, error) {
	if from.IsZero() || to.IsZero() {
		return nil, apperrors.BadRequest("statement period is required")
	}
	if from.After(to) {
		return nil, apperrors.BadRequest("from must not be after to")
	}
	account, err := ownedAccount(ctx, s.repo, accountID, actingUserID)
	if err != nil {
		return nil, err
	}
	currency, err := s.repo.GetCurrency(ctx, account.CurrencyID)
	if err != nil {
		return nil, err
	}

	filter := models.TransactionFilter{AccountID: accountID, From: from, To: to}
	var collected []models.Transaction
	for page := (models.PageRequest{Page: 1, Size: models.MaxPageSize}); ; page.Page++ {
		items, total, err := s.repo.ListTransactions(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		collected = append(collected, items...)
		if len(items) == 0 || int64(len(collected)) >= total {
			break
		}
	}

	statement := &models.Statement{
		Account:      *account,
		Currency:     *currency,
		From:         from,
		To:           to,
		Transactions: make([]models.Transaction, 0, len(collected)),
		TotalDebit:   decimal.Zero,
		TotalCredit:  decimal.Zero,
		GeneratedAt:  s.clock.Now(),
	}
	// listing is newest first
	for i := len(collected) - 1; i >= 0; i-- {
		t := collected[i]
		statement.Transactions = append(statement.Transactions, t)
		if t.Kind == models.Credit {
			statement.TotalCredit = statement.TotalCredit.Add(t.Amount)
		} else {
			statement.TotalDebit = statement.TotalDebit.Add(t.Amount)
		}
	}
	return statement, nil
}
