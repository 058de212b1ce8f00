package service

import (
	"context"
	"strings"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/events"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// validateTransactionRequest checks req against the account it will be posted to
func validateTransactionRequest(ctx context.Context, q repository.Queries, req models.TransactionRequest, account *models.Account) error {
	if _, err := q.GetCategory(ctx, req.CategoryID); err != nil {
		return err
	}
	currency, err := q.GetCurrency(ctx, req.CurrencyID)
	if err != nil {
		return err
	}
	if currency.ID != account.CurrencyID {
		return apperrors.BadRequest("transaction currency %s does not match the account currency", currency.Code)
	}
	if !req.Amount.IsPositive() {
		return apperrors.BadRequest("amount must be greater than zero")
	}
	if !req.Kind.Valid() {
		return apperrors.BadRequest("kind must be %s or %s", models.Debit, models.Credit)
	}
	return nil
}

// createTransaction posts req inside the atomic unit q and returns the transaction
// together with the account it left behind.
func (s *Service) createTransaction(ctx context.Context, q repository.Queries, req models.TransactionRequest, actingUserID int64) (*models.Transaction, *models.Account, error) {
	account, err := q.LockAccount(ctx, req.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(account.OwnerID, actingUserID); err != nil {
		return nil, nil, err
	}
	if err := validateTransactionRequest(ctx, q, req, account); err != nil {
		return nil, nil, err
	}
	if req.PlannedPaymentID != nil {
		pp, err := q.GetPlannedPayment(ctx, *req.PlannedPaymentID)
		if err != nil {
			return nil, nil, err
		}
		if pp.AccountID != account.ID {
			return nil, nil, apperrors.BadRequest("planned payment %d does not belong to account %d", pp.ID, account.ID)
		}
	}

	txn := &models.Transaction{
		AccountID:        account.ID,
		CategoryID:       req.CategoryID,
		PlannedPaymentID: req.PlannedPaymentID,
		Kind:             req.Kind,
		Amount:           req.Amount,
		Description:      strings.TrimSpace(req.Description),
		Date:             req.Date,
	}
	if txn.Date.IsZero() {
		txn.Date = s.clock.Now()
	}

	balance := account.Balance.Add(txn.Delta())
	if balance.IsNegative() {
		return nil, nil, apperrors.InsufficientFunds("insufficient funds on account %d: balance %s, amount %s", account.ID, account.Balance, txn.Amount)
	}

	if err := q.CreateTransaction(ctx, txn); err != nil {
		return nil, nil, err
	}
	account.Balance = balance
	if err := q.UpdateAccount(ctx, account); err != nil {
		return nil, nil, err
	}
	return txn, account, nil
}

// CreateTransaction posts a transaction and updates the account balance atomically
func (s *Service) CreateTransaction(ctx context.Context, req models.TransactionRequest, actingUserID int64) (*models.Transaction, error) {
	var (
		txn     *models.Transaction
		account *models.Account
	)
	err := s.repo.Atomic(ctx, func(q repository.Queries) error {
		var err error
		txn, account, err = s.createTransaction(ctx, q, req, actingUserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": txn.ID,
		"account_id":     txn.AccountID,
		"kind":           txn.Kind,
		"amount":         txn.Amount.String(),
	}).Info("Transaction created")
	s.publish(ctx, events.TransactionCreated, *txn, account.Balance)
	return txn, nil
}

// EditTransaction replaces a transaction, reverting its old balance effect and applying the new one.
// The planned payment back-reference is kept as is.
func (s *Service) EditTransaction(ctx context.Context, id int64, req models.TransactionRequest, actingUserID int64) (*models.Transaction, error) {
	var (
		txn     *models.Transaction
		account *models.Account
	)
	err := s.repo.Atomic(ctx, func(q repository.Queries) error {
		existing, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		// locks in ascending id order
		locked := make(map[int64]*models.Account, 2)
		for _, accountID := range lockOrder(existing.AccountID, req.AccountID) {
			a, err := q.LockAccount(ctx, accountID)
			if err != nil {
				return err
			}
			if err := authorize(a.OwnerID, actingUserID); err != nil {
				return err
			}
			locked[accountID] = a
		}
		// re-read under the account lock
		if existing, err = q.GetTransaction(ctx, id); err != nil {
			return err
		}
		source, ok := locked[existing.AccountID]
		if !ok {
			return apperrors.BadRequest("transaction %d was moved concurrently", id)
		}
		target := locked[req.AccountID]

		if err := validateTransactionRequest(ctx, q, req, target); err != nil {
			return err
		}
		if existing.PlannedPaymentID != nil && target.ID != source.ID {
			return apperrors.BadRequest("transaction %d was created by a planned payment and cannot change account", id)
		}

		updated := *existing
		updated.AccountID = target.ID
		updated.CategoryID = req.CategoryID
		updated.Kind = req.Kind
		updated.Amount = req.Amount
		updated.Description = strings.TrimSpace(req.Description)
		if !req.Date.IsZero() {
			updated.Date = req.Date
		}

		source.Balance = source.Balance.Sub(existing.Delta())
		target.Balance = target.Balance.Add(updated.Delta())

		for _, accountID := range lockOrder(source.ID, target.ID) {
			a := locked[accountID]
			if a.Balance.IsNegative() {
				return apperrors.InsufficientFunds("insufficient funds on account %d", a.ID)
			}
			if err := q.UpdateAccount(ctx, a); err != nil {
				return err
			}
		}
		if err := q.UpdateTransaction(ctx, &updated); err != nil {
			return err
		}
		txn, account = &updated, target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Transaction %d updated by user %d", id, actingUserID)
	s.publish(ctx, events.TransactionUpdated, *txn, account.Balance)
	return txn, nil
}

// DeleteTransaction removes a transaction and reverts its balance effect
func (s *Service) DeleteTransaction(ctx context.Context, id, actingUserID int64) error {
	var (
		txn     *models.Transaction
		balance decimal.Decimal
	)
	err := s.repo.Atomic(ctx, func(q repository.Queries) error {
		existing, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		account, err := q.LockAccount(ctx, existing.AccountID)
		if err != nil {
			return err
		}
		if err := authorize(account.OwnerID, actingUserID); err != nil {
			return err
		}

		account.Balance = account.Balance.Sub(existing.Delta())
		if account.Balance.IsNegative() {
			return apperrors.InsufficientFunds("deleting transaction %d would leave account %d negative", id, account.ID)
		}
		if err := q.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		if err := q.UpdateAccount(ctx, account); err != nil {
			return err
		}
		txn, balance = existing, account.Balance
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Infof("Transaction %d deleted by user %d", id, actingUserID)
	s.publish(ctx, events.TransactionDeleted, *txn, balance)
	return nil
}

// GetTransaction returns a transaction on an owned account
func (s *Service) GetTransaction(ctx context.Context, id, actingUserID int64) (*models.Transaction, error) {
	txn, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := ownedAccount(ctx, s.repo, txn.AccountID, actingUserID); err != nil {
		return nil, err
	}
	return txn, nil
}

// ListUserTransactions returns a page of every transaction on the acting user's accounts
func (s *Service) ListUserTransactions(ctx context.Context, page models.PageRequest, actingUserID int64) (models.Page[models.Transaction], error) {
	return s.listTransactions(ctx, models.TransactionFilter{OwnerID: actingUserID}, page)
}

// ListAccountTransactions returns a page of an owned account's transactions.
// Category and date bounds of filter are optional.
func (s *Service) ListAccountTransactions(ctx context.Context, filter models.TransactionFilter, page models.PageRequest, actingUserID int64) (models.Page[models.Transaction], error) {
	if _, err := ownedAccount(ctx, s.repo, filter.AccountID, actingUserID); err != nil {
		return models.Page[models.Transaction]{}, err
	}
	if filter.CategoryID != 0 {
		if _, err := s.repo.GetCategory(ctx, filter.CategoryID); err != nil {
			return models.Page[models.Transaction]{}, err
		}
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return models.Page[models.Transaction]{}, apperrors.BadRequest("from must not be after to")
	}
	filter.OwnerID = actingUserID
	return s.listTransactions(ctx, filter, page)
}

// ListPlannedPaymentTransactions returns a page of the transactions a planned payment spawned
func (s *Service) ListPlannedPaymentTransactions(ctx context.Context, plannedPaymentID int64, page models.PageRequest, actingUserID int64) (models.Page[models.Transaction], error) {
	pp, err := s.repo.GetPlannedPayment(ctx, plannedPaymentID)
	if err != nil {
		return models.Page[models.Transaction]{}, err
	}
	if _, err := ownedAccount(ctx, s.repo, pp.AccountID, actingUserID); err != nil {
		return models.Page[models.Transaction]{}, err
	}
	return s.listTransactions(ctx, models.TransactionFilter{OwnerID: actingUserID, PlannedPaymentID: pp.ID}, page)
}

func (s *Service) listTransactions(ctx context.Context, filter models.TransactionFilter, page models.PageRequest) (models.Page[models.Transaction], error) {
	page = page.Normalize()
	items, total, err := s.repo.ListTransactions(ctx, filter, page)
	if err != nil {
		return models.Page[models.Transaction]{}, err
	}
	return models.NewPage(items, total, page), nil
}

func lockOrder(a, b int64) []int64 {
	switch {
	case a == b:
		return []int64{a}
	case a < b:
		return []int64{a, b}
	default:
		return []int64{b, a}
	}
}
