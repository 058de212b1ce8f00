package service

import (
	"context"
	"strings"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
)

func validateAccountRequest(ctx context.Context, q repository.Queries, req *models.AccountRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return apperrors.BadRequest("account name is required")
	}
	if req.Balance.IsNegative() {
		return apperrors.BadRequest("account balance must not be negative")
	}
	if _, err := q.GetCurrency(ctx, req.CurrencyID); err != nil {
		return err
	}
	return nil
}

// CreateAccount creates a new account for the authenticated user
func (s *Service) CreateAccount(ctx context.Context, req models.AccountRequest, actingUserID int64) (*models.Account, error) {
	if err := validateAccountRequest(ctx, s.repo, &req); err != nil {
		return nil, err
	}

	account := &models.Account{
		Name:       req.Name,
		OwnerID:    actingUserID,
		Balance:    req.Balance,
		CurrencyID: req.CurrencyID,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Infof("Account %d created for user %d", account.ID, actingUserID)
	return account, nil
}

// EditAccount replaces name, balance and currency of an owned account.
// The owner never changes.
func (s *Service) EditAccount(ctx context.Context, accountID int64, req models.AccountRequest, actingUserID int64) (*models.Account, error) {
	var account *models.Account
	err := s.repo.Atomic(ctx, func(q repository.Queries) error {
		var err error
		if account, err = q.LockAccount(ctx, accountID); err != nil {
			return err
		}
		if err := authorize(account.OwnerID, actingUserID); err != nil {
			return err
		}
		if err := validateAccountRequest(ctx, q, &req); err != nil {
			return err
		}
		account.Name = req.Name
		account.Balance = req.Balance
		account.CurrencyID = req.CurrencyID
		return q.UpdateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Account %d updated by user %d", accountID, actingUserID)
	return account, nil
}

// GetAccount returns an owned account
func (s *Service) GetAccount(ctx context.Context, accountID, actingUserID int64) (*models.Account, error) {
	return ownedAccount(ctx, s.repo, accountID, actingUserID)
}

// ListAccounts returns every account of the acting user
func (s *Service) ListAccounts(ctx context.Context, actingUserID int64) ([]models.Account, error) {
	accounts, err := s.repo.ListAccountsByOwner(ctx, actingUserID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

// DeleteAccount removes an owned account with its transactions and planned payments
func (s *Service) DeleteAccount(ctx context.Context, accountID, actingUserID int64) error {
	err := s.repo.Atomic(ctx, func(q repository.Queries) error {
		account, err := q.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := authorize(account.OwnerID, actingUserID); err != nil {
			return err
		}
		return q.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return err
	}

	s.log.Infof("Account %d deleted by user %d", accountID, actingUserID)
	return nil
}
