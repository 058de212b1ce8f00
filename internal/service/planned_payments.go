package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/events"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// checkSufficientFunds fails when amount exceeds the balance
func checkSufficientFunds(balance, amount decimal.Decimal) error {
	if amount.GreaterThan(balance) {
		return apperrors.InsufficientFunds("insufficient funds: balance %s is below amount %s", balance, amount)
	}
	return nil
}

// validatePlannedPaymentRequest checks the scalar fields and resolves the frequency
func validatePlannedPaymentRequest(ctx context.Context, q repository.Queries, req models.PlannedPaymentRequest) (*models.Frequency, error) {
	if !req.Amount.IsPositive() {
		return nil, apperrors.BadRequest("amount must be greater than zero")
	}
	if req.Date.IsZero() {
		return nil, apperrors.BadRequest("date is required")
	}
	frequency, err := q.GetFrequency(ctx, req.FrequencyID)
	if err != nil {
		return nil, err
	}
	if _, err := q.GetCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	return frequency, nil
}

// CreatePlannedPayment defines a recurring debit on an owned account
func (s *Service) CreatePlannedPayment(ctx context.Context, req models.PlannedPaymentRequest, actingUserID int64) (*models.PlannedPayment, error) {
	account, err := ownedAccount(ctx, s.repo, req.AccountID, actingUserID)
	if err != nil {
		return nil, err
	}
	frequency, err := validatePlannedPaymentRequest(ctx, s.repo, req)
	if err != nil {
		return nil, err
	}
	if err := checkSufficientFunds(account.Balance, req.Amount); err != nil {
		return nil, err
	}

	pp := &models.PlannedPayment{
		AccountID:   account.ID,
		CategoryID:  req.CategoryID,
		FrequencyID: frequency.ID,
		Frequency:   frequency.Type,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Date:        models.Day(req.Date),
	}
	if err := s.repo.CreatePlannedPayment(ctx, pp); err != nil {
		return nil, err
	}

	s.log.Infof("Planned payment %d created on account %d", pp.ID, pp.AccountID)
	return pp, nil
}

// EditPlannedPayment fully replaces a planned payment. Both the current and the
// target account must belong to the acting user; funds are checked on the target.
func (s *Service) EditPlannedPayment(ctx context.Context, id int64, req models.PlannedPaymentRequest, actingUserID int64) (*models.PlannedPayment, error) {
	var pp *models.PlannedPayment
	err := s.repo.Atomic(ctx, func(q repository.Queries) error {
		var err error
		if pp, err = q.LockPlannedPayment(ctx, id); err != nil {
			return err
		}
		if _, err := ownedAccount(ctx, q, pp.AccountID, actingUserID); err != nil {
			return err
		}
		frequency, err := validatePlannedPaymentRequest(ctx, q, req)
		if err != nil {
			return err
		}
		target, err := ownedAccount(ctx, q, req.AccountID, actingUserID)
		if err != nil {
			return err
		}
		if err := checkSufficientFunds(target.Balance, req.Amount); err != nil {
			return err
		}

		pp.AccountID = target.ID
		pp.CategoryID = req.CategoryID
		pp.FrequencyID = frequency.ID
		pp.Frequency = frequency.Type
		pp.Description = strings.TrimSpace(req.Description)
		pp.Amount = req.Amount
		pp.Date = models.Day(req.Date)
		return q.UpdatePlannedPayment(ctx, pp)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Planned payment %d updated by user %d", id, actingUserID)
	return pp, nil
}

// DeletePlannedPayment removes a planned payment that has not spawned any transaction
func (s *Service) DeletePlannedPayment(ctx context.Context, id, actingUserID int64) error {
	err := s.repo.Atomic(ctx, func(q repository.Queries) error {
		pp, err := q.LockPlannedPayment(ctx, id)
		if err != nil {
			return err
		}
		if _, err := ownedAccount(ctx, q, pp.AccountID, actingUserID); err != nil {
			return err
		}
		n, err := q.CountTransactionsByPlannedPayment(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperrors.BadRequest("planned payment %d is referenced by %d transactions", id, n)
		}
		return q.DeletePlannedPayment(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Infof("Planned payment %d deleted by user %d", id, actingUserID)
	return nil
}

// GetPlannedPayment returns a planned payment on an owned account
func (s *Service) GetPlannedPayment(ctx context.Context, id, actingUserID int64) (*models.PlannedPayment, error) {
	pp, err := s.repo.GetPlannedPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := ownedAccount(ctx, s.repo, pp.AccountID, actingUserID); err != nil {
		return nil, err
	}
	return pp, nil
}

// ListPlannedPayments returns a page of an owned account's planned payments by due date.
// An account without planned payments yields an empty page.
func (s *Service) ListPlannedPayments(ctx context.Context, accountID int64, page models.PageRequest, actingUserID int64) (models.Page[models.PlannedPayment], error) {
	if _, err := ownedAccount(ctx, s.repo, accountID, actingUserID); err != nil {
		return models.Page[models.PlannedPayment]{}, err
	}
	page = page.Normalize()
	items, total, err := s.repo.ListPlannedPaymentsByAccount(ctx, accountID, page)
	if err != nil {
		return models.Page[models.PlannedPayment]{}, err
	}
	return models.NewPage(items, total, page), nil
}

// DuePlannedPayments lists every planned payment due on the calendar day of day
func (s *Service) DuePlannedPayments(ctx context.Context, day time.Time) ([]models.PlannedPayment, error) {
	return s.repo.ListPlannedPaymentsDue(ctx, models.Day(day))
}

// MaterializePlannedPayment turns a due planned payment into a DEBIT transaction on behalf
// of the account owner and advances its date, all in one atomic unit. It returns ErrNotDue
// when the payment no longer sits on day.
func (s *Service) MaterializePlannedPayment(ctx context.Context, id int64, day time.Time) (*models.Transaction, error) {
	var (
		txn     *models.Transaction
		account *models.Account
	)
	err := s.repo.Atomic(ctx, func(q repository.Queries) error {
		pp, err := q.LockPlannedPayment(ctx, id)
		if err != nil {
			return err
		}
		if !models.SameDay(pp.Date, day) {
			return ErrNotDue
		}
		owner, err := q.GetAccount(ctx, pp.AccountID)
		if err != nil {
			return err
		}

		ref := pp.ID
		req := models.TransactionRequest{
			AccountID:        pp.AccountID,
			CategoryID:       pp.CategoryID,
			CurrencyID:       owner.CurrencyID,
			PlannedPaymentID: &ref,
			Kind:             models.Debit,
			Amount:           pp.Amount,
			Description:      pp.Description,
			Date:             pp.Date,
		}
		if txn, account, err = s.createTransaction(ctx, q, req, owner.OwnerID); err != nil {
			return err
		}

		next := pp.Frequency.Next(pp.Date)
		advanced, err := q.AdvancePlannedPaymentDate(ctx, pp.ID, pp.Date, next)
		if err != nil {
			return err
		}
		if !advanced {
			return fmt.Errorf("failed to advance planned payment %d", pp.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"planned_payment_id": id,
		"transaction_id":     txn.ID,
		"account_id":         txn.AccountID,
	}).Info("Planned payment materialized")
	s.publish(ctx, events.TransactionCreated, *txn, account.Balance)
	return txn, nil
}

// AdvancePlannedPayments moves each planned payment to its next date if it still sits on
// the expected one. The batch is one atomic unit; it returns how many moved.
func (s *Service) AdvancePlannedPayments(ctx context.Context, advances []models.DateAdvance) (int, error) {
	var moved int
	err := s.repo.Atomic(ctx, func(q repository.Queries) error {
		moved = 0
		for _, a := range advances {
			ok, err := q.AdvancePlannedPaymentDate(ctx, a.PlannedPaymentID, a.From, a.To)
			if err != nil {
				return fmt.Errorf("planned payment %d: %w", a.PlannedPaymentID, err)
			}
			if ok {
				moved++
			} else {
				s.log.Debugf("Planned payment %d changed since %s, date left as is", a.PlannedPaymentID, a.From.Format(time.DateOnly))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to advance planned payments: %w", err)
	}
	return moved, nil
}
