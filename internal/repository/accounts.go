package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/models"
)

const accountColumns = `id, name, owner_id, balance, currency_id, created_at, updated_at`

// CreateAccount creates a new account in the database
func (q *queries) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO ledger.accounts (name, owner_id, balance, currency_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := q.db.QueryRowContext(ctx, query, account.Name, account.OwnerID, account.Balance, account.CurrencyID).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by id
func (q *queries) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger.accounts WHERE id = $1`
	return scanAccount(q.db.QueryRowContext(ctx, query, id), id)
}

// LockAccount retrieves an account and takes a row lock on it
func (q *queries) LockAccount(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger.accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(q.db.QueryRowContext(ctx, query, id), id)
}

// UpdateAccount persists name, balance and currency of an account
func (q *queries) UpdateAccount(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE ledger.accounts
		SET name = $2, balance = $3, currency_id = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := q.db.QueryRowContext(ctx, query, account.ID, account.Name, account.Balance, account.CurrencyID).
		Scan(&account.UpdatedAt)
	if err == sql.ErrNoRows {
		return apperrors.NotFound("account %d not found", account.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// DeleteAccount removes an account together with its transactions and planned payments
func (q *queries) DeleteAccount(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM ledger.accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectAffected(res, "account", id)
}

// ListAccountsByOwner returns the accounts of a user ordered by id
func (q *queries) ListAccountsByOwner(ctx context.Context, ownerID int64) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger.accounts WHERE owner_id = $1 ORDER BY id`
	rows, err := q.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.OwnerID, &a.Balance, &a.CurrencyID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanAccount(row *sql.Row, id int64) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.Name, &a.OwnerID, &a.Balance, &a.CurrencyID, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("account %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func expectAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("%s %d not found", entity, id)
	}
	return nil
}
