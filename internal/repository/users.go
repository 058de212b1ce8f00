package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/lib/pq"
)

// CreateUser creates a new user in the database
func (q *queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO ledger.users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := q.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return apperrors.BadRequest("user with email %s already exists", user.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id
func (q *queries) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM ledger.users
		WHERE id = $1`
	return q.scanUser(q.db.QueryRowContext(ctx, query, id), fmt.Sprintf("user %d not found", id))
}

// FindUserByEmail retrieves a user by email
func (q *queries) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM ledger.users
		WHERE email = $1`
	return q.scanUser(q.db.QueryRowContext(ctx, query, email), "user not found")
}

// GetAccountOwner retrieves the user owning an account
func (q *queries) GetAccountOwner(ctx context.Context, accountID int64) (*models.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.created_at
		FROM ledger.users u
		JOIN ledger.accounts a ON a.owner_id = u.id
		WHERE a.id = $1`
	return q.scanUser(q.db.QueryRowContext(ctx, query, accountID), fmt.Sprintf("owner of account %d not found", accountID))
}

func (q *queries) scanUser(row *sql.Row, notFound string) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("%s", notFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
