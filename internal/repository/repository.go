package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
)

// Queries is the ledger store surface. Every method is usable on its own or inside
// an atomic unit obtained through Store.Atomic.
type Queries interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCurrency(ctx context.Context, id int64) (*models.Currency, error)
	ListCurrencies(ctx context.Context) ([]models.Currency, error)
	GetFrequency(ctx context.Context, id int64) (*models.Frequency, error)
	ListFrequencies(ctx context.Context) ([]models.Frequency, error)

	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	// LockAccount reads an account and holds it exclusively until the atomic unit ends.
	LockAccount(ctx context.Context, id int64) (*models.Account, error)
	UpdateAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, id int64) error
	ListAccountsByOwner(ctx context.Context, ownerID int64) ([]models.Account, error)
	GetAccountOwner(ctx context.Context, accountID int64) (*models.User, error)

	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, filter models.TransactionFilter, page models.PageRequest) ([]models.Transaction, int64, error)
	CountTransactionsByPlannedPayment(ctx context.Context, plannedPaymentID int64) (int64, error)

	CreatePlannedPayment(ctx context.Context, pp *models.PlannedPayment) error
	GetPlannedPayment(ctx context.Context, id int64) (*models.PlannedPayment, error)
	// LockPlannedPayment reads a planned payment and holds it exclusively until the atomic unit ends.
	LockPlannedPayment(ctx context.Context, id int64) (*models.PlannedPayment, error)
	UpdatePlannedPayment(ctx context.Context, pp *models.PlannedPayment) error
	DeletePlannedPayment(ctx context.Context, id int64) error
	ListPlannedPaymentsByAccount(ctx context.Context, accountID int64, page models.PageRequest) ([]models.PlannedPayment, int64, error)
	ListPlannedPaymentsDue(ctx context.Context, day time.Time) ([]models.PlannedPayment, error)
	// AdvancePlannedPaymentDate moves the due date only if it still equals from.
	AdvancePlannedPaymentDate(ctx context.Context, id int64, from, to time.Time) (bool, error)
}

// Store is a ledger store able to run several writes as one all-or-nothing unit
type Store interface {
	Queries
	Atomic(ctx context.Context, fn func(q Queries) error) error
}

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

// Repository provides PostgreSQL-backed ledger operations
type Repository struct {
	*queries
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{queries: &queries{db: db}, db: db}
}

// Atomic runs fn inside a database transaction, committing only if fn succeeds
func (r *Repository) Atomic(ctx context.Context, fn func(q Queries) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(&queries{db: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ Store = (*Repository)(nil)
