package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/models"
)

const transactionColumns = `t.id, t.account_id, t.category_id, t.planned_payment_id, t.kind, t.amount, t.description, t.transaction_date, t.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateTransaction inserts a transaction
func (q *queries) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO ledger.transactions (account_id, category_id, planned_payment_id, kind, amount, description, transaction_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := q.db.QueryRowContext(ctx, query,
		txn.AccountID, txn.CategoryID, nullInt64(txn.PlannedPaymentID), string(txn.Kind), txn.Amount, txn.Description, txn.Date).
		Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by id
func (q *queries) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger.transactions t WHERE t.id = $1`
	txn, err := scanTransaction(q.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("transaction %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// UpdateTransaction replaces the mutable fields of a transaction
func (q *queries) UpdateTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		UPDATE ledger.transactions
		SET account_id = $2, category_id = $3, planned_payment_id = $4, kind = $5, amount = $6, description = $7, transaction_date = $8
		WHERE id = $1`
	res, err := q.db.ExecContext(ctx, query,
		txn.ID, txn.AccountID, txn.CategoryID, nullInt64(txn.PlannedPaymentID), string(txn.Kind), txn.Amount, txn.Description, txn.Date)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectAffected(res, "transaction", txn.ID)
}

// DeleteTransaction removes a transaction
func (q *queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM ledger.transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectAffected(res, "transaction", id)
}

// ListTransactions returns one page of transactions matching filter, newest first
func (q *queries) ListTransactions(ctx context.Context, filter models.TransactionFilter, page models.PageRequest) ([]models.Transaction, int64, error) {
	where, args := transactionWhere(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM ledger.transactions t JOIN ledger.accounts a ON a.id = t.account_id` + where
	if err := q.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	page = page.Normalize()
	args = append(args, page.Size, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM ledger.transactions t JOIN ledger.accounts a ON a.id = t.account_id%s
		ORDER BY t.transaction_date DESC, t.id DESC LIMIT $%d OFFSET $%d`, transactionColumns, where, len(args)-1, len(args))
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, total, nil
}

// CountTransactionsByPlannedPayment counts the transactions spawned by a planned payment
func (q *queries) CountTransactionsByPlannedPayment(ctx context.Context, plannedPaymentID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger.transactions WHERE planned_payment_id = $1`, plannedPaymentID).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func transactionWhere(f models.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.OwnerID != 0 {
		add("a.owner_id = $%d", f.OwnerID)
	}
	if f.AccountID != 0 {
		add("t.account_id = $%d", f.AccountID)
	}
	if f.CategoryID != 0 {
		add("t.category_id = $%d", f.CategoryID)
	}
	if f.PlannedPaymentID != 0 {
		add("t.planned_payment_id = $%d", f.PlannedPaymentID)
	}
	if !f.From.IsZero() {
		add("t.transaction_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("t.transaction_date <= $%d", f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		txn  models.Transaction
		ppID sql.NullInt64
		kind string
	)
	err := row.Scan(&txn.ID, &txn.AccountID, &txn.CategoryID, &ppID, &kind, &txn.Amount, &txn.Description, &txn.Date, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}
	txn.Kind = models.TransactionKind(kind)
	if ppID.Valid {
		id := ppID.Int64
		txn.PlannedPaymentID = &id
	}
	return &txn, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
