package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/models"
)

const plannedPaymentSelect = `
		SELECT p.id, p.account_id, p.category_id, p.frequency_id, f.frequency_type,
			p.description, p.amount, p.payment_date, p.created_at, p.updated_at
		FROM ledger.planned_payments p
		JOIN ledger.frequencies f ON f.id = p.frequency_id`

// CreatePlannedPayment inserts a planned payment
func (q *queries) CreatePlannedPayment(ctx context.Context, pp *models.PlannedPayment) error {
	query := `
		INSERT INTO ledger.planned_payments (account_id, category_id, frequency_id, description, amount, payment_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := q.db.QueryRowContext(ctx, query, pp.AccountID, pp.CategoryID, pp.FrequencyID, pp.Description, pp.Amount, pp.Date).
		Scan(&pp.ID, &pp.CreatedAt, &pp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create planned payment: %w", err)
	}
	return nil
}

// GetPlannedPayment retrieves a planned payment by id
func (q *queries) GetPlannedPayment(ctx context.Context, id int64) (*models.PlannedPayment, error) {
	return q.getPlannedPayment(ctx, plannedPaymentSelect+` WHERE p.id = $1`, id)
}

// LockPlannedPayment retrieves a planned payment and takes a row lock on it
func (q *queries) LockPlannedPayment(ctx context.Context, id int64) (*models.PlannedPayment, error) {
	return q.getPlannedPayment(ctx, plannedPaymentSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id)
}

func (q *queries) getPlannedPayment(ctx context.Context, query string, id int64) (*models.PlannedPayment, error) {
	pp, err := scanPlannedPayment(q.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("planned payment %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get planned payment: %w", err)
	}
	return pp, nil
}

// UpdatePlannedPayment replaces every mutable field of a planned payment
func (q *queries) UpdatePlannedPayment(ctx context.Context, pp *models.PlannedPayment) error {
	query := `
		UPDATE ledger.planned_payments
		SET account_id = $2, category_id = $3, frequency_id = $4, description = $5, amount = $6,
			payment_date = $7::date, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := q.db.QueryRowContext(ctx, query, pp.ID, pp.AccountID, pp.CategoryID, pp.FrequencyID, pp.Description, pp.Amount, pp.Date).
		Scan(&pp.UpdatedAt)
	if err == sql.ErrNoRows {
		return apperrors.NotFound("planned payment %d not found", pp.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update planned payment: %w", err)
	}
	return nil
}

// DeletePlannedPayment removes a planned payment
func (q *queries) DeletePlannedPayment(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM ledger.planned_payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete planned payment: %w", err)
	}
	return expectAffected(res, "planned payment", id)
}

// ListPlannedPaymentsByAccount returns one page of an account's planned payments by due date
func (q *queries) ListPlannedPaymentsByAccount(ctx context.Context, accountID int64, page models.PageRequest) ([]models.PlannedPayment, int64, error) {
	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger.planned_payments WHERE account_id = $1`, accountID).
		Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count planned payments: %w", err)
	}

	page = page.Normalize()
	payments, err := q.listPlannedPayments(ctx,
		plannedPaymentSelect+` WHERE p.account_id = $1 ORDER BY p.payment_date, p.id LIMIT $2 OFFSET $3`,
		accountID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// ListPlannedPaymentsDue returns every planned payment due on day
func (q *queries) ListPlannedPaymentsDue(ctx context.Context, day time.Time) ([]models.PlannedPayment, error) {
	return q.listPlannedPayments(ctx, plannedPaymentSelect+` WHERE p.payment_date = $1::date ORDER BY p.id`, models.Day(day))
}

// AdvancePlannedPaymentDate moves the due date from one day to another if nobody changed it meanwhile
func (q *queries) AdvancePlannedPaymentDate(ctx context.Context, id int64, from, to time.Time) (bool, error) {
	query := `
		UPDATE ledger.planned_payments
		SET payment_date = $3::date, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND payment_date = $2::date`
	res, err := q.db.ExecContext(ctx, query, id, models.Day(from), models.Day(to))
	if err != nil {
		return false, fmt.Errorf("failed to advance planned payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (q *queries) listPlannedPayments(ctx context.Context, query string, args ...any) ([]models.PlannedPayment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list planned payments: %w", err)
	}
	defer rows.Close()

	var payments []models.PlannedPayment
	for rows.Next() {
		pp, err := scanPlannedPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planned payment: %w", err)
		}
		payments = append(payments, *pp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate planned payments: %w", err)
	}
	return payments, nil
}

func scanPlannedPayment(row rowScanner) (*models.PlannedPayment, error) {
	var (
		pp        models.PlannedPayment
		frequency string
	)
	err := row.Scan(&pp.ID, &pp.AccountID, &pp.CategoryID, &pp.FrequencyID, &frequency,
		&pp.Description, &pp.Amount, &pp.Date, &pp.CreatedAt, &pp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	pp.Frequency = models.FrequencyType(frequency)
	pp.Date = models.Day(pp.Date)
	return &pp, nil
}
