package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/models"
)

// GetCategory retrieves a category by id
func (q *queries) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c := &models.Category{}
	err := q.db.QueryRowContext(ctx, `SELECT id, name FROM ledger.categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("category %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by id
func (q *queries) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name FROM ledger.categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCurrency retrieves a currency by id
func (q *queries) GetCurrency(ctx context.Context, id int64) (*models.Currency, error) {
	c := &models.Currency{}
	err := q.db.QueryRowContext(ctx, `SELECT id, code, name FROM ledger.currencies WHERE id = $1`, id).
		Scan(&c.ID, &c.Code, &c.Name)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("currency %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get currency: %w", err)
	}
	return c, nil
}

// ListCurrencies returns all currencies ordered by id
func (q *queries) ListCurrencies(ctx context.Context) ([]models.Currency, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, code, name FROM ledger.currencies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	defer rows.Close()

	var currencies []models.Currency
	for rows.Next() {
		var c models.Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

// GetFrequency retrieves a frequency by id
func (q *queries) GetFrequency(ctx context.Context, id int64) (*models.Frequency, error) {
	f := &models.Frequency{}
	err := q.db.QueryRowContext(ctx, `SELECT id, frequency_type FROM ledger.frequencies WHERE id = $1`, id).
		Scan(&f.ID, &f.Type)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("frequency %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get frequency: %w", err)
	}
	return f, nil
}

// ListFrequencies returns all frequencies ordered by id
func (q *queries) ListFrequencies(ctx context.Context) ([]models.Frequency, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, frequency_type FROM ledger.frequencies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list frequencies: %w", err)
	}
	defer rows.Close()

	var frequencies []models.Frequency
	for rows.Next() {
		var f models.Frequency
		if err := rows.Scan(&f.ID, &f.Type); err != nil {
			return nil, fmt.Errorf("failed to scan frequency: %w", err)
		}
		frequencies = append(frequencies, f)
	}
	return frequencies, rows.Err()
}
