package service

import (
	"context"

	"github.com/Dan9191/finance-tracker/internal/models"
)

func (s *Service) ListCurrencies(ctx context.Context) ([]models.Currency, error) {
	return s.repo.ListCurrencies(ctx)
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) ListFrequencies(ctx context.Context) ([]models.Frequency, error) {
	return s.repo.ListFrequencies(ctx)
}
