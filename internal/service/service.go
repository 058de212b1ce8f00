package service

import (
	"context"
	"errors"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/clock"
	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/events"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrNotDue is returned when a planned payment left its due day before it could be materialized
var ErrNotDue = errors.New("planned payment is no longer due")

// Service handles business logic
type Service struct {
	repo      repository.Store
	log       *logrus.Logger
	config    *config.Config
	publisher events.Publisher
	clock     clock.Clock
}

// NewService initializes a new service
func NewService(repo repository.Store, log *logrus.Logger, cfg *config.Config, publisher events.Publisher, clk clock.Clock) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{repo: repo, log: log, config: cfg, publisher: publisher, clock: clk}
}

// authorize fails with Forbidden unless the acting user owns the resource
func authorize(ownerID, actingUserID int64) error {
	if ownerID != actingUserID {
		return apperrors.Forbidden("user %d is not allowed to access this resource", actingUserID)
	}
	return nil
}

// ownedAccount loads an account and checks that actingUserID owns it
func ownedAccount(ctx context.Context, q repository.Queries, accountID, actingUserID int64) (*models.Account, error) {
	account, err := q.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := authorize(account.OwnerID, actingUserID); err != nil {
		return nil, err
	}
	return account, nil
}

// publish sends an event after commit. Failures are logged only.
func (s *Service) publish(ctx context.Context, eventType events.EventType, txn models.Transaction, balance decimal.Decimal) {
	event := events.NewTransactionEvent(eventType, txn, balance, s.clock.Now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithFields(logrus.Fields{
			"event":          eventType,
			"transaction_id": txn.ID,
			"account_id":     txn.AccountID,
		}).Warnf("Failed to publish event: %v", err)
	}
}
