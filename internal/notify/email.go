package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// OwnerLookup resolves the user behind an account
type OwnerLookup interface {
	GetAccountOwner(ctx context.Context, accountID int64) (*models.User, error)
}

// Sender handles sending planned payment notifications via SMTP
type Sender struct {
	cfg    *config.Config
	owners OwnerLookup
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, owners OwnerLookup, logger *logrus.Logger) *Sender {
	s := &Sender{
		cfg:    cfg,
		owners: owners,
		logger: logger,
	}
	s.send = s.sendSMTP
	return s
}

// PaymentMaterialized tells the owner that a planned payment was charged
func (s *Sender) PaymentMaterialized(ctx context.Context, pp models.PlannedPayment, txn models.Transaction) error {
	owner, err := s.owners.GetAccountOwner(ctx, pp.AccountID)
	if err != nil {
		return fmt.Errorf("failed to resolve owner of account %d: %w", pp.AccountID, err)
	}
	return s.deliver(buildMaterialized(s.cfg.SenderEmail, owner, pp, txn))
}

// PaymentFailed tells the owner that a planned payment could not be charged
func (s *Sender) PaymentFailed(ctx context.Context, pp models.PlannedPayment, cause error) error {
	owner, err := s.owners.GetAccountOwner(ctx, pp.AccountID)
	if err != nil {
		return fmt.Errorf("failed to resolve owner of account %d: %w", pp.AccountID, err)
	}
	return s.deliver(buildFailed(s.cfg.SenderEmail, owner, pp, cause))
}

func (s *Sender) deliver(e *email.Email) error {
	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send email to %v: %v", e.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}

func (s *Sender) sendSMTP(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}

func buildMaterialized(from string, owner *models.User, pp models.PlannedPayment, txn models.Transaction) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = []string{owner.Email}
	e.Subject = "Planned Payment Processed"

	body := fmt.Sprintf("Dear %s,\n\n", owner.Username)
	body += fmt.Sprintf(
		"Your planned payment %q of %s was charged to account %d on %s.\n"+
			"Transaction reference: %d\n",
		describe(pp), txn.Amount.StringFixed(2), txn.AccountID, txn.Date.Format("2006-01-02"), txn.ID,
	)
	body += fmt.Sprintf("Next payment is scheduled for %s.\n", pp.Frequency.Next(pp.Date).Format("2006-01-02"))
	body += "\nBest regards,\nFinance Tracker"
	e.Text = []byte(body)
	return e
}

func buildFailed(from string, owner *models.User, pp models.PlannedPayment, cause error) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = []string{owner.Email}
	e.Subject = "Planned Payment Failed"

	body := fmt.Sprintf("Dear %s,\n\n", owner.Username)
	body += fmt.Sprintf(
		"Your planned payment %q of %s on account %d due on %s could not be processed:\n"+
			"%v\n"+
			"This occurrence was skipped. The next attempt is on %s.\n",
		describe(pp), pp.Amount.StringFixed(2), pp.AccountID, pp.Date.Format("2006-01-02"),
		cause, pp.Frequency.Next(pp.Date).Format("2006-01-02"),
	)
	body += "\nBest regards,\nFinance Tracker"
	e.Text = []byte(body)
	return e
}

func describe(pp models.PlannedPayment) string {
	if pp.Description != "" {
		return pp.Description
	}
	return fmt.Sprintf("#%d", pp.ID)
}
