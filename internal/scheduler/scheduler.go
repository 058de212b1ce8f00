package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/finance-tracker/internal/clock"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSpec fires once a day
const DefaultSpec = "@every 24h"

// PaymentProcessor turns due planned payments into transactions
type PaymentProcessor interface {
	DuePlannedPayments(ctx context.Context, day time.Time) ([]models.PlannedPayment, error)
	MaterializePlannedPayment(ctx context.Context, id int64, day time.Time) (*models.Transaction, error)
	AdvancePlannedPayments(ctx context.Context, advances []models.DateAdvance) (int, error)
}

// Notifier tells account owners what happened to their planned payments
type Notifier interface {
	PaymentMaterialized(ctx context.Context, pp models.PlannedPayment, txn models.Transaction) error
	PaymentFailed(ctx context.Context, pp models.PlannedPayment, cause error) error
}

// Options configures a Scheduler
type Options struct {
	// Spec is a robfig/cron schedule; empty means DefaultSpec.
	Spec        string
	Location    *time.Location
	ItemTimeout time.Duration
}

// ItemError records why one planned payment could not be materialized
type ItemError struct {
	PlannedPaymentID int64
	Err              error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("planned payment %d: %v", e.PlannedPaymentID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Report summarizes one run
type Report struct {
	Day          time.Time
	Due          int
	Materialized int
	Skipped      int
	Advanced     int
	Interrupted  int // due payments left untouched because the run was cancelled
	Failures     []ItemError
}

// Scheduler periodically materializes the planned payments due on the current day.
// Runs never overlap.
type Scheduler struct {
	processor   PaymentProcessor
	notifier    Notifier
	clock       clock.Clock
	log         *logrus.Logger
	itemTimeout time.Duration
	cron        *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// New creates a stopped scheduler. A nil notifier disables notifications.
func New(processor PaymentProcessor, notifier Notifier, clk clock.Clock, log *logrus.Logger, opts Options) (*Scheduler, error) {
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if clk == nil {
		clk = clock.Real{Location: opts.Location}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	logger := cronLogger{log: log}
	s := &Scheduler{
		processor:   processor,
		notifier:    notifier,
		clock:       clk,
		log:         log,
		itemTimeout: opts.ItemTimeout,
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx: context.Background(),
	}
	if _, err := s.cron.AddFunc(opts.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", opts.Spec, err)
	}
	return s, nil
}

// Start begins firing on schedule. Runs use a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop prevents further runs and waits for a running one to finish or ctx to expire.
// If ctx expires first the running tick is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		cancel()
		s.log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	report, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Errorf("Scheduled run failed: %v", err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"day":          report.Day.Format(time.DateOnly),
		"due":          report.Due,
		"materialized": report.Materialized,
		"skipped":      report.Skipped,
		"failed":       len(report.Failures),
		"advanced":     report.Advanced,
	}).Info("Scheduled run complete")
}

// RunOnce materializes every planned payment due today, one at a time. A failing payment
// does not stop the run: it is reported, its owner is notified and its date still moves
// to the next occurrence once the loop is over.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	day := models.Day(s.clock.Now())
	report := Report{Day: day}

	due, err := s.processor.DuePlannedPayments(ctx, day)
	if err != nil {
		return report, fmt.Errorf("failed to list due planned payments: %w", err)
	}
	report.Due = len(due)

	var missed []models.DateAdvance
	for i, pp := range due {
		if ctx.Err() != nil {
			report.Interrupted = len(due) - i
			break
		}
		txn, err := s.materialize(ctx, pp, day)
		switch {
		case err != nil && ctx.Err() != nil:
			// the run was cancelled mid-item; the payment stays due for the next run
			report.Interrupted = len(due) - i
		case err == nil:
			report.Materialized++
			if err := s.notifier.PaymentMaterialized(ctx, pp, *txn); err != nil {
				s.log.Warnf("Failed to notify about planned payment %d: %v", pp.ID, err)
			}
		case errors.Is(err, service.ErrNotDue):
			report.Skipped++
		default:
			s.log.WithFields(logrus.Fields{
				"planned_payment_id": pp.ID,
				"account_id":         pp.AccountID,
			}).Errorf("Failed to materialize planned payment: %v", err)
			report.Failures = append(report.Failures, ItemError{PlannedPaymentID: pp.ID, Err: err})
			missed = append(missed, models.DateAdvance{
				PlannedPaymentID: pp.ID,
				From:             pp.Date,
				To:               pp.Frequency.Next(pp.Date),
			})
			if err := s.notifier.PaymentFailed(ctx, pp, err); err != nil {
				s.log.Warnf("Failed to notify about planned payment %d: %v", pp.ID, err)
			}
		}
		if report.Interrupted > 0 {
			break
		}
	}

	if len(missed) > 0 {
		// persisted even when the run is cancelled afterwards, otherwise the payments stay in the past
		moved, err := s.processor.AdvancePlannedPayments(context.WithoutCancel(ctx), missed)
		report.Advanced = moved
		if err != nil {
			s.log.Errorf("Failed to advance missed planned payments: %v", err)
		}
	}
	if report.Interrupted > 0 {
		return report, fmt.Errorf("run interrupted with %d planned payments pending: %w", report.Interrupted, context.Cause(ctx))
	}
	return report, nil
}

func (s *Scheduler) materialize(ctx context.Context, pp models.PlannedPayment, day time.Time) (*models.Transaction, error) {
	if s.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.itemTimeout)
		defer cancel()
	}
	return s.processor.MaterializePlannedPayment(ctx, pp.ID, day)
}

type nopNotifier struct{}

func (nopNotifier) PaymentMaterialized(context.Context, models.PlannedPayment, models.Transaction) error {
	return nil
}

func (nopNotifier) PaymentFailed(context.Context, models.PlannedPayment, error) error { return nil }
