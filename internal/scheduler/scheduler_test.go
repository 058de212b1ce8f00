package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/clock"
	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var today = time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu           sync.Mutex
	materialized []int64
	failed       []int64
}

func (n *recordingNotifier) PaymentMaterialized(_ context.Context, pp models.PlannedPayment, _ models.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.materialized = append(n.materialized, pp.ID)
	return nil
}

func (n *recordingNotifier) PaymentFailed(_ context.Context, pp models.PlannedPayment, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, pp.ID)
	return nil
}

type env struct {
	repo     *repository.MemoryRepository
	svc      *service.Service
	clock    *clock.Fixed
	notifier *recordingNotifier
	sched    *Scheduler
	owner    int64
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		repo:     repository.NewMemoryRepository(),
		clock:    clock.NewFixed(today),
		notifier: &recordingNotifier{},
	}
	e.svc = service.NewService(e.repo, quietLogger(), &config.Config{}, nil, e.clock)

	user := &models.User{Username: "owner", Email: "owner@example.com"}
	if err := e.repo.CreateUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	e.owner = user.ID

	sched, err := New(e.svc, e.notifier, e.clock, quietLogger(), Options{Location: time.UTC, ItemTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.sched = sched
	return e
}

func (e *env) account(t *testing.T, balance int64) *models.Account {
	t.Helper()
	a, err := e.svc.CreateAccount(context.Background(), models.AccountRequest{Name: "main", Balance: decimal.NewFromInt(balance), CurrencyID: 1}, e.owner)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

// plannedPayment stores a payment directly so that its amount may exceed the balance
func (e *env) plannedPayment(t *testing.T, accountID, amount, frequencyID int64, date time.Time) *models.PlannedPayment {
	t.Helper()
	pp := &models.PlannedPayment{AccountID: accountID, CategoryID: 3, FrequencyID: frequencyID, Amount: decimal.NewFromInt(amount), Date: date}
	if err := e.repo.CreatePlannedPayment(context.Background(), pp); err != nil {
		t.Fatal(err)
	}
	return pp
}

func (e *env) state(t *testing.T, accountID, ppID int64) (decimal.Decimal, time.Time, int64) {
	t.Helper()
	ctx := context.Background()
	a, err := e.repo.GetAccount(ctx, accountID)
	if err != nil {
		t.Fatal(err)
	}
	pp, err := e.repo.GetPlannedPayment(ctx, ppID)
	if err != nil {
		t.Fatal(err)
	}
	n, _ := e.repo.CountTransactionsByPlannedPayment(ctx, ppID)
	return a.Balance, pp.Date, n
}

func TestRunOnce_MaterializesDuePayment(t *testing.T) {
	e := newEnv(t)
	account := e.account(t, 100)
	pp := e.plannedPayment(t, account.ID, 30, 1, today)

	report, err := e.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Due != 1 || report.Materialized != 1 || len(report.Failures) != 0 {
		t.Errorf("report = %+v", report)
	}
	balance, date, n := e.state(t, account.ID, pp.ID)
	if !balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("balance = %s, want 70", balance)
	}
	if want := models.Day(today.AddDate(0, 0, 1)); !date.Equal(want) {
		t.Errorf("date = %s, want %s", date, want)
	}
	if n != 1 {
		t.Errorf("transactions = %d, want 1", n)
	}

	report, err = e.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if report.Due != 0 {
		t.Errorf("second run due = %d, want 0", report.Due)
	}
	if _, _, n := e.state(t, account.ID, pp.ID); n != 1 {
		t.Errorf("transactions after second run = %d, want 1", n)
	}
	if len(e.notifier.materialized) != 1 {
		t.Errorf("notifications = %v, want one", e.notifier.materialized)
	}
}

func TestRunOnce_InsufficientFundsAdvancesDate(t *testing.T) {
	e := newEnv(t)
	account := e.account(t, 20)
	pp := e.plannedPayment(t, account.ID, 30, 1, today)

	report, err := e.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0], apperrors.ErrInsufficientFunds) {
		t.Fatalf("failures = %v, want one InsufficientFunds", report.Failures)
	}
	if report.Advanced != 1 {
		t.Errorf("advanced = %d, want 1", report.Advanced)
	}
	balance, date, n := e.state(t, account.ID, pp.ID)
	if !balance.Equal(decimal.NewFromInt(20)) || n != 0 {
		t.Errorf("balance = %s, transactions = %d; want 20 and 0", balance, n)
	}
	if want := models.Day(today.AddDate(0, 0, 1)); !date.Equal(want) {
		t.Errorf("date = %s, want %s", date, want)
	}
	if len(e.notifier.failed) != 1 || e.notifier.failed[0] != pp.ID {
		t.Errorf("failure notifications = %v", e.notifier.failed)
	}
}

func TestRunOnce_NotDueDay(t *testing.T) {
	e := newEnv(t)
	account := e.account(t, 100)
	tomorrow := e.plannedPayment(t, account.ID, 30, 1, today.AddDate(0, 0, 1))
	yesterday := e.plannedPayment(t, account.ID, 30, 1, today.AddDate(0, 0, -1))

	report, err := e.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Due != 0 {
		t.Errorf("due = %d, want 0", report.Due)
	}
	for _, pp := range []*models.PlannedPayment{tomorrow, yesterday} {
		balance, date, n := e.state(t, account.ID, pp.ID)
		if !balance.Equal(decimal.NewFromInt(100)) || n != 0 || !date.Equal(models.Day(pp.Date)) {
			t.Errorf("planned payment %d touched: balance %s, date %s, transactions %d", pp.ID, balance, date, n)
		}
	}
}

func TestRunOnce_FailureDoesNotStopRun(t *testing.T) {
	e := newEnv(t)
	poor := e.account(t, 10)
	rich := e.account(t, 1000)
	failing := e.plannedPayment(t, poor.ID, 30, 3, today)
	monthly := e.plannedPayment(t, rich.ID, 30, 3, today)
	weekly := e.plannedPayment(t, rich.ID, 40, 2, today)

	report, err := e.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Due != 3 || report.Materialized != 2 || len(report.Failures) != 1 || report.Failures[0].PlannedPaymentID != failing.ID {
		t.Errorf("report = %+v", report)
	}
	balance, date, _ := e.state(t, rich.ID, monthly.ID)
	if !balance.Equal(decimal.NewFromInt(930)) {
		t.Errorf("balance = %s, want 930", balance)
	}
	if want := time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC); !date.Equal(want) {
		t.Errorf("monthly date = %s, want %s", date, want)
	}
	if _, date, _ := e.state(t, rich.ID, weekly.ID); !date.Equal(time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("weekly date = %s", date)
	}
	if _, date, _ := e.state(t, poor.ID, failing.ID); !date.Equal(time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("failed monthly date = %s", date)
	}
}

func TestRunOnce_CancelledRunLeavesPaymentsDue(t *testing.T) {
	e := newEnv(t)
	a := e.account(t, 100)
	pp := e.plannedPayment(t, a.ID, 30, 1, models.Day(today))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := e.sched.RunOnce(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunOnce error = %v, want context.Canceled", err)
	}
	if report.Materialized != 0 || report.Advanced != 0 || len(report.Failures) != 0 || report.Interrupted != 1 {
		t.Errorf("report = %+v", report)
	}
	balance, date, n := e.state(t, a.ID, pp.ID)
	if !balance.Equal(decimal.NewFromInt(100)) || !date.Equal(models.Day(today)) || n != 0 {
		t.Errorf("state = balance %s, date %s, %d transactions", balance, date, n)
	}
	if len(e.notifier.failed) != 0 {
		t.Errorf("failure notices sent for %v", e.notifier.failed)
	}

	// the next run on the same day still charges it
	report, err = e.sched.RunOnce(context.Background())
	if err != nil || report.Materialized != 1 {
		t.Fatalf("retry report = %+v, err = %v", report, err)
	}
	if balance, _, _ := e.state(t, a.ID, pp.ID); !balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("balance after retry = %s, want 70", balance)
	}
}

type stubProcessor struct {
	due      []models.PlannedPayment
	listErr  error
	ran      chan struct{}
	advances []models.DateAdvance
}

func (p *stubProcessor) DuePlannedPayments(context.Context, time.Time) ([]models.PlannedPayment, error) {
	if p.ran != nil {
		select {
		case p.ran <- struct{}{}:
		default:
		}
	}
	return p.due, p.listErr
}

func (p *stubProcessor) MaterializePlannedPayment(ctx context.Context, id int64, _ time.Time) (*models.Transaction, error) {
	if id == 2 {
		return nil, service.ErrNotDue
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *stubProcessor) AdvancePlannedPayments(_ context.Context, advances []models.DateAdvance) (int, error) {
	p.advances = append(p.advances, advances...)
	return len(advances), nil
}

func TestRunOnce_ItemTimeoutAndSkip(t *testing.T) {
	day := models.Day(today)
	processor := &stubProcessor{due: []models.PlannedPayment{
		{ID: 1, Frequency: models.Yearly, Date: day},
		{ID: 2, Frequency: models.Daily, Date: day},
	}}
	sched, err := New(processor, nil, clock.NewFixed(today), quietLogger(), Options{ItemTimeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	report, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Skipped != 1 || len(report.Failures) != 1 || !errors.Is(report.Failures[0], context.DeadlineExceeded) {
		t.Errorf("report = %+v", report)
	}
	if len(processor.advances) != 1 || !processor.advances[0].To.Equal(day.AddDate(1, 0, 0)) {
		t.Errorf("advances = %+v", processor.advances)
	}
}

func TestRunOnce_CancelledMidItem(t *testing.T) {
	day := models.Day(today)
	processor := &stubProcessor{due: []models.PlannedPayment{
		{ID: 1, Frequency: models.Daily, Date: day},
		{ID: 3, Frequency: models.Daily, Date: day},
	}}
	sched, err := New(processor, nil, clock.NewFixed(today), quietLogger(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	report, err := sched.RunOnce(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunOnce error = %v, want context.DeadlineExceeded", err)
	}
	if report.Interrupted != 2 || len(report.Failures) != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(processor.advances) != 0 {
		t.Errorf("interrupted payments were advanced: %+v", processor.advances)
	}
}

func TestRunOnce_ListError(t *testing.T) {
	processor := &stubProcessor{listErr: errors.New("db down")}
	sched, err := New(processor, nil, clock.NewFixed(today), quietLogger(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sched.RunOnce(context.Background()); err == nil {
		t.Error("RunOnce succeeded with a failing store")
	}
}

func TestNew_InvalidSpec(t *testing.T) {
	if _, err := New(&stubProcessor{}, nil, nil, quietLogger(), Options{Spec: "whenever"}); err == nil {
		t.Error("New accepted an invalid spec")
	}
}

func TestStartStop(t *testing.T) {
	processor := &stubProcessor{ran: make(chan struct{}, 1)}
	sched, err := New(processor, nil, clock.NewFixed(today), quietLogger(), Options{Spec: "@every 1s"})
	if err != nil {
		t.Fatal(err)
	}

	sched.Start(context.Background())
	select {
	case <-processor.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sched.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := sched.Stop(ctx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
