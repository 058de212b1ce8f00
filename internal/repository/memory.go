package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/finance-tracker/internal/apperrors"
	"github.com/Dan9191/finance-tracker/internal/models"
)

// MemoryRepository is an in-memory implementation of Store.
// Atomic units are serialized and rolled back to a snapshot when they fail.
// Writes outside a unit wait for the running unit, so a rollback only ever
// discards that unit's own writes. Data is lost on restart.
type MemoryRepository struct {
	*memoryState
	inUnit bool
}

type memoryState struct {
	txMu sync.Mutex // held by atomic units and standalone writes
	mu   sync.RWMutex
	data memoryData
}

type memoryData struct {
	seq             map[string]int64
	users           map[int64]models.User
	currencies      map[int64]models.Currency
	categories      map[int64]models.Category
	frequencies     map[int64]models.Frequency
	accounts        map[int64]models.Account
	transactions    map[int64]models.Transaction
	plannedPayments map[int64]models.PlannedPayment
}

// NewMemoryRepository creates an empty store seeded with the same reference data as the migrations
func NewMemoryRepository() *MemoryRepository {
	d := memoryData{
		seq:             make(map[string]int64),
		users:           make(map[int64]models.User),
		currencies:      make(map[int64]models.Currency),
		categories:      make(map[int64]models.Category),
		frequencies:     make(map[int64]models.Frequency),
		accounts:        make(map[int64]models.Account),
		transactions:    make(map[int64]models.Transaction),
		plannedPayments: make(map[int64]models.PlannedPayment),
	}
	for _, c := range []models.Currency{{Code: "BGN", Name: "Bulgarian lev"}, {Code: "EUR", Name: "Euro"}, {Code: "USD", Name: "US dollar"}} {
		c.ID = d.next("currencies")
		d.currencies[c.ID] = c
	}
	for _, name := range []string{"Salary", "Food", "Utilities", "Rent", "Transport", "Entertainment", "Other"} {
		id := d.next("categories")
		d.categories[id] = models.Category{ID: id, Name: name}
	}
	for _, t := range []models.FrequencyType{models.Daily, models.Weekly, models.Monthly, models.Yearly} {
		id := d.next("frequencies")
		d.frequencies[id] = models.Frequency{ID: id, Type: t}
	}
	return &MemoryRepository{memoryState: &memoryState{data: d}}
}

func (d *memoryData) next(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

func (d memoryData) clone() memoryData {
	c := memoryData{
		seq:             make(map[string]int64, len(d.seq)),
		users:           make(map[int64]models.User, len(d.users)),
		currencies:      d.currencies,
		categories:      d.categories,
		frequencies:     d.frequencies,
		accounts:        make(map[int64]models.Account, len(d.accounts)),
		transactions:    make(map[int64]models.Transaction, len(d.transactions)),
		plannedPayments: make(map[int64]models.PlannedPayment, len(d.plannedPayments)),
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.transactions {
		c.transactions[k] = copyTransaction(v)
	}
	for k, v := range d.plannedPayments {
		c.plannedPayments[k] = v
	}
	return c
}

// Atomic runs fn exclusively; on error every write made by fn is discarded
func (m *MemoryRepository) Atomic(ctx context.Context, fn func(q Queries) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	snapshot := m.data.clone()
	m.mu.RUnlock()

	if err := fn(&MemoryRepository{memoryState: m.memoryState, inUnit: true}); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// lockWrite takes the write locks and returns the matching unlock.
// Inside an atomic unit txMu is already held by Atomic.
func (m *MemoryRepository) lockWrite() func() {
	if m.inUnit {
		m.mu.Lock()
		return m.mu.Unlock
	}
	m.txMu.Lock()
	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		m.txMu.Unlock()
	}
}

// CreateUser stores a new user; emails are unique
func (m *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	defer m.lockWrite()()

	for _, u := range m.data.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperrors.BadRequest("user with email %s already exists", user.Email)
		}
	}
	user.ID = m.data.next("users")
	user.CreatedAt = time.Now().UTC()
	m.data.users[user.ID] = *user
	return nil
}

// GetUser retrieves a user by id
func (m *MemoryRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.data.users[id]
	if !ok {
		return nil, apperrors.NotFound("user %d not found", id)
	}
	return &u, nil
}

// FindUserByEmail retrieves a user by email
func (m *MemoryRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

// GetAccountOwner retrieves the user owning an account
func (m *MemoryRepository) GetAccountOwner(ctx context.Context, accountID int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.data.accounts[accountID]
	if !ok {
		return nil, apperrors.NotFound("account %d not found", accountID)
	}
	u, ok := m.data.users[a.OwnerID]
	if !ok {
		return nil, apperrors.NotFound("owner of account %d not found", accountID)
	}
	return &u, nil
}

// GetCategory retrieves a category by id
func (m *MemoryRepository) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.data.categories[id]
	if !ok {
		return nil, apperrors.NotFound("category %d not found", id)
	}
	return &c, nil
}

// ListCategories returns all categories ordered by id
func (m *MemoryRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Category, 0, len(m.data.categories))
	for _, c := range m.data.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetCurrency retrieves a currency by id
func (m *MemoryRepository) GetCurrency(ctx context.Context, id int64) (*models.Currency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.data.currencies[id]
	if !ok {
		return nil, apperrors.NotFound("currency %d not found", id)
	}
	return &c, nil
}

// ListCurrencies returns all currencies ordered by id
func (m *MemoryRepository) ListCurrencies(ctx context.Context) ([]models.Currency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Currency, 0, len(m.data.currencies))
	for _, c := range m.data.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetFrequency retrieves a frequency by id
func (m *MemoryRepository) GetFrequency(ctx context.Context, id int64) (*models.Frequency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.data.frequencies[id]
	if !ok {
		return nil, apperrors.NotFound("frequency %d not found", id)
	}
	return &f, nil
}

// ListFrequencies returns all frequencies ordered by id
func (m *MemoryRepository) ListFrequencies(ctx context.Context) ([]models.Frequency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Frequency, 0, len(m.data.frequencies))
	for _, f := range m.data.frequencies {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateAccount stores a new account
func (m *MemoryRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	defer m.lockWrite()()

	if _, ok := m.data.users[account.OwnerID]; !ok {
		return fmt.Errorf("failed to create account: owner %d does not exist", account.OwnerID)
	}
	if account.Balance.IsNegative() {
		return fmt.Errorf("failed to create account: negative balance")
	}
	now := time.Now().UTC()
	account.ID = m.data.next("accounts")
	account.CreatedAt, account.UpdatedAt = now, now
	m.data.accounts[account.ID] = *account
	return nil
}

// GetAccount retrieves an account by id
func (m *MemoryRepository) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.data.accounts[id]
	if !ok {
		return nil, apperrors.NotFound("account %d not found", id)
	}
	return &a, nil
}

// LockAccount retrieves an account; exclusivity comes from Atomic
func (m *MemoryRepository) LockAccount(ctx context.Context, id int64) (*models.Account, error) {
	return m.GetAccount(ctx, id)
}

// UpdateAccount persists name, balance and currency of an account
func (m *MemoryRepository) UpdateAccount(ctx context.Context, account *models.Account) error {
	defer m.lockWrite()()

	stored, ok := m.data.accounts[account.ID]
	if !ok {
		return apperrors.NotFound("account %d not found", account.ID)
	}
	if account.Balance.IsNegative() {
		return fmt.Errorf("failed to update account: balance of account %d would be negative", account.ID)
	}
	stored.Name = account.Name
	stored.Balance = account.Balance
	stored.CurrencyID = account.CurrencyID
	stored.UpdatedAt = time.Now().UTC()
	m.data.accounts[account.ID] = stored
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

// DeleteAccount removes an account together with its transactions and planned payments
func (m *MemoryRepository) DeleteAccount(ctx context.Context, id int64) error {
	defer m.lockWrite()()

	if _, ok := m.data.accounts[id]; !ok {
		return apperrors.NotFound("account %d not found", id)
	}
	for tid, t := range m.data.transactions {
		if t.AccountID == id {
			delete(m.data.transactions, tid)
		}
	}
	for pid, p := range m.data.plannedPayments {
		if p.AccountID == id {
			delete(m.data.plannedPayments, pid)
		}
	}
	delete(m.data.accounts, id)
	return nil
}

// ListAccountsByOwner returns the accounts of a user ordered by id
func (m *MemoryRepository) ListAccountsByOwner(ctx context.Context, ownerID int64) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Account
	for _, a := range m.data.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateTransaction stores a new transaction
func (m *MemoryRepository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	defer m.lockWrite()()

	if err := m.checkTransactionRefs(txn); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	txn.ID = m.data.next("transactions")
	txn.CreatedAt = time.Now().UTC()
	m.data.transactions[txn.ID] = copyTransaction(*txn)
	return nil
}

// GetTransaction retrieves a transaction by id
func (m *MemoryRepository) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.data.transactions[id]
	if !ok {
		return nil, apperrors.NotFound("transaction %d not found", id)
	}
	t = copyTransaction(t)
	return &t, nil
}

// UpdateTransaction replaces the mutable fields of a transaction
func (m *MemoryRepository) UpdateTransaction(ctx context.Context, txn *models.Transaction) error {
	defer m.lockWrite()()

	stored, ok := m.data.transactions[txn.ID]
	if !ok {
		return apperrors.NotFound("transaction %d not found", txn.ID)
	}
	if err := m.checkTransactionRefs(txn); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	updated := copyTransaction(*txn)
	updated.CreatedAt = stored.CreatedAt
	m.data.transactions[txn.ID] = updated
	return nil
}

// DeleteTransaction removes a transaction
func (m *MemoryRepository) DeleteTransaction(ctx context.Context, id int64) error {
	defer m.lockWrite()()

	if _, ok := m.data.transactions[id]; !ok {
		return apperrors.NotFound("transaction %d not found", id)
	}
	delete(m.data.transactions, id)
	return nil
}

// ListTransactions returns one page of transactions matching filter, newest first
func (m *MemoryRepository) ListTransactions(ctx context.Context, filter models.TransactionFilter, page models.PageRequest) ([]models.Transaction, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []models.Transaction
	for _, t := range m.data.transactions {
		if filter.OwnerID != 0 && m.data.accounts[t.AccountID].OwnerID != filter.OwnerID {
			continue
		}
		if !filter.Matches(t) {
			continue
		}
		matched = append(matched, copyTransaction(t))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, page), int64(len(matched)), nil
}

// CountTransactionsByPlannedPayment counts the transactions spawned by a planned payment
func (m *MemoryRepository) CountTransactionsByPlannedPayment(ctx context.Context, plannedPaymentID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, t := range m.data.transactions {
		if t.PlannedPaymentID != nil && *t.PlannedPaymentID == plannedPaymentID {
			n++
		}
	}
	return n, nil
}

// CreatePlannedPayment stores a new planned payment
func (m *MemoryRepository) CreatePlannedPayment(ctx context.Context, pp *models.PlannedPayment) error {
	defer m.lockWrite()()

	if _, ok := m.data.accounts[pp.AccountID]; !ok {
		return fmt.Errorf("failed to create planned payment: account %d does not exist", pp.AccountID)
	}
	now := time.Now().UTC()
	pp.ID = m.data.next("planned_payments")
	pp.Date = models.Day(pp.Date)
	pp.CreatedAt, pp.UpdatedAt = now, now
	m.data.plannedPayments[pp.ID] = *pp
	pp.Frequency = m.data.frequencies[pp.FrequencyID].Type
	return nil
}

// GetPlannedPayment retrieves a planned payment by id
func (m *MemoryRepository) GetPlannedPayment(ctx context.Context, id int64) (*models.PlannedPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.data.plannedPayments[id]
	if !ok {
		return nil, apperrors.NotFound("planned payment %d not found", id)
	}
	p = m.withFrequency(p)
	return &p, nil
}

// LockPlannedPayment retrieves a planned payment; exclusivity comes from Atomic
func (m *MemoryRepository) LockPlannedPayment(ctx context.Context, id int64) (*models.PlannedPayment, error) {
	return m.GetPlannedPayment(ctx, id)
}

// UpdatePlannedPayment replaces every mutable field of a planned payment
func (m *MemoryRepository) UpdatePlannedPayment(ctx context.Context, pp *models.PlannedPayment) error {
	defer m.lockWrite()()

	stored, ok := m.data.plannedPayments[pp.ID]
	if !ok {
		return apperrors.NotFound("planned payment %d not found", pp.ID)
	}
	if _, ok := m.data.accounts[pp.AccountID]; !ok {
		return fmt.Errorf("failed to update planned payment: account %d does not exist", pp.AccountID)
	}
	updated := *pp
	updated.Date = models.Day(pp.Date)
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	m.data.plannedPayments[pp.ID] = updated
	pp.UpdatedAt = updated.UpdatedAt
	return nil
}

// DeletePlannedPayment removes a planned payment that no transaction references
func (m *MemoryRepository) DeletePlannedPayment(ctx context.Context, id int64) error {
	defer m.lockWrite()()

	if _, ok := m.data.plannedPayments[id]; !ok {
		return apperrors.NotFound("planned payment %d not found", id)
	}
	for _, t := range m.data.transactions {
		if t.PlannedPaymentID != nil && *t.PlannedPaymentID == id {
			return fmt.Errorf("failed to delete planned payment: %d is referenced by transaction %d", id, t.ID)
		}
	}
	delete(m.data.plannedPayments, id)
	return nil
}

// ListPlannedPaymentsByAccount returns one page of an account's planned payments by due date
func (m *MemoryRepository) ListPlannedPaymentsByAccount(ctx context.Context, accountID int64, page models.PageRequest) ([]models.PlannedPayment, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []models.PlannedPayment
	for _, p := range m.data.plannedPayments {
		if p.AccountID == accountID {
			matched = append(matched, m.withFrequency(p))
		}
	}
	sortPlannedPayments(matched)
	return paginate(matched, page), int64(len(matched)), nil
}

// ListPlannedPaymentsDue returns every planned payment due on day
func (m *MemoryRepository) ListPlannedPaymentsDue(ctx context.Context, day time.Time) ([]models.PlannedPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []models.PlannedPayment
	for _, p := range m.data.plannedPayments {
		if models.SameDay(p.Date, day) {
			due = append(due, m.withFrequency(p))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

// AdvancePlannedPaymentDate moves the due date from one day to another if nobody changed it meanwhile
func (m *MemoryRepository) AdvancePlannedPaymentDate(ctx context.Context, id int64, from, to time.Time) (bool, error) {
	defer m.lockWrite()()

	p, ok := m.data.plannedPayments[id]
	if !ok || !models.SameDay(p.Date, from) {
		return false, nil
	}
	p.Date = models.Day(to)
	p.UpdatedAt = time.Now().UTC()
	m.data.plannedPayments[id] = p
	return true, nil
}

func (m *MemoryRepository) checkTransactionRefs(txn *models.Transaction) error {
	if _, ok := m.data.accounts[txn.AccountID]; !ok {
		return fmt.Errorf("account %d does not exist", txn.AccountID)
	}
	if txn.PlannedPaymentID != nil {
		if _, ok := m.data.plannedPayments[*txn.PlannedPaymentID]; !ok {
			return fmt.Errorf("planned payment %d does not exist", *txn.PlannedPaymentID)
		}
	}
	return nil
}

func (m *MemoryRepository) withFrequency(p models.PlannedPayment) models.PlannedPayment {
	p.Frequency = m.data.frequencies[p.FrequencyID].Type
	return p
}

func sortPlannedPayments(payments []models.PlannedPayment) {
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].Date.Equal(payments[j].Date) {
			return payments[i].Date.Before(payments[j].Date)
		}
		return payments[i].ID < payments[j].ID
	})
}

func paginate[T any](items []T, page models.PageRequest) []T {
	page = page.Normalize()
	offset := page.Offset()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func copyTransaction(t models.Transaction) models.Transaction {
	if t.PlannedPaymentID != nil {
		id := *t.PlannedPaymentID
		t.PlannedPaymentID = &id
	}
	return t
}

// Compile-time check: ensure MemoryRepository implements Store
var _ Store = (*MemoryRepository)(nil)
