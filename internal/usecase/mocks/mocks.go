package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error)
	ListByOwnerFunc       func(ctx context.Context, ownerID string) ([]*domain.Account, error)
	GetDefaultFunc        func(ctx context.Context, ownerID string) (*domain.Account, error)
	ApplyDeltaFunc        func(ctx context.Context, tx usecase.Transaction, id string, delta domain.Money, updatedAt time.Time) (domain.Money, error)
	SetDefaultFunc        func(ctx context.Context, tx usecase.Transaction, ownerID, id string, updatedAt time.Time) error
}

func NewMockAccountRepository(accounts ...*domain.Account) *MockAccountRepository {
	m := &MockAccountRepository{accounts: make(map[string]*domain.Account)}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if acc, ok := m.accounts[id]; ok {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		if acc.OwnerID == ownerID {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) GetDefault(ctx context.Context, ownerID string) (*domain.Account, error) {
	if m.GetDefaultFunc != nil {
		return m.GetDefaultFunc(ctx, ownerID)
	}
	accounts, _ := m.ListByOwner(ctx, ownerID)
	if def := domain.DefaultAccount(accounts); def != nil {
		return def, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) ApplyDelta(ctx context.Context, tx usecase.Transaction, id string, delta domain.Money, updatedAt time.Time) (domain.Money, error) {
	if m.ApplyDeltaFunc != nil {
		return m.ApplyDeltaFunc(ctx, tx, id, delta, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.Zero, domain.ErrAccountNotFound
	}
	acc.Balance = acc.Balance.Add(delta)
	acc.UpdatedAt = updatedAt
	return acc.Balance, nil
}

func (m *MockAccountRepository) SetDefault(ctx context.Context, tx usecase.Transaction, ownerID, id string, updatedAt time.Time) error {
	if m.SetDefaultFunc != nil {
		return m.SetDefaultFunc(ctx, tx, ownerID, id, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.OwnerID == ownerID {
			acc.IsDefault = acc.ID == id
		}
	}
	return nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
// Without overrides it returns empty results.
type MockTransactionRepository struct {
	CreateFunc           func(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error
	UpdateFunc           func(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error
	DeleteFunc           func(ctx context.Context, tx usecase.Transaction, id string) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error)
	ListFunc             func(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	ListDueRecurringFunc func(ctx context.Context, now time.Time, afterID string, limit int) ([]*domain.Transaction, error)
	AdvanceScheduleFunc  func(ctx context.Context, tx usecase.Transaction, id string, next, processedAt time.Time) error
	SumExpensesFunc      func(ctx context.Context, accountID string, from, to time.Time) (domain.Money, error)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, t)
	}
	return nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, t)
	}
	return nil
}

func (m *MockTransactionRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) List(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, ownerID, filter)
	}
	return nil, nil
}

func (m *MockTransactionRepository) ListDueRecurring(ctx context.Context, now time.Time, afterID string, limit int) ([]*domain.Transaction, error) {
	if m.ListDueRecurringFunc != nil {
		return m.ListDueRecurringFunc(ctx, now, afterID, limit)
	}
	return nil, nil
}

func (m *MockTransactionRepository) AdvanceSchedule(ctx context.Context, tx usecase.Transaction, id string, next, processedAt time.Time) error {
	if m.AdvanceScheduleFunc != nil {
		return m.AdvanceScheduleFunc(ctx, tx, id, next, processedAt)
	}
	return nil
}

func (m *MockTransactionRepository) SumExpenses(ctx context.Context, accountID string, from, to time.Time) (domain.Money, error) {
	if m.SumExpensesFunc != nil {
		return m.SumExpensesFunc(ctx, accountID, from, to)
	}
	return domain.Zero, nil
}

// MockBudgetRepository is a mock implementation of BudgetRepository.
type MockBudgetRepository struct {
	UpsertFunc        func(ctx context.Context, budget *domain.Budget) error
	GetByOwnerFunc    func(ctx context.Context, ownerID string) (*domain.Budget, error)
	ListFunc          func(ctx context.Context, afterID string, limit int) ([]*domain.Budget, error)
	MarkAlertSentFunc func(ctx context.Context, id string, sentAt time.Time) error
}

func (m *MockBudgetRepository) Upsert(ctx context.Context, budget *domain.Budget) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, budget)
	}
	return nil
}

func (m *MockBudgetRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Budget, error) {
	if m.GetByOwnerFunc != nil {
		return m.GetByOwnerFunc(ctx, ownerID)
	}
	return nil, domain.ErrBudgetNotFound
}

func (m *MockBudgetRepository) List(ctx context.Context, afterID string, limit int) ([]*domain.Budget, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, afterID, limit)
	}
	return nil, nil
}

func (m *MockBudgetRepository) MarkAlertSent(ctx context.Context, id string, sentAt time.Time) error {
	if m.MarkAlertSentFunc != nil {
		return m.MarkAlertSentFunc(ctx, id, sentAt)
	}
	return nil
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	UpsertFunc  func(ctx context.Context, user *domain.User) error
	GetByIDFunc func(ctx context.Context, id string) (*domain.User, error)
	ListFunc    func(ctx context.Context, afterID string, limit int) ([]*domain.User, error)
}

func NewMockUserRepository(users ...*domain.User) *MockUserRepository {
	m := &MockUserRepository{users: make(map[string]*domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) List(ctx context.Context, afterID string, limit int) ([]*domain.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, afterID, limit)
	}
	return nil, nil
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	AccountTotalsFunc func(ctx context.Context) ([]usecase.AccountTotal, error)
}

func (m *MockLedgerRepository) AccountTotals(ctx context.Context) ([]usecase.AccountTotal, error) {
	if m.AccountTotalsFunc != nil {
		return m.AccountTotalsFunc(ctx)
	}
	return nil, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%04d", m.counter)
}

// MockRetrier calls the operation up to Attempts times while it fails.
type MockRetrier struct {
	Attempts int
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = operation(); err == nil {
			return nil
		}
	}
	return err
}

// MockViewCache is an in-memory ViewCache that records invalidations.
type MockViewCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	Invalidated [][]string

	InvalidateFunc func(ctx context.Context, keys ...string) error
}

func NewMockViewCache() *MockViewCache {
	return &MockViewCache{data: make(map[string][]byte)}
}

func (m *MockViewCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MockViewCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockViewCache) Invalidate(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	m.Invalidated = append(m.Invalidated, keys)
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx, keys...)
	}
	return nil
}

// Has reports whether key is cached.
func (m *MockViewCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

// Value returns the stored value for key.
func (m *MockIdempotencyStore) Value(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key]
}
