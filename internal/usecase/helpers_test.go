package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/adapter/repository/memory"
	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
	"github.com/iho/welth/internal/usecase/mocks"
)

const owner = "user_1"

type fixture struct {
	store        *memory.Store
	txManager    *memory.TxManager
	accounts     *memory.AccountRepository
	transactions *memory.TransactionRepository
	budgets      *memory.BudgetRepository
	users        *memory.UserRepository
	ledger       *memory.LedgerRepository
	cache        *mocks.MockViewCache
	idGen        *mocks.MockIDGenerator
	engine       *usecase.TransactionUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	f := &fixture{
		store:        store,
		txManager:    memory.NewTxManager(store),
		accounts:     memory.NewAccountRepository(store),
		transactions: memory.NewTransactionRepository(store),
		budgets:      memory.NewBudgetRepository(store),
		users:        memory.NewUserRepository(store),
		ledger:       memory.NewLedgerRepository(store),
		cache:        mocks.NewMockViewCache(),
		idGen:        mocks.NewMockIDGenerator(),
	}
	f.engine = usecase.NewTransactionUseCase(f.txManager, f.accounts, f.transactions, f.idGen, f.cache, zerolog.Nop())

	if err := f.users.Upsert(context.Background(), &domain.User{ID: owner, Email: "owner@example.com", Name: "Owner"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return f
}

// seedAccount inserts an account directly, bypassing the use case.
func (f *fixture) seedAccount(t *testing.T, id, ownerID, balance string, isDefault bool) *domain.Account {
	t.Helper()

	ctx := context.Background()
	acc := &domain.Account{
		ID:             id,
		OwnerID:        ownerID,
		Name:           id,
		Type:           domain.AccountTypeCurrent,
		Balance:        domain.MustParseMoney(balance),
		InitialBalance: domain.MustParseMoney(balance),
		IsDefault:      isDefault,
		CreatedAt:      time.Now().UTC(),
	}

	tx, err := f.txManager.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := f.accounts.Create(ctx, tx, acc); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	return acc
}

func (f *fixture) balance(t *testing.T, accountID string) string {
	t.Helper()

	acc, err := f.accounts.GetByID(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account %s: %v", accountID, err)
	}
	return acc.Balance.String()
}

// assertLedgerConsistent checks balance == initial + sum of signed amounts for every account.
func (f *fixture) assertLedgerConsistent(t *testing.T) {
	t.Helper()

	report, err := usecase.NewReconciliationUseCase(f.ledger).GenerateReport(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	for _, d := range report.Discrepancies {
		t.Errorf("account %s: recorded %s, calculated %s", d.AccountID, d.RecordedBalance, d.CalculatedBalance)
	}
}

func expenseInput(accountID, amount string, date time.Time) domain.TransactionInput {
	return domain.TransactionInput{
		AccountID:   accountID,
		Type:        domain.TransactionTypeExpense,
		Amount:      domain.MustParseMoney(amount),
		Date:        date,
		Description: "test expense",
		Category:    "groceries",
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// failingTransactionRepo wraps a repository and fails selected calls.
type failingTransactionRepo struct {
	usecase.TransactionRepository
	failCreate func(t *domain.Transaction) error
	failUpdate error
}

func (r *failingTransactionRepo) Create(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	if r.failCreate != nil {
		if err := r.failCreate(t); err != nil {
			return err
		}
	}
	return r.TransactionRepository.Create(ctx, tx, t)
}

func (r *failingTransactionRepo) Update(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	if r.failUpdate != nil {
		return r.failUpdate
	}
	return r.TransactionRepository.Update(ctx, tx, t)
}
