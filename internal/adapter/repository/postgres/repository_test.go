package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

var accountCols = []string{"id", "owner_id", "name", "type", "balance", "initial_balance", "is_default", "count", "created_at", "updated_at"}

func beginMockTx(t *testing.T, mock pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()
	mock.ExpectBegin()
	tx, err := newTxManagerWithPool(mock).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx
}

func TestAccountRepositoryApplyDelta(t *testing.T) {
	mock := newMockPool(t)
	repo := &AccountRepository{db: mock}
	tx := beginMockTx(t, mock)

	mock.ExpectQuery(`UPDATE accounts\s+SET balance = balance \+ \$2`).
		WithArgs("acc-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow("70.00"))

	balance, err := repo.ApplyDelta(context.Background(), tx, "acc-1", domain.MustParseMoney("-30.00"), time.Now())
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if balance.String() != "70.00" {
		t.Fatalf("expected balance 70.00, got %s", balance)
	}

	assertExpectations(t, mock)
}

func TestAccountRepositoryApplyDeltaMissingAccount(t *testing.T) {
	mock := newMockPool(t)
	repo := &AccountRepository{db: mock}
	tx := beginMockTx(t, mock)

	mock.ExpectQuery(`UPDATE accounts`).
		WithArgs("ghost", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.ApplyDelta(context.Background(), tx, "ghost", domain.MustParseMoney("1.00"), time.Now())
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountRepositoryGetByID(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		rows    *pgxmock.Rows
		err     error
		wantErr error
	}{
		{
			name: "found",
			rows: pgxmock.NewRows(accountCols).
				AddRow("acc-1", "user_1", "Checking", "CURRENT", "120.50", "100.00", true, 3, created, created),
		},
		{
			name:    "not found",
			err:     pgx.ErrNoRows,
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "driver failure",
			err:     errors.New("connection reset"),
			wantErr: domain.ErrStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := &AccountRepository{db: mock}

			exp := mock.ExpectQuery(`FROM accounts a WHERE a.id = \$1`).WithArgs("acc-1")
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnRows(tt.rows)
			}

			account, err := repo.GetByID(context.Background(), "acc-1")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if account.Balance.String() != "120.50" || account.InitialBalance.String() != "100.00" {
				t.Fatalf("unexpected balances: %s / %s", account.Balance, account.InitialBalance)
			}
			if !account.IsDefault || account.TransactionCount != 3 || account.Type != domain.AccountTypeCurrent {
				t.Fatalf("unexpected account: %+v", account)
			}
		})
	}
}

func TestAccountRepositorySetDefault(t *testing.T) {
	mock := newMockPool(t)
	repo := &AccountRepository{db: mock}
	tx := beginMockTx(t, mock)

	mock.ExpectExec(`SET is_default = FALSE`).
		WithArgs("user_1", "acc-2", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`SET is_default = TRUE`).
		WithArgs("user_1", "acc-2", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetDefault(context.Background(), tx, "user_1", "acc-2", time.Now())
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	assertExpectations(t, mock)
}

func TestTransactionRepositoryListFilters(t *testing.T) {
	mock := newMockPool(t)
	repo := &TransactionRepository{db: mock}

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	recurring := false
	date := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE owner_id = \$1 AND account_id = \$2 AND type = \$3 AND is_recurring = \$4 AND date >= \$5 ORDER BY date DESC, id DESC LIMIT \$6 OFFSET \$7`).
		WithArgs("user_1", "acc-1", "EXPENSE", false, pgxmock.AnyArg(), 10, 20).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "owner_id", "account_id", "type", "amount", "date", "description", "category", "receipt_url",
			"is_recurring", "recurring_interval", "next_recurring_date", "last_processed", "created_at", "updated_at",
		}).AddRow("tx-1", "user_1", "acc-1", "EXPENSE", "30.00", date, "Groceries", "groceries", "",
			false, "", nil, nil, date, date))

	txs, err := repo.List(context.Background(), "user_1", domain.TransactionFilter{
		AccountID:   "acc-1",
		Type:        domain.TransactionTypeExpense,
		IsRecurring: &recurring,
		From:        &from,
		Limit:       10,
		Offset:      20,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if txs[0].Amount.String() != "30.00" || txs[0].NextRecurringDate != nil || txs[0].RecurringInterval != "" {
		t.Fatalf("unexpected transaction: %+v", txs[0])
	}

	assertExpectations(t, mock)
}

func TestTransactionRepositorySumExpenses(t *testing.T) {
	mock := newMockPool(t)
	repo := &TransactionRepository{db: mock}

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\)`).
		WithArgs("acc-1", timeToPgTimestamptz(from), timeToPgTimestamptz(to)).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow("850.00"))

	total, err := repo.SumExpenses(context.Background(), "acc-1", from, to)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total.String() != "850.00" {
		t.Fatalf("expected 850.00, got %s", total)
	}
}

func TestTransactionRepositoryDeleteMissing(t *testing.T) {
	mock := newMockPool(t)
	repo := &TransactionRepository{db: mock}
	tx := beginMockTx(t, mock)

	mock.ExpectExec(`DELETE FROM transactions`).
		WithArgs("tx-404").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), tx, "tx-404"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestTransactionRepositoryCreateKeepsPgError(t *testing.T) {
	mock := newMockPool(t)
	repo := &TransactionRepository{db: mock}
	tx := beginMockTx(t, mock)

	deadlock := &pgconn.PgError{Code: pgErrDeadlock}
	mock.ExpectExec(`INSERT INTO transactions`).WillReturnError(deadlock)

	err := repo.Create(context.Background(), tx, &domain.Transaction{ID: "tx-1", Amount: domain.MustParseMoney("1.00")})
	if !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if !isRetryableError(err) {
		t.Fatalf("expected wrapped deadlock to stay retryable")
	}
}

func TestBudgetRepositoryMarkAlertSent(t *testing.T) {
	mock := newMockPool(t)
	repo := &BudgetRepository{db: mock}
	sentAt := time.Date(2024, 5, 20, 6, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE budgets SET last_alert_sent = \$2`).
		WithArgs("budget-1", timeToPgTimestamptz(sentAt)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.MarkAlertSent(context.Background(), "budget-1", sentAt); err != nil {
		t.Fatalf("mark alert sent: %v", err)
	}

	assertExpectations(t, mock)
}

func TestBudgetRepositoryGetByOwner(t *testing.T) {
	mock := newMockPool(t)
	repo := &BudgetRepository{db: mock}
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM budgets WHERE owner_id = \$1`).
		WithArgs("user_1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "amount", "last_alert_sent", "created_at", "updated_at"}).
			AddRow("budget-1", "user_1", "1000.00", nil, now, now))

	budget, err := repo.GetByOwner(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if budget.Amount.String() != "1000.00" || budget.LastAlertSent != nil {
		t.Fatalf("unexpected budget: %+v", budget)
	}
}

func TestLedgerRepositoryAccountTotals(t *testing.T) {
	mock := newMockPool(t)
	repo := &LedgerRepository{db: mock}

	mock.ExpectQuery(`LEFT JOIN transactions t ON t.account_id = a.id`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "balance", "expected"}).
			AddRow("acc-1", "user_1", "70.00", "70.00").
			AddRow("acc-2", "user_1", "15.00", "10.00"))

	totals, err := repo.AccountTotals(context.Background())
	if err != nil {
		t.Fatalf("account totals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 totals, got %d", len(totals))
	}
	if totals[1].Balance.Equal(totals[1].Expected) {
		t.Fatalf("expected a mismatch on acc-2")
	}
}

func TestUserRepositoryGetByIDNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := &UserRepository{db: mock}

	mock.ExpectQuery(`FROM users`).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
