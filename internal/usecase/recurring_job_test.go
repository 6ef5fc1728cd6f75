package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
	"github.com/iho/welth/internal/usecase/mocks"
)

func (f *fixture) recurringTemplate(t *testing.T, accountID, amount string, date time.Time, interval domain.RecurringInterval) *domain.Transaction {
	t.Helper()

	in := expenseInput(accountID, amount, date)
	in.Category = "housing"
	in.IsRecurring = true
	in.RecurringInterval = interval

	tmpl, err := f.engine.CreateTransaction(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tmpl
}

func (f *fixture) recurringJob(repo usecase.TransactionRepository, retrier usecase.Retrier) *usecase.RecurringJob {
	engine := usecase.NewTransactionUseCase(f.txManager, f.accounts, repo, f.idGen, f.cache, zerolog.Nop())
	return usecase.NewRecurringJob(engine, f.txManager, repo, f.idGen, retrier, usecase.JobOptions{BatchSize: 2, Workers: 4}, zerolog.Nop())
}

func TestRecurringJob_MaterializesDueOccurrenceOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAccount(t, "acc-1", owner, "5000.00", true)

	tmpl := f.recurringTemplate(t, "acc-1", "1200.00", day(2024, time.January, 31), domain.IntervalMonthly)
	now := day(2024, time.March, 1)
	job := f.recurringJob(f.transactions, &mocks.MockRetrier{Attempts: 3})

	report, err := job.Run(ctx, now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Processed != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	// The template was only due once (Feb 29); Mar 31 is still ahead.
	if got := f.balance(t, "acc-1"); got != "2600.00" {
		t.Fatalf("expected template + one occurrence, balance %s", got)
	}

	stored, _ := f.transactions.GetByID(ctx, tmpl.ID)
	if !stored.NextRecurringDate.Equal(day(2024, time.March, 31)) {
		t.Fatalf("expected schedule advanced to 2024-03-31, got %s", stored.NextRecurringDate)
	}
	if stored.LastProcessed == nil {
		t.Fatal("expected last processed to be set")
	}

	second, err := job.Run(ctx, now)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Processed != 0 || len(second.Results) != 0 {
		t.Fatalf("second run must not materialize again: %+v", second)
	}
	if got := f.balance(t, "acc-1"); got != "2600.00" {
		t.Fatalf("balance changed on re-run: %s", got)
	}

	occurrences, _ := f.transactions.List(ctx, owner, domain.TransactionFilter{IsRecurring: boolPtr(false)})
	if len(occurrences) != 1 || !occurrences[0].Date.Equal(day(2024, time.February, 29)) {
		t.Fatalf("expected one occurrence dated 2024-02-29, got %+v", occurrences)
	}

	f.assertLedgerConsistent(t)
}

func TestRecurringJob_CatchesUpOverdueTemplate(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc-1", owner, "0.00", true)
	f.recurringTemplate(t, "acc-1", "1.00", day(2024, time.March, 1), domain.IntervalDaily)

	report, err := f.recurringJob(f.transactions, &mocks.MockRetrier{}).Run(context.Background(), day(2024, time.March, 5))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Processed != 1 {
		t.Fatalf("expected one processed template, got %+v", report)
	}
	// Template on Mar 1 plus occurrences on Mar 2, 3, 4 and 5.
	if got := f.balance(t, "acc-1"); got != "-5.00" {
		t.Fatalf("expected -5.00, got %s", got)
	}
	f.assertLedgerConsistent(t)
}

func TestRecurringJob_IsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAccount(t, "acc-ok", owner, "100.00", true)
	f.seedAccount(t, "acc-bad", owner, "100.00", false)

	good := f.recurringTemplate(t, "acc-ok", "10.00", day(2024, time.February, 1), domain.IntervalMonthly)
	bad := f.recurringTemplate(t, "acc-bad", "10.00", day(2024, time.February, 1), domain.IntervalMonthly)

	failing := &failingTransactionRepo{
		TransactionRepository: f.transactions,
		failCreate: func(tx *domain.Transaction) error {
			if tx.AccountID == "acc-bad" {
				return errors.New("constraint violated")
			}
			return nil
		},
	}

	report, err := f.recurringJob(failing, &mocks.MockRetrier{Attempts: 3}).Run(ctx, day(2024, time.March, 2))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Processed != 1 || report.Failed != 1 {
		t.Fatalf("expected one processed and one failed, got %+v", report)
	}

	failures := report.Failures()
	if failures[0].EntityID != bad.ID || failures[0].Attempts != 3 {
		t.Fatalf("unexpected failure %+v", failures[0])
	}

	storedBad, _ := f.transactions.GetByID(ctx, bad.ID)
	if !storedBad.NextRecurringDate.Equal(day(2024, time.March, 1)) {
		t.Fatalf("failed template must stay due, next %s", storedBad.NextRecurringDate)
	}
	storedGood, _ := f.transactions.GetByID(ctx, good.ID)
	if !storedGood.NextRecurringDate.Equal(day(2024, time.April, 1)) {
		t.Fatalf("good template must advance, next %s", storedGood.NextRecurringDate)
	}

	if got := f.balance(t, "acc-bad"); got != "90.00" {
		t.Fatalf("failed occurrence must not touch balance, got %s", got)
	}
	f.assertLedgerConsistent(t)
}

func TestRecurringJob_RetriesTransientErrors(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc-1", owner, "100.00", true)
	f.recurringTemplate(t, "acc-1", "10.00", day(2024, time.February, 1), domain.IntervalMonthly)

	calls := 0
	failing := &failingTransactionRepo{
		TransactionRepository: f.transactions,
		failCreate: func(*domain.Transaction) error {
			calls++
			if calls < 3 {
				return &pgconn.PgError{Code: "40001"}
			}
			return nil
		},
	}

	report, err := f.recurringJob(failing, &mocks.MockRetrier{Attempts: 3}).Run(context.Background(), day(2024, time.March, 2))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Processed != 1 || report.Results[0].Attempts != 3 {
		t.Fatalf("expected success on third attempt, got %+v", report.Results)
	}
	if got := f.balance(t, "acc-1"); got != "80.00" {
		t.Fatalf("expected exactly one occurrence applied, got %s", got)
	}
}

func TestRecurringJob_ListFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	repo := &mocks.MockTransactionRepository{
		ListDueRecurringFunc: func(ctx context.Context, now time.Time, afterID string, limit int) ([]*domain.Transaction, error) {
			return nil, domain.StoreError("list due", errors.New("timeout"))
		},
	}

	report, err := f.recurringJob(repo, &mocks.MockRetrier{}).Run(context.Background(), day(2024, time.March, 1))
	if !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if report == nil || report.FinishedAt.IsZero() {
		t.Fatal("expected a finished report even on failure")
	}
}

func TestRecurringJob_CancelledRunLeavesTemplatesDue(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc-1", owner, "100.00", true)
	tmpl := f.recurringTemplate(t, "acc-1", "10.00", day(2024, time.February, 1), domain.IntervalMonthly)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.recurringJob(f.transactions, &mocks.MockRetrier{}).Run(ctx, day(2024, time.March, 2))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	stored, _ := f.transactions.GetByID(context.Background(), tmpl.ID)
	if !stored.IsDue(day(2024, time.March, 2)) {
		t.Fatal("template must remain due after cancelled run")
	}
}

func boolPtr(b bool) *bool { return &b }
