package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

func newDashboard(f *fixture) *usecase.DashboardUseCase {
	budgets := usecase.NewBudgetUseCase(f.budgets, f.accounts, f.transactions, f.idGen, f.cache, time.UTC)
	return usecase.NewDashboardUseCase(f.accounts, f.transactions, budgets, f.cache, time.Minute, zerolog.Nop())
}

func TestDashboard_ComposesAndCaches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.seedAccount(t, "acc_main", owner, "100", true)

	if _, err := f.engine.CreateTransaction(ctx, owner, expenseInput(acc.ID, "25", time.Now().UTC())); err != nil {
		t.Fatalf("create: %v", err)
	}

	uc := newDashboard(f)
	d, err := uc.Get(ctx, owner)
	if err != nil {
		t.Fatalf("get dashboard: %v", err)
	}

	if len(d.Accounts) != 1 || d.DefaultAccountID != acc.ID {
		t.Fatalf("expected the default account, got %d accounts and default %q", len(d.Accounts), d.DefaultAccountID)
	}
	if len(d.RecentTransactions) != 1 {
		t.Errorf("expected 1 recent transaction, got %d", len(d.RecentTransactions))
	}
	if d.Budget != nil {
		t.Errorf("expected no budget status without a budget")
	}
	if !f.cache.Has(usecase.DashboardKey(owner)) {
		t.Fatal("expected dashboard to be cached")
	}

	// Seeding bypasses invalidation, so the cached view is served.
	f.seedAccount(t, "acc_other", owner, "0", false)
	d, err = uc.Get(ctx, owner)
	if err != nil {
		t.Fatalf("get cached dashboard: %v", err)
	}
	if len(d.Accounts) != 1 {
		t.Errorf("expected cached dashboard with 1 account, got %d", len(d.Accounts))
	}

	// A write through the engine invalidates the view.
	if _, err := f.engine.CreateTransaction(ctx, owner, expenseInput(acc.ID, "5", time.Now().UTC())); err != nil {
		t.Fatalf("create: %v", err)
	}
	d, err = uc.Get(ctx, owner)
	if err != nil {
		t.Fatalf("get dashboard: %v", err)
	}
	if len(d.Accounts) != 2 || len(d.RecentTransactions) != 2 {
		t.Errorf("expected fresh dashboard, got %d accounts and %d transactions", len(d.Accounts), len(d.RecentTransactions))
	}
}

func TestDashboard_IncludesBudgetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.seedAccount(t, "acc_main", owner, "1000", true)

	if err := f.budgets.Upsert(ctx, &domain.Budget{ID: "budget_1", OwnerID: owner, Amount: domain.MustParseMoney("200")}); err != nil {
		t.Fatalf("seed budget: %v", err)
	}
	if _, err := f.engine.CreateTransaction(ctx, owner, expenseInput(acc.ID, "50", time.Now().UTC())); err != nil {
		t.Fatalf("create: %v", err)
	}

	d, err := newDashboard(f).Get(ctx, owner)
	if err != nil {
		t.Fatalf("get dashboard: %v", err)
	}
	if d.Budget == nil {
		t.Fatal("expected budget status")
	}
	if got := d.Budget.CurrentExpenses.String(); got != "50.00" {
		t.Errorf("expected expenses 50.00, got %s", got)
	}
	if got := d.Budget.Remaining.String(); got != "150.00" {
		t.Errorf("expected remaining 150.00, got %s", got)
	}
}

func TestDashboard_RequiresOwner(t *testing.T) {
	f := newFixture(t)

	_, err := newDashboard(f).Get(context.Background(), "")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
