package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetAlertThreshold is the percentage of the budget at which an alert fires.
const BudgetAlertThreshold = 80

// Budget is an owner's monthly spending limit, tracked against the default account.
type Budget struct {
	ID            string
	OwnerID       string
	Amount        Money
	LastAlertSent *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PercentageUsed returns expenses as a percentage of the budget amount.
func (b *Budget) PercentageUsed(expenses Money) decimal.Decimal {
	return expenses.Percent(b.Amount)
}

// AlertedIn reports whether an alert was already sent in now's calendar month.
func (b *Budget) AlertedIn(now time.Time, loc *time.Location) bool {
	return b.LastAlertSent != nil && SameMonth(*b.LastAlertSent, now, loc)
}

// OverThreshold reports whether expenses reach BudgetAlertThreshold percent
// of the budget. The comparison is exact, PercentageUsed is rounded for display.
func (b *Budget) OverThreshold(expenses Money) bool {
	if b.Amount.IsZero() {
		return false
	}
	used := expenses.d.Mul(decimal.NewFromInt(100))
	limit := b.Amount.d.Mul(decimal.NewFromInt(BudgetAlertThreshold))
	return used.GreaterThanOrEqual(limit)
}

// ShouldAlert reports whether expenses cross the threshold and no alert went
// out this calendar month.
func (b *Budget) ShouldAlert(expenses Money, now time.Time, loc *time.Location) bool {
	return b.OverThreshold(expenses) && !b.AlertedIn(now, loc)
}

// BudgetStatus is a budget together with month-to-date spend.
type BudgetStatus struct {
	Budget          *Budget
	CurrentExpenses Money
	PercentageUsed  decimal.Decimal
	Remaining       Money
}

// NewBudgetStatus derives the status figures for budget.
func NewBudgetStatus(budget *Budget, expenses Money) *BudgetStatus {
	return &BudgetStatus{
		Budget:          budget,
		CurrentExpenses: expenses,
		PercentageUsed:  budget.PercentageUsed(expenses),
		Remaining:       budget.Amount.Sub(expenses),
	}
}
