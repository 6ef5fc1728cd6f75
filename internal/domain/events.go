package domain

import (
	"fmt"
	"time"
)

// Notification templates
const (
	TemplateBudgetAlert   = "budget-alert"
	TemplateMonthlyReport = "monthly-report"
)

// Notification is a message handed to the notifier.
type Notification struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Template  string `json:"template"`
	Payload   any    `json:"payload"`
}

// BudgetAlertPayload carries the figures of a budget alert.
type BudgetAlertPayload struct {
	UserName        string `json:"userName"`
	AccountName     string `json:"accountName"`
	BudgetAmount    Money  `json:"budgetAmount"`
	TotalExpenses   Money  `json:"totalExpenses"`
	PercentageUsed  string `json:"percentageUsed"`
	RemainingBudget Money  `json:"remainingBudget"`
}

// NewBudgetAlert builds the alert notification for user.
func NewBudgetAlert(user *User, account *Account, status *BudgetStatus) Notification {
	return Notification{
		Recipient: user.Email,
		Subject:   fmt.Sprintf("Budget Alert for %s", account.Name),
		Template:  TemplateBudgetAlert,
		Payload: BudgetAlertPayload{
			UserName:        user.DisplayName(),
			AccountName:     account.Name,
			BudgetAmount:    status.Budget.Amount,
			TotalExpenses:   status.CurrentExpenses,
			PercentageUsed:  status.PercentageUsed.StringFixed(1),
			RemainingBudget: status.Remaining,
		},
	}
}

// MonthlyReportPayload carries a month's statistics.
type MonthlyReportPayload struct {
	UserName string       `json:"userName"`
	Month    string       `json:"month"`
	Stats    MonthlyStats `json:"stats"`
}

// NewMonthlyReport builds the monthly report notification for user.
func NewMonthlyReport(user *User, stats MonthlyStats) Notification {
	month := stats.Month.Format("January 2006")
	return Notification{
		Recipient: user.Email,
		Subject:   fmt.Sprintf("Your Monthly Financial Report - %s", month),
		Template:  TemplateMonthlyReport,
		Payload: MonthlyReportPayload{
			UserName: user.DisplayName(),
			Month:    month,
			Stats:    stats,
		},
	}
}

// MonthlyStats summarizes one calendar month of an owner's transactions.
type MonthlyStats struct {
	Month            time.Time        `json:"month"`
	TotalIncome      Money            `json:"totalIncome"`
	TotalExpenses    Money            `json:"totalExpenses"`
	ByCategory       map[string]Money `json:"byCategory"`
	TransactionCount int              `json:"transactionCount"`
}

// Net is income minus expenses.
func (s MonthlyStats) Net() Money {
	return s.TotalIncome.Sub(s.TotalExpenses)
}

// ComputeMonthlyStats aggregates txs, which must already be limited to month.
func ComputeMonthlyStats(month time.Time, txs []*Transaction) MonthlyStats {
	stats := MonthlyStats{
		Month:         StartOfMonth(month),
		TotalIncome:   Zero,
		TotalExpenses: Zero,
		ByCategory:    make(map[string]Money),
	}

	for _, t := range txs {
		stats.TransactionCount++
		if t.Type == TransactionTypeExpense {
			stats.TotalExpenses = stats.TotalExpenses.Add(t.Amount)
			stats.ByCategory[t.Category] = stats.ByCategory[t.Category].Add(t.Amount)
			continue
		}
		stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
	}

	return stats
}

// ReceiptDraft is a transaction suggested by the receipt classifier.
type ReceiptDraft struct {
	Amount       Money     `json:"amount"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
	MerchantName string    `json:"merchantName"`
	Category     string    `json:"category"`
}
