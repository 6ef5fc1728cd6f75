package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Type             string       `json:"type"`
	Balance          domain.Money `json:"balance"`
	InitialBalance   domain.Money `json:"initial_balance"`
	IsDefault        bool         `json:"is_default"`
	TransactionCount int          `json:"transaction_count"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		Name:             a.Name,
		Type:             string(a.Type),
		Balance:          a.Balance,
		InitialBalance:   a.InitialBalance,
		IsDefault:        a.IsDefault,
		TransactionCount: a.TransactionCount,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents the account list.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int                `json:"total"`
}

// AccountDetailsResponse is an account with its transactions.
type AccountDetailsResponse struct {
	*AccountResponse
	Transactions []*TransactionResponse `json:"transactions"`
}

// AccountDetailsFromUseCase converts account page data to response.
func AccountDetailsFromUseCase(d *usecase.AccountDetails) *AccountDetailsResponse {
	return &AccountDetailsResponse{
		AccountResponse: AccountFromDomain(d.Account),
		Transactions:    TransactionsFromDomain(d.Transactions),
	}
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID                string       `json:"id"`
	AccountID         string       `json:"account_id"`
	Type              string       `json:"type"`
	Amount            domain.Money `json:"amount"`
	Date              time.Time    `json:"date"`
	Description       string       `json:"description,omitempty"`
	Category          string       `json:"category"`
	ReceiptURL        string       `json:"receipt_url,omitempty"`
	IsRecurring       bool         `json:"is_recurring"`
	RecurringInterval string       `json:"recurring_interval,omitempty"`
	NextRecurringDate *time.Time   `json:"next_recurring_date,omitempty"`
	LastProcessed     *time.Time   `json:"last_processed,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                t.ID,
		AccountID:         t.AccountID,
		Type:              string(t.Type),
		Amount:            t.Amount,
		Date:              t.Date,
		Description:       t.Description,
		Category:          t.Category,
		ReceiptURL:        t.ReceiptURL,
		IsRecurring:       t.IsRecurring,
		RecurringInterval: string(t.RecurringInterval),
		NextRecurringDate: t.NextRecurringDate,
		LastProcessed:     t.LastProcessed,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txs []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ListTransactionsResponse represents a page of transactions.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Limit        int                    `json:"limit"`
	Offset       int                    `json:"offset"`
}

// BudgetResponse represents the budget with month-to-date spend.
type BudgetResponse struct {
	ID              string          `json:"id"`
	Amount          domain.Money    `json:"amount"`
	CurrentExpenses domain.Money    `json:"current_expenses"`
	PercentageUsed  decimal.Decimal `json:"percentage_used"`
	Remaining       domain.Money    `json:"remaining"`
	LastAlertSent   *time.Time      `json:"last_alert_sent,omitempty"`
}

// BudgetFromStatus converts a budget status to response. A nil status yields nil.
func BudgetFromStatus(s *domain.BudgetStatus) *BudgetResponse {
	if s == nil {
		return nil
	}
	return &BudgetResponse{
		ID:              s.Budget.ID,
		Amount:          s.Budget.Amount,
		CurrentExpenses: s.CurrentExpenses,
		PercentageUsed:  s.PercentageUsed,
		Remaining:       s.Remaining,
		LastAlertSent:   s.Budget.LastAlertSent,
	}
}

// BudgetFromDomain converts a budget without spend figures.
func BudgetFromDomain(b *domain.Budget) *BudgetResponse {
	return BudgetFromStatus(domain.NewBudgetStatus(b, domain.Zero))
}

// DashboardResponse represents the dashboard.
type DashboardResponse struct {
	Accounts           []*AccountResponse     `json:"accounts"`
	DefaultAccountID   string                 `json:"default_account_id,omitempty"`
	Budget             *BudgetResponse        `json:"budget,omitempty"`
	RecentTransactions []*TransactionResponse `json:"recent_transactions"`
	GeneratedAt        time.Time              `json:"generated_at"`
}

// DashboardFromUseCase converts the dashboard to response.
func DashboardFromUseCase(d *usecase.Dashboard) *DashboardResponse {
	return &DashboardResponse{
		Accounts:           AccountsFromDomain(d.Accounts),
		DefaultAccountID:   d.DefaultAccountID,
		Budget:             BudgetFromStatus(d.Budget),
		RecentTransactions: TransactionsFromDomain(d.RecentTransactions),
		GeneratedAt:        d.GeneratedAt,
	}
}

// ReceiptDraftResponse is a transaction suggested from a receipt.
type ReceiptDraftResponse struct {
	Amount       domain.Money `json:"amount"`
	Date         time.Time    `json:"date"`
	Description  string       `json:"description"`
	MerchantName string       `json:"merchant_name"`
	Category     string       `json:"category"`
}

// ScanReceiptResponse wraps the draft; Draft is null when the image was not a receipt.
type ScanReceiptResponse struct {
	Draft *ReceiptDraftResponse `json:"draft"`
}

// ScanFromDomain converts a receipt draft to response.
func ScanFromDomain(d *domain.ReceiptDraft) *ScanReceiptResponse {
	if d == nil {
		return &ScanReceiptResponse{}
	}
	return &ScanReceiptResponse{Draft: &ReceiptDraftResponse{
		Amount:       d.Amount,
		Date:         d.Date,
		Description:  d.Description,
		MerchantName: d.MerchantName,
		Category:     d.Category,
	}}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
