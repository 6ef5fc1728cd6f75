package dto

import (
	"strings"
	"time"

	"github.com/iho/welth/internal/domain"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	InitialBalance string `json:"initial_balance"`
	IsDefault      bool   `json:"is_default"`
}

// ToDomainInput converts to domain input.
func (r *CreateAccountRequest) ToDomainInput() (domain.AccountInput, error) {
	balance := domain.Zero
	if strings.TrimSpace(r.InitialBalance) != "" {
		b, err := domain.ParseMoney(r.InitialBalance)
		if err != nil {
			return domain.AccountInput{}, domain.NewValidationError("initial_balance", err.Error())
		}
		balance = b
	}

	return domain.AccountInput{
		Name:           r.Name,
		Type:           domain.AccountType(strings.ToUpper(r.Type)),
		InitialBalance: balance,
		IsDefault:      r.IsDefault,
	}, nil
}

// TransactionRequest represents a request to create or update a transaction.
type TransactionRequest struct {
	AccountID         string `json:"account_id"`
	Type              string `json:"type"`
	Amount            string `json:"amount"`
	Date              string `json:"date"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	ReceiptURL        string `json:"receipt_url,omitempty"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurringInterval string `json:"recurring_interval,omitempty"`
}

// ToDomainInput converts to domain input. Amount and date are parsed here;
// the remaining fields are validated by the use case.
func (r *TransactionRequest) ToDomainInput() (domain.TransactionInput, error) {
	amount, err := domain.ParseMoney(r.Amount)
	if err != nil {
		return domain.TransactionInput{}, err
	}

	date, err := ParseDate(r.Date)
	if err != nil {
		return domain.TransactionInput{}, domain.NewValidationError("date", "date must be YYYY-MM-DD or RFC 3339")
	}

	return domain.TransactionInput{
		AccountID:         r.AccountID,
		Type:              domain.TransactionType(strings.ToUpper(r.Type)),
		Amount:            amount,
		Date:              date,
		Description:       r.Description,
		Category:          r.Category,
		ReceiptURL:        r.ReceiptURL,
		IsRecurring:       r.IsRecurring,
		RecurringInterval: domain.RecurringInterval(strings.ToUpper(r.RecurringInterval)),
	}, nil
}

// DeleteTransactionsRequest represents a bulk delete.
type DeleteTransactionsRequest struct {
	IDs []string `json:"ids"`
}

// BudgetRequest represents a request to set the monthly budget.
type BudgetRequest struct {
	Amount string `json:"amount"`
}

// ToMoney parses the amount.
func (r *BudgetRequest) ToMoney() (domain.Money, error) {
	return domain.ParseMoney(r.Amount)
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
