package domain

import (
	"fmt"
	"time"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TransactionTypeExpense TransactionType = "EXPENSE"
	TransactionTypeIncome  TransactionType = "INCOME"
)

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeExpense || t == TransactionTypeIncome
}

// Transaction is a single income or expense against an account. Amount is
// always a positive magnitude; the sign comes from Type.
type Transaction struct {
	ID                string
	OwnerID           string
	AccountID         string
	Type              TransactionType
	Amount            Money
	Date              time.Time
	Description       string
	Category          string
	ReceiptURL        string
	IsRecurring       bool
	RecurringInterval RecurringInterval
	NextRecurringDate *time.Time
	LastProcessed     *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SignedAmount returns +amount for income and -amount for expenses.
func SignedAmount(typ TransactionType, amount Money) Money {
	if typ == TransactionTypeExpense {
		return amount.Neg()
	}
	return amount
}

// Delta is the transaction's contribution to its account balance.
func (t *Transaction) Delta() Money {
	return SignedAmount(t.Type, t.Amount)
}

// ScheduleNext sets NextRecurringDate from Date and RecurringInterval, or
// clears recurrence fields for one-off transactions.
func (t *Transaction) ScheduleNext() error {
	if !t.IsRecurring {
		t.RecurringInterval = ""
		t.NextRecurringDate = nil
		return nil
	}

	next, err := NextOccurrence(t.Date, t.RecurringInterval)
	if err != nil {
		return err
	}
	t.NextRecurringDate = &next
	return nil
}

// IsDue reports whether a recurring template has an occurrence at or before now.
func (t *Transaction) IsDue(now time.Time) bool {
	return t.IsRecurring && t.NextRecurringDate != nil && !t.NextRecurringDate.After(now)
}

// Occurrence builds the one-off transaction materialized from a recurring
// template for its current due date.
func (t *Transaction) Occurrence() *Transaction {
	due := t.Date
	if t.NextRecurringDate != nil {
		due = *t.NextRecurringDate
	}

	return &Transaction{
		OwnerID:     t.OwnerID,
		AccountID:   t.AccountID,
		Type:        t.Type,
		Amount:      t.Amount,
		Date:        due,
		Description: t.Description + " (Recurring)",
		Category:    t.Category,
	}
}

// TransactionInput is the user-supplied part of a transaction.
type TransactionInput struct {
	AccountID         string
	Type              TransactionType
	Amount            Money
	Date              time.Time
	Description       string
	Category          string
	ReceiptURL        string
	IsRecurring       bool
	RecurringInterval RecurringInterval
}

// Validate checks the input fields.
func (in TransactionInput) Validate() error {
	if in.AccountID == "" {
		return NewValidationError("accountId", "account is required")
	}
	if !in.Type.IsValid() {
		return NewValidationError("type", fmt.Sprintf("unknown transaction type %q", in.Type))
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return err
	}
	if in.Date.IsZero() {
		return NewValidationError("date", "date is required")
	}
	if err := ValidateCategory(in.Category); err != nil {
		return err
	}
	if err := ValidateDescription(in.Description); err != nil {
		return err
	}
	if in.IsRecurring && !in.RecurringInterval.IsValid() {
		return NewValidationError("recurringInterval", "recurring transactions need a DAILY, WEEKLY, MONTHLY or YEARLY interval")
	}
	return nil
}

// Apply copies the input onto t, leaving identity and timestamps alone.
func (in TransactionInput) Apply(t *Transaction) {
	t.AccountID = in.AccountID
	t.Type = in.Type
	t.Amount = in.Amount
	t.Date = in.Date
	t.Description = in.Description
	t.Category = in.Category
	t.ReceiptURL = in.ReceiptURL
	t.IsRecurring = in.IsRecurring
	t.RecurringInterval = in.RecurringInterval
}

// TransactionFilter narrows a transaction listing. Empty fields match everything.
type TransactionFilter struct {
	AccountID   string
	Type        TransactionType
	Category    string
	IsRecurring *bool
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}
