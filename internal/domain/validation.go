package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation constants
const (
	MaxAccountNameLength = 100
	MaxDescriptionLength = 500
	MaxCategoryLength    = 50
	MaxAmount            = "1000000000000" // 1 trillion
	MinAmount            = "0.01"
)

// ExpenseCategories are the categories the receipt classifier may pick.
var ExpenseCategories = []string{
	"housing", "transportation", "groceries", "utilities", "entertainment",
	"food", "shopping", "healthcare", "education", "personal",
	"travel", "insurance", "gifts", "bills", "other-expense",
}

// IncomeCategories are the built-in income categories.
var IncomeCategories = []string{
	"salary", "freelance", "investments", "business", "rental", "other-income",
}

var (
	categoryRegex = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return NewValidationError("name", "name cannot be empty")
	}

	if len(name) > MaxAccountNameLength {
		return NewValidationError("name", fmt.Sprintf("name exceeds %d characters", MaxAccountNameLength))
	}

	return nil
}

// ValidateAmount validates a transaction or budget amount
func ValidateAmount(amount Money) error {
	if !amount.IsPositive() {
		return NewValidationError("amount", "amount must be positive")
	}

	if amount.Cmp(MustParseMoney(MinAmount)) < 0 {
		return NewValidationError("amount", "minimum amount is "+MinAmount)
	}

	if amount.Cmp(MustParseMoney(MaxAmount)) > 0 {
		return NewValidationError("amount", "maximum amount is "+MaxAmount)
	}

	return nil
}

// ValidateCategory validates a category slug such as "groceries" or "other-expense".
func ValidateCategory(category string) error {
	if category == "" {
		return NewValidationError("category", "category is required")
	}

	if len(category) > MaxCategoryLength || !categoryRegex.MatchString(category) {
		return NewValidationError("category", fmt.Sprintf("malformed category %q", category))
	}

	return nil
}

// ValidateDescription validates an optional free-text description
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return NewValidationError("description", fmt.Sprintf("description exceeds %d characters", MaxDescriptionLength))
	}
	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailRegex.MatchString(email) {
		return NewValidationError("email", "invalid email format")
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// IsExpenseCategory reports whether category is one of ExpenseCategories.
func IsExpenseCategory(category string) bool {
	for _, c := range ExpenseCategories {
		if c == category {
			return true
		}
	}
	return false
}
