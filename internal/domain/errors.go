package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every error returned by the ledger wraps exactly one of these.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrRateLimited    = errors.New("rate limited")
	ErrClassification = errors.New("receipt classification failed")
	ErrStore          = errors.New("store failure")
	ErrNotification   = errors.New("notification delivery failed")
)

var (
	// Lookup errors
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrBudgetNotFound      = fmt.Errorf("budget %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)

	// Identity errors
	ErrMissingOwner = fmt.Errorf("%w: caller identity missing", ErrUnauthorized)
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrExpiredToken = fmt.Errorf("%w: token has expired", ErrUnauthorized)
)

// ValidationError describes one malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// RateLimitError is returned when a caller exceeds its quota. Blocked marks a
// hard denial as opposed to a quota that refills at Reset.
type RateLimitError struct {
	Remaining int
	Reset     time.Duration
	Blocked   bool
}

func (e *RateLimitError) Error() string {
	if e.Blocked {
		return "request blocked"
	}
	return fmt.Sprintf("too many requests, retry in %s", e.Reset.Round(time.Second))
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StoreError wraps a durable-storage failure.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// NotificationError wraps a notifier failure.
func NotificationError(recipient string, err error) error {
	return fmt.Errorf("notify %s: %w: %w", recipient, ErrNotification, err)
}

// ClassificationError wraps a malformed classifier response.
func ClassificationError(reason string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrClassification, reason)
	}
	return fmt.Errorf("%w: %s: %w", ErrClassification, reason, err)
}
