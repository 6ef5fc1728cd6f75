package domain

import (
	"fmt"
	"time"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountTypeCurrent AccountType = "CURRENT"
	AccountTypeSavings AccountType = "SAVINGS"
)

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	return t == AccountTypeCurrent || t == AccountTypeSavings
}

// Account is an owner's financial account. Balance only changes through
// transaction writes; InitialBalance is fixed at creation.
type Account struct {
	ID               string
	OwnerID          string
	Name             string
	Type             AccountType
	Balance          Money
	InitialBalance   Money
	IsDefault        bool
	TransactionCount int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OwnedBy reports whether the account belongs to ownerID.
func (a *Account) OwnedBy(ownerID string) bool {
	return a != nil && a.OwnerID == ownerID
}

// AccountInput is the user-supplied part of an account.
type AccountInput struct {
	Name           string
	Type           AccountType
	InitialBalance Money
	IsDefault      bool
}

// Validate checks the input fields.
func (in AccountInput) Validate() error {
	if err := ValidateAccountName(in.Name); err != nil {
		return err
	}
	if !in.Type.IsValid() {
		return NewValidationError("type", fmt.Sprintf("unknown account type %q", in.Type))
	}
	return nil
}

// DefaultAccount returns the owner's default account from accounts, or nil.
func DefaultAccount(accounts []*Account) *Account {
	for _, a := range accounts {
		if a.IsDefault {
			return a
		}
	}
	return nil
}
