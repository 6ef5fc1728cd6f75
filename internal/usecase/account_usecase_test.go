package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

func (f *fixture) accountsUC() *usecase.AccountUseCase {
	return usecase.NewAccountUseCase(f.txManager, f.accounts, f.transactions, f.idGen, f.cache)
}

func TestAccountUseCase_FirstAccountBecomesDefault(t *testing.T) {
	f := newFixture(t)
	uc := f.accountsUC()
	ctx := context.Background()

	first, err := uc.CreateAccount(ctx, owner, domain.AccountInput{
		Name:           "Checking",
		Type:           domain.AccountTypeCurrent,
		InitialBalance: domain.MustParseMoney("100.00"),
	})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.Equal(t, "100.00", first.Balance.String())

	second, err := uc.CreateAccount(ctx, owner, domain.AccountInput{
		Name: "Savings",
		Type: domain.AccountTypeSavings,
	})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	assertSingleDefault(t, uc, first.ID)
	assert.Contains(t, f.cache.Invalidated, []string{usecase.DashboardKey(owner)})
}

func TestAccountUseCase_SetDefaultKeepsOneDefault(t *testing.T) {
	f := newFixture(t)
	uc := f.accountsUC()
	ctx := context.Background()

	a, err := uc.CreateAccount(ctx, owner, domain.AccountInput{Name: "A", Type: domain.AccountTypeCurrent})
	require.NoError(t, err)
	b, err := uc.CreateAccount(ctx, owner, domain.AccountInput{Name: "B", Type: domain.AccountTypeCurrent})
	require.NoError(t, err)

	_, err = uc.SetDefaultAccount(ctx, owner, b.ID)
	require.NoError(t, err)
	assertSingleDefault(t, uc, b.ID)

	c, err := uc.CreateAccount(ctx, owner, domain.AccountInput{Name: "C", Type: domain.AccountTypeSavings, IsDefault: true})
	require.NoError(t, err)
	assert.True(t, c.IsDefault)
	assertSingleDefault(t, uc, c.ID)

	_, err = uc.SetDefaultAccount(ctx, "user_2", a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assertSingleDefault(t, uc, c.ID)
}

func TestAccountUseCase_CreateValidation(t *testing.T) {
	f := newFixture(t)
	uc := f.accountsUC()

	tests := []struct {
		name    string
		ownerID string
		input   domain.AccountInput
		wantErr error
	}{
		{
			name:    "missing owner",
			input:   domain.AccountInput{Name: "A", Type: domain.AccountTypeCurrent},
			wantErr: domain.ErrUnauthorized,
		},
		{
			name:    "empty name",
			ownerID: owner,
			input:   domain.AccountInput{Name: "  ", Type: domain.AccountTypeCurrent},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown type",
			ownerID: owner,
			input:   domain.AccountInput{Name: "A", Type: "BROKERAGE"},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreateAccount(context.Background(), tt.ownerID, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAccountUseCase_GetAccountWithTransactions(t *testing.T) {
	f := newFixture(t)
	uc := f.accountsUC()
	ctx := context.Background()
	f.seedAccount(t, "acc-1", owner, "500.00", true)
	f.seedAccount(t, "acc-2", owner, "0.00", false)

	for i := 1; i <= 3; i++ {
		_, err := f.engine.CreateTransaction(ctx, owner, expenseInput("acc-1", "10.00", day(2024, time.June, i)))
		require.NoError(t, err)
	}
	_, err := f.engine.CreateTransaction(ctx, owner, expenseInput("acc-2", "10.00", day(2024, time.June, 1)))
	require.NoError(t, err)

	details, err := uc.GetAccountWithTransactions(ctx, owner, "acc-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, "470.00", details.Account.Balance.String())
	require.Len(t, details.Transactions, 2)
	assert.True(t, details.Transactions[0].Date.Equal(day(2024, time.June, 3)))

	_, err = uc.GetAccountWithTransactions(ctx, "user_2", "acc-1", 10, 0)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	accounts, err := uc.ListAccounts(ctx, owner)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, a := range accounts {
		counts[a.ID] = a.TransactionCount
	}
	assert.Equal(t, map[string]int{"acc-1": 3, "acc-2": 1}, counts)
}

func assertSingleDefault(t *testing.T, uc *usecase.AccountUseCase, wantID string) {
	t.Helper()

	accounts, err := uc.ListAccounts(context.Background(), owner)
	require.NoError(t, err)

	var defaults []string
	for _, a := range accounts {
		if a.IsDefault {
			defaults = append(defaults, a.ID)
		}
	}
	assert.Equal(t, []string{wantID}, defaults)
}
