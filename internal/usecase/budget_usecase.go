package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/welth/internal/domain"
)

// BudgetUseCase manages the owner's monthly budget.
type BudgetUseCase struct {
	budgetRepo      BudgetRepository
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	idGen           IDGenerator
	invalidator     ViewInvalidator
	location        *time.Location
	now             func() time.Time
}

// NewBudgetUseCase creates a new BudgetUseCase. Months are computed in loc.
func NewBudgetUseCase(
	budgetRepo BudgetRepository,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	idGen IDGenerator,
	invalidator ViewInvalidator,
	loc *time.Location,
) *BudgetUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &BudgetUseCase{
		budgetRepo:      budgetRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		idGen:           idGen,
		invalidator:     invalidator,
		location:        loc,
		now:             time.Now,
	}
}

// UpsertBudget sets the owner's monthly budget amount. LastAlertSent is kept.
func (uc *BudgetUseCase) UpsertBudget(ctx context.Context, ownerID string, amount domain.Money) (*domain.Budget, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	budget, err := uc.budgetRepo.GetByOwner(ctx, ownerID)
	switch {
	case errors.Is(err, domain.ErrBudgetNotFound):
		budget = &domain.Budget{ID: uc.idGen.Generate(), OwnerID: ownerID, CreatedAt: now}
	case err != nil:
		return nil, err
	}

	budget.Amount = amount
	budget.UpdatedAt = now

	if err := uc.budgetRepo.Upsert(ctx, budget); err != nil {
		return nil, err
	}

	if uc.invalidator != nil {
		_ = uc.invalidator.Invalidate(ctx, DashboardKey(ownerID))
	}

	return budget, nil
}

// GetCurrentBudget returns the owner's budget with month-to-date expenses on
// accountID, or on the default account when accountID is empty. It returns
// nil without error when the owner has no budget.
func (uc *BudgetUseCase) GetCurrentBudget(ctx context.Context, ownerID, accountID string) (*domain.BudgetStatus, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}

	budget, err := uc.budgetRepo.GetByOwner(ctx, ownerID)
	if errors.Is(err, domain.ErrBudgetNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var account *domain.Account
	if accountID == "" {
		account, err = uc.accountRepo.GetDefault(ctx, ownerID)
	} else {
		account, err = uc.accountRepo.GetByID(ctx, accountID)
		if err == nil && !account.OwnedBy(ownerID) {
			err = domain.ErrAccountNotFound
		}
	}
	if err != nil {
		return nil, err
	}

	expenses, err := MonthToDateExpenses(ctx, uc.transactionRepo, account.ID, uc.now(), uc.location)
	if err != nil {
		return nil, err
	}

	return domain.NewBudgetStatus(budget, expenses), nil
}

// MonthToDateExpenses sums EXPENSE transactions on accountID from the start
// of now's month in loc up to the start of the next month.
func MonthToDateExpenses(ctx context.Context, repo TransactionRepository, accountID string, now time.Time, loc *time.Location) (domain.Money, error) {
	start := domain.StartOfMonth(now.In(loc))
	end := start.AddDate(0, 1, 0)
	return repo.SumExpenses(ctx, accountID, start, end)
}
