package usecase

import (
	"context"
	"time"

	"github.com/iho/welth/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	idGen           IDGenerator
	invalidator     ViewInvalidator
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	idGen IDGenerator,
	invalidator ViewInvalidator,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		idGen:           idGen,
		invalidator:     invalidator,
	}
}

// CreateAccount opens an account. An owner's first account always becomes
// the default; making another account default clears the previous one in the
// same unit of work.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, ownerID string, input domain.AccountInput) (*domain.Account, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	existing, err := uc.accountRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:             uc.idGen.Generate(),
		OwnerID:        ownerID,
		Name:           input.Name,
		Type:           input.Type,
		Balance:        input.InitialBalance,
		InitialBalance: input.InitialBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	makeDefault := input.IsDefault || len(existing) == 0

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.StoreError("begin", err)
	}
	defer tx.Rollback(txCtx)

	if err := uc.accountRepo.Create(txCtx, tx, account); err != nil {
		return nil, err
	}

	if makeDefault {
		if err := uc.accountRepo.SetDefault(txCtx, tx, ownerID, account.ID, now); err != nil {
			return nil, err
		}
		account.IsDefault = true
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.StoreError("commit", err)
	}

	uc.invalidateDashboard(ctx, ownerID)

	return account, nil
}

// GetAccount retrieves an account owned by ownerID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, ownerID, id string) (*domain.Account, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}

	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !account.OwnedBy(ownerID) {
		return nil, domain.ErrAccountNotFound
	}

	return account, nil
}

// AccountDetails is an account with its transactions, newest first.
type AccountDetails struct {
	Account      *domain.Account
	Transactions []*domain.Transaction
}

// GetAccountWithTransactions returns the account page data.
func (uc *AccountUseCase) GetAccountWithTransactions(ctx context.Context, ownerID, id string, limit, offset int) (*AccountDetails, error) {
	account, err := uc.GetAccount(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	limit, offset = domain.ValidatePagination(limit, offset)
	txs, err := uc.transactionRepo.List(ctx, ownerID, domain.TransactionFilter{
		AccountID: id,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}

	return &AccountDetails{Account: account, Transactions: txs}, nil
}

// ListAccounts lists the owner's accounts with their transaction counts.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	return uc.accountRepo.ListByOwner(ctx, ownerID)
}

// SetDefaultAccount makes id the owner's only default account.
func (uc *AccountUseCase) SetDefaultAccount(ctx context.Context, ownerID, id string) (*domain.Account, error) {
	account, err := uc.GetAccount(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.StoreError("begin", err)
	}
	defer tx.Rollback(txCtx)

	now := time.Now().UTC()
	if err := uc.accountRepo.SetDefault(txCtx, tx, ownerID, id, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.StoreError("commit", err)
	}

	account.IsDefault = true
	account.UpdatedAt = now
	uc.invalidateDashboard(ctx, ownerID)

	return account, nil
}

func (uc *AccountUseCase) invalidateDashboard(ctx context.Context, ownerID string) {
	if uc.invalidator != nil {
		_ = uc.invalidator.Invalidate(ctx, DashboardKey(ownerID))
	}
}
