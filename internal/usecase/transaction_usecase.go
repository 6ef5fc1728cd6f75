package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/domain"
)

// TransactionUseCase is the only writer of account balances. Every write
// inserts or changes transaction rows and applies their balance deltas in one
// unit of work.
type TransactionUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	idGen           IDGenerator
	invalidator     ViewInvalidator
	logger          zerolog.Logger
	now             func() time.Time
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	idGen IDGenerator,
	invalidator ViewInvalidator,
	logger zerolog.Logger,
) *TransactionUseCase {
	return &TransactionUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		idGen:           idGen,
		invalidator:     invalidator,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// CreateTransaction records a transaction and applies its delta to the account.
func (uc *TransactionUseCase) CreateTransaction(ctx context.Context, ownerID string, input domain.TransactionInput) (*domain.Transaction, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := uc.now()
	t := &domain.Transaction{
		ID:        uc.idGen.Generate(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	input.Apply(t)
	if err := t.ScheduleNext(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.StoreError("begin", err)
	}
	defer tx.Rollback(txCtx)

	if err := uc.create(txCtx, tx, t); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.StoreError("commit", err)
	}

	uc.invalidate(ctx, ownerID, t.AccountID)

	return t, nil
}

// create inserts t and applies its delta inside tx. t must be fully populated.
func (uc *TransactionUseCase) create(ctx context.Context, tx Transaction, t *domain.Transaction) error {
	accounts, err := uc.lockAccounts(ctx, tx, t.OwnerID, t.AccountID)
	if err != nil {
		return err
	}

	if err := uc.transactionRepo.Create(ctx, tx, t); err != nil {
		return err
	}

	_, err = uc.accountRepo.ApplyDelta(ctx, tx, accounts[0].ID, t.Delta(), t.UpdatedAt)
	return err
}

// UpdateTransaction overwrites a transaction and moves the balance by the
// difference between the new and old deltas. When the account changes, the
// old delta is reversed on the old account and the new delta applied to the
// new one.
func (uc *TransactionUseCase) UpdateTransaction(ctx context.Context, ownerID, id string, input domain.TransactionInput) (*domain.Transaction, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.StoreError("begin", err)
	}
	defer tx.Rollback(txCtx)

	// 1. Lock the original row
	original, err := uc.transactionRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}
	if original.OwnerID != ownerID {
		return nil, domain.ErrTransactionNotFound
	}

	// 2. Lock both accounts in a stable order
	if _, err := uc.lockAccounts(txCtx, tx, ownerID, original.AccountID, input.AccountID); err != nil {
		return nil, err
	}

	// 3. Build the new version
	updated := *original
	input.Apply(&updated)
	updated.UpdatedAt = uc.now()
	if err := updated.ScheduleNext(); err != nil {
		return nil, err
	}

	// 4. Move balances
	oldDelta := original.Delta()
	newDelta := updated.Delta()

	if original.AccountID == updated.AccountID {
		if net := newDelta.Sub(oldDelta); !net.IsZero() {
			if _, err := uc.accountRepo.ApplyDelta(txCtx, tx, updated.AccountID, net, updated.UpdatedAt); err != nil {
				return nil, err
			}
		}
	} else {
		if _, err := uc.accountRepo.ApplyDelta(txCtx, tx, original.AccountID, oldDelta.Neg(), updated.UpdatedAt); err != nil {
			return nil, err
		}
		if _, err := uc.accountRepo.ApplyDelta(txCtx, tx, updated.AccountID, newDelta, updated.UpdatedAt); err != nil {
			return nil, err
		}
	}

	if err := uc.transactionRepo.Update(txCtx, tx, &updated); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.StoreError("commit", err)
	}

	uc.invalidate(ctx, ownerID, original.AccountID, updated.AccountID)

	return &updated, nil
}

// DeleteTransactions removes transactions and reverses their deltas. Either
// all ids are deleted or none are.
func (uc *TransactionUseCase) DeleteTransactions(ctx context.Context, ownerID string, ids []string) error {
	if ownerID == "" {
		return domain.ErrMissingOwner
	}
	if len(ids) == 0 {
		return domain.NewValidationError("ids", "at least one transaction id is required")
	}

	sorted := uniqueSorted(ids)

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return domain.StoreError("begin", err)
	}
	defer tx.Rollback(txCtx)

	deltas := make(map[string]domain.Money)
	var accountIDs []string
	for _, id := range sorted {
		t, err := uc.transactionRepo.GetByIDForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}
		if t.OwnerID != ownerID {
			return domain.ErrTransactionNotFound
		}
		if _, seen := deltas[t.AccountID]; !seen {
			accountIDs = append(accountIDs, t.AccountID)
			deltas[t.AccountID] = domain.Zero
		}
		deltas[t.AccountID] = deltas[t.AccountID].Sub(t.Delta())
	}

	if _, err := uc.lockAccounts(txCtx, tx, ownerID, accountIDs...); err != nil {
		return err
	}

	now := uc.now()
	for _, id := range sorted {
		if err := uc.transactionRepo.Delete(txCtx, tx, id); err != nil {
			return err
		}
	}
	for _, accountID := range uniqueSorted(accountIDs) {
		if _, err := uc.accountRepo.ApplyDelta(txCtx, tx, accountID, deltas[accountID], now); err != nil {
			return err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return domain.StoreError("commit", err)
	}

	uc.invalidate(ctx, ownerID, accountIDs...)

	return nil
}

// GetTransaction returns a transaction owned by ownerID.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, ownerID, id string) (*domain.Transaction, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}

	t, err := uc.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, domain.ErrTransactionNotFound
	}

	return t, nil
}

// ListTransactions returns the owner's transactions, newest first.
func (uc *TransactionUseCase) ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}

	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)

	return uc.transactionRepo.List(ctx, ownerID, filter)
}

// lockAccounts locks the given accounts in ID order and checks they all
// belong to ownerID. The result is in ID order.
func (uc *TransactionUseCase) lockAccounts(ctx context.Context, tx Transaction, ownerID string, ids ...string) ([]*domain.Account, error) {
	sorted := uniqueSorted(ids)

	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, sorted)
	if err != nil {
		return nil, err
	}
	if len(accounts) != len(sorted) {
		return nil, domain.ErrAccountNotFound
	}

	for _, a := range accounts {
		if !a.OwnedBy(ownerID) {
			return nil, domain.ErrAccountNotFound
		}
	}

	return accounts, nil
}

// invalidate drops the owner's dashboard and the affected account views.
// A failure leaves stale views until their TTL and is only logged.
func (uc *TransactionUseCase) invalidate(ctx context.Context, ownerID string, accountIDs ...string) {
	if uc.invalidator == nil {
		return
	}

	keys := []string{DashboardKey(ownerID)}
	for _, id := range uniqueSorted(accountIDs) {
		keys = append(keys, AccountKey(id))
	}

	if err := uc.invalidator.Invalidate(ctx, keys...); err != nil && !errors.Is(err, context.Canceled) {
		uc.logger.Warn().Err(err).Strs("keys", keys).Msg("view invalidation failed")
	}
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
