package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	r.store.accounts[account.ID] = *account
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var (
		out *domain.Account
		err error
	)
	r.store.read(func() { out, err = r.get(id) })
	return out, err
}

func (r *AccountRepository) get(id string) (*domain.Account, error) {
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.TransactionCount = r.store.countTransactions(id)
	return &a, nil
}

// GetByIDsForUpdate returns the existing accounts among ids, in ID order.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	var accounts []*domain.Account
	for _, id := range ids {
		if a, err := r.get(id); err == nil {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// ListByOwner lists an owner's accounts, oldest first.
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	var accounts []*domain.Account
	r.store.read(func() {
		for id, a := range r.store.accounts {
			if a.OwnerID == ownerID {
				acc, _ := r.get(id)
				accounts = append(accounts, acc)
			}
		}
	})
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

// GetDefault returns the owner's default account.
func (r *AccountRepository) GetDefault(ctx context.Context, ownerID string) (*domain.Account, error) {
	accounts, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if def := domain.DefaultAccount(accounts); def != nil {
		return def, nil
	}
	return nil, domain.ErrAccountNotFound
}

// ApplyDelta adds delta to the account balance.
func (r *AccountRepository) ApplyDelta(ctx context.Context, tx usecase.Transaction, id string, delta domain.Money, updatedAt time.Time) (domain.Money, error) {
	a, ok := r.store.accounts[id]
	if !ok {
		return domain.Zero, domain.ErrAccountNotFound
	}
	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = updatedAt
	r.store.accounts[id] = a
	return a.Balance, nil
}

// SetDefault makes id the owner's only default account.
func (r *AccountRepository) SetDefault(ctx context.Context, tx usecase.Transaction, ownerID, id string, updatedAt time.Time) error {
	target, ok := r.store.accounts[id]
	if !ok || target.OwnerID != ownerID {
		return domain.ErrAccountNotFound
	}
	for aid, a := range r.store.accounts {
		if a.OwnerID != ownerID {
			continue
		}
		isDefault := aid == id
		if a.IsDefault != isDefault {
			a.IsDefault = isDefault
			a.UpdatedAt = updatedAt
			r.store.accounts[aid] = a
		}
	}
	return nil
}
