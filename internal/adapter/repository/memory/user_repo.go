package memory

import (
	"context"
	"sort"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// Upsert stores a user.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	r.store.write(func() { r.store.users[user.ID] = *user })
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var (
		u  domain.User
		ok bool
	)
	r.store.read(func() { u, ok = r.store.users[id] })
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// List returns users after afterID, in ID order.
func (r *UserRepository) List(ctx context.Context, afterID string, limit int) ([]*domain.User, error) {
	var out []*domain.User
	r.store.read(func() {
		for _, u := range r.store.users {
			if u.ID > afterID {
				out = append(out, &u)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, 0), nil
}

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// AccountTotals derives each account's expected balance from its transactions.
func (r *LedgerRepository) AccountTotals(ctx context.Context) ([]usecase.AccountTotal, error) {
	var out []usecase.AccountTotal
	r.store.read(func() {
		expected := make(map[string]domain.Money, len(r.store.accounts))
		for id, a := range r.store.accounts {
			expected[id] = a.InitialBalance
		}
		for _, t := range r.store.transactions {
			expected[t.AccountID] = expected[t.AccountID].Add(t.Delta())
		}
		for id, a := range r.store.accounts {
			out = append(out, usecase.AccountTotal{
				AccountID: id,
				OwnerID:   a.OwnerID,
				Balance:   a.Balance,
				Expected:  expected[id],
			})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}
