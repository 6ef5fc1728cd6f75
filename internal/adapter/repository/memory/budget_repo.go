package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/welth/internal/domain"
)

// BudgetRepository implements usecase.BudgetRepository.
type BudgetRepository struct {
	store *Store
}

// NewBudgetRepository creates a new BudgetRepository.
func NewBudgetRepository(store *Store) *BudgetRepository {
	return &BudgetRepository{store: store}
}

// Upsert stores the owner's budget.
func (r *BudgetRepository) Upsert(ctx context.Context, budget *domain.Budget) error {
	r.store.write(func() {
		for id, b := range r.store.budgets {
			if b.OwnerID == budget.OwnerID && id != budget.ID {
				delete(r.store.budgets, id)
			}
		}
		r.store.budgets[budget.ID] = *budget
	})
	return nil
}

// GetByOwner returns the owner's budget.
func (r *BudgetRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Budget, error) {
	var out *domain.Budget
	r.store.read(func() {
		for _, b := range r.store.budgets {
			if b.OwnerID == ownerID {
				out = &b
				return
			}
		}
	})
	if out == nil {
		return nil, domain.ErrBudgetNotFound
	}
	return out, nil
}

// List returns budgets after afterID, in ID order.
func (r *BudgetRepository) List(ctx context.Context, afterID string, limit int) ([]*domain.Budget, error) {
	var out []*domain.Budget
	r.store.read(func() {
		for _, b := range r.store.budgets {
			if b.ID > afterID {
				out = append(out, &b)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, 0), nil
}

// MarkAlertSent records when the last alert went out.
func (r *BudgetRepository) MarkAlertSent(ctx context.Context, id string, sentAt time.Time) error {
	var err error
	r.store.write(func() {
		b, ok := r.store.budgets[id]
		if !ok {
			err = domain.ErrBudgetNotFound
			return
		}
		b.LastAlertSent = &sentAt
		b.UpdatedAt = sentAt
		r.store.budgets[id] = b
	})
	return err
}
