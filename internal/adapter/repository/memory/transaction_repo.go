package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create inserts a transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	r.store.transactions[t.ID] = *t
	return nil
}

// Update overwrites a transaction.
func (r *TransactionRepository) Update(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	if _, ok := r.store.transactions[t.ID]; !ok {
		return domain.ErrTransactionNotFound
	}
	r.store.transactions[t.ID] = *t
	return nil
}

// Delete removes a transaction.
func (r *TransactionRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	if _, ok := r.store.transactions[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(r.store.transactions, id)
	return nil
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var (
		out *domain.Transaction
		err error
	)
	r.store.read(func() { out, err = r.get(id) })
	return out, err
}

// GetByIDForUpdate retrieves a transaction inside a unit of work.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	return r.get(id)
}

func (r *TransactionRepository) get(id string) (*domain.Transaction, error) {
	t, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return &t, nil
}

// List returns the owner's transactions matching filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	r.store.read(func() {
		for _, t := range r.store.transactions {
			if t.OwnerID == ownerID && matches(t, filter) {
				out = append(out, &t)
			}
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID > out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})

	return page(out, filter.Limit, filter.Offset), nil
}

func matches(t domain.Transaction, f domain.TransactionFilter) bool {
	switch {
	case f.AccountID != "" && t.AccountID != f.AccountID:
		return false
	case f.Type != "" && t.Type != f.Type:
		return false
	case f.Category != "" && t.Category != f.Category:
		return false
	case f.IsRecurring != nil && t.IsRecurring != *f.IsRecurring:
		return false
	case f.From != nil && t.Date.Before(*f.From):
		return false
	case f.To != nil && t.Date.After(*f.To):
		return false
	}
	return true
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ListDueRecurring returns due recurring templates after afterID, in ID order.
func (r *TransactionRepository) ListDueRecurring(ctx context.Context, now time.Time, afterID string, limit int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	r.store.read(func() {
		for _, t := range r.store.transactions {
			if t.ID > afterID && t.IsDue(now) {
				out = append(out, &t)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, 0), nil
}

// AdvanceSchedule moves a template's next recurring date.
func (r *TransactionRepository) AdvanceSchedule(ctx context.Context, tx usecase.Transaction, id string, next, processedAt time.Time) error {
	t, ok := r.store.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	t.NextRecurringDate = &next
	t.LastProcessed = &processedAt
	t.UpdatedAt = processedAt
	r.store.transactions[id] = t
	return nil
}

// SumExpenses totals EXPENSE amounts on accountID dated in [from, to).
func (r *TransactionRepository) SumExpenses(ctx context.Context, accountID string, from, to time.Time) (domain.Money, error) {
	total := domain.Zero
	r.store.read(func() {
		for _, t := range r.store.transactions {
			if t.AccountID == accountID && t.Type == domain.TransactionTypeExpense &&
				!t.Date.Before(from) && t.Date.Before(to) {
				total = total.Add(t.Amount)
			}
		}
	})
	return total, nil
}
