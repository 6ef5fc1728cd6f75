package usecase

import (
	"context"
	"time"

	"github.com/iho/welth/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error)
	// GetDefault returns domain.ErrAccountNotFound when the owner has no default account.
	GetDefault(ctx context.Context, ownerID string) (*domain.Account, error)
	// ApplyDelta atomically adds delta to the balance and returns the new balance.
	ApplyDelta(ctx context.Context, tx Transaction, id string, delta domain.Money, updatedAt time.Time) (domain.Money, error)
	// SetDefault marks id as the owner's only default account.
	SetDefault(ctx context.Context, tx Transaction, ownerID, id string, updatedAt time.Time) error
}

// TransactionRepository defines data access for transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, t *domain.Transaction) error
	Update(ctx context.Context, tx Transaction, t *domain.Transaction) error
	Delete(ctx context.Context, tx Transaction, id string) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error)
	List(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	// ListDueRecurring returns recurring templates due at now with ID greater than afterID, ordered by ID.
	ListDueRecurring(ctx context.Context, now time.Time, afterID string, limit int) ([]*domain.Transaction, error)
	AdvanceSchedule(ctx context.Context, tx Transaction, id string, next, processedAt time.Time) error
	// SumExpenses totals EXPENSE amounts on accountID dated in [from, to).
	SumExpenses(ctx context.Context, accountID string, from, to time.Time) (domain.Money, error)
}

// BudgetRepository defines data access for budgets.
type BudgetRepository interface {
	Upsert(ctx context.Context, budget *domain.Budget) error
	GetByOwner(ctx context.Context, ownerID string) (*domain.Budget, error)
	// List returns budgets with ID greater than afterID, ordered by ID.
	List(ctx context.Context, afterID string, limit int) ([]*domain.Budget, error)
	MarkAlertSent(ctx context.Context, id string, sentAt time.Time) error
}

// UserRepository defines data access for users.
type UserRepository interface {
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// List returns users with ID greater than afterID, ordered by ID.
	List(ctx context.Context, afterID string, limit int) ([]*domain.User, error)
}

// LedgerRepository defines data access for ledger-wide checks.
type LedgerRepository interface {
	// AccountTotals returns, per account, the stored balance and initial balance
	// plus the signed sum of its transactions.
	AccountTotals(ctx context.Context) ([]AccountTotal, error)
}

// AccountTotal pairs an account's stored balance with the balance derived from its transactions.
type AccountTotal struct {
	AccountID string
	OwnerID   string
	Balance   domain.Money
	Expected  domain.Money
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier retries an operation with backoff while it fails with a transient error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// ViewCache stores derived views such as the dashboard.
type ViewCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	ViewInvalidator
}

// ViewInvalidator drops cached views after a write.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// Notifier delivers notifications. A nil error means the message was accepted for delivery.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Classifier extracts a draft transaction from a receipt image. It returns a
// nil draft when the image is not a receipt.
type Classifier interface {
	Classify(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptDraft, error)
}

// DashboardKey is the view cache key of an owner's dashboard.
func DashboardKey(ownerID string) string {
	return "dashboard:" + ownerID
}

// AccountKey is the view cache key of an account page.
func AccountKey(accountID string) string {
	return "account:" + accountID
}
