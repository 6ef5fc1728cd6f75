package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/domain"
)

// Dashboard is the owner's overview page.
type Dashboard struct {
	Accounts           []*domain.Account     `json:"accounts"`
	DefaultAccountID   string                `json:"defaultAccountId,omitempty"`
	Budget             *domain.BudgetStatus  `json:"budget,omitempty"`
	RecentTransactions []*domain.Transaction `json:"recentTransactions"`
	GeneratedAt        time.Time             `json:"generatedAt"`
}

// DashboardUseCase composes the dashboard and caches it until a write
// invalidates it.
type DashboardUseCase struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	budgets         *BudgetUseCase
	cache           ViewCache
	ttl             time.Duration
	logger          zerolog.Logger
}

// NewDashboardUseCase creates a new DashboardUseCase. cache may be nil.
func NewDashboardUseCase(
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	budgets *BudgetUseCase,
	cache ViewCache,
	ttl time.Duration,
	logger zerolog.Logger,
) *DashboardUseCase {
	return &DashboardUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		budgets:         budgets,
		cache:           cache,
		ttl:             ttl,
		logger:          logger,
	}
}

// Get returns the owner's dashboard, from cache when possible.
func (uc *DashboardUseCase) Get(ctx context.Context, ownerID string) (*Dashboard, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}

	key := DashboardKey(ownerID)
	if cached, ok := uc.fromCache(ctx, key); ok {
		return cached, nil
	}

	accounts, err := uc.accountRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	recent, err := uc.transactionRepo.List(ctx, ownerID, domain.TransactionFilter{Limit: DashboardRecentTransactions})
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		Accounts:           accounts,
		RecentTransactions: recent,
		GeneratedAt:        time.Now().UTC(),
	}

	if def := domain.DefaultAccount(accounts); def != nil {
		dashboard.DefaultAccountID = def.ID
		status, err := uc.budgets.GetCurrentBudget(ctx, ownerID, def.ID)
		if err != nil {
			return nil, err
		}
		dashboard.Budget = status
	}

	uc.toCache(ctx, key, dashboard)

	return dashboard, nil
}

func (uc *DashboardUseCase) fromCache(ctx context.Context, key string) (*Dashboard, bool) {
	if uc.cache == nil {
		return nil, false
	}

	data, ok, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("dashboard cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var dashboard Dashboard
	if err := json.Unmarshal(data, &dashboard); err != nil {
		return nil, false
	}
	return &dashboard, true
}

func (uc *DashboardUseCase) toCache(ctx context.Context, key string, dashboard *Dashboard) {
	if uc.cache == nil {
		return
	}

	data, err := json.Marshal(dashboard)
	if err != nil {
		return
	}
	if err := uc.cache.Set(ctx, key, data, uc.ttl); err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("dashboard cache write failed")
	}
}
