package handler

import (
	"context"
	"net/http"

	"github.com/iho/welth/internal/adapter/http/dto"
	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

// BudgetService defines the behavior needed by BudgetHandler.
type BudgetService interface {
	UpsertBudget(ctx context.Context, ownerID string, amount domain.Money) (*domain.Budget, error)
	GetCurrentBudget(ctx context.Context, ownerID, accountID string) (*domain.BudgetStatus, error)
}

// DashboardService defines the behavior needed by DashboardHandler.
type DashboardService interface {
	Get(ctx context.Context, ownerID string) (*usecase.Dashboard, error)
}

// BudgetHandler handles budget requests.
type BudgetHandler struct {
	budgetUC BudgetService
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetUC BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetUC: budgetUC}
}

// Upsert sets the caller's monthly budget.
func (h *BudgetHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req dto.BudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	amount, err := req.ToMoney()
	if err != nil {
		handleError(w, r, err)
		return
	}

	budget, err := h.budgetUC.UpsertBudget(r.Context(), owner(r), amount)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BudgetFromDomain(budget))
}

// Get returns the budget with month-to-date expenses on account_id, or on
// the default account. A caller without a budget gets {"budget": null}.
func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	status, err := h.budgetUC.GetCurrentBudget(r.Context(), owner(r), r.URL.Query().Get("account_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]*dto.BudgetResponse{"budget": dto.BudgetFromStatus(status)})
}

// DashboardHandler serves the dashboard view.
type DashboardHandler struct {
	dashboardUC DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardUC DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardUC: dashboardUC}
}

// Get returns the caller's dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.dashboardUC.Get(r.Context(), owner(r))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DashboardFromUseCase(dashboard))
}
