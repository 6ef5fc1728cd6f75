package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

type budgetServiceStub struct {
	upsertFn func(ctx context.Context, ownerID string, amount domain.Money) (*domain.Budget, error)
	getFn    func(ctx context.Context, ownerID, accountID string) (*domain.BudgetStatus, error)
}

func (s *budgetServiceStub) UpsertBudget(ctx context.Context, ownerID string, amount domain.Money) (*domain.Budget, error) {
	return s.upsertFn(ctx, ownerID, amount)
}

func (s *budgetServiceStub) GetCurrentBudget(ctx context.Context, ownerID, accountID string) (*domain.BudgetStatus, error) {
	return s.getFn(ctx, ownerID, accountID)
}

type dashboardServiceStub func(ctx context.Context, ownerID string) (*usecase.Dashboard, error)

func (f dashboardServiceStub) Get(ctx context.Context, ownerID string) (*usecase.Dashboard, error) {
	return f(ctx, ownerID)
}

func TestBudgetHandler_Upsert(t *testing.T) {
	var got domain.Money
	h := NewBudgetHandler(&budgetServiceStub{
		upsertFn: func(ctx context.Context, ownerID string, amount domain.Money) (*domain.Budget, error) {
			got = amount
			return &domain.Budget{ID: "budget-1", OwnerID: ownerID, Amount: amount}, nil
		},
	})

	req := asOwner(httptest.NewRequest(http.MethodPut, "/budget", strings.NewReader(`{"amount":"500"}`)), "user_1", nil)
	rec := httptest.NewRecorder()
	h.Upsert(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.String() != "500.00" {
		t.Errorf("expected amount 500.00, got %s", got)
	}
}

func TestBudgetHandler_Upsert_InvalidAmount(t *testing.T) {
	h := NewBudgetHandler(&budgetServiceStub{
		upsertFn: func(ctx context.Context, ownerID string, amount domain.Money) (*domain.Budget, error) {
			t.Fatal("use case must not be called")
			return nil, nil
		},
	})

	for _, body := range []string{`{"amount":"abc"}`, `{"amount":""}`, `not json`} {
		req := asOwner(httptest.NewRequest(http.MethodPut, "/budget", strings.NewReader(body)), "user_1", nil)
		rec := httptest.NewRecorder()
		h.Upsert(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestBudgetHandler_Get(t *testing.T) {
	var gotAccount string
	h := NewBudgetHandler(&budgetServiceStub{
		getFn: func(ctx context.Context, ownerID, accountID string) (*domain.BudgetStatus, error) {
			gotAccount = accountID
			budget := &domain.Budget{ID: "budget-1", OwnerID: ownerID, Amount: domain.MustParseMoney("1000")}
			return domain.NewBudgetStatus(budget, domain.MustParseMoney("850")), nil
		},
	})

	req := asOwner(httptest.NewRequest(http.MethodGet, "/budget?account_id=acc-1", nil), "user_1", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotAccount != "acc-1" {
		t.Errorf("expected account_id acc-1, got %q", gotAccount)
	}

	var resp struct {
		Budget struct {
			CurrentExpenses string `json:"current_expenses"`
			Remaining       string `json:"remaining"`
		} `json:"budget"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Budget.CurrentExpenses != "850.00" || resp.Budget.Remaining != "150.00" {
		t.Errorf("unexpected budget figures: %+v", resp.Budget)
	}
}

func TestBudgetHandler_Get_NoBudget(t *testing.T) {
	h := NewBudgetHandler(&budgetServiceStub{
		getFn: func(ctx context.Context, ownerID, accountID string) (*domain.BudgetStatus, error) {
			return nil, nil
		},
	})

	req := asOwner(httptest.NewRequest(http.MethodGet, "/budget", nil), "user_1", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"budget":null}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestDashboardHandler_Get(t *testing.T) {
	h := NewDashboardHandler(dashboardServiceStub(func(ctx context.Context, ownerID string) (*usecase.Dashboard, error) {
		if ownerID == "" {
			return nil, domain.ErrMissingOwner
		}
		return &usecase.Dashboard{
			Accounts:         []*domain.Account{{ID: "acc-1", OwnerID: ownerID, Name: "Main", Type: domain.AccountTypeCurrent, IsDefault: true}},
			DefaultAccountID: "acc-1",
		}, nil
	}))

	rec := httptest.NewRecorder()
	h.Get(rec, asOwner(httptest.NewRequest(http.MethodGet, "/dashboard", nil), "user_1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"default_account_id":"acc-1"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without owner, got %d", rec.Code)
	}
}
