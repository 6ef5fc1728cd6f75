package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/welth/internal/adapter/http/dto"
	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, ownerID string, input domain.AccountInput) (*domain.Account, error)
	GetAccountWithTransactions(ctx context.Context, ownerID, id string, limit, offset int) (*usecase.AccountDetails, error)
	ListAccounts(ctx context.Context, ownerID string) ([]*domain.Account, error)
	SetDefaultAccount(ctx context.Context, ownerID, id string) (*domain.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	input, err := req.ToDomainInput()
	if err != nil {
		handleError(w, r, err)
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), owner(r), input)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account with a page of its transactions.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := parseIntQuery(r, "limit", 0)
	offset := parseIntQuery(r, "offset", 0)

	details, err := h.accountUC.GetAccountWithTransactions(r.Context(), owner(r), id, limit, offset)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountDetailsFromUseCase(details))
}

// List lists the caller's accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountUC.ListAccounts(r.Context(), owner(r))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    len(accounts),
	})
}

// SetDefault makes the account the caller's default.
func (h *AccountHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountUC.SetDefaultAccount(r.Context(), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}
