package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/welth/internal/adapter/http/dto"
	"github.com/iho/welth/internal/domain"
)

// TransactionService defines the behavior needed by TransactionHandler.
type TransactionService interface {
	CreateTransaction(ctx context.Context, ownerID string, input domain.TransactionInput) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, ownerID, id string, input domain.TransactionInput) (*domain.Transaction, error)
	DeleteTransactions(ctx context.Context, ownerID string, ids []string) error
	GetTransaction(ctx context.Context, ownerID, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

// WriteObserver records transaction write outcomes.
type WriteObserver interface {
	ObserveTransaction(operation string, t *domain.Transaction, err error)
}

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	transactionUC TransactionService
	observer      WriteObserver
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionUC TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionUC: transactionUC}
}

// WithObserver sets the observer notified after every write.
func (h *TransactionHandler) WithObserver(o WriteObserver) *TransactionHandler {
	h.observer = o
	return h
}

func (h *TransactionHandler) observe(operation string, t *domain.Transaction, err error) {
	if h.observer != nil {
		h.observer.ObserveTransaction(operation, t, err)
	}
}

// Create records a transaction and applies it to the account balance.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	t, err := h.transactionUC.CreateTransaction(r.Context(), owner(r), input)
	h.observe("create", t, err)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(t))
}

// Update overwrites a transaction and rebalances the affected accounts.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	t, err := h.transactionUC.UpdateTransaction(r.Context(), owner(r), chi.URLParam(r, "id"), input)
	h.observe("update", t, err)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(t))
}

func (h *TransactionHandler) decodeInput(w http.ResponseWriter, r *http.Request) (domain.TransactionInput, bool) {
	var req dto.TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return domain.TransactionInput{}, false
	}

	input, err := req.ToDomainInput()
	if err != nil {
		handleError(w, r, err)
		return domain.TransactionInput{}, false
	}
	return input, true
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.transactionUC.GetTransaction(r.Context(), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(t))
}

// Delete removes a single transaction.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.transactionUC.DeleteTransactions(r.Context(), owner(r), []string{chi.URLParam(r, "id")})
	h.observe("delete", nil, err)
	if err != nil {
		handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete removes several transactions in one unit of work.
func (h *TransactionHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteTransactionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	err := h.transactionUC.DeleteTransactions(r.Context(), owner(r), req.IDs)
	h.observe("delete", nil, err)
	if err != nil {
		handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List lists transactions newest first. Supported query parameters:
// account_id, type, category, recurring, from, to, limit and offset.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	txs, err := h.transactionUC.ListTransactions(r.Context(), owner(r), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(txs),
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

func parseTransactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	limit, offset := domain.ValidatePagination(parseIntQuery(r, "limit", 0), parseIntQuery(r, "offset", 0))

	filter := domain.TransactionFilter{
		AccountID: q.Get("account_id"),
		Type:      domain.TransactionType(strings.ToUpper(q.Get("type"))),
		Category:  q.Get("category"),
		Limit:     limit,
		Offset:    offset,
	}

	if filter.Type != "" && !filter.Type.IsValid() {
		return filter, domain.NewValidationError("type", "type must be EXPENSE or INCOME")
	}

	if raw := q.Get("recurring"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, domain.NewValidationError("recurring", "recurring must be true or false")
		}
		filter.IsRecurring = &v
	}

	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		t, err := dto.ParseDate(raw)
		if err != nil {
			return filter, domain.NewValidationError(p.key, p.key+" must be YYYY-MM-DD or RFC 3339")
		}
		*p.dst = &t
	}

	return filter, nil
}
