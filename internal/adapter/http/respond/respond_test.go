package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/welth/internal/adapter/http/dto"
	"github.com/iho/welth/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing owner", domain.ErrMissingOwner, http.StatusUnauthorized, CodeUnauthorized},
		{"expired token", domain.ErrExpiredToken, http.StatusUnauthorized, CodeUnauthorized},
		{"account not found", fmt.Errorf("update: %w", domain.ErrAccountNotFound), http.StatusNotFound, CodeNotFound},
		{"validation", domain.NewValidationError("amount", "bad"), http.StatusBadRequest, CodeValidation},
		{"rate limited", &domain.RateLimitError{Reset: time.Minute}, http.StatusTooManyRequests, CodeRateLimited},
		{"blocked", &domain.RateLimitError{Blocked: true}, http.StatusTooManyRequests, CodeBlocked},
		{"classification", domain.ClassificationError("not json", nil), http.StatusUnprocessableEntity, CodeClassification},
		{"store", domain.StoreError("insert", errors.New("conn reset")), http.StatusServiceUnavailable, CodeStore},
		{"notification", domain.NotificationError("a@b.c", errors.New("down")), http.StatusBadGateway, CodeNotification},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestError_RateLimitHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)

	Error(rec, req, &domain.RateLimitError{Remaining: 0, Reset: 1500 * time.Millisecond})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Reset"))

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeRateLimited, body.Code)
	assert.Equal(t, "too many requests, retry in 2s", body.Error)
}

func TestError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)

	Error(rec, req, domain.StoreError("list accounts", errors.New("password authentication failed")))

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, body.Error, "password")
}
