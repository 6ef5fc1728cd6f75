package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/welth/internal/adapter/http/dto"
	"github.com/iho/welth/internal/infrastructure/ratelimit"
)

type countingObserver struct{ routes []string }

func (o *countingObserver) ObserveRateLimited(route string) { o.routes = append(o.routes, route) }

func TestRateLimit_PerOwner(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{Requests: 1, Window: time.Hour})
	obs := &countingObserver{}
	handler := RateLimit(limiter, obs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(owner string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
		req = req.WithContext(WithOwner(req.Context(), owner))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	first := send("user_1")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := send("user_1")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "3600", second.Header().Get("X-RateLimit-Reset"))

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body.Code)

	assert.Equal(t, http.StatusCreated, send("user_2").Code)
	assert.Equal(t, []string{"POST /api/v1/transactions"}, obs.routes)
}

func TestRateLimit_Blocked(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{Requests: 5, Window: time.Minute, Blocked: []string{"bot"}})
	handler := RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("blocked caller must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
	req = req.WithContext(WithOwner(context.Background(), "bot"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "blocked", body.Code)
}

func TestGetIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getIP(req))
}
