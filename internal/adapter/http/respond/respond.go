// Package respond writes JSON bodies and maps domain errors to HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/iho/welth/internal/adapter/http/dto"
	"github.com/iho/welth/internal/domain"
)

// Error codes
const (
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeValidation     = "validation_error"
	CodeRateLimited    = "rate_limited"
	CodeBlocked        = "blocked"
	CodeClassification = "classification_failed"
	CodeStore          = "store_unavailable"
	CodeNotification   = "notification_failed"
	CodeConflict       = "conflict"
	CodeInternal       = "internal_error"
)

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Message writes an error body with an explicit status and code.
func Message(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// StatusFor maps err to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	var rl *domain.RateLimitError
	switch {
	case errors.As(err, &rl) && rl.Blocked:
		return http.StatusTooManyRequests, CodeBlocked
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, domain.ErrClassification):
		return http.StatusUnprocessableEntity, CodeClassification
	case errors.Is(err, domain.ErrStore):
		return http.StatusServiceUnavailable, CodeStore
	case errors.Is(err, domain.ErrNotification):
		return http.StatusBadGateway, CodeNotification
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// Error writes err with the status StatusFor picks. Server-side failures are
// logged and their details kept out of the body.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)

	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		SetRateLimitHeaders(w, rl.Remaining, rl.Reset.Seconds())
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("request failed")
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
		if status == http.StatusServiceUnavailable {
			message = "storage temporarily unavailable"
		}
	}

	Message(w, status, code, message)
}

// SetRateLimitHeaders reports the caller's remaining quota. resetSeconds is
// rounded up.
func SetRateLimitHeaders(w http.ResponseWriter, remaining int, resetSeconds float64) {
	reset := int(resetSeconds)
	if float64(reset) < resetSeconds {
		reset++
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(reset))
}
