package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/iho/welth/internal/adapter/http/middleware"
	"github.com/iho/welth/internal/adapter/http/respond"
	"github.com/iho/welth/internal/domain"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	respond.JSON(w, status, data)
}

// handleError writes err with its mapped status.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	respond.Error(w, r, err)
}

// decodeJSON decodes the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "invalid request body: "+err.Error())
	}
	return nil
}

// owner returns the authenticated owner; the use cases reject an empty one.
func owner(r *http.Request) string {
	return middleware.OwnerFromContext(r.Context())
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
