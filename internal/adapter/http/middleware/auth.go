package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/iho/welth/internal/adapter/http/respond"
	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// OwnerContextKey is the context key for the authenticated owner ID
	OwnerContextKey ContextKey = "owner"
	adminContextKey ContextKey = "admin"

	// OwnerHeader selects the caller when authentication is disabled.
	OwnerHeader = "X-Owner-ID"
)

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserSyncer creates or refreshes the local user record of a caller.
type UserSyncer interface {
	Sync(ctx context.Context, identity domain.Identity) (*domain.User, error)
}

// Authenticator resolves the caller identity of every API request.
type Authenticator struct {
	verifier   TokenVerifier
	users      UserSyncer
	enabled    bool
	devOwnerID string

	synced sync.Map // domain.Identity -> struct{}
}

// NewAuthenticator creates an Authenticator. With enabled false, callers are
// identified by the X-Owner-ID header, falling back to devOwnerID, and are
// treated as admins.
func NewAuthenticator(verifier TokenVerifier, users UserSyncer, enabled bool, devOwnerID string) *Authenticator {
	return &Authenticator{
		verifier:   verifier,
		users:      users,
		enabled:    enabled,
		devOwnerID: devOwnerID,
	}
}

// Wrap rejects requests without a valid identity and stores the owner ID in
// the request context.
func (a *Authenticator) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, admin, err := a.identify(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		if err := a.sync(r.Context(), identity); err != nil {
			respond.Error(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), OwnerContextKey, identity.UserID)
		ctx = context.WithValue(ctx, adminContextKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) identify(r *http.Request) (domain.Identity, bool, error) {
	if !a.enabled {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" {
			owner = a.devOwnerID
		}
		if owner == "" {
			return domain.Identity{}, false, domain.ErrMissingOwner
		}
		return domain.Identity{UserID: owner}, true, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return domain.Identity{}, false, domain.ErrMissingOwner
	}

	// Parse Bearer token
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return domain.Identity{}, false, domain.ErrInvalidToken
	}

	claims, err := a.verifier.Verify(parts[1])
	if err != nil {
		return domain.Identity{}, false, err
	}

	return claims.Identity(), claims.IsAdmin(), nil
}

// sync upserts the caller once per distinct identity for the process lifetime.
func (a *Authenticator) sync(ctx context.Context, identity domain.Identity) error {
	if a.users == nil {
		return nil
	}
	if _, ok := a.synced.Load(identity); ok {
		return nil
	}
	if _, err := a.users.Sync(ctx, identity); err != nil {
		return err
	}
	a.synced.Store(identity, struct{}{})
	return nil
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if admin, _ := r.Context().Value(adminContextKey).(bool); !admin {
			respond.Message(w, http.StatusForbidden, respond.CodeForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OwnerFromContext returns the authenticated owner ID, or "" when absent.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(OwnerContextKey).(string)
	return owner
}

// WithOwner returns ctx carrying ownerID. Used by tests and background callers.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, OwnerContextKey, ownerID)
}
