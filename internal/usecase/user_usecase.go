package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/welth/internal/domain"
)

// UserUseCase keeps the local user record in step with the identity provider.
type UserUseCase struct {
	userRepo UserRepository
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(userRepo UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
	}
}

// Sync creates or refreshes the user behind a verified identity.
func (uc *UserUseCase) Sync(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	if identity.UserID == "" {
		return nil, domain.ErrMissingOwner
	}
	if identity.Email != "" {
		if err := domain.ValidateEmail(identity.Email); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	user, err := uc.userRepo.GetByID(ctx, identity.UserID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user = &domain.User{ID: identity.UserID, CreatedAt: now}
	case err != nil:
		return nil, err
	default:
		if user.Email == identity.Email && user.Name == identity.Name {
			return user, nil
		}
	}

	if identity.Email != "" {
		user.Email = identity.Email
	}
	if identity.Name != "" {
		user.Name = identity.Name
	}
	user.UpdatedAt = now

	if err := uc.userRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrMissingOwner
	}
	return uc.userRepo.GetByID(ctx, id)
}
