package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/welth/internal/domain"
)

// UserRepository implements user persistence
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: pool}
}

// Upsert inserts a user or refreshes its profile fields
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, image_url = EXCLUDED.image_url, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.ImageURL,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return storeErr("upsert user", err, nil)
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, name, image_url, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, storeErr("get user", err, domain.ErrUserNotFound)
	}

	return user, nil
}

// List returns users after afterID, in ID order
func (r *UserRepository) List(ctx context.Context, afterID string, limit int) ([]*domain.User, error) {
	query := `
		SELECT id, email, name, image_url, created_at, updated_at
		FROM users
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, storeErr("list users", err, nil)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, storeErr("list users", err, nil)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list users", err, nil)
	}

	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.ImageURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}
