package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/postgres"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	u.id, u.name, u.email, u.password_hash, u.phone, u.is_admin, u.created_at,
	COALESCE(ARRAY(SELECT f.restaurant_id FROM user_favorites f WHERE f.user_id = u.id ORDER BY f.created_at), '{}')
`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	u := &domain.User{}
	var favorites pq.StringArray
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.IsAdmin, &u.CreatedAt, &favorites); err != nil {
		return nil, err
	}
	u.Favorites = []string(favorites)
	if u.Favorites == nil {
		u.Favorites = []string{}
	}
	return u, nil
}

// Create inserts a user. A duplicate email yields domain.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now().UTC()
	u.Favorites = []string{}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, phone, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "users_email_key") {
			return fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE LOWER(u.email) = LOWER($1)`, strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// SetAdmin flips the admin flag. It is only reachable from the admin CLI.
func (r *UserRepository) SetAdmin(ctx context.Context, email string, isAdmin bool) (*domain.User, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_admin = $2 WHERE LOWER(email) = LOWER($1)
	`, strings.TrimSpace(email), isAdmin)
	if err != nil {
		return nil, fmt.Errorf("set admin flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: no user with email %s", domain.ErrNotFound, email)
	}

	return r.GetByEmail(ctx, email)
}

// AddFavorite is a set insert: adding an existing favorite is a no-op.
func (r *UserRepository) AddFavorite(ctx context.Context, userID, restaurantID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_favorites (user_id, restaurant_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, restaurant_id) DO NOTHING
	`, userID, restaurantID)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (r *UserRepository) RemoveFavorite(ctx context.Context, userID, restaurantID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM user_favorites WHERE user_id = $1 AND restaurant_id = $2
	`, userID, restaurantID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}
