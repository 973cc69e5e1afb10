package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supermart/supermart/internal/platform/db"
	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
)

const userColumns = `id, email, username, role, phone, address, created_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u    User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &role, &u.Phone, &u.Address, &u.CreatedAt)
	u.Role = rbac.Role(role)
	return u, err
}

// ListUsers returns one page of users ordered by id.
func (r *Repository) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetUser loads a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return u, err
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	created, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (email, username, role, phone, address)
VALUES ($1, $2, $3, $4, $5) RETURNING `+userColumns, u.Email, u.Username, string(u.Role), u.Phone, u.Address))
	if db.IsUniqueViolation(err) {
		return User{}, shared.NewValidationError("email", "email or username already registered")
	}
	if err != nil {
		return User{}, fmt.Errorf("users: create: %w", err)
	}
	return created, nil
}

// UpdateRole sets a user's role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, role rbac.Role) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users SET role = $2 WHERE id = $1 RETURNING `+userColumns, id, string(role)))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return u, err
}

// UpdateProfile stores the self-editable fields of a user.
func (r *Repository) UpdateProfile(ctx context.Context, u User) (User, error) {
	updated, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users SET username = $2, phone = $3, address = $4
WHERE id = $1 RETURNING `+userColumns, u.ID, u.Username, u.Phone, u.Address))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", u.ID, shared.ErrNotFound)
	}
	if db.IsUniqueViolation(err) {
		return User{}, shared.NewValidationError("username", "username already taken")
	}
	if err != nil {
		return User{}, fmt.Errorf("users: update profile: %w", err)
	}
	return updated, nil
}

// DeleteUser removes a user; carts and orders cascade.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// CountUsers counts accounts.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
