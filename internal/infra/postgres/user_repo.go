package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kislikjeka/agrovest/internal/platform/user"
)

const (
	userColumns = `id, email, full_name, password_hash, role, created_at, updated_at, last_login_at, deleted_at`

	insertUserSQL = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateUserSQL = `
		UPDATE users
		SET email = $2, full_name = $3, password_hash = $4, role = $5,
		    created_at = $6, updated_at = $7, last_login_at = $8, deleted_at = $9
		WHERE id = $1`
)

// UserRepository stores accounts. Deleted users stay as anonymized rows.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	if _, err := getQueryer(ctx, r.pool).Exec(ctx, insertUserSQL, userArgs(u)...); err != nil {
		if isUniqueViolation(err, "") {
			return user.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Update rewrites every mutable column. Anonymized users carry no password
// hash, so they skip validation.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	if !u.IsDeleted() {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("invalid user: %w", err)
		}
	}

	tag, err := getQueryer(ctx, r.pool).Exec(ctx, updateUserSQL, userArgs(u)...)
	switch {
	case isUniqueViolation(err, ""):
		return user.ErrUserAlreadyExists
	case err != nil:
		return fmt.Errorf("failed to update user: %w", err)
	case tag.RowsAffected() == 0:
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := getQueryer(ctx, r.pool).
		QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	u, err := scanUser(getQueryer(ctx, r.pool).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// userArgs follows the order of userColumns
func userArgs(u *user.User) []any {
	return []any{
		u.ID, u.Email, u.FullName, u.PasswordHash, string(u.Role),
		u.CreatedAt, u.UpdatedAt, u.LastLoginAt, u.DeletedAt,
	}
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLoginAt,
		&u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
