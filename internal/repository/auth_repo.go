package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"power_schedule/internal/models"
)

// UserSQLite stores accounts. Permissions are not stored; they come from
// configuration when a token is issued, and only for provisioned accounts.
type UserSQLite struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserSQLite {
	return &UserSQLite{db: db}
}

var _ Authorization = (*UserSQLite)(nil)

const (
	insertUserSQL           = `INSERT INTO users (username, password_hash, provisioned) VALUES (?, ?, ?)`
	selectUserByUsernameSQL = `SELECT id, username, password_hash, provisioned, created_at FROM users WHERE username = ?`
)

// ErrUsernameTaken is returned by Create for an existing username.
var ErrUsernameTaken = fmt.Errorf("username already taken: %w", ErrConflict)

func (r *UserSQLite) Create(ctx context.Context, username, passwordHash string, provisioned bool) (int, error) {
	res, err := r.db.ExecContext(ctx, insertUserSQL, username, passwordHash, provisioned)
	switch {
	case isUniqueViolation(err):
		return 0, fmt.Errorf("insert user %q: %w", username, ErrUsernameTaken)
	case err != nil:
		return 0, fmt.Errorf("insert user %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for user %q: %w", username, err)
	}
	return int(id), nil
}

// GetByUsername returns (nil, nil) for an unknown username.
func (r *UserSQLite) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	row := r.db.QueryRowContext(ctx, selectUserByUsernameSQL, username)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Provisioned, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user %q: %w", username, err)
	}
	return &u, nil
}
