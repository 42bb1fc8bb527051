package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

type sqliteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository returns a UserRepository backed by an sqlite3 handle.
func NewSQLiteUserRepository(db *sql.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

func (r *sqliteUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?,?,?,?)`,
		user.Username,
		user.PasswordHash,
		string(user.Role),
		user.CreatedAt.UnixNano(),
	)
	if isSQLiteKeyConflict(err) {
		return fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
	}
	return err
}

func (r *sqliteUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var (
		user      domain.User
		role      string
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password_hash, role, created_at FROM users WHERE username=?`,
		username,
	).Scan(&user.Username, &user.PasswordHash, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return &user, nil
}
