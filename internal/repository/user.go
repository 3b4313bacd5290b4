package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spendlog/spendlog-go/internal/model"
)

// UserRepository handles user persistence over database/sql.
type UserRepository struct {
	db *sql.DB
	d  dialect
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB, d dialect) *UserRepository {
	return &UserRepository{db: db, d: d}
}

// Create inserts a new user and sets the generated ID and timestamps on it.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := r.d.rebind(`INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	id := uuid.NewString()
	now := storedTime(time.Now())

	_, err := r.db.ExecContext(ctx, query, id, user.Name, user.Email, user.PasswordHash, now, now)
	if err != nil {
		if r.d.isDuplicate(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByEmail retrieves a user by their normalized email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := r.d.rebind(`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = ?`)
	return r.getOne(ctx, query, email)
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := r.d.rebind(`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id = ?`)
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// storedTime is t as every backend round-trips it: UTC, microsecond precision.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
