package repository

import (
	"context"
	"errors"

	"github.com/spendlog/spendlog-go/internal/model"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateEmail  = errors.New("email already exists")
	ErrExpenseNotFound = errors.New("expense not found")
	ErrOwnerRequired   = errors.New("expense scope has no owner")
)

// Store is one opened persistence backend.
type Store interface {
	Users() UserStore
	Expenses() ExpenseStore
	Ping(ctx context.Context) error
	Close() error
}

// UserStore persists credentials. Emails are unique at the store level.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// ExpenseStore hands out expense access bound to a single owner.
type ExpenseStore interface {
	ForOwner(ownerID string) OwnedExpenses
}

// OwnedExpenses is the only way to read or write expenses. Every query it
// runs is filtered by the owner it was created with; a record owned by
// someone else is reported as ErrExpenseNotFound.
type OwnedExpenses interface {
	Create(ctx context.Context, expense *model.Expense) error
	List(ctx context.Context) ([]model.Expense, error)
	Get(ctx context.Context, id string) (*model.Expense, error)
	Update(ctx context.Context, id string, patch model.ExpensePatch) (*model.Expense, error)
	Delete(ctx context.Context, id string) error
}
