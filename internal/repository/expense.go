package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spendlog/spendlog-go/internal/model"
)

const expenseColumns = `id, owner_id, description, amount_cents, category, expense_date, notes, created_at, updated_at`

// ExpenseRepository handles expense persistence over database/sql.
type ExpenseRepository struct {
	db *sql.DB
	d  dialect
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db *sql.DB, d dialect) *ExpenseRepository {
	return &ExpenseRepository{db: db, d: d}
}

// ForOwner returns access restricted to owner's expenses.
func (r *ExpenseRepository) ForOwner(ownerID string) OwnedExpenses {
	return &ownedExpenses{repo: r, owner: ownerID}
}

type ownedExpenses struct {
	repo  *ExpenseRepository
	owner string
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*model.Expense, error) {
	var (
		e     model.Expense
		cents int64
	)
	err := row.Scan(&e.ID, &e.Owner, &e.Description, &cents, &e.Category, &e.Date, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Amount = model.Amount(cents)
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

// Create inserts the expense under the scoped owner, whatever expense.Owner
// held before.
func (o *ownedExpenses) Create(ctx context.Context, expense *model.Expense) error {
	if o.owner == "" {
		return ErrOwnerRequired
	}

	query := o.repo.d.rebind(`INSERT INTO expenses (` + expenseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	id := uuid.NewString()
	now := storedTime(time.Now())
	date := storedTime(expense.Date)

	_, err := o.repo.db.ExecContext(ctx, query,
		id, o.owner, expense.Description, expense.Amount.Cents(), expense.Category, date, expense.Notes, now, now,
	)
	if err != nil {
		return err
	}

	expense.ID = id
	expense.Owner = o.owner
	expense.Date = date
	expense.CreatedAt = now
	expense.UpdatedAt = now
	return nil
}

// List returns the owner's expenses, newest date first.
func (o *ownedExpenses) List(ctx context.Context) ([]model.Expense, error) {
	if o.owner == "" {
		return nil, ErrOwnerRequired
	}

	query := o.repo.d.rebind(`SELECT ` + expenseColumns + ` FROM expenses
		WHERE owner_id = ? ORDER BY expense_date DESC, created_at DESC`)

	rows, err := o.repo.db.QueryContext(ctx, query, o.owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []model.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// Get returns one of the owner's expenses.
func (o *ownedExpenses) Get(ctx context.Context, id string) (*model.Expense, error) {
	if o.owner == "" {
		return nil, ErrOwnerRequired
	}
	return o.get(ctx, o.repo.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (o *ownedExpenses) get(ctx context.Context, q queryer, id string) (*model.Expense, error) {
	query := o.repo.d.rebind(`SELECT ` + expenseColumns + ` FROM expenses WHERE id = ? AND owner_id = ?`)

	e, err := scanExpense(q.QueryRowContext(ctx, query, id, o.owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	return e, nil
}

// Update applies patch and returns the record as stored. The UPDATE and the
// read-back share a transaction; the read-back decides whether the record
// exists since MySQL reports zero affected rows for no-op updates.
func (o *ownedExpenses) Update(ctx context.Context, id string, patch model.ExpensePatch) (*model.Expense, error) {
	if o.owner == "" {
		return nil, ErrOwnerRequired
	}
	if patch.IsEmpty() {
		return o.Get(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, patch.Amount.Cents())
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	if patch.Date != nil {
		sets = append(sets, "expense_date = ?")
		args = append(args, storedTime(*patch.Date))
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, storedTime(time.Now()), id, o.owner)

	query := o.repo.d.rebind(fmt.Sprintf(`UPDATE expenses SET %s WHERE id = ? AND owner_id = ?`, strings.Join(sets, ", ")))

	tx, err := o.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	e, err := o.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes one of the owner's expenses.
func (o *ownedExpenses) Delete(ctx context.Context, id string) error {
	if o.owner == "" {
		return ErrOwnerRequired
	}

	query := o.repo.d.rebind(`DELETE FROM expenses WHERE id = ? AND owner_id = ?`)

	result, err := o.repo.db.ExecContext(ctx, query, id, o.owner)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrExpenseNotFound
	}
	return nil
}
