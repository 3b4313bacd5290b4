package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spendlog/spendlog-go/internal/events"
	"github.com/spendlog/spendlog-go/internal/logging"
	"github.com/spendlog/spendlog-go/internal/model"
	"github.com/spendlog/spendlog-go/internal/repository"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrExpenseNotFound = errors.New("expense not found")
	ErrNoIdentity      = errors.New("no authenticated identity")
)

// ValidationError reports one rejected input field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func required(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

// ExpenseService handles expense business logic. Every operation runs
// through a store scoped to the caller.
type ExpenseService struct {
	store     repository.ExpenseStore
	publisher events.Publisher
}

// NewExpenseService creates a new ExpenseService. A nil publisher drops events.
func NewExpenseService(store repository.ExpenseStore, publisher events.Publisher) *ExpenseService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ExpenseService{store: store, publisher: publisher}
}

func (s *ExpenseService) scope(owner model.Identity) (repository.OwnedExpenses, error) {
	if owner.ID == "" {
		return nil, ErrNoIdentity
	}
	return s.store.ForOwner(owner.ID), nil
}

// Create validates req and stores a new expense owned by owner.
func (s *ExpenseService) Create(ctx context.Context, owner model.Identity, req model.CreateExpenseRequest) (*model.Expense, error) {
	scoped, err := s.scope(owner)
	if err != nil {
		return nil, err
	}

	expense := &model.Expense{}
	switch {
	case req.Description == nil || strings.TrimSpace(*req.Description) == "":
		return nil, required("description")
	case req.Amount == nil:
		return nil, required("amount")
	case req.Category == nil || strings.TrimSpace(*req.Category) == "":
		return nil, required("category")
	case req.Date == nil:
		return nil, required("date")
	}

	expense.Description = strings.TrimSpace(*req.Description)
	expense.Amount = *req.Amount
	expense.Category = strings.TrimSpace(*req.Category)
	expense.Date = req.Date.Time
	if req.Notes != nil {
		expense.Notes = strings.TrimSpace(*req.Notes)
	}

	if err := scoped.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	publish(ctx, s.publisher, events.New(events.ExpenseCreated, expense.ID, owner.ID), expenseAttrs(owner.ID, expense.ID)...)
	return expense, nil
}

// List returns owner's expenses, newest date first.
func (s *ExpenseService) List(ctx context.Context, owner model.Identity) ([]model.Expense, error) {
	scoped, err := s.scope(owner)
	if err != nil {
		return nil, err
	}

	expenses, err := scoped.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Update applies the supplied fields of req to one of owner's expenses and
// returns the stored result. Omitted fields are left as they are.
func (s *ExpenseService) Update(ctx context.Context, owner model.Identity, id string, req model.UpdateExpenseRequest) (*model.Expense, error) {
	scoped, err := s.scope(owner)
	if err != nil {
		return nil, err
	}

	patch, err := buildPatch(req)
	if err != nil {
		return nil, err
	}

	expense, err := scoped.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrExpenseNotFound) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("update expense: %w", err)
	}

	if !patch.IsEmpty() {
		publish(ctx, s.publisher, events.New(events.ExpenseUpdated, expense.ID, owner.ID), expenseAttrs(owner.ID, expense.ID)...)
	}
	return expense, nil
}

// Delete removes one of owner's expenses.
func (s *ExpenseService) Delete(ctx context.Context, owner model.Identity, id string) error {
	scoped, err := s.scope(owner)
	if err != nil {
		return err
	}

	if err := scoped.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrExpenseNotFound) {
			return ErrExpenseNotFound
		}
		return fmt.Errorf("delete expense: %w", err)
	}

	publish(ctx, s.publisher, events.New(events.ExpenseDeleted, id, owner.ID), expenseAttrs(owner.ID, id)...)
	return nil
}

func buildPatch(req model.UpdateExpenseRequest) (model.ExpensePatch, error) {
	var patch model.ExpensePatch

	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		if desc == "" {
			return patch, &ValidationError{Field: "description", Message: "cannot be empty"}
		}
		patch.Description = &desc
	}
	if req.Amount != nil {
		amount := *req.Amount
		patch.Amount = &amount
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return patch, &ValidationError{Field: "category", Message: "cannot be empty"}
		}
		patch.Category = &category
	}
	if req.Date != nil {
		date := req.Date.Time
		patch.Date = &date
	}
	if req.Notes != nil {
		notes := strings.TrimSpace(*req.Notes)
		patch.Notes = &notes
	}

	return patch, nil
}

func expenseAttrs(ownerID, expenseID string) []any {
	return []any{
		logging.FieldUserID, ownerID,
		logging.FieldExpenseID, expenseID,
	}
}
