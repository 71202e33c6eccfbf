// Package repository adapts expense use cases onto the persistence gateway.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/service"
)

// Repository translates expense operations into storage calls and owns the
// soft-delete policy.
type Repository struct {
	store service.ExpenseStore
	now   func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces the clock used for deletion timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New creates a repository on top of store.
func New(store service.ExpenseStore, opts ...Option) *Repository {
	r := &Repository{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchAll opens a live query over stored expenses. A nil range means every
// expense.
func (r *Repository) FetchAll(ctx context.Context, dateRange *model.DateRange) (service.Subscription[[]model.Expense], error) {
	return r.store.WatchExpenses(ctx, dateRange)
}

// Get returns a single expense by id.
func (r *Repository) Get(ctx context.Context, id string) (*model.Expense, error) {
	return r.store.GetExpenseByID(ctx, id)
}

// Add inserts the expense or replaces the stored one with the same id.
func (r *Repository) Add(ctx context.Context, expense model.Expense) error {
	return r.store.SaveExpense(ctx, &expense)
}

// Delete soft-deletes an expense by writing a tombstone copy, then reads the
// row back. It reports true only when the row exists and is no longer visible.
// Deleting an id that is not stored reports false without writing anything.
func (r *Repository) Delete(ctx context.Context, expense model.Expense) (bool, error) {
	if _, err := r.store.GetExpenseByID(ctx, expense.ID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			slog.Info("Expense to delete is not stored", "id", expense.ID)
			return false, nil
		}
		return false, fmt.Errorf("failed to look up expense: %w", err)
	}

	tombstone := expense.Tombstone(r.now())
	if err := r.store.SaveExpense(ctx, &tombstone); err != nil {
		return false, err
	}

	stored, err := r.store.GetExpenseByID(ctx, expense.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to confirm deletion: %w", err)
	}
	return !stored.IsVisible(), nil
}

// DeleteAll truncates storage and reports whether a follow-up read is empty.
func (r *Repository) DeleteAll(ctx context.Context) (bool, error) {
	if err := r.store.DeleteAllExpenses(ctx); err != nil {
		return false, err
	}

	remaining, err := r.store.GetExpenses(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to confirm deletion: %w", err)
	}
	return len(remaining) == 0, nil
}
