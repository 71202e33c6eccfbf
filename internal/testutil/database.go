// Package testutil provides test utilities for the spent project.
// It offers isolated, migrated databases and expense fixtures.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/storage"
	"github.com/shopspring/decimal"
)

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	store := testutil.SetupTestDB(t)
//	testutil.SeedExpenses(t, store, testutil.NewExpense("rent", "Rent", "450.00", jan15))
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	return setup(t, ":memory:")
}

// SetupFileDB creates a migrated database backed by a file in a temporary
// directory, for tests that need the file on disk.
func SetupFileDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	return setup(t, filepath.Join(t.TempDir(), "spent.db"))
}

func setup(t *testing.T, path string) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	return store
}

// SeedExpenses saves each expense, failing the test on the first error.
func SeedExpenses(t *testing.T, store *storage.SQLiteStorage, expenses ...model.Expense) {
	t.Helper()

	ctx := context.Background()
	for _, e := range expenses {
		if err := store.SaveExpense(ctx, &e); err != nil {
			t.Fatalf("failed to seed expense %q: %v", e.ID, err)
		}
	}
}

// NewExpense builds an active EUR expense in the Other category.
func NewExpense(id, title, amount string, date time.Time) model.Expense {
	return model.Expense{
		ID:       id,
		Title:    title,
		Amount:   decimal.RequireFromString(amount),
		Currency: model.CurrencyEUR,
		Category: model.CategoryOther,
		Date:     date,
	}
}

// Date returns noon UTC on the given day, a millisecond-exact instant that
// survives a round trip through storage.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}
