// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/spent/internal/model"
)

// Subscription is a live query. It delivers a fresh snapshot every time the
// underlying data changes, starting with the current one. C is closed once the
// subscription ends.
type Subscription[T any] interface {
	C() <-chan T
	Close()
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	ExpenseStore
	PreferenceStore

	Migrate(ctx context.Context) error
	Close() error
}

// ExpenseStore is the expense half of the persistence gateway.
type ExpenseStore interface {
	// Queries. A nil range means every row.
	WatchExpenses(ctx context.Context, dateRange *model.DateRange) (Subscription[[]model.Expense], error)
	GetExpenses(ctx context.Context, dateRange *model.DateRange) ([]model.Expense, error)
	GetExpenseByID(ctx context.Context, id string) (*model.Expense, error)

	// Mutations
	SaveExpense(ctx context.Context, expense *model.Expense) error
	DeleteExpenseByID(ctx context.Context, id string) error
	DeleteAllExpenses(ctx context.Context) error
}

// PreferenceStore persists user preferences.
type PreferenceStore interface {
	GetSortMode(ctx context.Context) (model.SortMode, error)
	SaveSortMode(ctx context.Context, mode model.SortMode) error
	WatchSortMode(ctx context.Context) (Subscription[model.SortMode], error)
}

// DatabaseFile exposes the raw database file for byte-level export.
type DatabaseFile interface {
	// Checkpoint flushes pending writes into the main database file.
	Checkpoint(ctx context.Context) error
	Path() string
}

// ExportFormat selects the artifact produced by an export.
type ExportFormat string

const (
	// ExportCSV writes visible expenses as comma separated text.
	ExportCSV ExportFormat = "csv"
	// ExportDB copies the raw database file.
	ExportDB ExportFormat = "db"
)

// Exporter writes exports and returns the path of the produced file.
type Exporter interface {
	Export(ctx context.Context, format ExportFormat) (string, error)
}
