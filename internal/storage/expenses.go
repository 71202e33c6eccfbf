package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/service"
	"github.com/shopspring/decimal"
)

const expenseColumns = `expenseId, expenseTitle, expenseAmount, expenseCurrency,
	expenseCategory, expenseDate, deletionDate`

// WatchExpenses opens a live query over the expenses table, optionally limited
// to a date range. Soft-deleted rows are included; callers decide visibility.
func (s *SQLiteStorage) WatchExpenses(ctx context.Context, dateRange *model.DateRange) (service.Subscription[[]model.Expense], error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(dateRange); err != nil {
		return nil, err
	}

	return watch(ctx, s.feed, topicExpenses, []model.Expense{}, func(ctx context.Context) ([]model.Expense, error) {
		return s.getExpensesTx(ctx, s.db, dateRange)
	}), nil
}

// GetExpenses returns the current rows, optionally limited to a date range.
func (s *SQLiteStorage) GetExpenses(ctx context.Context, dateRange *model.DateRange) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(dateRange); err != nil {
		return nil, err
	}
	return s.getExpensesTx(ctx, s.db, dateRange)
}

func (s *SQLiteStorage) getExpensesTx(ctx context.Context, q queryable, dateRange *model.DateRange) ([]model.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses`
	var args []any
	if dateRange != nil {
		query += ` WHERE expenseDate BETWEEN ? AND ?`
		args = append(args, dateRange.Start.UnixMilli(), dateRange.End.UnixMilli())
	}
	query += ` ORDER BY rowid`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	expenses := []model.Expense{}
	for rows.Next() {
		e, scanErr := scanExpense(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

// GetExpenseByID returns a single row, soft-deleted or not.
func (s *SQLiteStorage) GetExpenseByID(ctx context.Context, id string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE expenseId = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SaveExpense inserts the expense or replaces the row with the same id.
func (s *SQLiteStorage) SaveExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}

	var deletion sql.NullInt64
	if expense.DeletionDate != nil {
		deletion = sql.NullInt64{Int64: expense.DeletionDate.UnixMilli(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.Title,
		expense.Amount.InexactFloat64(),
		string(expense.Currency),
		string(expense.Category),
		expense.Date.UnixMilli(),
		deletion,
	)
	if err != nil {
		return fmt.Errorf("failed to save expense %s: %w", expense.ID, err)
	}

	s.feed.publish(topicExpenses)
	slog.Debug("Saved expense", "id", expense.ID, "deleted", expense.DeletionDate != nil)
	return nil
}

// DeleteExpenseByID physically removes one row.
func (s *SQLiteStorage) DeleteExpenseByID(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE expenseId = ?`, id); err != nil {
		return fmt.Errorf("failed to delete expense %s: %w", id, err)
	}

	s.feed.publish(topicExpenses)
	return nil
}

// DeleteAllExpenses truncates the expenses table, tombstones included.
func (s *SQLiteStorage) DeleteAllExpenses(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM expenses`)
	if err != nil {
		return fmt.Errorf("failed to delete expenses: %w", err)
	}

	s.feed.publish(topicExpenses)
	if n, rowsErr := result.RowsAffected(); rowsErr == nil {
		slog.Info("Deleted all expenses", "rows", n)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (model.Expense, error) {
	var (
		e        model.Expense
		amount   float64
		currency string
		category string
		dateMS   int64
		deletion sql.NullInt64
	)

	if err := row.Scan(&e.ID, &e.Title, &amount, &currency, &category, &dateMS, &deletion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan expense: %w", err)
	}

	e.Amount = decimal.NewFromFloat(amount).Round(2)
	e.Currency = model.Currency(currency)
	e.Category = model.Category(category)
	e.Date = time.UnixMilli(dateMS)
	if deletion.Valid {
		at := time.UnixMilli(deletion.Int64)
		e.DeletionDate = &at
	}
	return e, nil
}
