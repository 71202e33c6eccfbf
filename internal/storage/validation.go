// Package storage provides the data persistence layer for the spent application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spent/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidExpense   = errors.New("invalid expense")
	ErrInvalidSortMode  = errors.New("invalid sort mode")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateDateRange(r *model.DateRange) error {
	if r != nil && r.End.Before(r.Start) {
		return fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, r.End, r.Start)
	}
	return nil
}

// validateExpense checks the row-level constraints of the expenses table.
// Field-level rules such as a non-blank title belong to the editing flow.
func validateExpense(e *model.Expense) error {
	if e == nil {
		return fmt.Errorf("%w: expense", ErrNilParameter)
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidExpense)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidExpense)
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidExpense, e.Amount)
	}
	if _, err := model.ParseCurrency(string(e.Currency)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExpense, err)
	}
	if _, err := model.ParseCategory(string(e.Category)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExpense, err)
	}
	return nil
}

func validateSortMode(m model.SortMode) error {
	if m != model.SortByDateAscending && m != model.SortByDateDescending {
		return fmt.Errorf("%w: %q", ErrInvalidSortMode, m)
	}
	return nil
}
