package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SortMode controls the order of the expense list.
type SortMode string

const (
	// SortByDateDescending lists newest expenses first.
	SortByDateDescending SortMode = "ExpenseDateDescending"
	// SortByDateAscending lists oldest expenses first.
	SortByDateAscending SortMode = "ExpenseDateAscending"
)

// DefaultSortMode is used until the user picks one.
const DefaultSortMode = SortByDateDescending

// ParseSortMode converts a stored or user-supplied value into a SortMode.
// The short forms "desc" and "asc" are accepted as well.
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case strings.ToLower(string(SortByDateDescending)), "desc", "descending":
		return SortByDateDescending, nil
	case strings.ToLower(string(SortByDateAscending)), "asc", "ascending":
		return SortByDateAscending, nil
	}
	return "", fmt.Errorf("unknown sort mode %q", s)
}

// Toggle returns the opposite sort mode.
func (m SortMode) Toggle() SortMode {
	if m == SortByDateAscending {
		return SortByDateDescending
	}
	return SortByDateAscending
}

// SortExpenses sorts expenses in place by date. Expenses with equal dates keep
// their relative order.
func SortExpenses(expenses []Expense, mode SortMode) {
	slices.SortStableFunc(expenses, func(a, b Expense) int {
		c := a.Date.Compare(b.Date)
		if mode == SortByDateAscending {
			return c
		}
		return -c
	})
}

// ErrInvalidDateRange is returned when a range ends before it starts.
var ErrInvalidDateRange = errors.New("date range ends before it starts")

// DateRange is an inclusive interval used to filter expenses by date.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates and builds a DateRange.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange,
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return DateRange{Start: start, End: end}, nil
}

// MonthRange returns the range covering the whole calendar month containing t.
func MonthRange(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return DateRange{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Millisecond)}
}

// Contains reports whether t falls within the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// MonthGroup is a run of consecutive expenses sharing a calendar month.
type MonthGroup struct {
	Totals   map[Currency]decimal.Decimal
	Title    string
	Expenses []Expense
	Year     int
	Month    time.Month
}

// Total returns the summed amount for a currency within the group.
func (g MonthGroup) Total(c Currency) decimal.Decimal {
	return g.Totals[c]
}

// GroupByMonth splits an already sorted list into month groups. A new group is
// started whenever the month changes between neighbours, so the group order
// follows the list order.
func GroupByMonth(expenses []Expense) []MonthGroup {
	var groups []MonthGroup
	for _, e := range expenses {
		y, m, _ := e.Date.Date()
		if n := len(groups); n == 0 || groups[n-1].Year != y || groups[n-1].Month != m {
			groups = append(groups, MonthGroup{
				Title:  fmt.Sprintf("%s %d", strings.ToUpper(m.String()), y),
				Year:   y,
				Month:  m,
				Totals: make(map[Currency]decimal.Decimal),
			})
		}
		g := &groups[len(groups)-1]
		g.Expenses = append(g.Expenses, e)
		g.Totals[e.Currency] = g.Totals[e.Currency].Add(e.Amount)
	}
	return groups
}
