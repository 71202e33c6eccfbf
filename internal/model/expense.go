package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency identifies the currency an expense was paid in.
type Currency string

const (
	// CurrencyEUR is the euro.
	CurrencyEUR Currency = "EUR"
	// CurrencyHRK is the Croatian kuna.
	CurrencyHRK Currency = "HRK"
)

// DefaultCurrency is assigned to new drafts.
const DefaultCurrency = CurrencyEUR

// Currencies lists every supported currency in display order.
var Currencies = []Currency{CurrencyEUR, CurrencyHRK}

// ParseCurrency converts a currency code into a Currency.
func ParseCurrency(s string) (Currency, error) {
	for _, c := range Currencies {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown currency %q", s)
}

// Category is the closed set of expense categories.
type Category string

// Expense categories.
const (
	CategoryRent            Category = "Rent"
	CategoryUtilities       Category = "Utilities"
	CategoryGroceries       Category = "Groceries"
	CategoryPharmacy        Category = "Pharmacy"
	CategoryRestaurants     Category = "Restaurants"
	CategoryEntertainment   Category = "Entertainment"
	CategoryTravel          Category = "Travel"
	CategoryCar             Category = "Car"
	CategoryMedicalExpenses Category = "MedicalExpenses"
	CategoryClothing        Category = "Clothing"
	CategoryGrooming        Category = "Grooming"
	CategoryGifts           Category = "Gifts"
	CategoryOther           Category = "Other"
)

// DefaultCategory is assigned to new drafts.
const DefaultCategory = CategoryOther

// Categories lists every category in display order.
var Categories = []Category{
	CategoryRent,
	CategoryUtilities,
	CategoryGroceries,
	CategoryPharmacy,
	CategoryRestaurants,
	CategoryEntertainment,
	CategoryTravel,
	CategoryCar,
	CategoryMedicalExpenses,
	CategoryClothing,
	CategoryGrooming,
	CategoryGifts,
	CategoryOther,
}

// ParseCategory converts a category name into a Category, ignoring case.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Expense is a single recorded expense.
type Expense struct {
	Date         time.Time
	DeletionDate *time.Time
	Amount       decimal.Decimal
	ID           string
	Title        string
	Currency     Currency
	Category     Category
}

// DatePrecision is the resolution at which expense dates are stored.
const DatePrecision = time.Millisecond

// NewExpense returns a blank expense with a fresh id, the default currency and
// category, and the given occurrence date cut to DatePrecision.
func NewExpense(now time.Time) Expense {
	return Expense{
		ID:       uuid.NewString(),
		Currency: DefaultCurrency,
		Category: DefaultCategory,
		Date:     now.Truncate(DatePrecision),
	}
}

// Lifecycle returns the soft-delete state of the expense.
func (e Expense) Lifecycle() Lifecycle {
	if e.DeletionDate == nil {
		return Lifecycle{}
	}
	return Lifecycle{deletedAt: *e.DeletionDate, deleted: true}
}

// IsVisible reports whether the expense should appear in user-facing views.
func (e Expense) IsVisible() bool {
	return !e.Lifecycle().IsDeleted()
}

// Tombstone returns a copy of the expense marked as deleted at the given time.
func (e Expense) Tombstone(at time.Time) Expense {
	at = at.Truncate(DatePrecision)
	e.DeletionDate = &at
	return e
}

// Lifecycle is either active or deleted at a point in time.
type Lifecycle struct {
	deletedAt time.Time
	deleted   bool
}

// IsDeleted reports whether the lifecycle is in the deleted state.
func (l Lifecycle) IsDeleted() bool {
	return l.deleted
}

// DeletedAt returns the deletion time and whether the expense is deleted.
func (l Lifecycle) DeletedAt() (time.Time, bool) {
	return l.deletedAt, l.deleted
}

func (l Lifecycle) String() string {
	if !l.deleted {
		return "active"
	}
	return "deleted at " + l.deletedAt.Format(time.RFC3339)
}
