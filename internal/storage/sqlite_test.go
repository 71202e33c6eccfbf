package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func testExpense(id string, date time.Time) model.Expense {
	return model.Expense{
		ID:       id,
		Title:    "Expense " + id,
		Amount:   decimal.RequireFromString("12.34"),
		Currency: model.CurrencyEUR,
		Category: model.CategoryGroceries,
		Date:     date,
	}
}

func assertSameExpense(t *testing.T, want, got model.Expense) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.True(t, want.Amount.Equal(got.Amount), "amount: want %s, got %s", want.Amount, got.Amount)
	assert.Equal(t, want.Currency, got.Currency)
	assert.Equal(t, want.Category, got.Category)
	assert.True(t, want.Date.Equal(got.Date), "date: want %v, got %v", want.Date, got.Date)
	if want.DeletionDate == nil {
		assert.Nil(t, got.DeletionDate)
	} else {
		require.NotNil(t, got.DeletionDate)
		assert.True(t, want.DeletionDate.Equal(*got.DeletionDate))
	}
}

// receive waits for the next value on ch.
func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestNewSQLiteStorage(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)

	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "spent.db")
	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.Equal(t, dbPath, store.Path())
	_, err = os.Stat(filepath.Dir(dbPath))
	assert.NoError(t, err, "database directory should be created")
}

func TestSQLiteStorage_SaveAndGetExpense(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	e := testExpense("exp-1", day(2024, time.January, 15))
	e.Currency = model.CurrencyHRK
	e.Amount = decimal.RequireFromString("0.10")
	require.NoError(t, store.SaveExpense(ctx, &e))

	got, err := store.GetExpenseByID(ctx, "exp-1")
	require.NoError(t, err)
	assertSameExpense(t, e, *got)

	// Saving the same id replaces the row in place.
	e.Title = "Renamed"
	e.Amount = decimal.RequireFromString("99.99")
	require.NoError(t, store.SaveExpense(ctx, &e))

	all, err := store.GetExpenses(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assertSameExpense(t, e, all[0])
}

func TestSQLiteStorage_SaveTombstone(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	e := testExpense("exp-1", day(2024, time.January, 15))
	require.NoError(t, store.SaveExpense(ctx, &e))

	dead := e.Tombstone(day(2024, time.January, 20))
	require.NoError(t, store.SaveExpense(ctx, &dead))

	got, err := store.GetExpenseByID(ctx, "exp-1")
	require.NoError(t, err)
	assertSameExpense(t, dead, *got)
	assert.False(t, got.IsVisible())

	// Tombstones stay physically present.
	all, err := store.GetExpenses(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStorage_GetExpenseByID_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetExpenseByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = store.GetExpenseByID(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStorage_GetExpenses_DateRange(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC)

	for _, e := range []model.Expense{
		testExpense("before", start.Add(-time.Millisecond)),
		testExpense("on-start", start),
		testExpense("mid", day(2024, time.January, 15)),
		testExpense("on-end", end),
		testExpense("after", day(2024, time.February, 1)),
	} {
		require.NoError(t, store.SaveExpense(ctx, &e))
	}

	got, err := store.GetExpenses(ctx, &model.DateRange{Start: start, End: end})
	require.NoError(t, err)

	var ids []string
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"on-start", "mid", "on-end"}, ids)

	_, err = store.GetExpenses(ctx, &model.DateRange{Start: end, End: start})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestSQLiteStorage_DeleteExpenses(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		e := testExpense(id, day(2024, time.March, 1))
		require.NoError(t, store.SaveExpense(ctx, &e))
	}
	dead := testExpense("c", day(2024, time.March, 1)).Tombstone(day(2024, time.March, 2))
	require.NoError(t, store.SaveExpense(ctx, &dead))

	require.NoError(t, store.DeleteExpenseByID(ctx, "a"))
	all, err := store.GetExpenses(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.DeleteAllExpenses(ctx))
	all, err = store.GetExpenses(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all, "truncate removes tombstones too")

	// Truncating an empty table is fine.
	require.NoError(t, store.DeleteAllExpenses(ctx))
}

func TestSQLiteStorage_SaveExpense_Invalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	e := testExpense("", day(2024, time.March, 1))
	assert.ErrorIs(t, store.SaveExpense(context.Background(), &e), ErrInvalidExpense)
	assert.ErrorIs(t, store.SaveExpense(context.Background(), nil), ErrNilParameter)
	//nolint:staticcheck // nil context is the point of the test
	assert.ErrorIs(t, store.SaveExpense(nil, &e), ErrNilContext)
}

func TestSQLiteStorage_WatchExpenses(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	sub, err := store.WatchExpenses(ctx, nil)
	require.NoError(t, err)
	defer sub.Close()

	assert.Empty(t, receive(t, sub.C()), "initial snapshot")

	e := testExpense("exp-1", day(2024, time.January, 15))
	require.NoError(t, store.SaveExpense(ctx, &e))

	snapshot := receive(t, sub.C())
	require.Len(t, snapshot, 1)
	assert.Equal(t, "exp-1", snapshot[0].ID)

	require.NoError(t, store.DeleteAllExpenses(ctx))
	assert.Empty(t, receive(t, sub.C()))
}

func TestSQLiteStorage_WatchExpenses_Range(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	jan := model.MonthRange(day(2024, time.January, 1))
	sub, err := store.WatchExpenses(ctx, &jan)
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, receive(t, sub.C()))

	feb := testExpense("feb", day(2024, time.February, 1))
	require.NoError(t, store.SaveExpense(ctx, &feb))
	assert.Empty(t, receive(t, sub.C()), "out-of-range writes still trigger a snapshot")

	mid := testExpense("jan", day(2024, time.January, 15))
	require.NoError(t, store.SaveExpense(ctx, &mid))
	snapshot := receive(t, sub.C())
	require.Len(t, snapshot, 1)
	assert.Equal(t, "jan", snapshot[0].ID)
}

func TestSQLiteStorage_WatchExpenses_EndsOnCancel(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := store.WatchExpenses(ctx, nil)
	require.NoError(t, err)
	receive(t, sub.C())

	cancel()
	select {
	case _, ok := <-sub.C():
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
	sub.Close()
}

func TestSQLiteStorage_WatchExpenses_EndsOnStorageClose(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	sub, err := store.WatchExpenses(context.Background(), nil)
	require.NoError(t, err)
	receive(t, sub.C())

	require.NoError(t, store.Close())

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription did not end after storage close")
		}
	}
}

func TestSQLiteStorage_SortMode(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	mode, err := store.GetSortMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SortByDateDescending, mode, "default")

	require.NoError(t, store.SaveSortMode(ctx, model.SortByDateAscending))
	mode, err = store.GetSortMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SortByDateAscending, mode)

	value, ok, err := store.GetPreference(ctx, KeySortMode)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ExpenseDateAscending", value)

	assert.ErrorIs(t, store.SaveSortMode(ctx, "ByAmount"), ErrInvalidSortMode)

	require.NoError(t, store.SetPreference(ctx, KeySortMode, "garbage"))
	mode, err = store.GetSortMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSortMode, mode, "unreadable value falls back to default")
}

func TestSQLiteStorage_WatchSortMode(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	sub, err := store.WatchSortMode(ctx)
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, model.SortByDateDescending, receive(t, sub.C()))

	require.NoError(t, store.SaveSortMode(ctx, model.SortByDateAscending))
	assert.Equal(t, model.SortByDateAscending, receive(t, sub.C()))
}

func TestSQLiteStorage_Checkpoint(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	e := testExpense("exp-1", day(2024, time.January, 15))
	require.NoError(t, store.SaveExpense(ctx, &e))
	require.NoError(t, store.Checkpoint(ctx))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
