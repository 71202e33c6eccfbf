package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statementOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>EUR
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240128120000[0:GMT]
<TRNAMT>1500.00
<FITID>2024012801
<NAME>PAYROLL
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

// testEnv is an isolated home directory with its own database.
type testEnv struct {
	home   string
	dbPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return &testEnv{home: home, dbPath: filepath.Join(home, "spent.db")}
}

// run executes the root command with args and returns what it printed.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--db", e.dbPath, "--log-level", "error"))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func (e *testEnv) stored(t *testing.T) []model.Expense {
	t.Helper()
	store, err := storage.NewSQLiteStorage(e.dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	expenses, err := store.GetExpenses(context.Background(), nil)
	require.NoError(t, err)
	return expenses
}

func (e *testEnv) find(t *testing.T, title string) model.Expense {
	t.Helper()
	for _, exp := range e.stored(t) {
		if exp.Title == title {
			return exp
		}
	}
	t.Fatalf("expense %q not stored", title)
	return model.Expense{}
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "version")
	assert.Equal(t, "spent dev\n", out)
}

func TestAddCommand(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "add", "--title", "Coffee", "--amount", "3,50",
		"--category", "restaurants", "--date", "2024-03-05")
	assert.Contains(t, out, "Added Coffee")

	coffee := env.find(t, "Coffee")
	assert.True(t, decimal.RequireFromString("3.50").Equal(coffee.Amount))
	assert.Equal(t, model.CurrencyEUR, coffee.Currency)
	assert.Equal(t, model.CategoryRestaurants, coffee.Category)
	assert.Equal(t, "2024-03-05", coffee.Date.Format("2006-01-02"))
	assert.True(t, coffee.IsVisible())
	assert.Contains(t, out, coffee.ID)
}

func TestAddCommand_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{
			name:    "missing title",
			args:    []string{"--amount", "10"},
			message: "title is required",
		},
		{
			name:    "missing amount",
			args:    []string{"--title", "Lunch"},
			message: "amount is required",
		},
		{
			name:    "zero amount",
			args:    []string{"--title", "Lunch", "--amount", "0"},
			message: "greater than zero",
		},
		{
			name:    "too many decimals",
			args:    []string{"--title", "Lunch", "--amount", "12.345"},
			message: "at most two decimals",
		},
		{
			name:    "unknown currency",
			args:    []string{"--title", "Lunch", "--amount", "1", "--currency", "USD"},
			message: "Unknown currency",
		},
		{
			name:    "bad date",
			args:    []string{"--title", "Lunch", "--amount", "1", "--date", "yesterday"},
			message: "invalid date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.run(t, "", append([]string{"add"}, tt.args...)...)
			require.Error(t, err)

			var userErr *common.UserError
			require.ErrorAs(t, err, &userErr)
			assert.Contains(t, userErr.UserMessage, tt.message)
			assert.Empty(t, env.stored(t))
		})
	}
}

func TestEditCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "-t", "Rent", "-a", "450", "-d", "2024-03-01", "--currency", "hrk")
	rent := env.find(t, "Rent")

	out := env.mustRun(t, "edit", rent.ID, "--amount", "475.25")
	assert.Contains(t, out, "Updated Rent")

	edited := env.find(t, "Rent")
	assert.Equal(t, rent.ID, edited.ID)
	assert.True(t, decimal.RequireFromString("475.25").Equal(edited.Amount))
	assert.Equal(t, model.CurrencyHRK, edited.Currency)
	assert.True(t, rent.Date.Equal(edited.Date))
	assert.Len(t, env.stored(t), 1)
}

func TestEditCommand_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "edit", "missing", "--amount", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "-t", "Coffee", "-a", "3,50", "-d", "2024-03-05")
	env.mustRun(t, "add", "-t", "Groceries", "-a", "20", "-d", "2024-03-20")
	env.mustRun(t, "add", "-t", "Rent", "-a", "450", "-d", "2024-02-01")

	t.Run("all months newest first", func(t *testing.T) {
		out := env.mustRun(t, "list")
		assert.Contains(t, out, "MARCH 2024")
		assert.Contains(t, out, "FEBRUARY 2024")
		assert.Less(t, strings.Index(out, "Groceries"), strings.Index(out, "Coffee"))
		assert.Less(t, strings.Index(out, "Coffee"), strings.Index(out, "Rent"))
	})

	t.Run("one month", func(t *testing.T) {
		out := env.mustRun(t, "list", "--month", "2024-03")
		assert.Contains(t, out, "Coffee")
		assert.Contains(t, out, "Groceries")
		assert.NotContains(t, out, "Rent")
	})

	t.Run("date range", func(t *testing.T) {
		out := env.mustRun(t, "list", "--from", "2024-02-01", "--to", "2024-03-05")
		assert.Contains(t, out, "Rent")
		assert.Contains(t, out, "Coffee")
		assert.NotContains(t, out, "Groceries")
	})

	t.Run("ascending for this listing only", func(t *testing.T) {
		out := env.mustRun(t, "list", "--sort", "asc")
		assert.Less(t, strings.Index(out, "Rent"), strings.Index(out, "Coffee"))

		assert.Equal(t, "newest first\n", env.mustRun(t, "sort"))
	})

	t.Run("empty month", func(t *testing.T) {
		out := env.mustRun(t, "list", "--month", "2023-01")
		assert.Contains(t, out, "No expenses")
	})

	t.Run("invalid month", func(t *testing.T) {
		_, err := env.run(t, "", "list", "--month", "March")
		require.Error(t, err)
	})
}

func TestDeleteCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "-t", "Coffee", "-a", "3", "-d", "2024-03-05")
	coffee := env.find(t, "Coffee")

	out := env.mustRun(t, "delete", coffee.ID)
	assert.Contains(t, out, "Deleted Coffee")

	deleted := env.find(t, "Coffee")
	assert.False(t, deleted.IsVisible())
	assert.NotContains(t, env.mustRun(t, "list"), "Coffee")

	_, err := env.run(t, "", "delete", coffee.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteCommand_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "delete", "missing")
	require.Error(t, err)

	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.UserMessage, "missing")
}

func TestDeleteAllCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "-t", "Coffee", "-a", "3")
	env.mustRun(t, "add", "-t", "Rent", "-a", "450")

	out, err := env.run(t, "n\n", "delete-all")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing deleted")
	assert.Len(t, env.stored(t), 2)

	out, err = env.run(t, "y\n", "delete-all")
	require.NoError(t, err)
	assert.Contains(t, out, "All expenses deleted")
	assert.Empty(t, env.stored(t))

	env.mustRun(t, "add", "-t", "Tea", "-a", "2")
	env.mustRun(t, "delete-all", "--yes")
	assert.Empty(t, env.stored(t))
}

func TestSortCommand(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, "newest first\n", env.mustRun(t, "sort"))

	env.mustRun(t, "sort", "asc")
	assert.Equal(t, "oldest first\n", env.mustRun(t, "sort"))

	env.mustRun(t, "sort", "toggle")
	assert.Equal(t, "newest first\n", env.mustRun(t, "sort"))

	_, err := env.run(t, "", "sort", "sideways")
	require.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "-t", "Coffee", "-a", "3,50", "-d", "2024-03-05")
	dir := t.TempDir()

	out := env.mustRun(t, "export", "csv", "--dir", dir, "--quiet")
	assert.Contains(t, out, "Exported to")

	matches, err := filepath.Glob(filepath.Join(dir, "expenses_*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	content, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), `Coffee, "3,50", EUR`)

	env.mustRun(t, "export", "db", "--dir", dir, "--quiet")
	matches, err = filepath.Glob(filepath.Join(dir, "expenses_*.db"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = env.run(t, "", "export", "pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownFormat)
}

func TestImportOFXCommand(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "statement.ofx")
	require.NoError(t, os.WriteFile(path, []byte(statementOFX), 0o600))

	out := env.mustRun(t, "import-ofx", "--dry-run", path)
	assert.Contains(t, out, "2 expenses")
	assert.Contains(t, out, "Dry run")
	assert.Empty(t, env.stored(t))

	out = env.mustRun(t, "import-ofx", path)
	assert.Contains(t, out, "Imported 2 expenses (1 credits skipped)")
	require.Len(t, env.stored(t), 2)

	// a second import of the same statement replaces rather than duplicates
	env.mustRun(t, "import-ofx", path)
	assert.Len(t, env.stored(t), 2)

	_, err := env.run(t, "", "import-ofx", filepath.Join(t.TempDir(), "*.qfx"))
	require.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "migrate", "--status")
	assert.Contains(t, out, "Current version: 0")

	env.mustRun(t, "migrate")

	out = env.mustRun(t, "migrate", "--status")
	assert.Contains(t, out, "Current version: 2")
}
