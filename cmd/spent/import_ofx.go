package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/Veraticus/spent/internal/cli"
	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/ofx"
	"github.com/Veraticus/spent/internal/tui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import expenses from OFX/QFX files",
		Long: `Import debits from OFX or QFX (Quicken) statements exported from your bank.

Credits are skipped. Importing the same statement twice updates the expenses
from the first import instead of adding duplicates.`,
		Example: `  # Import single file
  spent import-ofx ~/Downloads/statement_2024_03.ofx

  # Import all QFX files in a directory
  spent import-ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "n", false, "preview import without saving")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out := cmd.OutOrStdout()

	files, err := expandFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	parser := ofx.NewParser(a.cfg.DefaultCurrency)
	seen := make(map[string]bool)
	var expenses []model.Expense
	skipped := 0

	for _, path := range files {
		stmt, err := parseStatement(cmd, parser, path)
		if err != nil {
			common.LogError(err, "Failed to parse OFX file", common.Fields{"file": path})
			continue
		}

		added := 0
		for _, e := range stmt.Expenses {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			expenses = append(expenses, e)
			added++
		}
		skipped += stmt.Skipped

		fmt.Fprintf(out, "  %s %s: %d expenses, %d duplicates, %d skipped\n",
			cli.FolderIcon, filepath.Base(path), added, len(stmt.Expenses)-added, stmt.Skipped)
	}

	if len(expenses) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("No expenses found"))
		return nil
	}

	printImportSummary(cmd, expenses)

	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run, nothing saved"))
		return nil
	}

	for _, e := range expenses {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.repo.Add(ctx, e); err != nil {
			return fmt.Errorf("failed to save expense %s: %w", e.ID, err)
		}
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d expenses (%d credits skipped)", len(expenses), skipped)))
	return nil
}

func parseStatement(cmd *cobra.Command, parser *ofx.Parser, path string) (*ofx.Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parser.ParseFile(cmd.Context(), f)
}

// expandFiles resolves glob patterns. A pattern without matches is kept when it
// names an existing file.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}
	return files, nil
}

func printImportSummary(cmd *cobra.Command, expenses []model.Expense) {
	out := cmd.OutOrStdout()

	oldest, newest := expenses[0].Date, expenses[0].Date
	totals := make(map[model.Currency]decimal.Decimal)
	for _, e := range expenses {
		if e.Date.Before(oldest) {
			oldest = e.Date
		}
		if e.Date.After(newest) {
			newest = e.Date
		}
		totals[e.Currency] = totals[e.Currency].Add(e.Amount)
	}

	fmt.Fprintln(out, "\n"+cli.FormatTitle("Import summary"))
	fmt.Fprintf(out, "📅 %s to %s\n", oldest.Format("02.01.2006"), newest.Format("02.01.2006"))
	fmt.Fprintf(out, "💰 %s\n", tui.FormatTotals(totals))

	sample := make([]model.Expense, len(expenses))
	copy(sample, expenses)
	sort.SliceStable(sample, func(i, j int) bool { return sample[i].Date.After(sample[j].Date) })
	if len(sample) > 5 {
		sample = sample[:5]
	}

	fmt.Fprintln(out, "\n📝 Latest expenses:")
	for _, e := range sample {
		fmt.Fprintf(out, "  %s  %-28s %s\n",
			e.Date.Format("02.01.2006"), e.Title, tui.FormatAmount(e.Amount, e.Currency))
	}
	fmt.Fprintln(out)
}
