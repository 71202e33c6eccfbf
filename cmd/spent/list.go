package main

import (
	"fmt"
	"io"
	"time"

	"github.com/Veraticus/spent/internal/cli"
	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/tui"
	"github.com/Veraticus/spent/internal/viewmodel"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show expenses grouped by month",
		Long: `Show recorded expenses grouped by month with per-currency totals.

The stored sort order is used unless --sort is given; --sort only affects
this listing. Use "spent sort" to change the stored order.`,
		Example: `  spent list
  spent list --month 2024-03
  spent list --from 2024-01-01 --to 2024-03-31 --sort asc`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().String("month", "", "only show this month (YYYY-MM)")
	cmd.Flags().String("from", "", "only show expenses on or after this date")
	cmd.Flags().String("to", "", "only show expenses on or before this date")
	cmd.Flags().String("sort", "", "order for this listing (asc, desc)")
	cmd.MarkFlagsMutuallyExclusive("month", "from")
	cmd.MarkFlagsMutuallyExclusive("month", "to")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	dateRange, err := rangeFromFlags(cmd, a.cfg.ExportDateFormat)
	if err != nil {
		return err
	}

	var mode model.SortMode
	if s, _ := cmd.Flags().GetString("sort"); s != "" {
		mode, err = model.ParseSortMode(s)
		if err != nil {
			return common.NewUserError("Sort must be asc or desc", err)
		}
	}

	m, err := a.listMachine(ctx, nil)
	if err != nil {
		return err
	}
	defer m.Close()

	if dateRange != nil {
		if err := m.UpdateDateRange(*dateRange); err != nil {
			return err
		}
	}

	state, err := awaitState(ctx, m, func(s viewmodel.ListState) bool {
		return !s.IsLoading && s.IsFilterEnabled == (dateRange != nil)
	})
	if err != nil {
		return err
	}

	expenses := state.Expenses
	if mode != "" && mode != state.SortMode {
		expenses = viewmodel.DeriveExpenses(expenses, mode, nil)
	}

	printExpenses(cmd.OutOrStdout(), model.GroupByMonth(expenses))
	return nil
}

// rangeFromFlags builds the filter from --month or --from/--to. A missing
// bound is left open.
func rangeFromFlags(cmd *cobra.Command, layout string) (*model.DateRange, error) {
	month, _ := cmd.Flags().GetString("month")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	if month != "" {
		t, err := time.ParseInLocation("2006-01", month, time.Local)
		if err != nil {
			return nil, common.NewUserError("Month must look like 2024-03", err)
		}
		r := model.MonthRange(t)
		return &r, nil
	}
	if from == "" && to == "" {
		return nil, nil
	}

	start := time.Time{}
	end := time.Date(9999, time.December, 31, 0, 0, 0, 0, time.Local)
	if from != "" {
		t, err := parseDate(from, layout)
		if err != nil {
			return nil, common.NewUserError(err.Error(), err)
		}
		start = t
	}
	if to != "" {
		t, err := parseDate(to, layout)
		if err != nil {
			return nil, common.NewUserError(err.Error(), err)
		}
		// inclusive of the whole last day
		end = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}

	r, err := model.NewDateRange(start, end)
	if err != nil {
		return nil, common.NewUserError("--to is before --from", err)
	}
	return &r, nil
}

func printExpenses(w io.Writer, groups []model.MonthGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, cli.FormatInfo("No expenses"))
		return
	}

	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s\n",
			cli.MonthStyle.Render(g.Title),
			cli.SubtleStyle.Render(tui.FormatTotals(g.Totals)))

		for _, e := range g.Expenses {
			fmt.Fprintf(w, "  %s  %-24s %14s  %-14s %s\n",
				e.Date.Format("02.01."),
				e.Title,
				tui.FormatAmount(e.Amount, e.Currency),
				e.Category,
				cli.SubtleStyle.Render(e.ID))
		}
	}
}
