package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/spent/internal/cli"
	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/tui"
	"github.com/Veraticus/spent/internal/viewmodel"
	"github.com/spf13/cobra"
)

// saveTimeout bounds how long a command waits for the form to close.
const saveTimeout = 10 * time.Second

// expenseFlags are the editable fields shared by add and edit.
type expenseFlags struct {
	title    string
	amount   string
	currency string
	category string
	date     string
}

func (f *expenseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "what the money was spent on")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "amount, with . or , as decimal separator")
	cmd.Flags().StringVarP(&f.currency, "currency", "c", "", "currency (EUR, HRK)")
	cmd.Flags().StringVar(&f.category, "category", "", "category ("+categoryNames()+")")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "date of the expense (YYYY-MM-DD)")
}

func categoryNames() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func addCmd() *cobra.Command {
	var flags expenseFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Long: `Record a new expense. Title and amount are required; currency and
category fall back to the configured defaults and the date to today.`,
		Example: `  spent add --title "Groceries" --amount 23,45 --category Groceries
  spent add -t Rent -a 450 -d 2024-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdd(cmd, &flags)
		},
	}
	flags.register(cmd)

	return cmd
}

func runAdd(cmd *cobra.Command, flags *expenseFlags) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m := viewmodel.NewDetailMachine(a.repo, nil)
	defer m.Close()

	draft := m.State().Draft
	draft.Currency = a.cfg.DefaultCurrency

	saved, err := editAndSave(ctx, cmd, m, draft, flags, a.cfg.ExportDateFormat)
	if err != nil {
		return err
	}

	printSaved(cmd.OutOrStdout(), "Added", saved)
	return nil
}

// editAndSave applies the flags that were set to draft, validates through the
// form and saves. Validation failures are returned as user errors.
func editAndSave(ctx context.Context, cmd *cobra.Command, m *viewmodel.DetailMachine, draft viewmodel.Draft, flags *expenseFlags, dateLayout string) (model.Expense, error) {
	changed := cmd.Flags().Changed

	if changed("title") {
		draft.Title = flags.title
	}
	if changed("currency") {
		c, err := model.ParseCurrency(flags.currency)
		if err != nil {
			return model.Expense{}, common.NewUserError("Unknown currency "+flags.currency, err)
		}
		draft.Currency = c
	}
	if changed("category") {
		c, err := model.ParseCategory(flags.category)
		if err != nil {
			return model.Expense{}, common.NewUserError("Unknown category "+flags.category, err)
		}
		draft.Category = c
	}
	if changed("date") {
		d, err := parseDate(flags.date, dateLayout)
		if err != nil {
			return model.Expense{}, common.NewUserError(err.Error(), err)
		}
		draft.Date = d
	}
	m.OnExpenseUpdated(draft)

	if changed("amount") && !m.OnAmountInput(flags.amount) {
		return model.Expense{}, common.NewUserError(
			fmt.Sprintf("Amount %q: use at most two decimals and one kind of separator", flags.amount), nil)
	}

	s := m.State()
	if !s.IsSaveEnabled {
		return model.Expense{}, validationError(s)
	}

	m.OnSaveButtonClicked(ctx)

	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	select {
	case <-m.Effects():
	case <-ctx.Done():
		return model.Expense{}, fmt.Errorf("waiting for save: %w", ctx.Err())
	}

	return m.State().Draft.ToExpense(), nil
}

func validationError(s viewmodel.DetailState) error {
	var problems []string
	if s.TitleError == viewmodel.TitleEmpty {
		problems = append(problems, "title is required")
	}
	switch s.AmountError {
	case viewmodel.AmountEmpty:
		problems = append(problems, "amount is required")
	case viewmodel.AmountTooLow:
		problems = append(problems, "amount must be greater than zero")
	case viewmodel.AmountInvalidFormat:
		problems = append(problems, "amount is not a number")
	}
	if !viewmodel.ValidateDate(s.Draft.Date) {
		problems = append(problems, "date is required")
	}
	if len(problems) == 0 {
		problems = append(problems, "expense is incomplete")
	}

	return common.NewUserError("Cannot save expense: "+strings.Join(problems, ", "), nil)
}

func printSaved(w io.Writer, verb string, e model.Expense) {
	fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("%s %s: %s on %s",
		verb,
		e.Title,
		tui.FormatAmount(e.Amount, e.Currency),
		e.Date.Format("02.01.2006"))))
	fmt.Fprintln(w, cli.SubtleStyle.Render("id "+e.ID))
}
