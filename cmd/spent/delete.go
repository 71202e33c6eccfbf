package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/spent/internal/cli"
	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/viewmodel"
	"github.com/spf13/cobra"
)

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete an expense",
		Long:    `Mark an expense as deleted. It disappears from lists and CSV exports.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0])
		},
	}
}

func runDelete(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	expense, err := a.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError("No expense with id "+id, err)
		}
		return err
	}
	if !expense.IsVisible() {
		return common.NewUserError("Expense "+id+" is already deleted", common.ErrNotFound)
	}

	m, err := a.listMachine(ctx, nil)
	if err != nil {
		return err
	}
	defer m.Close()

	m.DeleteExpense(ctx, *expense)

	effect, err := awaitEffect(ctx, m)
	if err != nil {
		return err
	}
	if effect.Kind != viewmodel.DeletedSuccess {
		return fmt.Errorf("failed to delete expense %s", id)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted "+expense.Title))
	return nil
}
