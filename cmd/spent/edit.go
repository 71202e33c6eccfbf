package main

import (
	"errors"

	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/viewmodel"
	"github.com/spf13/cobra"
)

func editCmd() *cobra.Command {
	var flags expenseFlags

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change an existing expense",
		Long:  `Change the fields given as flags; everything else keeps its stored value.`,
		Example: `  spent edit 3f2c... --amount 24,10
  spent edit 3f2c... --category Restaurants --date 2024-03-02`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, args[0], &flags)
		},
	}
	flags.register(cmd)

	return cmd
}

func runEdit(cmd *cobra.Command, id string, flags *expenseFlags) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	existing, err := a.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError("No expense with id "+id, err)
		}
		return err
	}
	if !existing.IsVisible() {
		return common.NewUserError("Expense "+id+" was deleted", common.ErrNotFound)
	}

	m := viewmodel.NewDetailMachine(a.repo, existing)
	defer m.Close()

	saved, err := editAndSave(ctx, cmd, m, m.State().Draft, flags, a.cfg.ExportDateFormat)
	if err != nil {
		return err
	}

	printSaved(cmd.OutOrStdout(), "Updated", saved)
	return nil
}
