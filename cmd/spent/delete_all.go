package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/spent/internal/cli"
	"github.com/Veraticus/spent/internal/viewmodel"
	"github.com/spf13/cobra"
)

func deleteAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Remove every expense",
		Long: `Remove every stored expense, including deleted ones.

This cannot be undone. Export the database first if you may need the data.`,
		Args: cobra.NoArgs,
		RunE: runDeleteAll,
	}

	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	return cmd
}

func runDeleteAll(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	yes, _ := cmd.Flags().GetBool("yes")

	if !yes {
		p := cli.NewPrompt(cmd.InOrStdin(), cmd.OutOrStdout())
		ok, err := p.Confirm(ctx, "Delete all expenses?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing deleted"))
			return nil
		}
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.listMachine(ctx, nil)
	if err != nil {
		return err
	}
	defer m.Close()

	m.DeleteAllExpenses(ctx)

	effect, err := awaitEffect(ctx, m)
	if err != nil {
		return err
	}
	if effect.Kind != viewmodel.AllDeletedSuccess {
		return errors.New("failed to delete all expenses")
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("All expenses deleted"))
	return nil
}
