package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spent/internal/cli"
	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/spf13/cobra"
)

func sortCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sort [asc|desc|toggle]",
		Short:     "Show or change the stored list order",
		Long:      `Without an argument, print the stored order. With one, store a new order.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"asc", "desc", "toggle"},
		RunE:      runSort,
	}
}

func runSort(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	current, err := a.store.GetSortMode(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), describeSortMode(current))
		return nil
	}

	mode := current.Toggle()
	if !strings.EqualFold(args[0], "toggle") {
		mode, err = model.ParseSortMode(args[0])
		if err != nil {
			return common.NewUserError("Sort must be asc, desc or toggle", err)
		}
	}

	m, err := a.listMachine(ctx, nil)
	if err != nil {
		return err
	}
	defer m.Close()

	m.UpdateSortMode(ctx, mode)

	stored, err := a.store.GetSortMode(ctx)
	if err != nil {
		return err
	}
	if stored != mode {
		return fmt.Errorf("failed to save sort mode %s", mode)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Sorting "+describeSortMode(mode)))
	return nil
}

func describeSortMode(mode model.SortMode) string {
	if mode == model.SortByDateAscending {
		return "oldest first"
	}
	return "newest first"
}
