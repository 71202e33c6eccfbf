package main

import (
	"github.com/Veraticus/spent/internal/tui"
	"github.com/Veraticus/spent/internal/tui/themes"
	"github.com/spf13/cobra"
)

func browseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse expenses interactively",
		Long: `Open a full-screen list of expenses grouped by month.

Press ? inside the browser for key bindings.`,
		Args: cobra.NoArgs,
		RunE: runBrowse,
	}

	cmd.Flags().String("theme", "default", "color theme (default, catppuccin-mocha)")

	return cmd
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// the browser reports finished exports itself
	exporter, err := a.exporter(nil, nil)
	if err != nil {
		return err
	}

	m, err := a.listMachine(ctx, exporter)
	if err != nil {
		return err
	}
	defer m.Close()

	themeName, _ := cmd.Flags().GetString("theme")
	return tui.Run(ctx, m, tui.WithTheme(themes.GetTheme(themeName)))
}
