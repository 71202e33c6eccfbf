package main

import (
	"errors"
	"strings"

	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/config"
	"github.com/Veraticus/spent/internal/service"
	"github.com/Veraticus/spent/internal/viewmodel"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export csv|db",
		Short: "Export expenses",
		Long: `Export expenses to the export directory.

csv writes every visible expense as comma separated text.
db writes a copy of the whole database file, deleted expenses included.`,
		Example: `  spent export csv
  spent export db --dir /tmp`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(service.ExportCSV), string(service.ExportDB)},
		RunE:      runExport,
	}

	cmd.Flags().String("dir", "", "directory to write to (default: $HOME/Downloads)")
	cmd.Flags().Bool("quiet", false, "do not show progress")
	_ = viper.BindPFlag(config.KeyExportDir, cmd.Flags().Lookup("dir"))

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format := service.ExportFormat(strings.ToLower(args[0]))
	if format != service.ExportCSV && format != service.ExportDB {
		return common.NewUserError("Format must be csv or db", common.ErrUnknownFormat)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	progress := cmd.ErrOrStderr()
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		progress = nil
	}

	exporter, err := a.exporter(cmd.OutOrStdout(), progress)
	if err != nil {
		return err
	}

	m, err := a.listMachine(ctx, exporter)
	if err != nil {
		return err
	}
	defer m.Close()

	m.DownloadData(ctx, format)

	effect, err := awaitEffect(ctx, m)
	if err != nil {
		return err
	}
	if effect.Kind != viewmodel.DownloadSuccess {
		return errors.New("export failed, see the log for details")
	}
	return nil
}
