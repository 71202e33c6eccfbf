package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/spent/internal/cli"
	"github.com/Veraticus/spent/internal/config"
	"github.com/Veraticus/spent/internal/export"
	"github.com/Veraticus/spent/internal/repository"
	"github.com/Veraticus/spent/internal/service"
	"github.com/Veraticus/spent/internal/storage"
	"github.com/Veraticus/spent/internal/viewmodel"
	"github.com/spf13/viper"
)

// effectTimeout bounds how long a command waits for a list outcome.
const effectTimeout = 30 * time.Second

// app bundles what most commands need.
type app struct {
	cfg   *config.Config
	store *storage.SQLiteStorage
	repo  *repository.Repository
}

// openApp loads the configuration and opens the migrated database.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &app{cfg: cfg, store: store, repo: repository.New(store)}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// exporter builds the export manager. Finished exports are announced on out
// when it is not nil.
func (a *app) exporter(out io.Writer, progress io.Writer) (*export.Manager, error) {
	cfg := export.Config{
		Dir:        a.cfg.ExportDir,
		DateLayout: a.cfg.ExportDateFormat,
		Progress:   progress,
	}
	if out != nil {
		cfg.Notifier = export.NotifierFunc(func(_ service.ExportFormat, path string) {
			fmt.Fprintln(out, cli.FormatSuccess("Exported to "+path))
		})
	}
	return export.NewManager(a.store, cfg)
}

// listMachine opens a list state machine over the app's storage.
func (a *app) listMachine(ctx context.Context, exporter service.Exporter) (*viewmodel.ListMachine, error) {
	return viewmodel.NewListMachine(ctx, a.repo, a.store, exporter)
}

// awaitEffect waits for the next outcome posted by m.
func awaitEffect(ctx context.Context, m *viewmodel.ListMachine) (viewmodel.ListEffect, error) {
	timer := time.NewTimer(effectTimeout)
	defer timer.Stop()

	select {
	case e, ok := <-m.Effects():
		if !ok {
			return viewmodel.ListEffect{}, fmt.Errorf("list closed before reporting an outcome")
		}
		return e, nil
	case <-ctx.Done():
		return viewmodel.ListEffect{}, ctx.Err()
	case <-timer.C:
		return viewmodel.ListEffect{}, fmt.Errorf("timed out waiting for outcome")
	}
}

// awaitState waits until m publishes a state accepted by ready.
func awaitState(ctx context.Context, m *viewmodel.ListMachine, ready func(viewmodel.ListState) bool) (viewmodel.ListState, error) {
	ctx, cancel := context.WithTimeout(ctx, effectTimeout)
	defer cancel()

	for s := range m.Watch(ctx) {
		if ready(s) {
			return s, nil
		}
	}
	if ctx.Err() != nil {
		return viewmodel.ListState{}, fmt.Errorf("waiting for expenses: %w", ctx.Err())
	}
	return viewmodel.ListState{}, fmt.Errorf("list closed while loading")
}

// parseDate accepts the export layout as well as ISO dates.
func parseDate(value, layout string) (time.Time, error) {
	for _, l := range []string{"2006-01-02", layout} {
		if t, err := time.ParseInLocation(l, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or %s", value, layout)
}
