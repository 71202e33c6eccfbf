// Package export writes the stored expenses to files in a downloads directory,
// either as comma separated text or as a copy of the raw database file.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/service"
	"github.com/schollz/progressbar/v3"
)

// FileTimestampLayout names export files.
const FileTimestampLayout = "2006-01-02_15-04-05"

// DefaultDateLayout formats expense dates in CSV rows.
const DefaultDateLayout = "02.01.2006"

// csvHeader is the first row of every CSV export.
var csvHeader = []string{"ID", "TITLE", "AMOUNT", "CURRENCY", "CATEGORY", "DATE"}

// Source is the storage an export reads from.
type Source interface {
	service.DatabaseFile
	GetExpenses(ctx context.Context, dateRange *model.DateRange) ([]model.Expense, error)
}

// Notifier is told about every finished export.
type Notifier interface {
	Notify(format service.ExportFormat, path string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(format service.ExportFormat, path string)

// Notify calls f.
func (f NotifierFunc) Notify(format service.ExportFormat, path string) {
	f(format, path)
}

// Config controls where and how exports are written.
type Config struct {
	// Progress receives a progress bar while CSV rows are written. Nil disables it.
	Progress   io.Writer
	Notifier   Notifier
	Now        func() time.Time
	Dir        string
	DateLayout string
}

// Manager produces export files.
type Manager struct {
	source Source
	cfg    Config
}

// NewManager creates an export manager reading from source.
func NewManager(source Source, cfg Config) (*Manager, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: export source is nil", common.ErrInvalidConfig)
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: export directory is empty", common.ErrMissingConfig)
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = DefaultDateLayout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{source: source, cfg: cfg}, nil
}

// Export writes a new export file and returns its path. On failure nothing is
// left behind in the export directory.
func (m *Manager) Export(ctx context.Context, format service.ExportFormat) (string, error) {
	var write func(ctx context.Context, path string) error
	switch format {
	case service.ExportCSV:
		write = m.writeCSV
	case service.ExportDB:
		write = m.copyDatabase
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownFormat, format)
	}

	if err := os.MkdirAll(m.cfg.Dir, 0o750); err != nil {
		slog.Error("Failed to create export directory", "dir", m.cfg.Dir, "error", err)
		return "", fmt.Errorf("%w: %w", common.ErrExportFailed, err)
	}

	path := filepath.Join(m.cfg.Dir, FileName(m.cfg.Now(), format))
	if err := write(ctx, path); err != nil {
		slog.Error("Failed to export expenses", "format", format, "path", path, "error", err)
		return "", fmt.Errorf("%w: %w", common.ErrExportFailed, err)
	}

	slog.Info("Exported expenses", "format", format, "path", path)
	if m.cfg.Notifier != nil {
		m.cfg.Notifier.Notify(format, path)
	}
	return path, nil
}

// FileName is the export file name for the given time and format.
func FileName(at time.Time, format service.ExportFormat) string {
	return fmt.Sprintf("expenses_%s.%s", at.Format(FileTimestampLayout), format)
}

func (m *Manager) writeCSV(ctx context.Context, path string) error {
	rows, err := m.source.GetExpenses(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to read expenses: %w", err)
	}

	visible := make([]model.Expense, 0, len(rows))
	for _, e := range rows {
		if e.IsVisible() {
			visible = append(visible, e)
		}
	}

	bar := m.newProgressBar(len(visible))
	return writeAtomic(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, joinRow(csvHeader)); err != nil {
			return err
		}
		for _, e := range visible {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := io.WriteString(w, joinRow(m.record(e))); err != nil {
				return err
			}
			if bar != nil {
				if err := bar.Add(1); err != nil {
					slog.Warn("Failed to update progress bar", "error", err)
				}
			}
		}
		return nil
	})
}

func (m *Manager) record(e model.Expense) []string {
	return []string{
		e.ID,
		e.Title,
		model.LocalizeAmount(e.Amount, e.Currency),
		string(e.Currency),
		string(e.Category),
		e.Date.Format(m.cfg.DateLayout),
	}
}

func (m *Manager) newProgressBar(total int) *progressbar.ProgressBar {
	if m.cfg.Progress == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(m.cfg.Progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Exporting expenses...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(m.cfg.Progress); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// joinRow renders one CSV line. Fields are separated by ", "; fields that
// contain a comma, a quote or a line break are quoted.
func joinRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		if strings.ContainsAny(f, ",\"\r\n") {
			f = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		quoted[i] = f
	}
	return strings.Join(quoted, ", ") + "\n"
}

func (m *Manager) copyDatabase(ctx context.Context, path string) error {
	src := m.source.Path()
	if src == "" || src == ":memory:" {
		return fmt.Errorf("database %q is not backed by a file", src)
	}
	if err := m.source.Checkpoint(ctx); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}

	source, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			slog.Error("failed to close source file", "error", closeErr)
		}
	}()

	return writeAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, source)
		return err
	})
}

// writeAtomic writes through a temporary file next to dst and renames it into
// place once fill succeeds. The temporary file is removed on any failure.
func writeAtomic(dst string, fill func(w io.Writer) error) error {
	tmp := dst + ".tmp"

	// #nosec G304 - dst is built from the configured export directory
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := fill(file); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Error("failed to close temporary file after write error", "error", closeErr)
		}
		if rmErr := os.Remove(tmp); rmErr != nil {
			slog.Error("failed to remove temporary file after write error", "error", rmErr)
		}
		return err
	}

	if err := file.Close(); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			slog.Error("failed to remove temporary file after close error", "error", rmErr)
		}
		return err
	}

	return os.Rename(tmp, dst)
}
