package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local/share/spent/spent.db"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(home, "Downloads"), cfg.ExportDir)
	assert.Equal(t, DefaultExportDateFormat, cfg.ExportDateFormat)
	assert.Equal(t, model.CurrencyEUR, cfg.DefaultCurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	v := viper.New()
	SetDefaults(v)
	v.Set(KeyDatabasePath, "~/data/expenses.db")
	v.Set(KeyExportDir, "/srv/exports")
	v.Set(KeyExportDateFormat, "2006-01-02")
	v.Set(KeyDefaultCurrency, "hrk")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data/expenses.db"), cfg.DatabasePath)
	assert.Equal(t, "/srv/exports", cfg.ExportDir)
	assert.Equal(t, "2006-01-02", cfg.ExportDateFormat)
	assert.Equal(t, model.CurrencyHRK, cfg.DefaultCurrency)
}

func TestLoad_InvalidCurrency(t *testing.T) {
	v := viper.New()
	v.Set(KeyDefaultCurrency, "USD")

	_, err := Load(v)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestLoad_MemoryDatabase(t *testing.T) {
	v := viper.New()
	v.Set(KeyDatabasePath, ":memory:")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.DatabasePath)
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SPENT_TEST_DIR", "/var/spent")

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"~", home},
		{"~/exports", filepath.Join(home, "exports")},
		{"$SPENT_TEST_DIR/db", "/var/spent/db"},
		{"/absolute/path", "/absolute/path"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}

func TestLoad_RelativePaths(t *testing.T) {
	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(previous) })

	v := viper.New()
	SetDefaults(v)
	v.Set(KeyDatabasePath, "spent.db")
	v.Set(KeyExportDir, "exports")

	cfg, err := Load(v)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "spent.db"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(wd, "exports"), cfg.ExportDir)
}
