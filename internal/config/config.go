// Package config resolves spent settings from flags, environment and the
// config file.
package config

import (
	"fmt"

	"github.com/Veraticus/spent/internal/common"
	"github.com/Veraticus/spent/internal/model"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyDatabasePath     = "database.path"
	KeyExportDir        = "export.dir"
	KeyExportDateFormat = "export.date_format"
	KeyDefaultCurrency  = "defaults.currency"
	KeyLogLevel         = "logging.level"
	KeyLogFormat        = "logging.format"
)

// Defaults.
const (
	DefaultDatabasePath     = "$HOME/.local/share/spent/spent.db"
	DefaultExportDir        = "$HOME/Downloads"
	DefaultExportDateFormat = "02.01.2006"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
)

// Config is the resolved application configuration.
type Config struct {
	DatabasePath     string
	ExportDir        string
	ExportDateFormat string
	LogLevel         string
	LogFormat        string
	DefaultCurrency  model.Currency
}

// SetDefaults registers default values for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyExportDir, DefaultExportDir)
	v.SetDefault(KeyExportDateFormat, DefaultExportDateFormat)
	v.SetDefault(KeyDefaultCurrency, string(model.DefaultCurrency))
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
}

// Load resolves the configuration from v. Paths have ~ and environment
// variables expanded; an empty value falls back to its default.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ExportDateFormat: stringOr(v, KeyExportDateFormat, DefaultExportDateFormat),
		LogLevel:         stringOr(v, KeyLogLevel, DefaultLogLevel),
		LogFormat:        stringOr(v, KeyLogFormat, DefaultLogFormat),
	}

	currency, err := model.ParseCurrency(stringOr(v, KeyDefaultCurrency, string(model.DefaultCurrency)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeyDefaultCurrency, err)
	}
	cfg.DefaultCurrency = currency

	if cfg.DatabasePath, err = resolvePath(KeyDatabasePath, stringOr(v, KeyDatabasePath, DefaultDatabasePath)); err != nil {
		return nil, err
	}
	if cfg.ExportDir, err = resolvePath(KeyExportDir, stringOr(v, KeyExportDir, DefaultExportDir)); err != nil {
		return nil, err
	}

	return cfg, nil
}

func stringOr(v *viper.Viper, key, fallback string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	return fallback
}
