package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spent/internal/model"
	"github.com/Veraticus/spent/internal/service"
)

// KeySortMode is the preference key holding the list sort mode.
const KeySortMode = "key_sort_mode"

// GetPreference returns the stored value for key and whether it was present.
func (s *SQLiteStorage) GetPreference(ctx context.Context, key string) (string, bool, error) {
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}
	if err := validateString(key, "key"); err != nil {
		return "", false, err
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, true, nil
}

// SetPreference stores value under key.
func (s *SQLiteStorage) SetPreference(ctx context.Context, key, value string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}

	s.feed.publish(topicPreferences)
	return nil
}

// GetSortMode returns the persisted sort mode, or the default when none is
// stored or the stored value is unreadable.
func (s *SQLiteStorage) GetSortMode(ctx context.Context) (model.SortMode, error) {
	value, ok, err := s.GetPreference(ctx, KeySortMode)
	if err != nil {
		return model.DefaultSortMode, err
	}
	if !ok {
		return model.DefaultSortMode, nil
	}

	mode, err := model.ParseSortMode(value)
	if err != nil {
		slog.Warn("Ignoring stored sort mode", "value", value, "error", err)
		return model.DefaultSortMode, nil
	}
	return mode, nil
}

// SaveSortMode persists the sort mode.
func (s *SQLiteStorage) SaveSortMode(ctx context.Context, mode model.SortMode) error {
	if err := validateSortMode(mode); err != nil {
		return err
	}
	return s.SetPreference(ctx, KeySortMode, string(mode))
}

// WatchSortMode opens a live query over the persisted sort mode.
func (s *SQLiteStorage) WatchSortMode(ctx context.Context) (service.Subscription[model.SortMode], error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return watch(ctx, s.feed, topicPreferences, model.DefaultSortMode, s.GetSortMode), nil
}
