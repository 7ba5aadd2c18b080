package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/speakcast/speakcast/internal/model"
)

// GetSettings returns the singleton Settings row, or the package-level
// defaults if it has never been written (spec §3 "Settings").
func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("store: get settings: %w", err)
	}
	var settings model.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return model.Settings{}, fmt.Errorf("store: unmarshal settings: %w", err)
	}
	return settings, nil
}

// PutSettings atomically replaces the singleton Settings row.
func (s *Store) PutSettings(ctx context.Context, settings model.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("store: marshal settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, value) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET value = excluded.value`, raw)
	if err != nil {
		return fmt.Errorf("store: put settings: %w", err)
	}
	return nil
}
