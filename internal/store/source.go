package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
)

// CreateSource inserts a new Source. src.ID and src.CreatedAt are populated.
// If src.FolderID is non-empty it must reference an existing folder.
func (s *Store) CreateSource(ctx context.Context, src *model.Source) error {
	src.ID = uuid.New().String()
	cleaningJSON, err := json.Marshal(src.Cleaning)
	if err != nil {
		return fmt.Errorf("store: marshal cleaning settings: %w", err)
	}
	return s.tx(ctx, func(t *sql.Tx) error {
		if src.FolderID != "" {
			if err := requireFolderExists(ctx, t, src.FolderID); err != nil {
				return err
			}
		}
		err := t.QueryRowContext(ctx, `
			INSERT INTO sources (id, title, source_type, raw_text, cleaned_text, cleaning, cover_art, folder_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), CURRENT_TIMESTAMP)
			RETURNING created_at`,
			src.ID, src.Title, src.SourceType, src.RawText, src.CleanedText, cleaningJSON, src.CoverArt, src.FolderID,
		).Scan(&src.CreatedAt)
		if err != nil {
			return fmt.Errorf("store: create source: %w", err)
		}
		return nil
	})
}

// GetSource retrieves a Source by id.
func (s *Store) GetSource(ctx context.Context, id string) (*model.Source, error) {
	src, err := scanSource(s.db.QueryRowContext(ctx, sourceSelectQuery+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: source %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get source: %w", err)
	}
	return src, nil
}

// UpdateCleanedText replaces a Source's cleaned_text and cleaning snapshot in
// place, preserving its id (spec §3 Source invariant).
func (s *Store) UpdateCleanedText(ctx context.Context, id, cleanedText string, cleaning model.CleaningSettings) error {
	cleaningJSON, err := json.Marshal(cleaning)
	if err != nil {
		return fmt.Errorf("store: marshal cleaning settings: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET cleaned_text = ?, cleaning = ? WHERE id = ?`,
		cleanedText, cleaningJSON, id,
	)
	if err != nil {
		return fmt.Errorf("store: update cleaned text: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: source %q: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DeleteSource removes a Source and cascades to its Episodes, Chunks, and
// association rows via foreign keys. Caller is responsible for deleting the
// on-disk source blobs and audio directories (best-effort, per spec §7).
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: source %q: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ListSourcesInFolder returns sources directly within folderID (empty means root).
func (s *Store) ListSourcesInFolder(ctx context.Context, folderID string) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx, sourceSelectQuery+` WHERE folder_id IS NOT DISTINCT FROM NULLIF(?, '') ORDER BY title`, folderID)
	if err != nil {
		return nil, fmt.Errorf("store: list sources: %w", err)
	}
	defer rows.Close()

	var out []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list sources scan: %w", err)
		}
		out = append(out, *src)
	}
	return out, rows.Err()
}

const sourceSelectQuery = `
	SELECT id, title, source_type, raw_text, cleaned_text, cleaning, cover_art, COALESCE(folder_id, ''), created_at
	FROM sources`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(r rowScanner) (*model.Source, error) {
	var src model.Source
	var cleaningJSON []byte
	if err := r.Scan(&src.ID, &src.Title, &src.SourceType, &src.RawText, &src.CleanedText, &cleaningJSON, &src.CoverArt, &src.FolderID, &src.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cleaningJSON, &src.Cleaning); err != nil {
		return nil, fmt.Errorf("store: unmarshal cleaning settings: %w", err)
	}
	return &src, nil
}
