package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
)

// FindTagByName returns the tag with an exact name match, or (nil, nil) if
// none exists. Fuzzy matching against near-duplicate names is performed one
// layer up, in internal/library, which calls [Store.ListTags] to get the
// full candidate set before deciding whether to create a new tag.
func (s *Store) FindTagByName(ctx context.Context, name string) (*model.Tag, error) {
	var t model.Tag
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE name = ?`, name).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find tag: %w", err)
	}
	return &t, nil
}

// ListTags returns every tag, ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("store: list tags scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTag inserts a new tag with a generated id. Returns
// [apperr.ErrInvalidState] if the exact name already exists — callers that
// want idempotent behavior should check [Store.FindTagByName] first.
func (s *Store) CreateTag(ctx context.Context, name string) (*model.Tag, error) {
	t := &model.Tag{ID: uuid.New().String(), Name: name}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tags (id, name) VALUES (?, ?)`, t.ID, t.Name)
	if isUniqueConstraintError(err) {
		return nil, fmt.Errorf("store: tag %q already exists: %w", name, apperr.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("store: create tag: %w", err)
	}
	return t, nil
}

// TagSource associates tagID with sourceID, idempotently.
func (s *Store) TagSource(ctx context.Context, sourceID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO source_tags (source_id, tag_id) VALUES (?, ?)`, sourceID, tagID)
	if err != nil {
		return fmt.Errorf("store: tag source: %w", err)
	}
	return nil
}

// TagEpisode associates tagID with episodeID, idempotently.
func (s *Store) TagEpisode(ctx context.Context, episodeID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO episode_tags (episode_id, tag_id) VALUES (?, ?)`, episodeID, tagID)
	if err != nil {
		return fmt.Errorf("store: tag episode: %w", err)
	}
	return nil
}
