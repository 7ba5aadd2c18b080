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

// CreateEpisode inserts ep and its chunk plan in a single transaction (spec
// §4.7 "Create episode"). chunks must carry dense, zero-based ChunkIndex
// values; callers (internal/library, via internal/chunker) are responsible
// for that invariant — the store does not re-derive it. ep.ID and
// ep.CreatedAt, and each chunk's CreatedAt, are populated on return.
func (s *Store) CreateEpisode(ctx context.Context, ep *model.Episode, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("store: create episode: %w", apperr.ErrEmptyContent)
	}
	ep.ID = uuid.New().String()
	ep.Status = model.EpisodePending

	return s.tx(ctx, func(t *sql.Tx) error {
		var sourceExists bool
		if err := t.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sources WHERE id = ?)`, ep.SourceID).Scan(&sourceExists); err != nil {
			return fmt.Errorf("store: check source exists: %w", err)
		}
		if !sourceExists {
			return fmt.Errorf("store: source %q: %w", ep.SourceID, apperr.ErrNotFound)
		}
		if ep.FolderID != "" {
			if err := requireFolderExists(ctx, t, ep.FolderID); err != nil {
				return err
			}
		}

		err := t.QueryRowContext(ctx, `
			INSERT INTO episodes (id, source_id, title, voice_id, output_format, chunk_strategy,
				chunk_max_length, breathing_intensity, status, total_duration_secs, folder_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULLIF(?, ''), CURRENT_TIMESTAMP)
			RETURNING created_at`,
			ep.ID, ep.SourceID, ep.Title, ep.VoiceID, ep.OutputFormat, ep.ChunkStrategy,
			ep.ChunkMaxLength, ep.BreathingIntensity, ep.Status, ep.FolderID,
		).Scan(&ep.CreatedAt)
		if err != nil {
			return fmt.Errorf("store: create episode: %w", err)
		}

		stmt, err := t.PrepareContext(ctx, `
			INSERT INTO chunks (episode_id, chunk_index, text, status, label, created_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			RETURNING created_at`)
		if err != nil {
			return fmt.Errorf("store: prepare chunk insert: %w", err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			c.EpisodeID = ep.ID
			c.Status = model.ChunkPending
			if err := stmt.QueryRowContext(ctx, ep.ID, c.ChunkIndex, c.Text, c.Status, c.Label).Scan(&c.CreatedAt); err != nil {
				return fmt.Errorf("store: insert chunk %d: %w", c.ChunkIndex, err)
			}
		}
		return nil
	})
}

// GetEpisode retrieves an Episode and its chunks, ordered by ChunkIndex.
func (s *Store) GetEpisode(ctx context.Context, id string) (*model.Episode, []model.Chunk, error) {
	ep, err := scanEpisode(s.db.QueryRowContext(ctx, episodeSelectQuery+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("store: episode %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("store: get episode: %w", err)
	}
	chunks, err := s.ListChunks(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return ep, chunks, nil
}

// ListEpisodesInFolder returns episodes directly within folderID (empty means root).
func (s *Store) ListEpisodesInFolder(ctx context.Context, folderID string) ([]model.Episode, error) {
	rows, err := s.db.QueryContext(ctx, episodeSelectQuery+` WHERE folder_id IS NOT DISTINCT FROM NULLIF(?, '') ORDER BY title`, folderID)
	if err != nil {
		return nil, fmt.Errorf("store: list episodes: %w", err)
	}
	defer rows.Close()

	var out []model.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list episodes scan: %w", err)
		}
		out = append(out, *ep)
	}
	return out, rows.Err()
}

// ListReadyEpisodesInFolderTree returns ready episodes within folderID and
// all its descendant folders, ordered depth-first by folder name then
// episode title (spec §4.7 "Folder playlist").
func (s *Store) ListReadyEpisodesInFolderTree(ctx context.Context, folderID string) ([]model.Episode, error) {
	folders, err := s.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	children := make(map[string][]model.Folder)
	for _, f := range folders {
		children[f.ParentID] = append(children[f.ParentID], f)
	}

	var out []model.Episode
	var walk func(id string) error
	walk = func(id string) error {
		eps, err := s.ListEpisodesInFolder(ctx, id)
		if err != nil {
			return err
		}
		for _, ep := range eps {
			if ep.Status == model.EpisodeReady {
				out = append(out, ep)
			}
		}
		for _, child := range children[id] {
			if err := walk(child.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(folderID); err != nil {
		return nil, err
	}
	return out, nil
}

// SetEpisodeStatus forces an Episode's status field, independent of aggregate
// chunk recomputation. Cancel and regenerate_all do not call it: they set the
// status inside [Store.CancelEpisodeChunks] and
// [Store.ResetAllChunksForRegeneration] respectively.
func (s *Store) SetEpisodeStatus(ctx context.Context, id string, status model.EpisodeStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE episodes SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("store: set episode status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: episode %q: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DeleteEpisode removes an Episode and cascades to its Chunks, PlaybackState,
// and tag associations. Caller is responsible for deleting the on-disk audio
// directory (best-effort, per spec §7).
func (s *Store) DeleteEpisode(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete episode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: episode %q: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// BulkMoveEpisodes moves every episode in ids to folderID (empty means
// root) in a single transaction; FK existence is validated up front and a
// missing episode id aborts the whole batch (spec §4.7 "Bulk move").
func (s *Store) BulkMoveEpisodes(ctx context.Context, ids []string, folderID string) error {
	return s.tx(ctx, func(t *sql.Tx) error {
		if folderID != "" {
			if err := requireFolderExists(ctx, t, folderID); err != nil {
				return err
			}
		}
		for _, id := range ids {
			res, err := t.ExecContext(ctx, `UPDATE episodes SET folder_id = NULLIF(?, '') WHERE id = ?`, folderID, id)
			if err != nil {
				return fmt.Errorf("store: bulk move: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("store: episode %q: %w", id, apperr.ErrNotFound)
			}
		}
		return nil
	})
}

// BulkDeleteEpisodes deletes every episode in ids in a single transaction; a
// missing episode id aborts the whole batch.
func (s *Store) BulkDeleteEpisodes(ctx context.Context, ids []string) error {
	return s.tx(ctx, func(t *sql.Tx) error {
		for _, id := range ids {
			res, err := t.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("store: bulk delete: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("store: episode %q: %w", id, apperr.ErrNotFound)
			}
		}
		return nil
	})
}

const episodeSelectQuery = `
	SELECT id, source_id, title, voice_id, output_format, chunk_strategy, chunk_max_length,
	       breathing_intensity, status, total_duration_secs, COALESCE(folder_id, ''), created_at, last_played_at
	FROM episodes`

func scanEpisode(r rowScanner) (*model.Episode, error) {
	var ep model.Episode
	var lastPlayed sql.NullTime
	if err := r.Scan(&ep.ID, &ep.SourceID, &ep.Title, &ep.VoiceID, &ep.OutputFormat, &ep.ChunkStrategy,
		&ep.ChunkMaxLength, &ep.BreathingIntensity, &ep.Status, &ep.TotalDurationSecs, &ep.FolderID,
		&ep.CreatedAt, &lastPlayed); err != nil {
		return nil, err
	}
	if lastPlayed.Valid {
		ep.LastPlayedAt = &lastPlayed.Time
	}
	return &ep, nil
}
