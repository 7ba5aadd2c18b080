package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
)

// SavePlaybackState upserts the resume point for an episode. The caller
// (internal/library) is responsible for validating that chunkIndex is within
// bounds of the episode's chunks (spec §6 "save playback" → InvalidIndex);
// the store only enforces that the episode itself exists.
func (s *Store) SavePlaybackState(ctx context.Context, p *model.PlaybackState) error {
	return s.tx(ctx, func(t *sql.Tx) error {
		var exists bool
		if err := t.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM episodes WHERE id = ?)`, p.EpisodeID).Scan(&exists); err != nil {
			return fmt.Errorf("store: check episode exists: %w", err)
		}
		if !exists {
			return fmt.Errorf("store: episode %q: %w", p.EpisodeID, apperr.ErrNotFound)
		}
		_, err := t.ExecContext(ctx, `
			INSERT INTO playback_state (episode_id, current_chunk_idx, position_secs, percent_listened, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (episode_id) DO UPDATE SET
				current_chunk_idx = excluded.current_chunk_idx,
				position_secs = excluded.position_secs,
				percent_listened = excluded.percent_listened,
				updated_at = excluded.updated_at`,
			p.EpisodeID, p.CurrentChunkIdx, p.PositionSecs, p.PercentListened,
		)
		if err != nil {
			return fmt.Errorf("store: save playback state: %w", err)
		}
		if _, err := t.ExecContext(ctx, `UPDATE episodes SET last_played_at = CURRENT_TIMESTAMP WHERE id = ?`, p.EpisodeID); err != nil {
			return fmt.Errorf("store: touch last played: %w", err)
		}
		return nil
	})
}

// GetPlaybackState retrieves the resume point for an episode. Returns
// (nil, nil) if playback has never been saved for that episode.
func (s *Store) GetPlaybackState(ctx context.Context, episodeID string) (*model.PlaybackState, error) {
	var p model.PlaybackState
	err := s.db.QueryRowContext(ctx, `
		SELECT episode_id, current_chunk_idx, position_secs, percent_listened, updated_at
		FROM playback_state WHERE episode_id = ?`, episodeID,
	).Scan(&p.EpisodeID, &p.CurrentChunkIdx, &p.PositionSecs, &p.PercentListened, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get playback state: %w", err)
	}
	return &p, nil
}
