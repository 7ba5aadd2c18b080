package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
)

// ListChunks returns every chunk of episodeID ordered by ChunkIndex.
func (s *Store) ListChunks(ctx context.Context, episodeID string) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, chunkSelectQuery+` WHERE episode_id = ? ORDER BY chunk_index`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("store: list chunks: %w", err)
	}
	defer rows.Close()

	var out []model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list chunks scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetChunk retrieves a single chunk by (episodeID, index).
func (s *Store) GetChunk(ctx context.Context, episodeID string, index int) (*model.Chunk, error) {
	c, err := scanChunk(s.db.QueryRowContext(ctx, chunkSelectQuery+` WHERE episode_id = ? AND chunk_index = ?`, episodeID, index))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: chunk %s/%d: %w", episodeID, index, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get chunk: %w", err)
	}
	return c, nil
}

// PickNextPendingChunk selects the lowest-index pending chunk of episodeID
// and atomically transitions it to generating (spec §4.5 steps 2-3). It also
// marks the episode generating if it is still pending. Returns (nil, nil) if
// no pending chunk remains.
func (s *Store) PickNextPendingChunk(ctx context.Context, episodeID string) (*model.Chunk, error) {
	var chunk *model.Chunk
	err := s.tx(ctx, func(t *sql.Tx) error {
		row := t.QueryRowContext(ctx, chunkSelectQuery+`
			WHERE episode_id = ? AND status = ?
			ORDER BY chunk_index LIMIT 1`, episodeID, model.ChunkPending)
		c, err := scanChunk(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("store: pick next pending chunk: %w", err)
		}

		if _, err := t.ExecContext(ctx, `UPDATE chunks SET status = ? WHERE episode_id = ? AND chunk_index = ?`,
			model.ChunkGenerating, episodeID, c.ChunkIndex); err != nil {
			return fmt.Errorf("store: mark chunk generating: %w", err)
		}
		c.Status = model.ChunkGenerating

		if _, err := t.ExecContext(ctx, `UPDATE episodes SET status = ? WHERE id = ? AND status = ?`,
			model.EpisodeGenerating, episodeID, model.EpisodePending); err != nil {
			return fmt.Errorf("store: mark episode generating: %w", err)
		}

		chunk = c
		return nil
	})
	return chunk, err
}

// MarkChunkReady persists a successful synthesis result (spec §4.5 step 5):
// the chunk transitions to ready with its audio path and duration, and the
// owning episode's aggregate status (and total duration, if the episode is
// now fully ready) is recomputed in the same transaction.
func (s *Store) MarkChunkReady(ctx context.Context, episodeID string, index int, audioPath string, durationSecs float64) error {
	return s.tx(ctx, func(t *sql.Tx) error {
		res, err := t.ExecContext(ctx, `
			UPDATE chunks SET status = ?, audio_path = ?, duration_secs = ?, error_message = ''
			WHERE episode_id = ? AND chunk_index = ?`,
			model.ChunkReady, audioPath, durationSecs, episodeID, index)
		if err != nil {
			return fmt.Errorf("store: mark chunk ready: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("store: chunk %s/%d: %w", episodeID, index, apperr.ErrNotFound)
		}
		return recomputeEpisodeAggregate(ctx, t, episodeID)
	})
}

// MarkChunkError persists a failed synthesis result (spec §4.5 step 6). The
// episode finalizes as error only once no chunk remains pending|generating.
func (s *Store) MarkChunkError(ctx context.Context, episodeID string, index int, message string) error {
	return s.tx(ctx, func(t *sql.Tx) error {
		res, err := t.ExecContext(ctx, `
			UPDATE chunks SET status = ?, error_message = ?
			WHERE episode_id = ? AND chunk_index = ?`,
			model.ChunkError, truncateMessage(message), episodeID, index)
		if err != nil {
			return fmt.Errorf("store: mark chunk error: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("store: chunk %s/%d: %w", episodeID, index, apperr.ErrNotFound)
		}
		return recomputeEpisodeAggregate(ctx, t, episodeID)
	})
}

// ResetChunkToPending rolls a chunk back to pending without touching its
// audio_path, used by the worker when a chunk is interrupted by cancellation
// (spec §4.5 step 7). regenerate_chunk (spec §4.7) uses
// [Store.ResetChunkForRegeneration] instead, which also clears the audio path
// and duration.
func (s *Store) ResetChunkToPending(ctx context.Context, episodeID string, index int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chunks SET status = ? WHERE episode_id = ? AND chunk_index = ?`,
		model.ChunkPending, episodeID, index)
	if err != nil {
		return fmt.Errorf("store: reset chunk to pending: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: chunk %s/%d: %w", episodeID, index, apperr.ErrNotFound)
	}
	return nil
}

// ResetChunkForRegeneration resets a single chunk to pending and clears its
// audio path/duration/error so the worker regenerates it from scratch (spec
// §4.7 "Regenerate chunk (i)"). Returns the cleared audio path so the caller
// can best-effort unlink the file on disk.
func (s *Store) ResetChunkForRegeneration(ctx context.Context, episodeID string, index int) (clearedAudioPath string, err error) {
	err = s.tx(ctx, func(t *sql.Tx) error {
		row := t.QueryRowContext(ctx, `SELECT audio_path FROM chunks WHERE episode_id = ? AND chunk_index = ?`, episodeID, index)
		if scanErr := row.Scan(&clearedAudioPath); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return fmt.Errorf("store: chunk %s/%d: %w", episodeID, index, apperr.ErrNotFound)
			}
			return fmt.Errorf("store: read chunk audio path: %w", scanErr)
		}
		if _, err := t.ExecContext(ctx, `
			UPDATE chunks SET status = ?, audio_path = '', duration_secs = 0, error_message = ''
			WHERE episode_id = ? AND chunk_index = ?`,
			model.ChunkPending, episodeID, index); err != nil {
			return fmt.Errorf("store: reset chunk for regeneration: %w", err)
		}
		return nil
	})
	return clearedAudioPath, err
}

// ResetAllChunksForRegeneration resets every chunk of episodeID to pending,
// clearing audio paths and durations, and returns the cleared paths for
// best-effort on-disk cleanup (spec §4.7 "Regenerate all"). The episode
// status is set back to pending in the same transaction.
func (s *Store) ResetAllChunksForRegeneration(ctx context.Context, episodeID string) (clearedAudioPaths []string, err error) {
	err = s.tx(ctx, func(t *sql.Tx) error {
		rows, err := t.QueryContext(ctx, `SELECT audio_path FROM chunks WHERE episode_id = ? AND audio_path != ''`, episodeID)
		if err != nil {
			return fmt.Errorf("store: read chunk audio paths: %w", err)
		}
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				rows.Close()
				return fmt.Errorf("store: scan audio path: %w", err)
			}
			clearedAudioPaths = append(clearedAudioPaths, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		if _, err := t.ExecContext(ctx, `
			UPDATE chunks SET status = ?, audio_path = '', duration_secs = 0, error_message = ''
			WHERE episode_id = ?`, model.ChunkPending, episodeID); err != nil {
			return fmt.Errorf("store: reset chunks for regeneration: %w", err)
		}
		if _, err := t.ExecContext(ctx, `UPDATE episodes SET status = ?, total_duration_secs = 0 WHERE id = ?`,
			model.EpisodePending, episodeID); err != nil {
			return fmt.Errorf("store: reset episode for regeneration: %w", err)
		}
		return nil
	})
	return clearedAudioPaths, err
}

// ResetErrorChunksToPending transitions every error chunk of episodeID back
// to pending (spec §4.7 "Retry errors") and recomputes the episode's
// aggregate status from its chunks; a cancelled episode stays cancelled.
func (s *Store) ResetErrorChunksToPending(ctx context.Context, episodeID string) error {
	return s.tx(ctx, func(t *sql.Tx) error {
		if _, err := t.ExecContext(ctx, `UPDATE chunks SET status = ?, error_message = '' WHERE episode_id = ? AND status = ?`,
			model.ChunkPending, episodeID, model.ChunkError); err != nil {
			return fmt.Errorf("store: retry errors: %w", err)
		}
		return recomputeEpisodeAggregate(ctx, t, episodeID)
	})
}

// CancelEpisodeChunks rolls back any chunk in pending|generating to pending,
// preserving ready chunks untouched (spec §4.5 step 7 / §4.7 "Cancel").
func (s *Store) CancelEpisodeChunks(ctx context.Context, episodeID string) error {
	return s.tx(ctx, func(t *sql.Tx) error {
		if _, err := t.ExecContext(ctx, `
			UPDATE chunks SET status = ? WHERE episode_id = ? AND status IN (?, ?)`,
			model.ChunkPending, episodeID, model.ChunkPending, model.ChunkGenerating); err != nil {
			return fmt.Errorf("store: cancel episode chunks: %w", err)
		}
		if _, err := t.ExecContext(ctx, `UPDATE episodes SET status = ? WHERE id = ?`, model.EpisodeCancelled, episodeID); err != nil {
			return fmt.Errorf("store: cancel episode: %w", err)
		}
		return nil
	})
}

// ReplaceChunkPlan atomically swaps episodeID's chunk plan for newChunks and
// applies ep's updated voice/format/strategy/max length/breathing fields,
// used by regenerate_with_settings when a settings change re-chunks the
// source text (spec §4.7 "Applies the new settings, which may re-chunk").
// Returns the audio paths the prior plan had written, for best-effort
// on-disk cleanup by the caller after the transaction commits.
func (s *Store) ReplaceChunkPlan(ctx context.Context, ep model.Episode, newChunks []model.Chunk) (clearedAudioPaths []string, err error) {
	if len(newChunks) == 0 {
		return nil, fmt.Errorf("store: replace chunk plan: %w", apperr.ErrEmptyContent)
	}
	err = s.tx(ctx, func(t *sql.Tx) error {
		rows, err := t.QueryContext(ctx, `SELECT audio_path FROM chunks WHERE episode_id = ? AND audio_path != ''`, ep.ID)
		if err != nil {
			return fmt.Errorf("store: read chunk audio paths: %w", err)
		}
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				rows.Close()
				return fmt.Errorf("store: scan audio path: %w", err)
			}
			clearedAudioPaths = append(clearedAudioPaths, p)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if _, err := t.ExecContext(ctx, `DELETE FROM chunks WHERE episode_id = ?`, ep.ID); err != nil {
			return fmt.Errorf("store: delete prior chunk plan: %w", err)
		}

		stmt, err := t.PrepareContext(ctx, `
			INSERT INTO chunks (episode_id, chunk_index, text, status, label, created_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`)
		if err != nil {
			return fmt.Errorf("store: prepare chunk insert: %w", err)
		}
		defer stmt.Close()
		for _, c := range newChunks {
			if _, err := stmt.ExecContext(ctx, ep.ID, c.ChunkIndex, c.Text, model.ChunkPending, c.Label); err != nil {
				return fmt.Errorf("store: insert chunk %d: %w", c.ChunkIndex, err)
			}
		}

		if _, err := t.ExecContext(ctx, `
			UPDATE episodes SET
				voice_id = ?, output_format = ?, chunk_strategy = ?, chunk_max_length = ?,
				breathing_intensity = ?, status = ?, total_duration_secs = 0
			WHERE id = ?`,
			ep.VoiceID, ep.OutputFormat, ep.ChunkStrategy, ep.ChunkMaxLength,
			ep.BreathingIntensity, model.EpisodePending, ep.ID); err != nil {
			return fmt.Errorf("store: update episode for new chunk plan: %w", err)
		}
		return nil
	})
	return clearedAudioPaths, err
}

// recomputeEpisodeAggregate recomputes an episode's status from its chunks'
// current states, per spec §3 Episode lifecycle:
//   - ready  iff all chunks ready
//   - error  iff any chunk is error and none are pending|generating
//   - otherwise left as generating (still in progress)
// total_duration_secs is recomputed as the sum of chunk durations whenever
// the episode becomes ready. cancelled is a terminal state reachable only by
// explicit cancel (spec §3 Episode lifecycle), so an episode already
// cancelled is left untouched here: its pending chunks are not evidence the
// episode should resume.
func recomputeEpisodeAggregate(ctx context.Context, t *sql.Tx, episodeID string) error {
	var currentStatus model.EpisodeStatus
	if err := t.QueryRowContext(ctx, `SELECT status FROM episodes WHERE id = ?`, episodeID).Scan(&currentStatus); err != nil {
		return fmt.Errorf("store: load episode status for aggregate: %w", err)
	}
	if currentStatus == model.EpisodeCancelled {
		return nil
	}

	var pendingOrGenerating, errorCount, total int
	err := t.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status IN (?, ?)),
			COUNT(*) FILTER (WHERE status = ?),
			COUNT(*)
		FROM chunks WHERE episode_id = ?`,
		model.ChunkPending, model.ChunkGenerating, model.ChunkError, episodeID,
	).Scan(&pendingOrGenerating, &errorCount, &total)
	if err != nil {
		return fmt.Errorf("store: recompute episode aggregate: %w", err)
	}

	var status model.EpisodeStatus
	switch {
	case pendingOrGenerating == 0 && errorCount > 0:
		status = model.EpisodeError
	case pendingOrGenerating == 0 && total > 0:
		status = model.EpisodeReady
	default:
		status = model.EpisodeGenerating
	}

	if status == model.EpisodeReady {
		var durationSum float64
		if err := t.QueryRowContext(ctx, `SELECT COALESCE(SUM(duration_secs), 0) FROM chunks WHERE episode_id = ?`, episodeID).Scan(&durationSum); err != nil {
			return fmt.Errorf("store: sum chunk durations: %w", err)
		}
		if _, err := t.ExecContext(ctx, `UPDATE episodes SET status = ?, total_duration_secs = ? WHERE id = ?`, status, durationSum, episodeID); err != nil {
			return fmt.Errorf("store: update episode aggregate: %w", err)
		}
		return nil
	}

	if _, err := t.ExecContext(ctx, `UPDATE episodes SET status = ? WHERE id = ?`, status, episodeID); err != nil {
		return fmt.Errorf("store: update episode aggregate: %w", err)
	}
	return nil
}

// maxErrorMessageLen bounds the stored error_message so a pathological TTS
// error does not bloat the chunks table.
const maxErrorMessageLen = 2000

func truncateMessage(msg string) string {
	if len(msg) <= maxErrorMessageLen {
		return msg
	}
	return msg[:maxErrorMessageLen] + "…(truncated)"
}

const chunkSelectQuery = `
	SELECT episode_id, chunk_index, text, status, duration_secs, audio_path, error_message, label, created_at
	FROM chunks`

func scanChunk(r rowScanner) (*model.Chunk, error) {
	var c model.Chunk
	if err := r.Scan(&c.EpisodeID, &c.ChunkIndex, &c.Text, &c.Status, &c.DurationSecs, &c.AudioPath, &c.ErrorMessage, &c.Label, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
