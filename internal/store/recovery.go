package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/speakcast/speakcast/internal/model"
)

// RecoverStartupState implements the crash-recovery pass of spec §4.1: any
// chunk left `generating` when the process last exited is reset to
// `pending`, and every episode's aggregate status is recomputed so it never
// disagrees with its chunks' actual states (invariant §8.7). It must run
// after [Store.Migrate] and before the worker begins draining its queue.
//
// It returns, in ascending CreatedAt order, the ids of episodes that have at
// least one pending chunk and are not cancelled — these are exactly the
// episodes the worker must re-admit to its in-memory FIFO queue on startup,
// since the queue itself is not persisted. A cancelled episode's pending
// chunks (left `pending` by cancel, spec §3) are never re-admitted:
// `cancelled` has no exit in the episode state diagram (spec §4.5);
// `regenerate_all` rejects a cancelled episode and `retry_errors` leaves it
// cancelled.
func (s *Store) RecoverStartupState(ctx context.Context) ([]string, error) {
	var episodeIDs []string
	err := s.tx(ctx, func(t *sql.Tx) error {
		if _, err := t.ExecContext(ctx, `UPDATE chunks SET status = ? WHERE status = ?`,
			model.ChunkPending, model.ChunkGenerating); err != nil {
			return fmt.Errorf("store: reset generating chunks: %w", err)
		}

		rows, err := t.QueryContext(ctx, `SELECT id FROM episodes`)
		if err != nil {
			return fmt.Errorf("store: list episodes for recovery: %w", err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("store: scan episode id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, id := range ids {
			if err := recomputeEpisodeAggregate(ctx, t, id); err != nil {
				return err
			}
		}

		pendingRows, err := t.QueryContext(ctx, `
			SELECT DISTINCT e.id FROM episodes e
			JOIN chunks c ON c.episode_id = e.id
			WHERE c.status = ? AND e.status != ?
			ORDER BY e.created_at`, model.ChunkPending, model.EpisodeCancelled)
		if err != nil {
			return fmt.Errorf("store: list episodes needing requeue: %w", err)
		}
		defer pendingRows.Close()
		for pendingRows.Next() {
			var id string
			if err := pendingRows.Scan(&id); err != nil {
				return fmt.Errorf("store: scan requeue episode id: %w", err)
			}
			episodeIDs = append(episodeIDs, id)
		}
		return pendingRows.Err()
	})
	return episodeIDs, err
}
