package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
)

// CreateUndoTicket snapshots an episode (and its chunks) as the inverse
// payload of a destructive operation and stores it with a bounded expiry
// (spec §4.7 "Regenerate with settings (undoable)"). Returns the generated
// ticket id.
func (s *Store) CreateUndoTicket(ctx context.Context, kind model.UndoOperationKind, episodeID string, snapshot model.EpisodeSnapshot, window time.Duration) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("store: marshal undo snapshot: %w", err)
	}
	id := uuid.New().String()
	expiresAt := time.Now().Add(window)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO undo_tickets (id, operation_kind, episode_id, inverse_payload, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, kind, episodeID, payload, expiresAt,
	)
	if err != nil {
		return "", fmt.Errorf("store: create undo ticket: %w", err)
	}
	return id, nil
}

// RedeemUndoTicket retrieves and deletes an undo ticket in one transaction,
// returning the restored snapshot. Returns [apperr.ErrUndoExpired] if the
// ticket's window has passed; the transaction then rolls back, so the ticket
// stays until [Store.PurgeExpiredUndoTickets] removes it and reports its
// audio for deletion. Returns [apperr.ErrNotFound] if no such ticket exists.
func (s *Store) RedeemUndoTicket(ctx context.Context, id string) (model.EpisodeSnapshot, error) {
	var snapshot model.EpisodeSnapshot
	err := s.tx(ctx, func(t *sql.Tx) error {
		var payload []byte
		var expiresAt time.Time
		err := t.QueryRowContext(ctx, `SELECT inverse_payload, expires_at FROM undo_tickets WHERE id = ?`, id).
			Scan(&payload, &expiresAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: undo ticket %q: %w", id, apperr.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("store: read undo ticket: %w", err)
		}

		if _, err := t.ExecContext(ctx, `DELETE FROM undo_tickets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: delete undo ticket: %w", err)
		}

		if time.Now().After(expiresAt) {
			return fmt.Errorf("store: undo ticket %q: %w", id, apperr.ErrUndoExpired)
		}

		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return fmt.Errorf("store: unmarshal undo snapshot: %w", err)
		}

		if err := restoreEpisodeSnapshot(ctx, t, snapshot); err != nil {
			return err
		}
		return nil
	})
	return snapshot, err
}

// restoreEpisodeSnapshot writes an episode and its chunks back to the state
// captured in snapshot, inside the caller's transaction.
func restoreEpisodeSnapshot(ctx context.Context, t *sql.Tx, snapshot model.EpisodeSnapshot) error {
	ep := snapshot.Episode
	_, err := t.ExecContext(ctx, `
		UPDATE episodes SET
			voice_id = ?, output_format = ?, chunk_strategy = ?, chunk_max_length = ?,
			breathing_intensity = ?, status = ?, total_duration_secs = ?
		WHERE id = ?`,
		ep.VoiceID, ep.OutputFormat, ep.ChunkStrategy, ep.ChunkMaxLength,
		ep.BreathingIntensity, ep.Status, ep.TotalDurationSecs, ep.ID,
	)
	if err != nil {
		return fmt.Errorf("store: restore episode snapshot: %w", err)
	}

	if _, err := t.ExecContext(ctx, `DELETE FROM chunks WHERE episode_id = ?`, ep.ID); err != nil {
		return fmt.Errorf("store: clear chunks for snapshot restore: %w", err)
	}
	for _, c := range snapshot.Chunks {
		_, err := t.ExecContext(ctx, `
			INSERT INTO chunks (episode_id, chunk_index, text, status, duration_secs, audio_path, error_message, label, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.EpisodeID, c.ChunkIndex, c.Text, c.Status, c.DurationSecs, c.AudioPath, c.ErrorMessage, c.Label, c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("store: restore chunk %d snapshot: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

// PurgeExpiredUndoTickets deletes every undo ticket past its expiry and
// returns the episode/chunk audio paths that were pending deletion under
// those tickets' superseded settings, so the janitor can best-effort unlink
// them (spec §4.7 "After expiry, the ticket is purged and the old audio
// files deleted").
func (s *Store) PurgeExpiredUndoTickets(ctx context.Context) ([]string, error) {
	var staleAudioPaths []string
	err := s.tx(ctx, func(t *sql.Tx) error {
		rows, err := t.QueryContext(ctx, `SELECT inverse_payload FROM undo_tickets WHERE expires_at <= CURRENT_TIMESTAMP`)
		if err != nil {
			return fmt.Errorf("store: select expired undo tickets: %w", err)
		}
		var payloads [][]byte
		for rows.Next() {
			var p []byte
			if err := rows.Scan(&p); err != nil {
				rows.Close()
				return fmt.Errorf("store: scan expired undo ticket: %w", err)
			}
			payloads = append(payloads, p)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, p := range payloads {
			var snapshot model.EpisodeSnapshot
			if err := json.Unmarshal(p, &snapshot); err != nil {
				continue // corrupt payload; nothing safe to unlink, skip
			}
			for _, c := range snapshot.Chunks {
				if c.AudioPath != "" {
					staleAudioPaths = append(staleAudioPaths, c.AudioPath)
				}
			}
		}

		if _, err := t.ExecContext(ctx, `DELETE FROM undo_tickets WHERE expires_at <= CURRENT_TIMESTAMP`); err != nil {
			return fmt.Errorf("store: purge expired undo tickets: %w", err)
		}
		return nil
	})
	return staleAudioPaths, err
}
