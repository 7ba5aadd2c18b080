package library

import (
	"context"
	"fmt"

	"github.com/speakcast/speakcast/internal/chunker"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
)

// RegenerateEpisode resets every chunk of id to pending, invalidates cached
// audio, and re-enqueues the episode (spec §4.7 "Regenerate all"). Disallowed
// on a cancelled episode — cancellation is a terminal decision; resurrecting
// it requires an explicit new episode or undo, not a blanket regenerate.
func (s *Service) RegenerateEpisode(ctx context.Context, id string) error {
	ep, _, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	if ep.Status == model.EpisodeCancelled {
		return fmt.Errorf("library: regenerate cancelled episode %q: %w", id, apperr.ErrInvalidState)
	}

	clearedPaths, err := s.store.ResetAllChunksForRegeneration(ctx, id)
	if err != nil {
		return err
	}
	if err := s.assembler.Invalidate(id); err != nil {
		return err
	}
	unlinkBestEffort(ctx, clearedPaths)
	s.worker.Enqueue(id)
	return nil
}

// RegenerateChunk resets chunk index of episodeID to pending, clears its
// audio file, and re-enqueues the episode so the worker picks it up (spec
// §4.7 "Regenerate chunk (i)"). Sibling chunks are left untouched.
func (s *Service) RegenerateChunk(ctx context.Context, episodeID string, index int) error {
	clearedPath, err := s.store.ResetChunkForRegeneration(ctx, episodeID, index)
	if err != nil {
		return err
	}
	if err := s.assembler.Invalidate(episodeID); err != nil {
		return err
	}
	unlinkBestEffort(ctx, []string{clearedPath})
	s.worker.Requeue(episodeID)
	return nil
}

// RegenerateSettingsRequest carries a partial settings update; zero-valued
// fields keep the episode's current value instead of falling through to
// Settings (unlike CreateEpisode, this operation has no notion of a
// process-wide default to fall back to — it is an edit of one episode).
type RegenerateSettingsRequest struct {
	VoiceID       string
	OutputFormat  string
	ChunkStrategy model.ChunkStrategy
	ChunkMaxChars int
	Breathing     model.BreathingIntensity
}

// RegenerateWithSettings snapshots the episode's current state into an
// UndoTicket, applies req (which may re-chunk the source text), and
// re-enqueues the episode (spec §4.7 "Regenerate with settings (undoable)").
// Returns the undo ticket id.
func (s *Service) RegenerateWithSettings(ctx context.Context, episodeID string, req RegenerateSettingsRequest) (string, error) {
	ep, chunks, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return "", err
	}

	snapshot := model.EpisodeSnapshot{Episode: *ep, Chunks: chunks}
	undoID, err := s.store.CreateUndoTicket(ctx, model.UndoRegenerateWithSettings, episodeID, snapshot, s.undoWindow)
	if err != nil {
		return "", err
	}

	next := *ep
	next.VoiceID = orElse(req.VoiceID, ep.VoiceID)
	next.OutputFormat = orElse(req.OutputFormat, ep.OutputFormat)
	next.ChunkStrategy = orElse(req.ChunkStrategy, ep.ChunkStrategy)
	next.ChunkMaxLength = orElse(req.ChunkMaxChars, ep.ChunkMaxLength)
	next.BreathingIntensity = orElse(req.Breathing, ep.BreathingIntensity)

	src, err := s.store.GetSource(ctx, ep.SourceID)
	if err != nil {
		return "", err
	}
	pieces := chunker.Split(src.CleanedText, next.ChunkStrategy, next.ChunkMaxLength, next.BreathingIntensity)
	if len(pieces) == 0 {
		return "", fmt.Errorf("library: regenerate episode %q with settings: %w", episodeID, apperr.ErrEmptyContent)
	}

	// The prior chunk plan's audio files are exactly what the UndoTicket
	// above just snapshotted the paths to: they must survive on disk until
	// the undo window lapses (spec §4.7 "during the window, undo(ticket)
	// restores the snapshot atomically"; scenario 5, spec §8, expects the
	// original chunk audios intact after an in-window undo). Deleting them
	// here would make undo unable to restore playable audio, so unlike
	// RegenerateEpisode/RegenerateChunk (non-undoable, immediate cleanup)
	// this path leaves them for the janitor's expired-ticket sweep
	// (internal/janitor, internal/store.PurgeExpiredUndoTickets) to unlink
	// once the ticket actually expires.
	if _, err := s.store.ReplaceChunkPlan(ctx, next, chunksFromPieces(pieces)); err != nil {
		return "", err
	}
	if err := s.assembler.Invalidate(episodeID); err != nil {
		return "", err
	}
	s.worker.Enqueue(episodeID)
	return undoID, nil
}

// Undo restores an episode to the state captured by a prior
// regenerate_with_settings call, if the ticket has not expired (spec §4.7
// "During the window, undo(ticket) restores the snapshot atomically").
func (s *Service) Undo(ctx context.Context, undoID string) error {
	snapshot, err := s.store.RedeemUndoTicket(ctx, undoID)
	if err != nil {
		return err
	}
	if err := s.assembler.Invalidate(snapshot.Episode.ID); err != nil {
		return err
	}
	return nil
}
