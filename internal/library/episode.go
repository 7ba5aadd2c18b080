package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/speakcast/speakcast/internal/chunker"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
)

// CreateEpisodeRequest carries the (mostly optional) generation settings for
// a new Episode (spec §6 "create episode"). Zero-valued fields fall back
// through Settings then the package hard defaults, per
// [Service.resolveEpisodeSettings].
type CreateEpisodeRequest struct {
	SourceID      string
	Title         string
	VoiceID       string
	OutputFormat  string
	ChunkStrategy model.ChunkStrategy
	ChunkMaxChars int
	Breathing     model.BreathingIntensity
	FolderID      string
}

// CreateEpisode validates the source exists and the resolved voice is
// known, chunks the source's cleaned text, and inserts the Episode and its
// chunk plan in one transaction before enqueuing it on the worker (spec
// §4.7 "Create episode"). Returns the created episode and its chunk count.
func (s *Service) CreateEpisode(ctx context.Context, req CreateEpisodeRequest) (*model.Episode, int, error) {
	src, err := s.store.GetSource(ctx, req.SourceID)
	if err != nil {
		return nil, 0, err
	}

	resolved, err := s.resolveEpisodeSettings(ctx, req.VoiceID, req.OutputFormat, req.ChunkStrategy, req.ChunkMaxChars, req.Breathing)
	if err != nil {
		return nil, 0, err
	}
	if resolved.VoiceID != "" && s.voices != nil && !s.voices.Has(resolved.VoiceID) {
		return nil, 0, fmt.Errorf("library: voice %q: %w", resolved.VoiceID, apperr.ErrNotFound)
	}

	pieces := chunker.Split(src.CleanedText, resolved.ChunkStrategy, resolved.ChunkMaxChars, resolved.Breathing)
	if len(pieces) == 0 {
		return nil, 0, fmt.Errorf("library: create episode from source %q: %w", req.SourceID, apperr.ErrEmptyContent)
	}

	title := req.Title
	if title == "" {
		title = src.Title
	}

	ep := &model.Episode{
		SourceID:           req.SourceID,
		Title:              title,
		VoiceID:            resolved.VoiceID,
		OutputFormat:       resolved.OutputFormat,
		ChunkStrategy:      resolved.ChunkStrategy,
		ChunkMaxLength:     resolved.ChunkMaxChars,
		BreathingIntensity: resolved.Breathing,
		FolderID:           req.FolderID,
	}
	chunks := chunksFromPieces(pieces)

	if err := s.store.CreateEpisode(ctx, ep, chunks); err != nil {
		return nil, 0, err
	}
	s.worker.Enqueue(ep.ID)
	return ep, len(chunks), nil
}

// GetEpisode returns an Episode and its chunks (spec §6 "get episode").
func (s *Service) GetEpisode(ctx context.Context, id string) (*model.Episode, []model.Chunk, error) {
	return s.store.GetEpisode(ctx, id)
}

// CancelEpisode transitions an episode to cancelled (spec §4.7 "Cancel").
// Disallowed on episodes that are already terminal (ready or cancelled),
// matching spec §7's InvalidState example ("cancel a ready episode").
func (s *Service) CancelEpisode(ctx context.Context, id string) error {
	ep, _, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	if ep.Status == model.EpisodeReady || ep.Status == model.EpisodeCancelled {
		return fmt.Errorf("library: cancel episode %q in status %q: %w", id, ep.Status, apperr.ErrInvalidState)
	}
	if err := s.store.CancelEpisodeChunks(ctx, id); err != nil {
		return err
	}
	return s.assembler.Invalidate(id)
}

// RetryErrors resets every error chunk of episodeID back to pending and
// re-enqueues it (spec §4.7 "Retry errors").
func (s *Service) RetryErrors(ctx context.Context, episodeID string) error {
	if _, _, err := s.store.GetEpisode(ctx, episodeID); err != nil {
		return err
	}
	if err := s.store.ResetErrorChunksToPending(ctx, episodeID); err != nil {
		return err
	}
	if err := s.assembler.Invalidate(episodeID); err != nil {
		return err
	}
	s.worker.Requeue(episodeID)
	return nil
}

// BulkMoveEpisodes moves every episode in ids to folderID (empty means
// root) in a single transaction (spec §4.7 "Bulk move").
func (s *Service) BulkMoveEpisodes(ctx context.Context, ids []string, folderID string) error {
	return s.store.BulkMoveEpisodes(ctx, ids, folderID)
}

// BulkDeleteEpisodes deletes every episode in ids in a single transaction,
// then best-effort removes their on-disk audio directories (spec §4.7 "Bulk
// delete", spec §8 round-trip law "no orphan files").
func (s *Service) BulkDeleteEpisodes(ctx context.Context, ids []string) error {
	if err := s.store.BulkDeleteEpisodes(ctx, ids); err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.assembler.RemoveEpisodeDir(id); err != nil {
			slog.ErrorContext(ctx, "library: failed to remove episode audio directory", "episode_id", id, "error", err)
		}
	}
	return nil
}

// chunksFromPieces adapts the chunker's output unit to model.Chunk, leaving
// EpisodeID for the store to stamp in during insertion.
func chunksFromPieces(pieces []chunker.Chunk) []model.Chunk {
	out := make([]model.Chunk, len(pieces))
	for i, p := range pieces {
		out[i] = model.Chunk{ChunkIndex: p.Index, Text: p.Text, Label: p.Label}
	}
	return out
}
