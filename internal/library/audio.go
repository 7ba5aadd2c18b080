package library

import (
	"context"
	"fmt"
	"os"

	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
)

// GenerationStatus reports the worker's current queue depth and in-flight
// position (spec §6 "generation status").
func (s *Service) GenerationStatus() model.GenerationSnapshot {
	return s.worker.Snapshot()
}

// ChunkAudio returns a single chunk's rendered WAV bytes (spec §6 "chunk
// audio"). Mapped to apperr.ErrInvalidState when the chunk has not finished
// synthesis — spec §6 calls this kind "NotReady", which is not otherwise a
// distinct error kind (spec §7); it is a status-disallowed operation in the
// same sense InvalidState already covers elsewhere.
func (s *Service) ChunkAudio(ctx context.Context, episodeID string, chunkIndex int) ([]byte, error) {
	_, chunks, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if chunkIndex < 0 || chunkIndex >= len(chunks) {
		return nil, fmt.Errorf("library: chunk index %d out of bounds for episode %q: %w", chunkIndex, episodeID, apperr.ErrInvalidIndex)
	}
	chunk := chunks[chunkIndex]
	if chunk.Status != model.ChunkReady {
		return nil, fmt.Errorf("library: chunk %d of episode %q not ready: %w", chunkIndex, episodeID, apperr.ErrInvalidState)
	}

	data, err := os.ReadFile(s.assembler.ChunkPath(episodeID, chunkIndex))
	if err != nil {
		return nil, fmt.Errorf("library: read chunk %d audio: %w", chunkIndex, apperr.ErrInternal)
	}
	return data, nil
}

// FullEpisodeAudio assembles (or reuses the cached) full-episode artifact in
// format and returns its bytes (spec §6 "full episode audio"). Byte-range
// slicing for streaming clients is a transport-layer concern handled above
// this service, not here.
func (s *Service) FullEpisodeAudio(ctx context.Context, episodeID, format string) ([]byte, error) {
	ep, chunks, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if ep.Status != model.EpisodeReady {
		return nil, fmt.Errorf("library: episode %q not ready: %w", episodeID, apperr.ErrInvalidState)
	}

	enc, err := s.resolveEncoder(format)
	if err != nil {
		return nil, err
	}
	path, err := s.assembler.Assemble(ctx, episodeID, len(chunks), enc)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("library: read episode %q artifact: %w", episodeID, apperr.ErrInternal)
	}
	return data, nil
}
