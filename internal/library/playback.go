package library

import (
	"context"
	"fmt"

	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
)

// SavePlayback records the resume point for an episode, rejecting a
// chunkIndex outside the bounds of its actual chunk plan (spec §6 "save
// playback", error InvalidIndex).
func (s *Service) SavePlayback(ctx context.Context, episodeID string, chunkIndex int, positionSecs, percentListened float64) error {
	_, chunks, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return err
	}
	if chunkIndex < 0 || chunkIndex >= len(chunks) {
		return fmt.Errorf("library: chunk index %d out of bounds for episode %q: %w", chunkIndex, episodeID, apperr.ErrInvalidIndex)
	}

	return s.store.SavePlaybackState(ctx, &model.PlaybackState{
		EpisodeID:       episodeID,
		CurrentChunkIdx: chunkIndex,
		PositionSecs:    positionSecs,
		PercentListened: percentListened,
	})
}

// GetPlayback returns the last saved resume point for an episode, or nil if
// playback has never been saved.
func (s *Service) GetPlayback(ctx context.Context, episodeID string) (*model.PlaybackState, error) {
	return s.store.GetPlaybackState(ctx, episodeID)
}
