package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/speakcast/speakcast/internal/model"
)

// fuzzyTagThreshold is the Jaro-Winkler similarity above which a requested
// tag name is folded into an existing tag instead of creating a duplicate
// (spec §4.7 "Create tag... near-duplicate names fold into the existing
// tag"). Tags are short, hand-typed labels, so the bar is set higher than
// general free-text matching to avoid merging genuinely distinct tags.
const fuzzyTagThreshold = 0.92

// EnsureTag returns the tag named name, creating it if no exact or
// near-duplicate match exists (spec §4.7 "Create tag"). newlyCreated is true
// only when a new row was inserted.
func (s *Service) EnsureTag(ctx context.Context, name string) (tag *model.Tag, newlyCreated bool, err error) {
	if exact, err := s.store.FindTagByName(ctx, name); err != nil {
		return nil, false, err
	} else if exact != nil {
		return exact, false, nil
	}

	candidates, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, false, err
	}
	lower := strings.ToLower(name)
	for i := range candidates {
		if matchr.JaroWinkler(lower, strings.ToLower(candidates[i].Name), false) >= fuzzyTagThreshold {
			return &candidates[i], false, nil
		}
	}

	created, err := s.store.CreateTag(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// TagSource resolves or creates a tag named name and associates it with
// sourceID (spec §4.7 "Create tag" applied to a source).
func (s *Service) TagSource(ctx context.Context, sourceID, name string) (*model.Tag, error) {
	tag, _, err := s.EnsureTag(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.store.TagSource(ctx, sourceID, tag.ID); err != nil {
		return nil, fmt.Errorf("library: tag source %q: %w", sourceID, err)
	}
	return tag, nil
}

// TagEpisode resolves or creates a tag named name and associates it with
// episodeID (spec §4.7 "Create tag" applied to an episode).
func (s *Service) TagEpisode(ctx context.Context, episodeID, name string) (*model.Tag, error) {
	tag, _, err := s.EnsureTag(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.store.TagEpisode(ctx, episodeID, tag.ID); err != nil {
		return nil, fmt.Errorf("library: tag episode %q: %w", episodeID, err)
	}
	return tag, nil
}
