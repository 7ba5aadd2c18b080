// Package library implements the Library Service (spec §4.7, component C7):
// higher-level operations over the store, chunker, normalizer, ingestor,
// worker, and audio assembler that must appear atomic to external callers.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/speakcast/speakcast/internal/audio"
	"github.com/speakcast/speakcast/internal/codec"
	"github.com/speakcast/speakcast/internal/codec/passthrough"
	"github.com/speakcast/speakcast/internal/ingest"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
	"github.com/speakcast/speakcast/internal/store"
	"github.com/speakcast/speakcast/internal/tts"
	"github.com/speakcast/speakcast/internal/worker"
)

// Synthesizer is the subset of worker.Worker the Library Service depends on,
// narrowed for testability the way the teacher narrows its own collaborator
// dependencies to single-method interfaces.
type Synthesizer interface {
	Enqueue(episodeID string)
	Requeue(episodeID string)
	Snapshot() model.GenerationSnapshot
}

// Service coordinates multi-entity operations (spec §4.7). It holds no
// mutable state of its own; all state lives in the Store.
type Service struct {
	store      *store.Store
	worker     Synthesizer
	assembler  *audio.Assembler
	fetcher    *ingest.Fetcher
	voices     *tts.Catalogue
	undoWindow time.Duration

	// codec is the process's one configured lossy/optional codec adapter
	// (e.g. opus), used when an episode's output_format matches it. The
	// "wav" and "pcm" formats are always served by the built-in
	// audio.WAVEncoder / passthrough.Encoder regardless of what is
	// configured here, since those containers require no external codec
	// (spec §9 "global mutable state... explicit, accessed through a
	// single handle").
	codec codec.Encoder
}

// New constructs a Service. codec may be nil if no lossy codec adapter is
// configured; "wav" and "pcm" output formats remain available either way.
func New(s *store.Store, w Synthesizer, a *audio.Assembler, f *ingest.Fetcher, enc codec.Encoder, voices *tts.Catalogue, undoWindow time.Duration) *Service {
	return &Service{
		store:      s,
		worker:     w,
		assembler:  a,
		fetcher:    f,
		voices:     voices,
		undoWindow: undoWindow,
		codec:      enc,
	}
}

// resolveEncoder maps an Episode's output_format to the codec.Encoder that
// produces it (spec §6 "audio codec collaborator").
func (s *Service) resolveEncoder(format string) (codec.Encoder, error) {
	switch format {
	case "wav":
		return audio.NewWAVEncoder(), nil
	case "pcm":
		return passthrough.New(), nil
	default:
		if s.codec != nil && s.codec.Format() == format {
			return s.codec, nil
		}
		return nil, fmt.Errorf("library: output format %q: %w", format, apperr.ErrUnsupportedType)
	}
}

// pick returns explicit if it is non-zero, else settingsVal if non-zero,
// else hardDefault — the three-tier fallback spec §3/SPEC_FULL §3 "Settings
// defaults resolution" calls for.
func pick[T comparable](explicit, settingsVal, hardDefault T) T {
	var zero T
	if explicit != zero {
		return explicit
	}
	if settingsVal != zero {
		return settingsVal
	}
	return hardDefault
}

// orElse returns explicit if it is non-zero, else fallback — the two-tier
// variant of pick used when there is no process-wide Settings default to
// consult, only the entity's own current value (spec §4.7 "Regenerate with
// settings" partial updates).
func orElse[T comparable](explicit, fallback T) T {
	var zero T
	if explicit != zero {
		return explicit
	}
	return fallback
}

// resolvedEpisodeSettings is the fully-resolved set of generation settings
// for a create/regenerate-with-settings request.
type resolvedEpisodeSettings struct {
	VoiceID       string
	OutputFormat  string
	ChunkStrategy model.ChunkStrategy
	ChunkMaxChars int
	Breathing     model.BreathingIntensity
}

// resolveEpisodeSettings applies the defaults resolution order: explicit
// request field wins, else the persisted Settings row, else the package
// hard default (model.DefaultSettings).
func (s *Service) resolveEpisodeSettings(ctx context.Context, voiceID, outputFormat string, strategy model.ChunkStrategy, maxChars int, breathing model.BreathingIntensity) (resolvedEpisodeSettings, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return resolvedEpisodeSettings{}, err
	}
	hard := model.DefaultSettings()
	return resolvedEpisodeSettings{
		VoiceID:       pick(voiceID, settings.DefaultVoiceID, ""),
		OutputFormat:  pick(outputFormat, settings.DefaultOutputFormat, hard.DefaultOutputFormat),
		ChunkStrategy: pick(strategy, settings.DefaultChunkStrategy, hard.DefaultChunkStrategy),
		ChunkMaxChars: pick(maxChars, settings.DefaultChunkMaxChars, hard.DefaultChunkMaxChars),
		Breathing:     pick(breathing, settings.DefaultBreathing, hard.DefaultBreathing),
	}, nil
}

// resolveCleaning applies the same three-tier fallback to cleaning settings
// for ingest/re-clean requests. A nil explicit pointer means "not supplied".
func (s *Service) resolveCleaning(ctx context.Context, explicit *model.CleaningSettings) (model.CleaningSettings, error) {
	if explicit != nil {
		return *explicit, nil
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return model.CleaningSettings{}, err
	}
	var zero model.CleaningSettings
	if settings.DefaultCleaning != zero {
		return settings.DefaultCleaning, nil
	}
	return model.DefaultCleaningSettings(), nil
}

// unlinkBestEffort removes on-disk files, logging failures rather than
// surfacing them (spec §7 "a failed unlink is logged, not surfaced").
func unlinkBestEffort(ctx context.Context, paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.ErrorContext(ctx, "library: failed to unlink stale audio file", "path", p, "error", err)
		}
	}
}
