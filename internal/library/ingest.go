package library

import (
	"context"
	"fmt"
	"time"

	"github.com/speakcast/speakcast/internal/chunker"
	"github.com/speakcast/speakcast/internal/ingest"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
	"github.com/speakcast/speakcast/internal/normalizer"
	"github.com/speakcast/speakcast/internal/observe"
)

// IngestRequest carries the variant-specific payload for a new Source (spec
// §6 "ingest": "variant + payload + cleaning config").
type IngestRequest struct {
	Variant model.SourceType

	Text string // variant=text

	FileData []byte // variant=file
	FileName string // variant=file

	URL string // variant=url

	GitRepoURL string // variant=git
	GitSubpath string // variant=git

	Title    string // optional override; auto-derived when empty
	Cleaning *model.CleaningSettings
	FolderID string
}

// Ingest dispatches on req.Variant, cleans the resulting raw text, and
// persists a new Source (spec §4.7 "Create episode" data flow step 1, and
// spec §6 "ingest").
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*model.Source, error) {
	ctx, span := observe.StartSpan(ctx, "library.ingest")
	defer span.End()
	metrics := observe.DefaultMetrics()
	start := time.Now()
	defer func() { metrics.IngestDuration.Record(ctx, time.Since(start).Seconds()) }()

	var result ingest.Result
	var err error

	switch req.Variant {
	case model.SourceText:
		result, err = ingest.IngestText(req.Text, req.Title)
	case model.SourceFile:
		result, err = ingest.IngestFile(req.FileData, req.FileName)
	case model.SourceURL:
		if s.fetcher == nil {
			return nil, fmt.Errorf("library: url ingestion not configured: %w", apperr.ErrInternal)
		}
		result, err = s.fetcher.IngestURL(ctx, req.URL)
	case model.SourceGit:
		result, err = ingest.IngestGit(ctx, req.GitRepoURL, req.GitSubpath)
	default:
		return nil, fmt.Errorf("library: ingest variant %q: %w", req.Variant, apperr.ErrUnsupportedType)
	}
	if err != nil {
		metrics.RecordIngest(ctx, string(req.Variant), "error")
		span.RecordError(err)
		return nil, err
	}
	metrics.RecordIngest(ctx, string(req.Variant), "ok")

	title := req.Title
	if title == "" {
		title = result.Title
	}

	cleaning, err := s.resolveCleaning(ctx, req.Cleaning)
	if err != nil {
		return nil, err
	}

	src := &model.Source{
		Title:       title,
		SourceType:  req.Variant,
		RawText:     result.RawText,
		CleanedText: normalizer.Normalize(result.RawText, cleaning),
		Cleaning:    cleaning,
		FolderID:    req.FolderID,
	}
	if err := s.store.CreateSource(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}

// ReCleanSource re-normalizes a Source's raw text under new cleaning
// settings, replacing its cleaned_text in place (spec §6 "re-clean source").
// Existing episodes built from this source keep their already-materialized
// chunk plan untouched (spec §3 Episode invariant "chunk plan is immutable").
func (s *Service) ReCleanSource(ctx context.Context, sourceID string, cleaning model.CleaningSettings) (*model.Source, error) {
	src, err := s.store.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	cleanedText := normalizer.Normalize(src.RawText, cleaning)
	if err := s.store.UpdateCleanedText(ctx, sourceID, cleanedText, cleaning); err != nil {
		return nil, err
	}
	src.CleanedText = cleanedText
	src.Cleaning = cleaning
	return src, nil
}

// PreviewClean returns the cleaned text normalizer.Normalize would produce
// for raw under cleaning, without persisting anything (spec §6 "preview
// clean"). Normalize never errors, so neither does this.
func (s *Service) PreviewClean(raw string, cleaning model.CleaningSettings) string {
	return normalizer.Normalize(raw, cleaning)
}

// PreviewChunks returns the chunk plan chunker.Split would produce for text
// without persisting anything (spec §6 "preview chunks"). Returns
// apperr.ErrEmptyContent if the resulting plan is empty.
func (s *Service) PreviewChunks(text string, strategy model.ChunkStrategy, maxChars int, breathing model.BreathingIntensity) ([]chunker.Chunk, error) {
	pieces := chunker.Split(text, strategy, maxChars, breathing)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("library: preview chunks: %w", apperr.ErrEmptyContent)
	}
	return pieces, nil
}
