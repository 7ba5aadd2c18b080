package worker

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakcast/speakcast/internal/audio"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/store"
	"github.com/speakcast/speakcast/internal/tts"
	"github.com/speakcast/speakcast/internal/tts/mock"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := store.NewWithDB(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sinePCM(n int) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		out[i*2] = byte(i)
	}
	return out
}

func TestWorker_DrainsEpisodeToReady(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	src := &model.Source{Title: "t", SourceType: model.SourceText, RawText: "x", CleanedText: "x", Cleaning: model.DefaultCleaningSettings()}
	require.NoError(t, s.CreateSource(ctx, src))

	ep := &model.Episode{SourceID: src.ID, Title: "e", VoiceID: "alloy", OutputFormat: "wav", ChunkStrategy: model.StrategyParagraph, ChunkMaxLength: 1000, BreathingIntensity: model.BreathingNormal}
	chunks := []model.Chunk{{ChunkIndex: 0, Text: "one"}, {ChunkIndex: 1, Text: "two"}}
	require.NoError(t, s.CreateEpisode(ctx, ep, chunks))

	provider := &mock.Provider{SynthesizeResult: sinePCM(100)}
	dir := t.TempDir()
	asm := audio.NewAssembler(dir)
	w := New(s, provider, asm)
	w.Enqueue(ep.ID)

	runCtx, cancel := context.WithCancel(ctx)
	go w.Run(runCtx)

	require.Eventually(t, func() bool {
		gotEp, _, err := s.GetEpisode(ctx, ep.ID)
		return err == nil && gotEp.Status == model.EpisodeReady
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-w.Stopped()

	_, gotChunks, err := s.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	for _, c := range gotChunks {
		assert.Equal(t, model.ChunkReady, c.Status)
		assert.NotEmpty(t, c.AudioPath)
	}
	assert.Len(t, provider.SynthesizeCalls, 2)
}

func TestWorker_SynthesisFailureMarksChunkErrorAndContinues(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	src := &model.Source{Title: "t", SourceType: model.SourceText, RawText: "x", CleanedText: "x", Cleaning: model.DefaultCleaningSettings()}
	require.NoError(t, s.CreateSource(ctx, src))

	ep := &model.Episode{SourceID: src.ID, Title: "e", VoiceID: "alloy", OutputFormat: "wav", ChunkStrategy: model.StrategyParagraph, ChunkMaxLength: 1000, BreathingIntensity: model.BreathingNormal}
	chunks := []model.Chunk{{ChunkIndex: 0, Text: "one"}, {ChunkIndex: 1, Text: "two"}}
	require.NoError(t, s.CreateEpisode(ctx, ep, chunks))

	provider := &mock.Provider{SynthesizeErr: assertErr{}}
	dir := t.TempDir()
	asm := audio.NewAssembler(dir)
	w := New(s, provider, asm)
	w.Enqueue(ep.ID)

	runCtx, cancel := context.WithCancel(ctx)
	go w.Run(runCtx)

	require.Eventually(t, func() bool {
		gotEp, _, err := s.GetEpisode(ctx, ep.ID)
		return err == nil && gotEp.Status == model.EpisodeError
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-w.Stopped()
}

type assertErr struct{}

func (assertErr) Error() string { return "synthesis exploded" }

var _ tts.Provider = (*mock.Provider)(nil)
