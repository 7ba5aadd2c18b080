package library

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakcast/speakcast/internal/audio"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
	"github.com/speakcast/speakcast/internal/store"
	"github.com/speakcast/speakcast/internal/tts"
)

// fakeWorker records Enqueue/Requeue calls instead of actually draining a
// queue, so library tests can assert on scheduling intent without running
// the real worker goroutine (mirrors the teacher's mock-collaborator style,
// e.g. pkg/provider/tts/mock).
type fakeWorker struct {
	enqueued []string
	requeued []string
}

func (f *fakeWorker) Enqueue(episodeID string) { f.enqueued = append(f.enqueued, episodeID) }
func (f *fakeWorker) Requeue(episodeID string) { f.requeued = append(f.requeued, episodeID) }
func (f *fakeWorker) Snapshot() model.GenerationSnapshot {
	return model.GenerationSnapshot{QueueSize: len(f.enqueued)}
}

func newTestService(t *testing.T) (*Service, *store.Store, *fakeWorker) {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := store.NewWithDB(db)
	require.NoError(t, s.Migrate(context.Background()))

	w := &fakeWorker{}
	asm := audio.NewAssembler(t.TempDir())
	voices, err := tts.NewCatalogue(context.Background(), fixedVoices{{ID: "alloy", Name: "Alloy"}})
	require.NoError(t, err)

	svc := New(s, w, asm, nil, nil, voices, 2*time.Minute)
	return svc, s, w
}

type fixedVoices []tts.Voice

func (f fixedVoices) Synthesize(context.Context, string, string) ([]byte, error) { return nil, nil }
func (f fixedVoices) ListVoices(context.Context) ([]tts.Voice, error)             { return f, nil }

func mustIngestText(t *testing.T, svc *Service, text string) *model.Source {
	t.Helper()
	src, err := svc.Ingest(context.Background(), IngestRequest{
		Variant: model.SourceText,
		Text:    text,
		Title:   "Source",
	})
	require.NoError(t, err)
	return src
}

func TestCreateEpisode_ChunksAndEnqueues(t *testing.T) {
	svc, _, w := newTestService(t)
	src := mustIngestText(t, svc, "A.\n\nB.\n\nC.")

	ep, count, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{
		SourceID:      src.ID,
		VoiceID:       "alloy",
		OutputFormat:  "wav",
		ChunkStrategy: model.StrategyParagraph,
		ChunkMaxChars: 100,
		Breathing:     model.BreathingNone,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, model.EpisodePending, ep.Status)
	assert.Equal(t, []string{ep.ID}, w.enqueued)
}

func TestCreateEpisode_EmptyContentRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	src := mustIngestText(t, svc, "   \n\n   ")

	_, _, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{
		SourceID:      src.ID,
		ChunkStrategy: model.StrategyParagraph,
		ChunkMaxChars: 100,
	})
	assert.ErrorIs(t, err, apperr.ErrEmptyContent)
}

func TestCreateEpisode_UnknownVoiceRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	src := mustIngestText(t, svc, "hello")

	_, _, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{
		SourceID:      src.ID,
		VoiceID:       "does-not-exist",
		ChunkStrategy: model.StrategyParagraph,
		ChunkMaxChars: 100,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelEpisode_RejectsReadyEpisode(t *testing.T) {
	svc, s, _ := newTestService(t)
	src := mustIngestText(t, svc, "A.")
	ep, _, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{
		SourceID: src.ID, VoiceID: "alloy", ChunkStrategy: model.StrategyParagraph, ChunkMaxChars: 100,
	})
	require.NoError(t, err)

	// Fast-forward the episode to ready by marking its one chunk ready directly.
	require.NoError(t, s.MarkChunkReady(context.Background(), ep.ID, 0, "/tmp/x.wav", 1.0))

	err = svc.CancelEpisode(context.Background(), ep.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestRegenerateChunk_PreservesSiblings(t *testing.T) {
	svc, s, w := newTestService(t)
	src := mustIngestText(t, svc, "A.\n\nB.\n\nC.")
	ep, count, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{
		SourceID: src.ID, VoiceID: "alloy", ChunkStrategy: model.StrategyParagraph, ChunkMaxChars: 100,
	})
	require.NoError(t, err)
	require.Equal(t, 3, count)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.MarkChunkReady(ctx, ep.ID, i, "/tmp/"+string(rune('a'+i))+".wav", 1.0))
	}

	require.NoError(t, svc.RegenerateChunk(ctx, ep.ID, 1))

	_, chunks, err := s.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChunkReady, chunks[0].Status)
	assert.Equal(t, model.ChunkPending, chunks[1].Status)
	assert.Equal(t, model.ChunkReady, chunks[2].Status)
	assert.Contains(t, w.requeued, ep.ID)
}

func TestRegenerateWithSettingsAndUndo_RoundTrips(t *testing.T) {
	svc, s, _ := newTestService(t)
	src := mustIngestText(t, svc, "A.\n\nB.")
	ep, _, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{
		SourceID: src.ID, VoiceID: "alloy", ChunkStrategy: model.StrategyParagraph, ChunkMaxChars: 100,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.MarkChunkReady(ctx, ep.ID, 0, "/tmp/a.wav", 1.0))
	require.NoError(t, s.MarkChunkReady(ctx, ep.ID, 1, "/tmp/b.wav", 1.0))

	undoID, err := svc.RegenerateWithSettings(ctx, ep.ID, RegenerateSettingsRequest{VoiceID: "echo"})
	require.NoError(t, err)

	gotEp, _, err := s.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, "echo", gotEp.VoiceID)

	require.NoError(t, svc.Undo(ctx, undoID))

	restored, chunks, err := s.GetEpisode(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, "alloy", restored.VoiceID)
	assert.Equal(t, "/tmp/a.wav", chunks[0].AudioPath)
	assert.Equal(t, "/tmp/b.wav", chunks[1].AudioPath)
}

func TestUndo_ExpiredTicketFails(t *testing.T) {
	svc, s, _ := newTestService(t)
	svc.undoWindow = -1 * time.Second // already expired the instant it's created
	src := mustIngestText(t, svc, "A.")
	ep, _, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{
		SourceID: src.ID, VoiceID: "alloy", ChunkStrategy: model.StrategyParagraph, ChunkMaxChars: 100,
	})
	require.NoError(t, err)
	require.NoError(t, s.MarkChunkReady(context.Background(), ep.ID, 0, "/tmp/a.wav", 1.0))

	undoID, err := svc.RegenerateWithSettings(context.Background(), ep.ID, RegenerateSettingsRequest{VoiceID: "echo"})
	require.NoError(t, err)

	err = svc.Undo(context.Background(), undoID)
	assert.ErrorIs(t, err, apperr.ErrUndoExpired)
}

func TestBulkMoveAndDeleteEpisodes(t *testing.T) {
	svc, s, _ := newTestService(t)
	src := mustIngestText(t, svc, "A.")
	ep1, _, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{SourceID: src.ID, VoiceID: "alloy", ChunkStrategy: model.StrategyParagraph, ChunkMaxChars: 100})
	require.NoError(t, err)
	ep2, _, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{SourceID: src.ID, VoiceID: "alloy", ChunkStrategy: model.StrategyParagraph, ChunkMaxChars: 100})
	require.NoError(t, err)

	folder, err := svc.CreateFolder(context.Background(), "Stuff", "")
	require.NoError(t, err)

	require.NoError(t, svc.BulkMoveEpisodes(context.Background(), []string{ep1.ID, ep2.ID}, folder.ID))
	gotEp1, _, err := s.GetEpisode(context.Background(), ep1.ID)
	require.NoError(t, err)
	assert.Equal(t, folder.ID, gotEp1.FolderID)

	require.NoError(t, svc.BulkDeleteEpisodes(context.Background(), []string{ep1.ID, ep2.ID}))
	_, _, err = s.GetEpisode(context.Background(), ep1.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFolderPlaylist_OnlyReadyEpisodes(t *testing.T) {
	svc, s, _ := newTestService(t)
	src := mustIngestText(t, svc, "A.")
	folder, err := svc.CreateFolder(context.Background(), "Podcasts", "")
	require.NoError(t, err)

	ready, _, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{
		SourceID: src.ID, VoiceID: "alloy", ChunkStrategy: model.StrategyParagraph, ChunkMaxChars: 100, FolderID: folder.ID,
	})
	require.NoError(t, err)
	require.NoError(t, s.MarkChunkReady(context.Background(), ready.ID, 0, "/tmp/a.wav", 1.0))

	_, _, err = svc.CreateEpisode(context.Background(), CreateEpisodeRequest{
		SourceID: src.ID, VoiceID: "alloy", ChunkStrategy: model.StrategyParagraph, ChunkMaxChars: 100, FolderID: folder.ID,
	})
	require.NoError(t, err)

	playlist, err := svc.FolderPlaylist(context.Background(), folder.ID)
	require.NoError(t, err)
	require.Len(t, playlist, 1)
	assert.Equal(t, ready.ID, playlist[0].ID)
}

func TestSavePlayback_RejectsOutOfBoundsIndex(t *testing.T) {
	svc, _, _ := newTestService(t)
	src := mustIngestText(t, svc, "A.")
	ep, _, err := svc.CreateEpisode(context.Background(), CreateEpisodeRequest{
		SourceID: src.ID, VoiceID: "alloy", ChunkStrategy: model.StrategyParagraph, ChunkMaxChars: 100,
	})
	require.NoError(t, err)

	err = svc.SavePlayback(context.Background(), ep.ID, 5, 1.0, 10.0)
	assert.ErrorIs(t, err, apperr.ErrInvalidIndex)

	require.NoError(t, svc.SavePlayback(context.Background(), ep.ID, 0, 1.5, 20.0))
	pb, err := svc.GetPlayback(context.Background(), ep.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pb.CurrentChunkIdx)
}

func TestEnsureTag_FoldsNearDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	tag1, created1, err := svc.EnsureTag(context.Background(), "golang")
	require.NoError(t, err)
	assert.True(t, created1)

	tag2, created2, err := svc.EnsureTag(context.Background(), "go-lang") // near-duplicate of golang
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, tag1.ID, tag2.ID)
}
