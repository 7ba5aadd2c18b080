// Package worker implements the single cooperative synthesis worker (spec
// §4.5, component C5): a FIFO queue of episodes, draining chunks in
// ascending index order with at-most-one chunk generating at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/speakcast/speakcast/internal/audio"
	"github.com/speakcast/speakcast/internal/model"
	"github.com/speakcast/speakcast/internal/model/apperr"
	"github.com/speakcast/speakcast/internal/observe"
	"github.com/speakcast/speakcast/internal/store"
	"github.com/speakcast/speakcast/internal/tts"
)

const maxErrorMessageLen = 2000

// Snapshot is the point-in-time observability view spec §4.5 requires:
// "{queue_size, current_episode_id, current_chunk_index}", consistent with
// the Store within one transaction boundary.
type Snapshot = model.GenerationSnapshot

// Worker drains a FIFO queue of episode ids, processing each episode's
// chunks in ascending chunk_index order. It is explicitly single-threaded
// against the TTS collaborator (spec §5 "exactly one cooperative worker
// thread owns the TTS model").
type Worker struct {
	store     *store.Store
	tts       tts.Provider
	assembler *audio.Assembler

	mu       sync.Mutex
	queue    []string // episode ids, FIFO
	queued   map[string]bool
	current  string
	curChunk int

	wake chan struct{}
	done chan struct{}
}

// New constructs a Worker. Call Recover then Run to start processing.
func New(s *store.Store, provider tts.Provider, assembler *audio.Assembler) *Worker {
	return &Worker{
		store:     s,
		tts:       provider,
		assembler: assembler,
		queued:    make(map[string]bool),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Enqueue admits episodeID at the tail of the FIFO queue. Enqueuing an
// episode already queued is a no-op (spec §4.5 "idempotence").
func (w *Worker) Enqueue(episodeID string) {
	w.mu.Lock()
	added := !w.queued[episodeID]
	if added {
		w.queue = append(w.queue, episodeID)
		w.queued[episodeID] = true
	}
	w.mu.Unlock()
	if added {
		observe.DefaultMetrics().QueueDepth.Add(context.Background(), 1)
	}
	w.signal()
}

// Requeue moves episodeID to the tail of the queue, used when a regeneration
// request arrives for an episode already mid-pass (spec §4.5 "regeneration
// requests are interleaved by requeueing the affected episode at the tail").
func (w *Worker) Requeue(episodeID string) {
	w.mu.Lock()
	wasQueued := w.queued[episodeID]
	if wasQueued {
		for i, id := range w.queue {
			if id == episodeID {
				w.queue = append(w.queue[:i], w.queue[i+1:]...)
				break
			}
		}
	}
	w.queued[episodeID] = true
	w.queue = append(w.queue, episodeID)
	w.mu.Unlock()
	if !wasQueued {
		observe.DefaultMetrics().QueueDepth.Add(context.Background(), 1)
	}
	w.signal()
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Recover resets any crash-interrupted state and re-admits episodes that
// still have pending work (spec §4.1/§4.5 crash recovery).
func (w *Worker) Recover(ctx context.Context) error {
	ids, err := w.store.RecoverStartupState(ctx)
	if err != nil {
		return fmt.Errorf("worker: recover startup state: %w", err)
	}
	for _, id := range ids {
		w.Enqueue(id)
	}
	slog.Info("worker recovered startup state", "requeued_episodes", len(ids))
	return nil
}

// Snapshot returns the current point-in-time observability view.
func (w *Worker) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		QueueSize:        len(w.queue),
		CurrentEpisodeID: w.current,
		CurrentChunkIdx:  w.curChunk,
	}
}

// Run processes the queue until ctx is cancelled. Intended to be run in its
// own goroutine for the lifetime of the process.
func (w *Worker) Run(ctx context.Context) {
	for {
		episodeID, ok := w.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				close(w.done)
				return
			case <-w.wake:
				continue
			}
		}

		w.setCurrent(episodeID, -1)
		w.drainEpisode(ctx, episodeID)
		w.setCurrent("", -1)

		select {
		case <-ctx.Done():
			close(w.done)
			return
		default:
		}
	}
}

// Stopped returns a channel closed once Run has returned.
func (w *Worker) Stopped() <-chan struct{} { return w.done }

func (w *Worker) dequeue() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return "", false
	}
	id := w.queue[0]
	w.queue = w.queue[1:]
	delete(w.queued, id)
	observe.DefaultMetrics().QueueDepth.Add(context.Background(), -1)
	return id, true
}

func (w *Worker) setCurrent(episodeID string, chunkIdx int) {
	w.mu.Lock()
	w.current = episodeID
	w.curChunk = chunkIdx
	w.mu.Unlock()
}

// drainEpisode implements the per-chunk algorithm of spec §4.5 steps 2-7,
// picking and synthesizing chunks in ascending index order until none
// remain pending, or the episode is found cancelled.
func (w *Worker) drainEpisode(ctx context.Context, episodeID string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if cancelled, err := w.episodeCancelled(ctx, episodeID); err != nil {
			slog.Error("worker: check episode cancellation", "episode_id", episodeID, "error", err)
			return
		} else if cancelled {
			return
		}

		chunk, err := w.store.PickNextPendingChunk(ctx, episodeID)
		if err != nil {
			slog.Error("worker: pick next pending chunk", "episode_id", episodeID, "error", err)
			return
		}
		if chunk == nil {
			if ep, _, err := w.store.GetEpisode(ctx, episodeID); err == nil {
				observe.DefaultMetrics().RecordEpisodeCompleted(ctx, string(ep.Status))
			}
			return // no pending chunks left; episode aggregate already recomputed by the store
		}

		w.setCurrent(episodeID, chunk.ChunkIndex)
		w.synthesizeChunk(ctx, episodeID, *chunk)
	}
}

func (w *Worker) episodeCancelled(ctx context.Context, episodeID string) (bool, error) {
	ep, _, err := w.store.GetEpisode(ctx, episodeID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return ep.Status == model.EpisodeCancelled, nil
}

// synthesizeChunk runs the blocking TTS call outside any database
// transaction (spec §4.5 step 4) then commits the result in a short
// transaction, honoring cancellation before the commit (spec §4.5 step 7).
func (w *Worker) synthesizeChunk(ctx context.Context, episodeID string, chunk model.Chunk) {
	ep, _, err := w.store.GetEpisode(ctx, episodeID)
	if err != nil {
		slog.Error("worker: load episode for synthesis", "episode_id", episodeID, "error", err)
		return
	}

	ctx, span := observe.StartSpan(ctx, "worker.synthesize_chunk")
	span.SetAttributes(
		attribute.String("episode_id", episodeID),
		attribute.Int("chunk_index", chunk.ChunkIndex),
		attribute.String("voice_id", ep.VoiceID),
	)
	defer span.End()

	metrics := observe.DefaultMetrics()
	start := time.Now()
	pcm, synthErr := w.tts.Synthesize(ctx, chunk.Text, ep.VoiceID)
	took := time.Since(start)
	metrics.SynthesisDuration.Record(ctx, took.Seconds())
	slog.Info("worker synthesized chunk", "episode_id", episodeID, "chunk_index", chunk.ChunkIndex, "took", took)

	if cancelled, cErr := w.episodeCancelled(ctx, episodeID); cErr == nil && cancelled {
		if rerr := w.store.ResetChunkToPending(ctx, episodeID, chunk.ChunkIndex); rerr != nil {
			slog.Error("worker: roll back chunk after cancellation", "episode_id", episodeID, "chunk_index", chunk.ChunkIndex, "error", rerr)
		}
		return
	}

	if synthErr != nil {
		msg := truncate(synthErr.Error(), maxErrorMessageLen)
		metrics.RecordChunkSynthesized(ctx, "error")
		metrics.RecordSynthesisError(ctx, ep.VoiceID)
		span.RecordError(synthErr)
		if err := w.store.MarkChunkError(ctx, episodeID, chunk.ChunkIndex, msg); err != nil {
			slog.Error("worker: mark chunk error", "episode_id", episodeID, "chunk_index", chunk.ChunkIndex, "error", err)
		}
		return
	}

	path, durationSecs, err := w.assembler.WriteChunk(episodeID, chunk.ChunkIndex, pcm)
	if err != nil {
		msg := truncate(fmt.Sprintf("persist audio: %v", err), maxErrorMessageLen)
		if merr := w.store.MarkChunkError(ctx, episodeID, chunk.ChunkIndex, msg); merr != nil {
			slog.Error("worker: mark chunk error after write failure", "episode_id", episodeID, "chunk_index", chunk.ChunkIndex, "error", merr)
		}
		return
	}

	if cancelled, cErr := w.episodeCancelled(ctx, episodeID); cErr == nil && cancelled {
		if rerr := w.store.ResetChunkToPending(ctx, episodeID, chunk.ChunkIndex); rerr != nil {
			slog.Error("worker: roll back chunk after cancellation (post-write)", "episode_id", episodeID, "chunk_index", chunk.ChunkIndex, "error", rerr)
		}
		return
	}

	if err := w.store.MarkChunkReady(ctx, episodeID, chunk.ChunkIndex, path, durationSecs); err != nil {
		slog.Error("worker: mark chunk ready", "episode_id", episodeID, "chunk_index", chunk.ChunkIndex, "error", err)
		return
	}
	metrics.RecordChunkSynthesized(ctx, "ready")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
