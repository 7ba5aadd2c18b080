// Package app wires all speakcast subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems (store, worker, assembler, library service, janitor), Run
// starts the background synthesis worker and housekeeping janitor and
// blocks until cancelled, and Shutdown tears everything down in order.
//
// For testing, inject test doubles via functional options (WithTTSProvider,
// WithCodecEncoder). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/speakcast/speakcast/internal/audio"
	"github.com/speakcast/speakcast/internal/codec"
	"github.com/speakcast/speakcast/internal/codec/opusadapter"
	"github.com/speakcast/speakcast/internal/codec/passthrough"
	"github.com/speakcast/speakcast/internal/config"
	"github.com/speakcast/speakcast/internal/health"
	"github.com/speakcast/speakcast/internal/ingest"
	"github.com/speakcast/speakcast/internal/janitor"
	"github.com/speakcast/speakcast/internal/library"
	"github.com/speakcast/speakcast/internal/store"
	"github.com/speakcast/speakcast/internal/tts"
	"github.com/speakcast/speakcast/internal/tts/mock"
	"github.com/speakcast/speakcast/internal/tts/openaiadapter"
	"github.com/speakcast/speakcast/internal/worker"
)

// fetchTimeout bounds the url ingestion variant's HTTP GET (spec §4.4).
const fetchTimeout = 30 * time.Second

// janitorSchedule is the robfig/cron expression the housekeeping sweep runs
// on. Every minute is frequent enough relative to the undo window (default
// 120s, spec §9) without adding meaningful load.
const janitorSchedule = "@every 1m"

// maxHealthyQueueBacklog bounds the synthesis worker's queue depth for
// readiness purposes (spec §4.5 "the queue is unbounded by design... intake
// rate is human"). A backlog past this many admitted episodes signals the
// single worker goroutine has stalled rather than legitimate intake.
const maxHealthyQueueBacklog = 500

// App owns every subsystem's lifetime and orchestrates speakcast's ingest →
// chunk → synthesize → assemble pipeline.
type App struct {
	cfg *config.Config

	Store   *store.Store
	Worker  *worker.Worker
	Library *library.Service
	Health  *health.Handler

	janitor *janitor.Janitor

	// closers are invoked in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New, used to inject test doubles.
type Option func(*options)

type options struct {
	tts   tts.Provider
	codec codec.Encoder
}

// WithTTSProvider injects a TTS provider instead of building one from config.
func WithTTSProvider(p tts.Provider) Option {
	return func(o *options) { o.tts = p }
}

// WithCodecEncoder injects a lossy codec encoder instead of building one from config.
func WithCodecEncoder(e codec.Encoder) Option {
	return func(o *options) { o.codec = e }
}

// New wires every subsystem together: opens and migrates the store, runs
// crash recovery, builds the configured TTS/codec adapters, constructs the
// worker and library service, and constructs the janitor. It does not start
// any background goroutine; call Run for that.
func New(ctx context.Context, cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	o := &options{}
	for _, fn := range opts {
		fn(o)
	}

	a := &App{cfg: cfg}

	dbPath := filepath.Join(cfg.DataDir, "library.db")
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}
	a.Store = st
	a.closers = append(a.closers, st.Close)

	if err := st.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("app: migrate store: %w", err)
	}

	ttsProvider, err := a.resolveTTS(o.tts, reg)
	if err != nil {
		return nil, fmt.Errorf("app: resolve tts provider: %w", err)
	}

	voices, err := tts.NewCatalogue(ctx, ttsProvider)
	if err != nil {
		return nil, fmt.Errorf("app: build voice catalogue: %w", err)
	}

	codecEnc, err := a.resolveCodec(o.codec, reg)
	if err != nil {
		return nil, fmt.Errorf("app: resolve codec encoder: %w", err)
	}

	assembler := audio.NewAssembler(cfg.DataDir)

	w := worker.New(st, ttsProvider, assembler)
	if err := w.Recover(ctx); err != nil {
		return nil, fmt.Errorf("app: worker crash recovery: %w", err)
	}
	a.Worker = w

	fetcher := ingest.NewFetcher(fetchTimeout)

	undoWindow := cfg.UndoWindow
	if undoWindow <= 0 {
		undoWindow = 2 * time.Minute
	}
	a.Library = library.New(st, w, assembler, fetcher, codecEnc, voices, undoWindow)

	a.janitor = janitor.New(st)

	a.Health = health.New(
		health.Checker{
			Name: "store",
			Check: func(ctx context.Context) error {
				_, err := st.GetSettings(ctx)
				return err
			},
		},
		health.WorkerBacklogChecker("worker_queue", maxHealthyQueueBacklog, func() health.QueueSnapshot {
			return health.QueueSnapshot{QueueSize: w.Snapshot().QueueSize}
		}),
	)

	return a, nil
}

// resolveTTS builds the configured TTS provider, preferring an injected
// override. Falls back to an unsynthesizing mock provider (logged loudly)
// when no provider is configured at all, so the rest of the pipeline remains
// exercisable without real credentials.
func (a *App) resolveTTS(injected tts.Provider, reg *config.Registry) (tts.Provider, error) {
	if injected != nil {
		return injected, nil
	}
	entry := a.cfg.TTS
	if entry.Name == "" {
		slog.Warn("no tts provider configured — falling back to the mock provider; synthesis will produce silence")
		return &mock.Provider{ListVoicesResult: []tts.Voice{{ID: "mock", Name: "Mock Voice", Provider: "mock"}}}, nil
	}
	if entry.Name == "mock" {
		return &mock.Provider{ListVoicesResult: []tts.Voice{{ID: "mock", Name: "Mock Voice", Provider: "mock"}}}, nil
	}
	if entry.Name == "openai" {
		p, err := openaiadapter.New(entry.APIKey, openaiadapter.WithBaseURL(entry.BaseURL))
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return reg.CreateTTS(entry)
}

// resolveCodec builds the configured lossy codec encoder, if any. A nil
// return is valid: "wav" and "pcm" output formats are always available
// through the library service's built-in encoders regardless.
func (a *App) resolveCodec(injected codec.Encoder, reg *config.Registry) (codec.Encoder, error) {
	if injected != nil {
		return injected, nil
	}
	entry := a.cfg.Codec
	switch entry.Name {
	case "":
		return nil, nil
	case "opus":
		return opusadapter.New()
	case "passthrough", "pcm":
		return passthrough.New(), nil
	default:
		return reg.CreateCodec(entry)
	}
}

// Run starts the synthesis worker and housekeeping janitor in the
// background and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.Worker.Run(ctx)
	if err := a.janitor.Start(ctx, janitorSchedule); err != nil {
		return fmt.Errorf("app: start janitor: %w", err)
	}
	slog.Info("speakcast running", "data_dir", a.cfg.DataDir)
	<-ctx.Done()
	return ctx.Err()
}

// Shutdown tears down all subsystems in reverse-init order, waiting for the
// worker to finish its current chunk (bounded by ctx's deadline).
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")

		if a.janitor != nil {
			a.janitor.Stop()
		}

		select {
		case <-a.Worker.Stopped():
		case <-ctx.Done():
			slog.Warn("shutdown deadline exceeded waiting for worker to stop")
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
				shutdownErr = err
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
