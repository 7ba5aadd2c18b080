// Package janitor runs speakcast's scheduled housekeeping: purging expired
// UndoTickets and the stale audio files they were keeping alive past their
// window (spec §4.7 "After expiry, the ticket is purged and the old audio
// files deleted").
//
// Unlike the worker (a hand-rolled FIFO loop, since synthesis scheduling has
// spec-mandated ordering semantics the library has no notion of),
// housekeeping is plain periodic maintenance with no ordering requirements,
// so it is scheduled with github.com/robfig/cron/v3 the way the retrieval
// pack's queue/backup services schedule their own sweeps.
package janitor

import (
	"context"
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"
)

// Store is the subset of *store.Store the janitor depends on.
type Store interface {
	PurgeExpiredUndoTickets(ctx context.Context) ([]string, error)
}

// Janitor periodically purges expired undo tickets and unlinks the audio
// files their snapshots were holding onto.
type Janitor struct {
	store Store
	cron  *cron.Cron
}

// New constructs a Janitor that has not yet been scheduled; call Start to
// begin running it on spec (a robfig/cron schedule expression, e.g.
// "@every 1m").
func New(store Store) *Janitor {
	return &Janitor{
		store: store,
		cron:  cron.New(),
	}
}

// Start schedules the purge sweep on spec and begins running it in the
// background. Returns an error if spec cannot be parsed.
func (j *Janitor) Start(ctx context.Context, spec string) error {
	_, err := j.cron.AddFunc(spec, func() { j.sweep(ctx) })
	if err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// sweep runs one purge pass: delete expired undo tickets from the store,
// then best-effort unlink the audio files they referenced (spec §7 "a
// failed unlink is logged, not surfaced").
func (j *Janitor) sweep(ctx context.Context) {
	paths, err := j.store.PurgeExpiredUndoTickets(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "janitor: purge expired undo tickets", "error", err)
		return
	}
	if len(paths) == 0 {
		return
	}
	removed := 0
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.ErrorContext(ctx, "janitor: failed to unlink stale audio file", "path", p, "error", err)
			continue
		}
		removed++
	}
	slog.InfoContext(ctx, "janitor: swept expired undo tickets", "tickets_referenced_paths", len(paths), "files_removed", removed)
}
