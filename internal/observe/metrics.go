// Package observe provides application-wide observability primitives for
// speakcast: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all speakcast metrics.
const meterName = "github.com/speakcast/speakcast"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Pipeline latency histograms ---

	// SynthesisDuration tracks per-chunk TTS synthesis latency (spec §4.5
	// step 4, the blocking call outside any transaction).
	SynthesisDuration metric.Float64Histogram

	// AssemblyDuration tracks full-episode audio assembly latency (spec §4.6).
	AssemblyDuration metric.Float64Histogram

	// IngestDuration tracks ingestion latency by source variant (text, file,
	// url, git).
	IngestDuration metric.Float64Histogram

	// --- Counters ---

	// ChunksSynthesized counts chunk synthesis attempts. Use with attributes:
	//   attribute.String("status", "ready"|"error")
	ChunksSynthesized metric.Int64Counter

	// EpisodesCompleted counts episodes reaching a terminal status. Use with
	// attribute.String("status", "ready"|"error"|"cancelled").
	EpisodesCompleted metric.Int64Counter

	// IngestRequests counts ingestion attempts by variant and outcome. Use
	// with attribute.String("variant", ...), attribute.String("status", ...).
	IngestRequests metric.Int64Counter

	// --- Error counters ---

	// SynthesisErrors counts per-chunk synthesis failures (spec §4.5 step 6,
	// "never aborts the episode"). Use with attribute.String("voice_id", ...).
	SynthesisErrors metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of episodes currently queued for
	// synthesis (spec §4.5 Observability snapshot).
	QueueDepth metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for synthesis-pipeline latencies (individual chunks run seconds, full
// episode assembly can run tens of seconds).
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SynthesisDuration, err = m.Float64Histogram("speakcast.synthesis.duration",
		metric.WithDescription("Latency of a single chunk's TTS synthesis call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssemblyDuration, err = m.Float64Histogram("speakcast.assembly.duration",
		metric.WithDescription("Latency of assembling a full-episode audio artifact."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.IngestDuration, err = m.Float64Histogram("speakcast.ingest.duration",
		metric.WithDescription("Latency of ingesting a source, by variant."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ChunksSynthesized, err = m.Int64Counter("speakcast.chunks.synthesized",
		metric.WithDescription("Total chunk synthesis attempts by outcome status."),
	); err != nil {
		return nil, err
	}
	if met.EpisodesCompleted, err = m.Int64Counter("speakcast.episodes.completed",
		metric.WithDescription("Total episodes reaching a terminal status."),
	); err != nil {
		return nil, err
	}
	if met.IngestRequests, err = m.Int64Counter("speakcast.ingest.requests",
		metric.WithDescription("Total ingestion attempts by variant and outcome."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.SynthesisErrors, err = m.Int64Counter("speakcast.synthesis.errors",
		metric.WithDescription("Total per-chunk synthesis failures by voice."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("speakcast.worker.queue_depth",
		metric.WithDescription("Number of episodes currently queued for synthesis."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("speakcast.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordChunkSynthesized is a convenience method recording the outcome of a
// single chunk synthesis attempt (spec §4.5 steps 5-6).
func (m *Metrics) RecordChunkSynthesized(ctx context.Context, status string) {
	m.ChunksSynthesized.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordEpisodeCompleted is a convenience method recording an episode
// reaching a terminal status (ready, error, or cancelled).
func (m *Metrics) RecordEpisodeCompleted(ctx context.Context, status string) {
	m.EpisodesCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordIngest is a convenience method recording an ingestion attempt.
func (m *Metrics) RecordIngest(ctx context.Context, variant, status string) {
	m.IngestRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("variant", variant),
			attribute.String("status", status),
		),
	)
}

// RecordSynthesisError is a convenience method recording a per-chunk
// synthesis failure (spec §4.5 step 6).
func (m *Metrics) RecordSynthesisError(ctx context.Context, voiceID string) {
	m.SynthesisErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("voice_id", voiceID)))
}
