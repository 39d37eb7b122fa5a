// Package observe provides observability primitives for the diarization
// pipeline: OpenTelemetry metric instruments, a meter provider wired to a
// Prometheus exporter, and the HTTP server that exposes the scrape and
// health endpoints.
//
// Metrics are recorded through the OpenTelemetry Metrics API; [InitProvider]
// bridges them to Prometheus so they can be scraped via the standard /metrics
// endpoint. Tests should use [NewMetrics] with a ManualReader-backed provider
// to avoid cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxsplit metrics.
const meterName = "github.com/kymlab/voxsplit"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// BlocksClassified counts blocks that produced a classification result.
	// Use with attribute.String("label", "self"|"other").
	BlocksClassified metric.Int64Counter

	// BlocksSkipped counts blocks omitted from segmentation. Use with
	// attribute.String("reason", "silent"|"too_short"|"extract_error").
	BlocksSkipped metric.Int64Counter

	// SegmentsFinalized counts segments closed by the segmentation engine.
	SegmentsFinalized metric.Int64Counter

	// WordsAligned counts transcript words assigned to segments.
	WordsAligned metric.Int64Counter

	// SinkErrors counts failed persistence writes. Use with
	// attribute.String("op", "create_session"|"insert_segment").
	SinkErrors metric.Int64Counter

	// Similarity records the cosine similarity of each classified block.
	Similarity metric.Float64Histogram

	// ExtractDuration tracks per-block feature extraction latency.
	ExtractDuration metric.Float64Histogram

	// TranscribeDuration tracks end-of-session transcription latency.
	TranscribeDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries in seconds. Extraction
// runs per 0.5 s block, transcription once per session, so the range spans
// milliseconds to tens of seconds.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// similarityBuckets covers the cosine range with finer resolution near the
// default 0.95 decision threshold.
var similarityBuckets = []float64{
	-1, -0.5, 0, 0.25, 0.5, 0.7, 0.8, 0.85, 0.9, 0.925, 0.95, 0.975, 1,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.BlocksClassified, err = m.Int64Counter("voxsplit.blocks.classified",
		metric.WithDescription("Audio blocks that produced a classification result."),
	); err != nil {
		return nil, err
	}
	if met.BlocksSkipped, err = m.Int64Counter("voxsplit.blocks.skipped",
		metric.WithDescription("Audio blocks omitted from segmentation (silent, too short, or failed)."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsFinalized, err = m.Int64Counter("voxsplit.segments.finalized",
		metric.WithDescription("Segments closed by the segmentation engine."),
	); err != nil {
		return nil, err
	}
	if met.WordsAligned, err = m.Int64Counter("voxsplit.words.aligned",
		metric.WithDescription("Transcript words assigned to segments."),
	); err != nil {
		return nil, err
	}
	if met.SinkErrors, err = m.Int64Counter("voxsplit.sink.errors",
		metric.WithDescription("Failed persistence writes."),
	); err != nil {
		return nil, err
	}
	if met.Similarity, err = m.Float64Histogram("voxsplit.block.similarity",
		metric.WithDescription("Cosine similarity of classified blocks against the enrolled profile."),
		metric.WithExplicitBucketBoundaries(similarityBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExtractDuration, err = m.Float64Histogram("voxsplit.extract.duration",
		metric.WithDescription("Per-block feature extraction latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("voxsplit.transcribe.duration",
		metric.WithDescription("End-of-session transcription latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails, which cannot happen with the global provider.
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
