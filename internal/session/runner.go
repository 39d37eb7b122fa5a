// Package session orchestrates one diarization session end to end: it drains
// the capture stream through the classifier into the segmentation engine,
// and on stop transcribes the retained recording, aligns the words across the
// finalized segments, and persists the result.
//
// The Runner owns the pipeline's ordering guarantee: blocks are consumed from
// the capture channel by exactly one goroutine, so classification results
// reach the segmentation engine in chronological FIFO order. Cancelling the
// run context acts as the external stop signal — it stops capture, after
// which the engine is flushed and the downstream phases run to completion.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/kymlab/voxsplit/internal/diarize"
	"github.com/kymlab/voxsplit/internal/observe"
	"github.com/kymlab/voxsplit/internal/profile"
	"github.com/kymlab/voxsplit/pkg/audio"
	"github.com/kymlab/voxsplit/pkg/audio/capture"
	"github.com/kymlab/voxsplit/pkg/provider/features"
	"github.com/kymlab/voxsplit/pkg/provider/stt"
)

// Sink persists completed sessions. Implemented by the Postgres store; tests
// supply fakes.
type Sink interface {
	// CreateSession allocates a new session and returns its sink-assigned id.
	CreateSession(ctx context.Context) (int64, error)

	// InsertSegment appends one attributed segment under sessionID.
	InsertSegment(ctx context.Context, sessionID int64, att diarize.Attribution) error
}

// Config holds the per-session tunables.
type Config struct {
	// SampleRate is the capture sample rate in Hz.
	SampleRate int

	// ActivityThreshold is the mean absolute amplitude (on [-1, 1]) below
	// which a block is treated as silent and skipped before feature
	// extraction is attempted.
	ActivityThreshold float64
}

// Status describes how a session concluded.
type Status string

const (
	// StatusStored means segments were attributed and handed to the sink.
	StatusStored Status = "stored"

	// StatusNoSegments means capture stopped before any block was classified;
	// there is nothing to transcribe or persist.
	StatusNoSegments Status = "no_segments"

	// StatusNoTranscript means segments exist but the recogniser returned no
	// words; nothing is persisted. Distinct from a transcription *failure*,
	// which Run reports as an error.
	StatusNoTranscript Status = "no_transcript"
)

// Outcome is the result of one completed session.
type Outcome struct {
	Status Status

	// SessionID is the sink-assigned identifier. Zero unless Status is
	// StatusStored.
	SessionID int64

	// Attributions are the aligned segments. Nil unless Status is StatusStored.
	Attributions []diarize.Attribution

	// Persisted and Failed count sink writes. Failed writes are logged and
	// skipped; they never abort the remaining segments.
	Persisted int
	Failed    int
}

// Runner executes diarization sessions. Safe to reuse for consecutive
// sessions; a single Run invocation must not be entered concurrently.
type Runner struct {
	cfg         Config
	classifier  *diarize.Classifier
	extractor   features.Extractor
	transcriber stt.Provider
	sink        Sink
	metrics     *observe.Metrics
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*Runner)

// WithMetrics injects a metrics instance instead of the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New wires a Runner. It verifies once, up front, that the enrolled profile's
// dimensionality matches the extractor — a mismatch is a fatal configuration
// error, not something to discover block by block. threshold is the cosine
// similarity at or above which a block is labelled self.
func New(cfg Config, prof profile.Profile, threshold float64, ex features.Extractor, tr stt.Provider, sink Sink, opts ...Option) (*Runner, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("session: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.ActivityThreshold < 0 {
		return nil, fmt.Errorf("session: activity threshold must not be negative, got %v", cfg.ActivityThreshold)
	}
	if ex == nil || tr == nil || sink == nil {
		return nil, errors.New("session: extractor, transcriber, and sink are all required")
	}
	if err := prof.CheckDimensions(ex.Dimensions()); err != nil {
		return nil, err
	}

	classifier, err := diarize.NewClassifier(prof.Vector, threshold)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:         cfg,
		classifier:  classifier,
		extractor:   ex,
		transcriber: tr,
		sink:        sink,
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r, nil
}

// Run drains stream to completion and returns the session outcome.
//
// Cancelling ctx stops capture (the stream is asked to Stop and its remaining
// queued blocks are still consumed), then the downstream phases —
// transcription, alignment, persistence — run under a background context so
// a stop request cannot truncate them.
//
// Errors are returned only for real failures: a capture fault, recognition
// failure, or the sink refusing to create a session. Silent sessions and
// empty transcripts are outcomes, not errors.
func (r *Runner) Run(ctx context.Context, stream capture.Stream) (*Outcome, error) {
	// Translate context cancellation into the stream's stop signal.
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			stream.Stop()
		case <-stopWatch:
		}
	}()

	segmenter := diarize.NewSegmenter()

	// The full recording is retained — including silent and too-short blocks
	// — because transcription at stop consumes the whole session, not just
	// the classified spans.
	var recording []float32

	for block := range stream.Blocks() {
		recording = append(recording, block.Samples...)
		r.observeBlock(ctx, segmenter, block)
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("session: capture: %w", err)
	}

	// Stop may have come from ctx; everything after the flush runs detached
	// from it.
	runCtx := context.WithoutCancel(ctx)

	segments := segmenter.Flush()
	if len(segments) == 0 {
		slog.Info("session ended with no classified blocks")
		return &Outcome{Status: StatusNoSegments}, nil
	}
	r.metrics.SegmentsFinalized.Add(runCtx, int64(len(segments)))

	words, err := r.transcribe(runCtx, recording)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		slog.Info("recogniser returned no words; skipping alignment", "segments", len(segments))
		return &Outcome{Status: StatusNoTranscript}, nil
	}

	attributions := diarize.Align(segments, words)
	r.metrics.WordsAligned.Add(runCtx, int64(len(words)))

	return r.persist(runCtx, attributions)
}

// observeBlock runs the gate → extract → classify → segment path for one
// block. Skips are not errors; they simply leave the block's time range out
// of the segment stream.
func (r *Runner) observeBlock(ctx context.Context, segmenter *diarize.Segmenter, block audio.Block) {
	if audio.MeanAmplitude(block.Samples) < r.cfg.ActivityThreshold {
		r.metrics.BlocksSkipped.Add(ctx, 1, metric.WithAttributes(observe.Attr("reason", "silent")))
		return
	}

	start := time.Now()
	embedding, err := r.extractor.Extract(ctx, block.Samples, r.cfg.SampleRate)
	r.metrics.ExtractDuration.Record(ctx, time.Since(start).Seconds())

	switch {
	case errors.Is(err, features.ErrTooShort):
		r.metrics.BlocksSkipped.Add(ctx, 1, metric.WithAttributes(observe.Attr("reason", "too_short")))
		return
	case err != nil:
		slog.Warn("feature extraction failed; skipping block",
			"start", block.Start, "end", block.End, "err", err)
		r.metrics.BlocksSkipped.Add(ctx, 1, metric.WithAttributes(observe.Attr("reason", "extract_error")))
		return
	}

	result := r.classifier.Classify(embedding, block.Start, block.End)
	segmenter.Observe(result)

	r.metrics.BlocksClassified.Add(ctx, 1, metric.WithAttributes(observe.Attr("label", string(result.Label))))
	r.metrics.Similarity.Record(ctx, result.Similarity)
	slog.Debug("block classified",
		"start", result.Start,
		"end", result.End,
		"label", result.Label,
		"similarity", fmt.Sprintf("%.3f", result.Similarity),
	)
}

// transcribe submits the retained recording and splits the text into words.
// A failure here is a recognition failure, kept distinct from the
// empty-transcript outcome.
func (r *Runner) transcribe(ctx context.Context, recording []float32) ([]string, error) {
	pcm := audio.Float32ToPCM16(recording)

	start := time.Now()
	text, err := r.transcriber.Transcribe(ctx, pcm, r.cfg.SampleRate)
	r.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("session: transcribe: %w", err)
	}
	return strings.Fields(text), nil
}

// persist writes the session and its segments. Each segment write is
// independent: a failure is logged and counted, and the loop continues.
func (r *Runner) persist(ctx context.Context, attributions []diarize.Attribution) (*Outcome, error) {
	sessionID, err := r.sink.CreateSession(ctx)
	if err != nil {
		r.metrics.SinkErrors.Add(ctx, 1, metric.WithAttributes(observe.Attr("op", "create_session")))
		return nil, fmt.Errorf("session: create session: %w", err)
	}

	out := &Outcome{
		Status:       StatusStored,
		SessionID:    sessionID,
		Attributions: attributions,
	}
	for _, att := range attributions {
		if err := r.sink.InsertSegment(ctx, sessionID, att); err != nil {
			slog.Error("segment persistence failed; continuing",
				"session_id", sessionID,
				"label", att.Label,
				"start", att.Start,
				"err", err,
			)
			r.metrics.SinkErrors.Add(ctx, 1, metric.WithAttributes(observe.Attr("op", "insert_segment")))
			out.Failed++
			continue
		}
		out.Persisted++
	}

	slog.Info("session stored",
		"session_id", sessionID,
		"segments", len(attributions),
		"persisted", out.Persisted,
		"failed", out.Failed,
	)
	return out, nil
}
