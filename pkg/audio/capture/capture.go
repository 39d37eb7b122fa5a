// Package capture defines the audio capture boundary of the diarization
// pipeline.
//
// A capture provider turns some audio source (a microphone device, a WAV file
// replayed for testing, a network stream) into an ordered sequence of
// fixed-duration [audio.Block] values delivered over a bounded channel. The
// pipeline consumes blocks from exactly one goroutine, so the channel doubles
// as the single-producer/single-consumer FIFO queue that preserves
// chronological order between capture and classification.
//
// How a recording session is triggered (keyboard, UI button, signal) is
// outside this package: callers start a stream, and stop it by calling Stop
// or cancelling the context passed to Start.
package capture

import (
	"context"
	"time"

	"github.com/kymlab/voxsplit/pkg/audio"
)

// Config describes the audio format a capture stream must produce.
type Config struct {
	// SampleRate is the capture sample rate in Hz (e.g., 16000).
	SampleRate int

	// BlockDuration is the length of each emitted block (e.g., 500 ms). The
	// final block of a stream may be shorter.
	BlockDuration time.Duration
}

// Stream is an open capture session. Blocks are emitted in strictly
// chronological order with contiguous [Start, End) intervals.
//
// A Stream is owned by a single consumer goroutine; its methods other than
// Stop must not be called concurrently.
type Stream interface {
	// Blocks returns the channel on which captured blocks are delivered. The
	// channel is closed when the source is exhausted, Stop is called, or the
	// stream's context is cancelled. This close is the pipeline's single
	// end-of-stream signal.
	Blocks() <-chan audio.Block

	// Err returns the error that terminated the stream, or nil if it ended
	// normally (source exhausted or stopped). Valid only after Blocks is closed.
	Err() error

	// Stop requests that capture end. It is safe to call from any goroutine
	// and more than once; blocks already queued are still delivered.
	Stop()
}

// Provider opens capture streams. Implementations must be safe for concurrent
// use; each returned Stream is independent.
type Provider interface {
	// Start opens a new capture stream with the given format. The stream ends
	// when ctx is cancelled, Stop is called, or the underlying source is
	// exhausted.
	Start(ctx context.Context, cfg Config) (Stream, error)
}
