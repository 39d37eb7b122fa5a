// Package stt defines the transcription boundary of the diarization pipeline.
//
// Unlike a live-captioning system, diarization transcribes once per session:
// when capture stops, the full recording is submitted as a single batch
// request and the resulting text is distributed across the diarized segments.
// The Provider interface is therefore a plain request/response call, not a
// streaming session.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Provider is the abstraction over any batch speech-to-text backend.
type Provider interface {
	// Transcribe converts a complete recording (16-bit signed little-endian
	// mono PCM at sampleRate Hz) to text.
	//
	// An empty string with a nil error means the backend recognised no speech
	// — a valid outcome for a silent session. A non-nil error means the
	// recognition itself failed; callers must keep these two cases distinct.
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}
