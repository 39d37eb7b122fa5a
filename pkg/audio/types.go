// Package audio holds the PCM primitives shared by the capture, feature
// extraction, and transcription boundaries: the Block type that flows through
// the diarization pipeline, sample-format conversion, WAV encoding/decoding,
// and the energy measurement used to gate silent blocks.
package audio

import "time"

// Block is a fixed-duration chunk of mono audio, the atomic unit of
// classification. Samples are float32 PCM in [-1, 1]; Start and End describe
// the half-open interval [Start, End) relative to stream start.
type Block struct {
	// Samples is the raw mono PCM for this block.
	Samples []float32

	// Start is the block's start offset relative to the beginning of the stream.
	Start time.Duration

	// End is the block's exclusive end offset. End > Start for every block a
	// capture implementation emits.
	End time.Duration
}

// Duration returns the length of the block's time interval.
func (b Block) Duration() time.Duration {
	return b.End - b.Start
}
