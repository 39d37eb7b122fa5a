// Package diarize implements the core of the speaker diarization pipeline:
// the similarity classifier, the online segmentation state machine, and the
// duration-proportional transcript aligner.
//
// All three are pure — they never perform I/O and never fail. Everything
// fallible (capture, feature extraction, transcription, persistence) lives
// behind the provider boundaries and is orchestrated by the session runner.
package diarize

import "time"

// Label identifies which of the two speaker classes a block or segment
// belongs to. The string values double as the speaker_type column in the
// persistence sink.
type Label string

const (
	// LabelSelf marks audio attributed to the enrolled speaker.
	LabelSelf Label = "self"

	// LabelOther marks audio attributed to anyone else.
	LabelOther Label = "other"
)

// Result is the classification outcome for a single audio block.
type Result struct {
	// Label is the speaker class assigned to the block.
	Label Label

	// Similarity is the cosine similarity between the block's embedding and
	// the enrolled profile, in [-1, 1].
	Similarity float64

	// Start and End bound the block's half-open interval [Start, End)
	// relative to stream start.
	Start time.Duration
	End   time.Duration
}

// Segment is a maximal run of consecutive same-label blocks.
type Segment struct {
	// Label is the speaker class shared by every block in the segment.
	Label Label

	// Start is the start of the first contributing block.
	Start time.Duration

	// End is the end of the last contributing block.
	End time.Duration

	// Similarity is the similarity observed on the block that opened the
	// segment. It is fixed at open time and never recomputed as the segment
	// extends.
	Similarity float64
}

// Duration returns the segment's length.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// Attribution pairs a segment with the transcript words assigned to it.
type Attribution struct {
	Segment

	// Text is the space-joined slice of transcript words allocated to this
	// segment. May be empty when rounding leaves nothing for a trailing
	// segment or the session produced no transcript.
	Text string
}
