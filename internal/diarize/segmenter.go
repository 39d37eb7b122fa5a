package diarize

// Segmenter merges a chronological stream of per-block classification results
// into maximal same-label segments. It is a single-pass online state machine:
// each result either extends the open segment or finalizes it and opens a new
// one, and past results are never revisited.
//
// State transitions on Observe(r):
//
//	no open segment            → open {r.Label, r.Start, r.End, r.Similarity}
//	open.Label == r.Label      → extend: open.End = r.End (similarity unchanged)
//	open.Label != r.Label      → finalize open; open a new segment from r
//
// Flush finalizes the open segment, if any, and hands over the full list.
//
// Results must arrive in non-decreasing time order; the transitions are
// neither idempotent nor commutative, so reordered delivery produces an
// unspecified segment sequence. A Segmenter must therefore be driven from a
// single goroutine — the capture queue's single consumer.
//
// Skipped blocks (silent or too short to embed) are simply never observed;
// they leave temporal gaps between segments, which the Segmenter does not
// represent. Consumers must not assume one segment's End equals the next
// segment's Start.
type Segmenter struct {
	open      *Segment
	finalized []Segment
}

// NewSegmenter returns an empty Segmenter ready for one diarization session.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Observe feeds one classification result into the state machine.
func (s *Segmenter) Observe(r Result) {
	if s.open != nil && s.open.Label == r.Label {
		s.open.End = r.End
		return
	}
	if s.open != nil {
		s.finalized = append(s.finalized, *s.open)
	}
	s.open = &Segment{
		Label:      r.Label,
		Start:      r.Start,
		End:        r.End,
		Similarity: r.Similarity,
	}
}

// Count returns the number of segments so far, counting the open one.
func (s *Segmenter) Count() int {
	n := len(s.finalized)
	if s.open != nil {
		n++
	}
	return n
}

// Flush closes any open segment and returns the complete chronological
// segment list. Ownership of the returned slice transfers to the caller; the
// Segmenter resets to its initial state and may be reused for a new session.
func (s *Segmenter) Flush() []Segment {
	if s.open != nil {
		s.finalized = append(s.finalized, *s.open)
		s.open = nil
	}
	out := s.finalized
	s.finalized = nil
	return out
}
