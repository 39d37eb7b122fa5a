package diarize

import (
	"math"
	"strings"
)

// Align distributes a transcript's words across segments in proportion to
// each segment's share of the total speech duration.
//
// A single forward cursor walks the word list: for each segment in order, the
// word count is round(duration_ratio × total_words), that many words are
// consumed from the cursor position, and the cursor advances. Words are never
// reused or reordered. Per-segment rounding can make the cursor run out
// before the last segment, in which case trailing segments receive fewer
// (possibly zero) words; that is expected, not an error.
//
// Degenerate inputs are handled without failing: an empty word list or a zero
// total duration yields an empty attribution for every segment. Align is
// deterministic — identical inputs always produce identical output.
func Align(segments []Segment, words []string) []Attribution {
	out := make([]Attribution, len(segments))

	var total float64
	for _, seg := range segments {
		total += seg.Duration().Seconds()
	}

	if total <= 0 || len(words) == 0 {
		for i, seg := range segments {
			out[i] = Attribution{Segment: seg}
		}
		return out
	}

	cursor := 0
	for i, seg := range segments {
		ratio := seg.Duration().Seconds() / total
		count := int(math.Round(ratio * float64(len(words))))

		lo := min(cursor, len(words))
		hi := min(cursor+count, len(words))
		out[i] = Attribution{
			Segment: seg,
			Text:    strings.Join(words[lo:hi], " "),
		}
		cursor += count
	}
	return out
}
