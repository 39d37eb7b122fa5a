package diarize

import (
	"fmt"
	"time"

	"github.com/kymlab/voxsplit/pkg/provider/features"
)

// Classifier assigns a speaker label to block embeddings by cosine similarity
// against a single enrolled reference vector.
//
// The profile is read-only after construction, so a Classifier is safe to
// share across goroutines.
type Classifier struct {
	profile   []float32
	threshold float64
}

// NewClassifier creates a Classifier for the given enrolled profile vector.
// threshold is the similarity at or above which a block is labelled self;
// it trades false accepts against false rejects and must be tuned per
// deployment and microphone. It must lie in [-1, 1].
func NewClassifier(profile []float32, threshold float64) (*Classifier, error) {
	if len(profile) == 0 {
		return nil, fmt.Errorf("diarize: profile vector must not be empty")
	}
	if threshold < -1 || threshold > 1 {
		return nil, fmt.Errorf("diarize: threshold %v outside [-1, 1]", threshold)
	}
	return &Classifier{profile: profile, threshold: threshold}, nil
}

// Classify compares embedding against the enrolled profile and returns the
// labelled result for the block spanning [start, end). The embedding must
// have the same dimensionality as the profile; the runner verifies this once
// at startup rather than per block.
func (c *Classifier) Classify(embedding []float32, start, end time.Duration) Result {
	sim := features.Cosine(c.profile, embedding)
	label := LabelOther
	if sim >= c.threshold {
		label = LabelSelf
	}
	return Result{
		Label:      label,
		Similarity: sim,
		Start:      start,
		End:        end,
	}
}
