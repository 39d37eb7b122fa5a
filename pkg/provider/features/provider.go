// Package features defines the feature extraction boundary for speaker
// diarization.
//
// An extractor maps a chunk of mono PCM audio to a fixed-length embedding
// vector summarising its spectral characteristics (in the reference backend:
// 13 MFCCs plus first and second deltas, mean-pooled over frames and
// L2-normalized, giving a 39-dimensional vector). The classifier compares
// block embeddings against an enrolled speaker profile by cosine similarity,
// so all vectors flowing through one pipeline must come from the same
// extractor configuration.
//
// Implementations must be safe for concurrent use.
package features

import (
	"context"
	"errors"
)

// ErrTooShort is returned by Extract when the input is shorter than the
// extractor's minimum duration. Delta features need a minimum number of
// frames to be defined, so very short chunks yield no embedding. Callers
// skip such blocks rather than treating this as a failure.
var ErrTooShort = errors.New("features: input shorter than minimum duration")

// Extractor is the abstraction over any feature extraction backend.
//
// All vectors returned by a single Extractor instance share the same
// dimensionality (returned by Dimensions) and are L2-normalized. Vectors
// from different extractor instances must not be mixed in one similarity
// computation unless both are known to use the same configuration.
type Extractor interface {
	// Extract computes the embedding for samples (mono float32 PCM in [-1, 1]
	// at sampleRate Hz). Returns a vector of length Dimensions(), ErrTooShort
	// if the input is below the minimum duration, or another error if the
	// backend fails or ctx is cancelled.
	Extract(ctx context.Context, samples []float32, sampleRate int) ([]float32, error)

	// Dimensions returns the fixed length of every vector this extractor
	// produces. Constant for the lifetime of the instance.
	Dimensions() int
}
