// Package mock provides a test double for the features.Extractor interface.
//
// Use Fn to script arbitrary behaviour, or leave it nil for a deterministic
// default that derives the embedding from the first sample's sign.
package mock

import (
	"context"
	"sync"

	"github.com/kymlab/voxsplit/pkg/provider/features"
)

// Compile-time assertion that Extractor implements features.Extractor.
var _ features.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of features.Extractor.
type Extractor struct {
	mu sync.Mutex

	// Dims is the value returned by Dimensions. Defaults to 2 when zero.
	Dims int

	// Fn, if non-nil, handles every Extract call.
	Fn func(samples []float32, sampleRate int) ([]float32, error)

	// Calls counts invocations of Extract.
	Calls int
}

// Dimensions returns Dims, or 2 when Dims is zero.
func (e *Extractor) Dimensions() int {
	if e.Dims == 0 {
		return 2
	}
	return e.Dims
}

// Extract records the call and dispatches to Fn. When Fn is nil it returns a
// unit basis vector: [1, 0, …] if the first sample is non-negative, else
// [0, 1, 0, …]. This gives tests an easy way to steer cosine similarity with
// plain sample values.
func (e *Extractor) Extract(_ context.Context, samples []float32, sampleRate int) ([]float32, error) {
	e.mu.Lock()
	e.Calls++
	fn := e.Fn
	e.mu.Unlock()

	if fn != nil {
		return fn(samples, sampleRate)
	}

	v := make([]float32, e.Dimensions())
	if len(samples) > 0 && samples[0] < 0 {
		v[1] = 1
	} else {
		v[0] = 1
	}
	return v, nil
}
