// Package profile manages the enrolled speaker's reference embedding: one-time
// enrollment from a known recording, and JSON file persistence across runs.
//
// The on-disk format is a flat JSON array of floating-point numbers — one
// file per profile, human-inspectable, and round-trip exact up to float
// representation. The same files are consumed by the extraction sidecar's
// tooling, so the format is a compatibility contract, not a choice.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kymlab/voxsplit/pkg/provider/features"
)

// ErrDimensionMismatch is returned when a loaded profile's length differs
// from what the extractor produces. This is a configuration error: the
// profile was enrolled with a different extractor setup and every similarity
// computed against it would be meaningless. Surfaced at startup, never per
// block.
var ErrDimensionMismatch = errors.New("profile: dimension mismatch")

// Profile is the enrolled speaker's reference embedding. Immutable after
// creation: enrolled once, loaded at startup, never mutated during a session.
// Safe to share across goroutines without locking.
type Profile struct {
	// Vector is the L2-normalized reference embedding.
	Vector []float32
}

// Enroll computes a Profile from a complete enrollment recording. Features
// are extracted over the entire recording in one call — not blockwise — and
// the result is L2-normalized. No averaging across multiple takes is done;
// the recording passed in is the profile.
func Enroll(ctx context.Context, ex features.Extractor, samples []float32, sampleRate int) (Profile, error) {
	vec, err := ex.Extract(ctx, samples, sampleRate)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: enroll: %w", err)
	}
	return Profile{Vector: features.Normalize(vec)}, nil
}

// Save writes the profile to path as a flat JSON array.
func Save(p Profile, path string) error {
	data, err := json.Marshal(p.Vector)
	if err != nil {
		return fmt.Errorf("profile: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("profile: write %q: %w", path, err)
	}
	return nil
}

// Load reads a profile previously written by [Save]. A missing file is
// reported with [os.ErrNotExist] in the chain so callers can offer enrollment
// instead of failing outright.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: read %q: %w", path, err)
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return Profile{}, fmt.Errorf("profile: parse %q: %w", path, err)
	}
	if len(vec) == 0 {
		return Profile{}, fmt.Errorf("profile: %q holds an empty vector", path)
	}
	return Profile{Vector: vec}, nil
}

// CheckDimensions verifies the profile matches the expected embedding length.
func (p Profile) CheckDimensions(want int) error {
	if len(p.Vector) != want {
		return fmt.Errorf("%w: profile has %d dimensions, extractor produces %d",
			ErrDimensionMismatch, len(p.Vector), want)
	}
	return nil
}
