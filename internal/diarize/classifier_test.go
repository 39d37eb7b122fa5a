package diarize_test

import (
	"math"
	"testing"
	"time"

	"github.com/kymlab/voxsplit/internal/diarize"
)

func TestClassifierLabels(t *testing.T) {
	t.Parallel()

	profile := []float32{1, 0, 0}
	c, err := diarize.NewClassifier(profile, 0.95)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	tests := []struct {
		name      string
		embedding []float32
		wantLabel diarize.Label
		wantSim   float64
	}{
		{"identical", []float32{1, 0, 0}, diarize.LabelSelf, 1},
		{"orthogonal", []float32{0, 1, 0}, diarize.LabelOther, 0},
		{"opposite", []float32{-1, 0, 0}, diarize.LabelOther, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := c.Classify(tt.embedding, 0, 500*time.Millisecond)
			if r.Label != tt.wantLabel {
				t.Errorf("label = %q, want %q", r.Label, tt.wantLabel)
			}
			if math.Abs(r.Similarity-tt.wantSim) > 1e-6 {
				t.Errorf("similarity = %v, want %v", r.Similarity, tt.wantSim)
			}
		})
	}
}

func TestClassifierThresholdInclusive(t *testing.T) {
	t.Parallel()

	// A similarity exactly at the threshold counts as self.
	c, err := diarize.NewClassifier([]float32{1, 0}, 1.0)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	r := c.Classify([]float32{1, 0}, 0, time.Second)
	if r.Label != diarize.LabelSelf {
		t.Errorf("similarity %v at threshold labelled %q, want %q", r.Similarity, r.Label, diarize.LabelSelf)
	}
}

func TestClassifierCarriesBlockBounds(t *testing.T) {
	t.Parallel()

	c, err := diarize.NewClassifier([]float32{1, 0}, 0.95)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	start, end := 2*time.Second, 2500*time.Millisecond
	r := c.Classify([]float32{1, 0}, start, end)
	if r.Start != start || r.End != end {
		t.Errorf("result spans [%v, %v), want [%v, %v)", r.Start, r.End, start, end)
	}
}

func TestNewClassifierRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := diarize.NewClassifier(nil, 0.95); err == nil {
		t.Error("expected error for empty profile vector")
	}
	if _, err := diarize.NewClassifier([]float32{1}, 1.5); err == nil {
		t.Error("expected error for threshold above 1")
	}
	if _, err := diarize.NewClassifier([]float32{1}, -1.5); err == nil {
		t.Error("expected error for threshold below -1")
	}
}
