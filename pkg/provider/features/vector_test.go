package features_test

import (
	"math"
	"testing"

	"github.com/kymlab/voxsplit/pkg/provider/features"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalizeUnitLength(t *testing.T) {
	t.Parallel()

	got := features.Normalize([]float32{3, 4})
	if n := norm(got); math.Abs(n-1) > 1e-6 {
		t.Errorf("norm after Normalize = %v, want 1", n)
	}
	if math.Abs(float64(got[0])-0.6) > 1e-6 || math.Abs(float64(got[1])-0.8) > 1e-6 {
		t.Errorf("Normalize([3 4]) = %v, want [0.6 0.8]", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	once := features.Normalize([]float32{1, 2, 3})
	twice := features.Normalize(once)
	for i := range once {
		if math.Abs(float64(once[i]-twice[i])) > 1e-6 {
			t.Errorf("component %d changed on second normalize: %v -> %v", i, once[i], twice[i])
		}
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	t.Parallel()

	got := features.Normalize([]float32{0, 0, 0})
	for i, x := range got {
		if x != 0 {
			t.Errorf("component %d = %v, want 0", i, x)
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []float32{3, 4}
	features.Normalize(in)
	if in[0] != 3 || in[1] != 4 {
		t.Errorf("input mutated: %v", in)
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scale invariant", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"both empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := features.Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosineSymmetric(t *testing.T) {
	t.Parallel()

	a := []float32{0.2, -0.7, 0.5}
	b := []float32{-0.1, 0.4, 0.9}
	if x, y := features.Cosine(a, b), features.Cosine(b, a); math.Abs(x-y) > 1e-9 {
		t.Errorf("Cosine not symmetric: %v vs %v", x, y)
	}
}
