package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kymlab/voxsplit/internal/diarize"
	"github.com/kymlab/voxsplit/internal/store/postgres"
)

func TestFormatClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{500 * time.Millisecond, "00:00:00.500"},
		{time.Second, "00:00:01.000"},
		{90*time.Second + 250*time.Millisecond, "00:01:30.250"},
		{time.Hour + 2*time.Minute + 3*time.Second + 7*time.Millisecond, "01:02:03.007"},
		// Sub-millisecond precision truncates, never rounds up.
		{999*time.Microsecond + 500*time.Millisecond, "00:00:00.500"},
		// Negative durations clamp to zero rather than producing "-00:...".
		{-time.Second, "00:00:00.000"},
	}
	for _, tt := range tests {
		if got := postgres.FormatClock(tt.d); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// testStore connects to the database named by VOXSPLIT_TEST_POSTGRES_DSN, or
// skips. The pgvector extension must be installed.
func testStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("VOXSPLIT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOXSPLIT_TEST_POSTGRES_DSN not set; skipping database integration test")
	}
	s, err := postgres.New(context.Background(), dsn, 3)
	if err != nil {
		t.Fatalf("postgres.New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if id <= 0 {
		t.Fatalf("session id = %d, want positive", id)
	}

	atts := []diarize.Attribution{
		{
			Segment: diarize.Segment{
				Label:      diarize.LabelSelf,
				Start:      0,
				End:        3 * time.Second,
				Similarity: 0.97,
			},
			Text: "hello there",
		},
		{
			Segment: diarize.Segment{
				Label:      diarize.LabelOther,
				Start:      3 * time.Second,
				End:        4 * time.Second,
				Similarity: 0.41,
			},
			Text: "hi",
		},
	}
	for _, att := range atts {
		if err := s.InsertSegment(ctx, id, att); err != nil {
			t.Fatalf("InsertSegment: %v", err)
		}
	}

	recs, err := s.SessionSegments(ctx, id)
	if err != nil {
		t.Fatalf("SessionSegments: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d segments, want 2", len(recs))
	}
	if recs[0].SpeakerType != "self" || recs[1].SpeakerType != "other" {
		t.Errorf("speaker types = %q, %q; want self, other", recs[0].SpeakerType, recs[1].SpeakerType)
	}
	if recs[0].StartTime != "00:00:00.000" || recs[0].EndTime != "00:00:03.000" {
		t.Errorf("first segment clock = %q ~ %q", recs[0].StartTime, recs[0].EndTime)
	}
	if recs[0].Text != "hello there" {
		t.Errorf("first segment text = %q", recs[0].Text)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	vec := []float32{0.6, 0.8, 0}
	if err := s.SaveProfile(ctx, "integration-test", vec); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	// Upsert: saving again must not fail.
	if err := s.SaveProfile(ctx, "integration-test", vec); err != nil {
		t.Fatalf("SaveProfile (second): %v", err)
	}

	got, err := s.LoadProfile(ctx, "integration-test")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("loaded %d dimensions, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("component %d: %v, want %v", i, got[i], vec[i])
		}
	}

	name, dist, err := s.NearestProfile(ctx, vec)
	if err != nil {
		t.Fatalf("NearestProfile: %v", err)
	}
	if name != "integration-test" {
		t.Errorf("nearest profile = %q, want integration-test", name)
	}
	if dist > 1e-6 {
		t.Errorf("distance to own vector = %v, want about 0", dist)
	}
}
