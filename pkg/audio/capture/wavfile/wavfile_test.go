package wavfile_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kymlab/voxsplit/pkg/audio"
	"github.com/kymlab/voxsplit/pkg/audio/capture"
	"github.com/kymlab/voxsplit/pkg/audio/capture/wavfile"
)

// writeWAV writes a mono 16-bit WAV file with the given samples and returns
// its path.
func writeWAV(t *testing.T, samples []float32, rate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	data := audio.EncodeWAV(audio.Float32ToPCM16(samples), rate, 1)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestReadMono(t *testing.T) {
	t.Parallel()

	in := []float32{0.1, -0.2, 0.3, -0.4}
	path := writeWAV(t, in, 16000)

	samples, rate, err := wavfile.ReadMono(path)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate = %d, want 16000", rate)
	}
	if len(samples) != len(in) {
		t.Fatalf("got %d samples, want %d", len(samples), len(in))
	}
	for i := range in {
		if math.Abs(float64(samples[i]-in[i])) > 1.0/32768 {
			t.Errorf("sample %d: %v, want about %v", i, samples[i], in[i])
		}
	}
}

func TestReadMonoMissingFile(t *testing.T) {
	t.Parallel()

	if _, _, err := wavfile.ReadMono(filepath.Join(t.TempDir(), "none.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStartBlocks(t *testing.T) {
	t.Parallel()

	// 1.25 s at 16 kHz with 500 ms blocks: two full blocks plus a 250 ms
	// remainder block.
	samples := make([]float32, 20000)
	p, err := wavfile.New(writeWAV(t, samples, 16000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stream, err := p.Start(context.Background(), capture.Config{
		SampleRate:    16000,
		BlockDuration: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var blocks []audio.Block
	for b := range stream.Blocks() {
		blocks = append(blocks, b)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}

	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	if len(blocks[0].Samples) != 8000 || len(blocks[2].Samples) != 4000 {
		t.Errorf("block sizes = %d, %d, %d; want 8000, 8000, 4000",
			len(blocks[0].Samples), len(blocks[1].Samples), len(blocks[2].Samples))
	}

	// Intervals are contiguous and exact.
	for i, b := range blocks {
		wantStart := time.Duration(i) * 500 * time.Millisecond
		if b.Start != wantStart {
			t.Errorf("block %d starts at %v, want %v", i, b.Start, wantStart)
		}
	}
	if last := blocks[2]; last.End != 1250*time.Millisecond {
		t.Errorf("last block ends at %v, want 1.25s", last.End)
	}
}

func TestStartRejectsRateMismatch(t *testing.T) {
	t.Parallel()

	p, err := wavfile.New(writeWAV(t, make([]float32, 8000), 8000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Start(context.Background(), capture.Config{
		SampleRate:    16000,
		BlockDuration: 500 * time.Millisecond,
	})
	if err == nil {
		t.Error("expected error when file rate differs from capture rate")
	}
}

func TestStartRejectsBadConfig(t *testing.T) {
	t.Parallel()

	p, err := wavfile.New(writeWAV(t, make([]float32, 100), 16000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Start(context.Background(), capture.Config{BlockDuration: time.Second}); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := p.Start(context.Background(), capture.Config{SampleRate: 16000}); err == nil {
		t.Error("expected error for zero block duration")
	}
}

func TestStopEndsStream(t *testing.T) {
	t.Parallel()

	// Plenty of blocks so the emitter cannot finish before Stop.
	samples := make([]float32, 16000*30)
	p, err := wavfile.New(writeWAV(t, samples, 16000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stream, err := p.Start(context.Background(), capture.Config{
		SampleRate:    16000,
		BlockDuration: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Drain one block, then stop; the channel must close.
	<-stream.Blocks()
	stream.Stop()
	stream.Stop() // idempotent

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-stream.Blocks():
			if !ok {
				if err := stream.Err(); err != nil {
					t.Fatalf("stream error after Stop: %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after Stop")
		}
	}
}

func TestNewRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := wavfile.New(""); err == nil {
		t.Error("expected error for empty path")
	}
}
