package exthttp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kymlab/voxsplit/pkg/audio"
	"github.com/kymlab/voxsplit/pkg/provider/features"
	"github.com/kymlab/voxsplit/pkg/provider/features/exthttp"
)

// halfSecond returns 0.5 s of non-silent samples at 16 kHz.
func halfSecond() []float32 {
	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = 0.1
	}
	return samples
}

func TestExtract(t *testing.T) {
	t.Parallel()

	want := []float32{0.5, -0.25, 0.1}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/embed" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
		}
		if got := r.FormValue("sample_rate"); got != "16000" {
			t.Errorf("sample_rate field = %q, want %q", got, "16000")
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
		} else {
			defer file.Close()
			buf := make([]byte, 12)
			if _, err := file.Read(buf); err != nil {
				t.Errorf("read file part: %v", err)
			}
			if string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
				t.Error("file part is not a WAV container")
			}
		}

		json.NewEncoder(w).Encode(map[string]any{"embedding": want})
	}))
	defer srv.Close()

	ex, err := exthttp.New(srv.URL, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := ex.Extract(context.Background(), halfSecond(), 16000)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("embedding length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("embedding[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestExtractTooShort(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("sidecar must not be contacted for too-short input")
	}))
	defer srv.Close()

	ex, err := exthttp.New(srv.URL, 3, exthttp.WithMinDuration(300*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// 200 ms at 16 kHz, below the 300 ms gate.
	short := make([]float32, 3200)
	if _, err := ex.Extract(context.Background(), short, 16000); !errors.Is(err, features.ErrTooShort) {
		t.Errorf("got err %v, want features.ErrTooShort", err)
	}
}

func TestExtractDimensionMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1, 2}})
	}))
	defer srv.Close()

	ex, err := exthttp.New(srv.URL, 39)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := ex.Extract(context.Background(), halfSecond(), 16000); err == nil {
		t.Error("expected error for wrong embedding dimensionality")
	}
}

func TestExtractServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ex, err := exthttp.New(srv.URL, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := ex.Extract(context.Background(), halfSecond(), 16000); err == nil {
		t.Error("expected error for HTTP 500")
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := exthttp.New("", 39); err == nil {
		t.Error("expected error for empty baseURL")
	}
	if _, err := exthttp.New("http://localhost:8520", 0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

// Uploaded WAV must round-trip through the audio codec so the sidecar sees
// exactly the block samples.
func TestExtractWAVPayload(t *testing.T) {
	t.Parallel()

	in := halfSecond()

	var gotPCM []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			return
		}
		defer file.Close()
		data := make([]byte, 44+len(in)*2)
		n, _ := file.Read(data)
		pcm, _, err := audio.DecodeWAV(data[:n])
		if err != nil {
			t.Errorf("decode uploaded WAV: %v", err)
			return
		}
		gotPCM = pcm
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1}})
	}))
	defer srv.Close()

	ex, err := exthttp.New(srv.URL, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := ex.Extract(context.Background(), in, 16000); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(gotPCM) != len(in)*2 {
		t.Errorf("uploaded PCM size = %d bytes, want %d", len(gotPCM), len(in)*2)
	}
}
