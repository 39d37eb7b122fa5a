// Package exthttp provides a feature extractor backed by an HTTP extraction
// sidecar.
//
// The sidecar (typically a small Python service wrapping librosa) exposes
// POST /embed, accepting a WAV file as multipart/form-data and responding
// with a JSON body:
//
//	{"embedding": [0.12, -0.03, …]}
//
// The minimum-duration gate is applied locally before any request is made, so
// too-short blocks never touch the network.
//
// Usage:
//
//	ex, err := exthttp.New("http://localhost:8520", 39,
//	    exthttp.WithMinDuration(300*time.Millisecond),
//	)
//	vec, err := ex.Extract(ctx, samples, 16000)
package exthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/kymlab/voxsplit/pkg/audio"
	"github.com/kymlab/voxsplit/pkg/provider/features"
)

const (
	defaultMinDuration = 300 * time.Millisecond
	defaultTimeout     = 10 * time.Second
)

// Compile-time assertion that Extractor implements features.Extractor.
var _ features.Extractor = (*Extractor)(nil)

// Option is a functional option for configuring an Extractor.
type Option func(*Extractor)

// WithMinDuration sets the minimum input duration below which Extract returns
// [features.ErrTooShort] without contacting the sidecar. Defaults to 300 ms.
func WithMinDuration(d time.Duration) Option {
	return func(e *Extractor) {
		e.minDuration = d
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 10 s.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		e.httpClient.Timeout = d
	}
}

// Extractor implements features.Extractor against an HTTP extraction sidecar.
// Safe for concurrent use.
type Extractor struct {
	baseURL     string
	dimensions  int
	minDuration time.Duration
	httpClient  *http.Client
}

// New creates an Extractor for the sidecar at baseURL (e.g.,
// "http://localhost:8520"). dimensions is the expected embedding length;
// responses with a different length are rejected, which catches a
// misconfigured sidecar at the first block instead of producing garbage
// similarities.
func New(baseURL string, dimensions int, opts ...Option) (*Extractor, error) {
	if baseURL == "" {
		return nil, errors.New("exthttp: baseURL must not be empty")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("exthttp: dimensions must be positive, got %d", dimensions)
	}
	e := &Extractor{
		baseURL:     baseURL,
		dimensions:  dimensions,
		minDuration: defaultMinDuration,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Dimensions returns the configured embedding length.
func (e *Extractor) Dimensions() int { return e.dimensions }

// Extract encodes samples as WAV, POSTs them to the sidecar, and returns the
// embedding. Inputs shorter than the minimum duration return
// [features.ErrTooShort].
func (e *Extractor) Extract(ctx context.Context, samples []float32, sampleRate int) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("exthttp: sample rate must be positive, got %d", sampleRate)
	}
	if time.Duration(len(samples))*time.Second/time.Duration(sampleRate) < e.minDuration {
		return nil, features.ErrTooShort
	}

	wav := audio.EncodeWAV(audio.Float32ToPCM16(samples), sampleRate, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "block.wav")
	if err != nil {
		return nil, fmt.Errorf("exthttp: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, fmt.Errorf("exthttp: write wav data: %w", err)
	}
	if err := mw.WriteField("sample_rate", strconv.Itoa(sampleRate)); err != nil {
		return nil, fmt.Errorf("exthttp: write sample_rate field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("exthttp: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", &body)
	if err != nil {
		return nil, fmt.Errorf("exthttp: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exthttp: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exthttp: sidecar returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("exthttp: read response body: %w", err)
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("exthttp: parse JSON response: %w", err)
	}
	if len(result.Embedding) != e.dimensions {
		return nil, fmt.Errorf("exthttp: sidecar returned %d dimensions, want %d", len(result.Embedding), e.dimensions)
	}
	return result.Embedding, nil
}
