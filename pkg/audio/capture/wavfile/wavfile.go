// Package wavfile provides a capture provider that replays a WAV file as a
// block stream.
//
// It exists for two reasons: it is the enrollment input path (enrollment
// recordings arrive as WAV files), and it makes the whole pipeline runnable
// and testable without a microphone — a recorded session replayed through
// this provider produces exactly the block sequence live capture would.
//
// Stereo files are downmixed to mono. The file's sample rate must match the
// requested capture rate; resampling is not attempted.
package wavfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kymlab/voxsplit/pkg/audio"
	"github.com/kymlab/voxsplit/pkg/audio/capture"
)

// Compile-time assertion that Provider implements capture.Provider.
var _ capture.Provider = (*Provider)(nil)

// Provider replays a single WAV file as a capture stream.
type Provider struct {
	path string

	// realtime, when set, paces block delivery at the block duration instead
	// of emitting as fast as the consumer reads.
	realtime bool
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithRealtime makes the stream deliver one block per block-duration of wall
// time, approximating live capture. Off by default: replay runs as fast as
// the consumer drains the channel.
func WithRealtime() Option {
	return func(p *Provider) {
		p.realtime = true
	}
}

// New creates a Provider that replays the WAV file at path.
func New(path string, opts ...Option) (*Provider, error) {
	if path == "" {
		return nil, errors.New("wavfile: path must not be empty")
	}
	p := &Provider{path: path}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ReadMono reads an entire 16-bit PCM WAV file, downmixes to mono if needed,
// and returns float32 samples plus the file's sample rate. Used directly by
// the enrollment flow, which extracts features over a whole recording rather
// than blockwise.
func ReadMono(path string) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("wavfile: read %q: %w", path, err)
	}
	pcm, info, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, 0, fmt.Errorf("wavfile: decode %q: %w", path, err)
	}
	switch info.Channels {
	case 1:
	case 2:
		pcm = audio.StereoToMono(pcm)
	default:
		return nil, 0, fmt.Errorf("wavfile: %q has %d channels (want 1 or 2)", path, info.Channels)
	}
	return audio.PCM16ToFloat32(pcm), info.SampleRate, nil
}

// Start opens the file, validates its format against cfg, and begins emitting
// blocks on a bounded channel. The stream ends when the file is exhausted,
// Stop is called, or ctx is cancelled.
func (p *Provider) Start(ctx context.Context, cfg capture.Config) (capture.Stream, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("wavfile: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.BlockDuration <= 0 {
		return nil, fmt.Errorf("wavfile: block duration must be positive, got %v", cfg.BlockDuration)
	}

	samples, rate, err := ReadMono(p.path)
	if err != nil {
		return nil, err
	}
	if rate != cfg.SampleRate {
		return nil, fmt.Errorf("wavfile: %q is %d Hz but capture is configured for %d Hz", p.path, rate, cfg.SampleRate)
	}

	s := &stream{
		blocks: make(chan audio.Block, 16),
		done:   make(chan struct{}),
	}
	go s.emit(ctx, samples, cfg, p.realtime)
	return s, nil
}

// stream implements capture.Stream over an in-memory sample buffer.
type stream struct {
	blocks chan audio.Block
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

func (s *stream) Blocks() <-chan audio.Block { return s.blocks }

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) Stop() {
	s.once.Do(func() { close(s.done) })
}

// emit slices samples into block-sized chunks and delivers them in order.
// Intervals are computed from sample counts, so they are exact and contiguous.
func (s *stream) emit(ctx context.Context, samples []float32, cfg capture.Config, realtime bool) {
	defer close(s.blocks)

	perBlock := int(float64(cfg.SampleRate) * cfg.BlockDuration.Seconds())
	if perBlock <= 0 {
		perBlock = 1
	}

	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(cfg.BlockDuration)
		defer ticker.Stop()
	}

	for off := 0; off < len(samples); off += perBlock {
		end := off + perBlock
		if end > len(samples) {
			end = len(samples)
		}
		b := audio.Block{
			Samples: samples[off:end],
			Start:   sampleOffset(off, cfg.SampleRate),
			End:     sampleOffset(end, cfg.SampleRate),
		}

		if realtime {
			select {
			case <-ticker.C:
			case <-s.done:
				return
			case <-ctx.Done():
				s.setErr(ctx.Err())
				return
			}
		}

		select {
		case s.blocks <- b:
		case <-s.done:
			return
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return
		}
	}
}

func (s *stream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// sampleOffset converts a sample index to a stream-relative timestamp.
func sampleOffset(n, rate int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(rate)
}
