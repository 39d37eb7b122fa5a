// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/kymlab/voxsplit/pkg/provider/stt"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// PCM is the audio payload passed to Transcribe.
	PCM []byte
	// SampleRate is the sample rate passed to Transcribe.
	SampleRate int
}

// Provider is a mock implementation of stt.Provider returning a fixed text.
type Provider struct {
	mu sync.Mutex

	// Text is the transcript returned by Transcribe.
	Text string

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every invocation of Transcribe.
	Calls []TranscribeCall
}

// Transcribe records the call and returns Text, Err.
func (p *Provider) Transcribe(_ context.Context, pcm []byte, sampleRate int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, TranscribeCall{PCM: pcm, SampleRate: sampleRate})
	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}
