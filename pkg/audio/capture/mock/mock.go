// Package mock provides test doubles for the capture package interfaces.
//
// Use Provider to hand a scripted block sequence to code under test:
//
//	p := &mock.Provider{Blocks: []audio.Block{b1, b2, b3}}
//	stream, _ := p.Start(ctx, cfg)
//	for b := range stream.Blocks() { … }
package mock

import (
	"context"
	"sync"

	"github.com/kymlab/voxsplit/pkg/audio"
	"github.com/kymlab/voxsplit/pkg/audio/capture"
)

// Compile-time assertion that Provider implements capture.Provider.
var _ capture.Provider = (*Provider)(nil)

// Provider is a mock implementation of capture.Provider that emits a fixed
// block sequence.
type Provider struct {
	mu sync.Mutex

	// Blocks is the scripted sequence delivered by every started stream,
	// in order.
	Blocks []audio.Block

	// StartErr, if non-nil, is returned as the error from Start.
	StartErr error

	// StreamErr, if non-nil, is reported by Stream.Err after the blocks are
	// exhausted.
	StreamErr error

	// StartCalls counts invocations of Start.
	StartCalls int
}

// Start records the call and returns a stream over the scripted blocks.
func (p *Provider) Start(ctx context.Context, _ capture.Config) (capture.Stream, error) {
	p.mu.Lock()
	p.StartCalls++
	blocks, startErr, streamErr := p.Blocks, p.StartErr, p.StreamErr
	p.mu.Unlock()

	if startErr != nil {
		return nil, startErr
	}

	s := &Stream{
		ch:   make(chan audio.Block, len(blocks)+1),
		done: make(chan struct{}),
		err:  streamErr,
	}
	go func() {
		defer close(s.ch)
		for _, b := range blocks {
			select {
			case s.ch <- b:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return s, nil
}

// Stream is the capture.Stream returned by Provider.Start.
type Stream struct {
	ch   chan audio.Block
	done chan struct{}
	once sync.Once
	err  error
}

// Blocks returns the scripted block channel.
func (s *Stream) Blocks() <-chan audio.Block { return s.ch }

// Err returns the configured StreamErr.
func (s *Stream) Err() error { return s.err }

// Stop ends delivery early. Safe to call more than once.
func (s *Stream) Stop() {
	s.once.Do(func() { close(s.done) })
}
