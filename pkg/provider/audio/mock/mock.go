// Package mock provides a test double for the audio package interfaces.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/audio"
)

// Ensure Source implements audio.Source at compile time.
var _ audio.Source = (*Source)(nil)

// Source is a mock implementation of audio.Source. Tests push chunks through
// Emit and the consumer receives them from the channel returned by Open.
type Source struct {
	mu sync.Mutex

	// Rate is the value reported by SampleRate. Defaults to 16000 when zero.
	Rate int

	// OpenErr, if non-nil, is returned by Open.
	OpenErr error

	ch     chan audio.Chunk
	opened bool
	closed bool
}

// Open returns the chunk channel, failing if the source is already open.
func (s *Source) Open(_ context.Context) (<-chan audio.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	if s.opened && !s.closed {
		return nil, errors.New("mock audio: already open")
	}
	s.ch = make(chan audio.Chunk, 64)
	s.opened = true
	s.closed = false
	return s.ch, nil
}

// SampleRate returns Rate, defaulting to 16000.
func (s *Source) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Rate == 0 {
		return 16000
	}
	return s.Rate
}

// Emit delivers one chunk to the consumer. Emit after Close is a no-op.
func (s *Source) Emit(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil || s.closed {
		return
	}
	s.ch <- audio.Chunk{Data: data}
}

// Close closes the chunk channel.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil && !s.closed {
		close(s.ch)
	}
	s.closed = true
	return nil
}
