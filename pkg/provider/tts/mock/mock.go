// Package mock provides a test double for the tts package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/tts"
)

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)

// SpeakCall records a single invocation of Provider.Speak.
type SpeakCall struct {
	Text     string
	Language string
}

// Provider is a mock implementation of tts.Provider.
//
// Set Playing to simulate in-progress playback; Stop clears it, so a caller
// that stops playback and then polls IsPlaying observes the transition the
// way it would with a real speaker.
type Provider struct {
	mu sync.Mutex

	// SpeakErr, if non-nil, is returned by every Speak call.
	SpeakErr error

	// Playing is the value reported by IsPlaying. Speak sets it to true.
	Playing bool

	// SpeakCalls records every call to Speak in order.
	SpeakCalls []SpeakCall

	// StopCallCount is the number of times Stop was called.
	StopCallCount int
}

// Speak records the call, marks playback active, and returns SpeakErr.
func (p *Provider) Speak(_ context.Context, text string, language string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SpeakCalls = append(p.SpeakCalls, SpeakCall{Text: text, Language: language})
	if p.SpeakErr != nil {
		return p.SpeakErr
	}
	p.Playing = true
	return nil
}

// Stop records the call and marks playback stopped.
func (p *Provider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StopCallCount++
	p.Playing = false
}

// IsPlaying returns the current Playing value.
func (p *Provider) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Playing
}

// SpokenTexts returns the texts passed to Speak, in order. Thread-safe.
func (p *Provider) SpokenTexts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.SpeakCalls))
	for i, c := range p.SpeakCalls {
		out[i] = c.Text
	}
	return out
}
