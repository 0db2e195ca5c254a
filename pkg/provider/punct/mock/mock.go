// Package mock provides a test double for the punct package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/punct"
)

// Ensure Processor implements punct.Processor at compile time.
var _ punct.Processor = (*Processor)(nil)

// ProcessCall records a single invocation of Processor.Process.
type ProcessCall struct {
	Text     string
	Language string
}

// Processor is a mock implementation of punct.Processor.
type Processor struct {
	mu sync.Mutex

	// Transform, if non-nil, computes the returned text. When nil the input
	// text is returned unchanged.
	Transform func(text string) string

	// ProcessErr, if non-nil, is returned by every Process call.
	ProcessErr error

	// ProcessCalls records every call to Process in order.
	ProcessCalls []ProcessCall
}

// Process records the call and returns the transformed text.
func (p *Processor) Process(_ context.Context, text string, language string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProcessCalls = append(p.ProcessCalls, ProcessCall{Text: text, Language: language})
	if p.ProcessErr != nil {
		return "", p.ProcessErr
	}
	if p.Transform != nil {
		return p.Transform(text), nil
	}
	return text, nil
}
