// Package punct defines the interface for the punctuation post-processor
// that cleans up raw STT output before it is shown or dispatched.
package punct

import "context"

// Processor restores punctuation and casing in a raw transcript.
//
// Implementations must be safe for concurrent use.
type Processor interface {
	// Process returns the punctuated form of text for the given language.
	// Implementations should return the input unchanged for languages they
	// do not support rather than fail.
	Process(ctx context.Context, text string, language string) (string, error)
}
