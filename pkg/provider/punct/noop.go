package punct

import "context"

// Noop is a Processor that returns transcripts unchanged. Used when no
// punctuation model is deployed; English whisper output already carries
// usable punctuation.
type Noop struct{}

var _ Processor = Noop{}

// Process implements [Processor].
func (Noop) Process(_ context.Context, text string, _ string) (string, error) {
	return text, nil
}
