// Package audio defines the Source interface for the kiosk microphone path.
//
// A Source is a continuously running capture pipeline: it starts delivering
// PCM chunks as soon as it is opened and keeps delivering them until closed.
// Consumers that want "instant-on" capture keep the source running across
// interactions and pre-buffer its output in a ring, discarding the ring when
// a capture gesture actually starts.
package audio

import "context"

// Chunk is one block of raw PCM audio from the microphone.
type Chunk struct {
	// Data is the raw PCM payload (16-bit little-endian mono).
	Data []byte
}

// Source is a continuous microphone chunk producer.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Open starts the capture pipeline and returns the chunk channel. The
	// channel is closed when the source is closed or ctx is cancelled.
	// Opening an already-open source returns an error.
	Open(ctx context.Context) (<-chan Chunk, error)

	// SampleRate reports the sample rate of produced chunks in Hz.
	SampleRate() int

	// Close stops the pipeline and closes the chunk channel. Calling Close
	// more than once is safe and returns nil.
	Close() error
}
