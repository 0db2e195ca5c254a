// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a transcription engine (a cloud service or a local
// model server) and exposes a uniform streaming interface. The central
// abstraction is SessionHandle: once opened, a session accepts raw PCM audio
// chunks, emits low-latency partial transcripts for UI display, and produces
// a single authoritative final transcript when the caller finishes the
// session.
//
// Implementations must be safe for concurrent use. Audio input and partial
// output are goroutine-safe by construction.
package stt

import "context"

// StreamConfig describes the audio format and recognition hints for a new
// transcription session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz (16000 for the kiosk mic path).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono, required by most
	// engines; implementations may downmix internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g. "en", "hi").
	Language string
}

// SessionHandle represents an open transcription session.
//
// Callers must call Close when the session is no longer needed, even after a
// successful Finish. All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio to the engine. The chunk
	// must match the SampleRate, Channels, and bit depth agreed in
	// StreamConfig. Calling SendAudio after Finish or Close returns an error.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel emitting interim transcripts as
	// the engine makes preliminary guesses. Engines that only transcribe in
	// batch mode never send on this channel. The channel is closed when the
	// session ends.
	Partials() <-chan Transcript

	// Finish flushes buffered audio and blocks until the engine commits to a
	// final transcript. A session can be finished at most once.
	Finish(ctx context.Context) (Transcript, error)

	// Close terminates the session and releases all associated resources.
	// Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// StartStream opens a new transcription session with the given audio
	// format and recognition configuration. The returned SessionHandle is
	// ready to accept audio immediately. The caller owns the handle and must
	// call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
