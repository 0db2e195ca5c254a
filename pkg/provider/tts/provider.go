// Package tts defines the Provider interface for text-to-speech playback.
//
// Unlike a synthesis-only service, a kiosk TTS provider owns the speaker
// output path end to end: Speak synthesises and plays, Stop interrupts, and
// IsPlaying reports whether audio is still coming out of the speaker. The
// orchestrator uses IsPlaying to wait for silence before opening the
// microphone, so implementations must report playback state accurately.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS playback backend.
type Provider interface {
	// Speak synthesises text in the given language and plays it on the kiosk
	// speaker. Speak returns once playback has been started; it does not wait
	// for playback to finish. A Speak call while audio is already playing
	// replaces the current utterance.
	Speak(ctx context.Context, text string, language string) error

	// Stop interrupts any in-progress playback. Calling Stop when nothing is
	// playing is a no-op.
	Stop()

	// IsPlaying reports whether audio is currently being played.
	IsPlaying() bool
}
