package kiosk

import (
	"errors"

	"github.com/keithruezyl1/ResKiosk--sub000/internal/hub"
)

// FailureKind classifies a recoverable interaction failure. Every kind maps
// to a distinct user-facing message; all of them resolve the same way (the
// error banner self-clears back to Idle).
type FailureKind string

const (
	// FailRecordingTooShort means the capture ended before the per-policy
	// minimum duration.
	FailRecordingTooShort FailureKind = "too_short"

	// FailSilenceOnly means the recognizer returned a known non-speech
	// marker: the user pressed the button but said nothing.
	FailSilenceOnly FailureKind = "silence"

	// FailUnintelligible means the transcript was blank after
	// post-processing: audio was captured but nothing was recognized.
	FailUnintelligible FailureKind = "unintelligible"

	// FailHubUnreachable means the hub could not be connected to.
	FailHubUnreachable FailureKind = "hub_unreachable"

	// FailHubTimeout means the hub accepted the request but did not answer
	// in time.
	FailHubTimeout FailureKind = "hub_timeout"

	// FailHubGeneric covers every other hub failure.
	FailHubGeneric FailureKind = "hub_generic"
)

var failureMessages = map[FailureKind]string{
	FailRecordingTooShort: "That was a little too quick. Please hold the button and speak.",
	FailSilenceOnly:       "I didn't hear anything. Please try again.",
	FailUnintelligible:    "Sorry, I couldn't make that out. Please try again.",
	FailHubUnreachable:    "I can't reach the help desk right now. Please try again in a moment.",
	FailHubTimeout:        "The help desk is taking too long to answer. Please try again.",
	FailHubGeneric:        "Something went wrong on our side. Please try again.",
}

// Message returns the user-facing text shown (and spoken) for the failure.
func (k FailureKind) Message() string {
	if msg, ok := failureMessages[k]; ok {
		return msg
	}
	return failureMessages[FailHubGeneric]
}

// classifyHubFailure maps a hub client error onto the failure taxonomy.
func classifyHubFailure(err error) FailureKind {
	switch {
	case errors.Is(err, hub.ErrUnreachable):
		return FailHubUnreachable
	case errors.Is(err, hub.ErrTimeout):
		return FailHubTimeout
	}
	return FailHubGeneric
}
