package kiosk

import "time"

// Countdown tick counts. These are fixed by the interaction design; only the
// tick interval is injectable for tests.
const (
	// ConfirmTicks is the number of countdown ticks before an unanswered
	// tier-2 confirmation auto-escalates.
	ConfirmTicks = 20

	// CancelWindowTicks is the number of countdown ticks a tier-1 trigger
	// waits before escalating, during which the user may cancel.
	CancelWindowTicks = 10
)

// Timings groups every duration the orchestrator sleeps or polls on. The
// production values live in [DefaultTimings]; tests inject millisecond-scale
// values so the full state machine runs in real time without fakes.
type Timings struct {
	// PlaybackSettleWait bounds how long capture start waits for TTS
	// playback to stop before proceeding anyway.
	PlaybackSettleWait time.Duration

	// SettleDelay is the pause after playback stops before audio chunks
	// are accepted, so the mic does not pick up speaker tail.
	SettleDelay time.Duration

	// PlaybackPollInterval is how often playback state is re-checked while
	// waiting for it to stop.
	PlaybackPollInterval time.Duration

	// SpeechWait caps how long the Speaking state waits for TTS playback
	// to finish before returning to Idle regardless.
	SpeechWait time.Duration

	// InactivityTimeout is the watchdog deadline: with a live session and
	// no user-visible activity for this long, the session is terminated.
	InactivityTimeout time.Duration

	// TerminateGrace is how long the terminating banner is shown before
	// the session is actually torn down.
	TerminateGrace time.Duration

	// CountdownTick is the interval between emergency countdown ticks.
	CountdownTick time.Duration

	// EmergencyRetryInterval is the wait between failed alert deliveries.
	EmergencyRetryInterval time.Duration

	// EmergencyPollInterval is the wait between alert status polls.
	EmergencyPollInterval time.Duration

	// ResolvedHold is how long the resolved banner is shown before the
	// kiosk folds back to Idle.
	ResolvedHold time.Duration

	// CancelledHold is how long the cancelled banner is shown.
	CancelledHold time.Duration

	// EmergencyCooldown is the post-resolution window during which a new
	// manual SOS trigger is rejected.
	EmergencyCooldown time.Duration

	// ErrorHold is how long an error banner is shown before the state
	// self-clears to Idle.
	ErrorHold time.Duration

	// MinStreamingCapture is the minimum capture length for streaming
	// recognition languages.
	MinStreamingCapture time.Duration

	// MinBatchCapture is the minimum capture length for batch recognition
	// languages, which need more audio to produce anything useful.
	MinBatchCapture time.Duration
}

// DefaultTimings returns the production timing profile.
func DefaultTimings() Timings {
	return Timings{
		PlaybackSettleWait:     1200 * time.Millisecond,
		SettleDelay:            150 * time.Millisecond,
		PlaybackPollInterval:   50 * time.Millisecond,
		SpeechWait:             30 * time.Second,
		InactivityTimeout:      60 * time.Second,
		TerminateGrace:         2 * time.Second,
		CountdownTick:          time.Second,
		EmergencyRetryInterval: 30 * time.Second,
		EmergencyPollInterval:  15 * time.Second,
		ResolvedHold:           30 * time.Second,
		CancelledHold:          1200 * time.Millisecond,
		EmergencyCooldown:      60 * time.Second,
		ErrorHold:              3 * time.Second,
		MinStreamingCapture:    300 * time.Millisecond,
		MinBatchCapture:        2 * time.Second,
	}
}
