package stt

import "time"

// Transcript represents a speech-to-text result. Both partial (interim) and
// final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is the authoritative session result or
	// an interim guess.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the engine does not report confidence.
	Confidence float64

	// Duration is the length of audio the transcript covers.
	Duration time.Duration
}
