package kiosk

// StateKind enumerates the variants of the interaction state machine.
type StateKind int

const (
	StateIdle StateKind = iota
	StatePreparingToCapture
	StateCapturing
	StateTranscribing
	StateProcessing
	StateSpeaking
	StateClarification
	StateError
	StateTerminatingSession
	StateEmergencyConfirmation
	StateEmergencyCancelWindow
	StateEmergencyPending
	StateEmergencyActive
	StateEmergencyAcknowledged
	StateEmergencyResponding
	StateEmergencyResolved
	StateEmergencyFailed
	StateEmergencyCancelled
)

var stateNames = map[StateKind]string{
	StateIdle:                  "idle",
	StatePreparingToCapture:    "preparing_to_capture",
	StateCapturing:             "capturing",
	StateTranscribing:          "transcribing",
	StateProcessing:            "processing",
	StateSpeaking:              "speaking",
	StateClarification:         "clarification",
	StateError:                 "error",
	StateTerminatingSession:    "terminating_session",
	StateEmergencyConfirmation: "emergency_confirmation",
	StateEmergencyCancelWindow: "emergency_cancel_window",
	StateEmergencyPending:      "emergency_pending",
	StateEmergencyActive:       "emergency_active",
	StateEmergencyAcknowledged: "emergency_acknowledged",
	StateEmergencyResponding:   "emergency_responding",
	StateEmergencyResolved:     "emergency_resolved",
	StateEmergencyFailed:       "emergency_failed",
	StateEmergencyCancelled:    "emergency_cancelled",
}

// String returns the snake_case name of the state kind.
func (k StateKind) String() string {
	if n, ok := stateNames[k]; ok {
		return n
	}
	return "unknown"
}

// IsEmergency reports whether k belongs to the emergency family.
func (k StateKind) IsEmergency() bool {
	switch k {
	case StateEmergencyConfirmation, StateEmergencyCancelWindow,
		StateEmergencyPending, StateEmergencyActive,
		StateEmergencyAcknowledged, StateEmergencyResponding,
		StateEmergencyResolved, StateEmergencyFailed,
		StateEmergencyCancelled:
		return true
	}
	return false
}

// State is the single source of truth for what the UI may show and which
// actions are legal. It is a closed tagged union: Kind selects the variant
// and the payload fields that apply to it; all other fields are zero.
//
// Exactly one State is current at any instant. Transitions are total
// functions of (current kind, event) — illegal combinations are debug-logged
// no-ops, never errors.
type State struct {
	Kind StateKind

	// Text carries the Speaking text, the Error message, or the emergency
	// transcript, depending on Kind.
	Text string

	// Question and Options apply to StateClarification.
	Question string
	Options  []string

	// RemainingSeconds applies to the emergency confirmation and
	// cancel-window countdowns.
	RemainingSeconds int

	// RetryCount applies to StateEmergencyFailed.
	RetryCount int
}

// canStartCapture reports whether StartCapture is legal from k.
func canStartCapture(k StateKind) bool {
	switch k {
	case StateIdle, StateSpeaking, StateError, StateClarification:
		return true
	}
	return false
}
