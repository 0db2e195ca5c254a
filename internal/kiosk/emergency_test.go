package kiosk

import (
	"testing"
	"time"

	"github.com/keithruezyl1/ResKiosk--sub000/internal/hub"
)

func TestManualSOSDeliversImmediately(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.orch.TriggerSOS()
	r.waitState(StateEmergencyActive)

	if r.hub.emergencyCount() != 1 {
		t.Fatalf("hub saw %d deliveries, want 1", r.hub.emergencyCount())
	}
	req := r.hub.emergency(0)
	if req.Tier != 1 || req.RetryCount != 0 {
		t.Errorf("sos request tier/retry = %d/%d", req.Tier, req.RetryCount)
	}
	if req.LocalAlertID == "" {
		t.Errorf("sos request missing local alert id")
	}
	if req.KioskID != "kiosk-7" || req.KioskLocation != "Hall B, east entrance" {
		t.Errorf("sos request identity = %q @ %q", req.KioskID, req.KioskLocation)
	}

	// The hub marks the alert resolved; the kiosk holds the banner, then
	// folds back to Idle.
	r.hub.scriptStatuses(hub.StatusResolved)
	r.waitState(StateEmergencyResolved)
	r.waitState(StateIdle)
}

func TestTier1DetectorOpensCancelWindow(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.capture("emergency")
	state := r.waitState(StateEmergencyCancelWindow)
	if state.RemainingSeconds <= 0 || state.RemainingSeconds > CancelWindowTicks {
		t.Errorf("cancel window remaining = %d", state.RemainingSeconds)
	}
	if state.Text != "emergency" {
		t.Errorf("cancel window transcript = %q", state.Text)
	}

	r.orch.CancelEmergency()
	r.waitState(StateEmergencyCancelled)
	r.waitState(StateIdle)

	if r.hub.emergencyCount() != 0 {
		t.Errorf("cancelled alert reached the hub")
	}

	// Cancellation starts the cooldown: a manual SOS is rejected.
	r.orch.TriggerSOS()
	time.Sleep(20 * time.Millisecond)
	if s := r.orch.State(); s.Kind != StateIdle {
		t.Errorf("sos during cooldown changed state to %v", s.Kind)
	}
	if r.hub.emergencyCount() != 0 {
		t.Errorf("sos during cooldown reached the hub")
	}
}

func TestCancelWindowExpiryEscalates(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.capture("there is a fire")
	r.waitState(StateEmergencyCancelWindow)

	// Nobody cancels; the countdown runs out and delivery starts.
	r.waitState(StateEmergencyActive)
	req := r.hub.emergency(0)
	if req.Tier != 1 || req.Transcript != "there is a fire" {
		t.Errorf("escalated request = %+v", req)
	}
}

func TestTier2RequiresConfirmation(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.capture("i feel sick")
	state := r.waitState(StateEmergencyConfirmation)
	if state.RemainingSeconds <= 0 || state.RemainingSeconds > ConfirmTicks {
		t.Errorf("confirmation remaining = %d", state.RemainingSeconds)
	}
	if r.hub.emergencyCount() != 0 {
		t.Fatalf("tier-2 hit delivered before confirmation")
	}

	r.orch.ConfirmEmergency()
	r.waitState(StateEmergencyActive)
	req := r.hub.emergency(0)
	if req.Tier != 2 || req.Transcript != "i feel sick" {
		t.Errorf("confirmed request = %+v", req)
	}
}

func TestTier2DeclineReturnsToIdle(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.capture("i feel sick")
	r.waitState(StateEmergencyConfirmation)
	r.orch.DeclineEmergency()
	r.waitState(StateIdle)

	if r.hub.emergencyCount() != 0 {
		t.Errorf("declined alert reached the hub")
	}
	if _, ok := r.orch.CurrentSession(); !ok {
		t.Errorf("decline ended the session")
	}

	// Declining counts as a resolution: manual SOS is in cooldown.
	r.orch.TriggerSOS()
	time.Sleep(20 * time.Millisecond)
	if r.hub.emergencyCount() != 0 {
		t.Errorf("sos during cooldown reached the hub")
	}
}

func TestConfirmationTimeoutAutoEscalates(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.capture("i feel sick")
	r.waitState(StateEmergencyConfirmation)

	// A collapsed user answers nothing: the countdown escalates on its own.
	r.waitState(StateEmergencyActive)
	if req := r.hub.emergency(0); req.Tier != 2 {
		t.Errorf("auto-escalated request tier = %d", req.Tier)
	}
}

func TestDeliveryRetriesUntilAccepted(t *testing.T) {
	r := newRig(t)
	r.hub.failDeliveries(2)
	r.orch.StartSession()

	r.orch.TriggerSOS()
	state := r.waitState(StateEmergencyFailed)
	if state.RetryCount < 1 {
		t.Errorf("failed state retry count = %d", state.RetryCount)
	}

	r.waitState(StateEmergencyActive)
	r.waitFor("three delivery attempts", func() bool { return r.hub.emergencyCount() == 3 })

	first := r.hub.emergency(0)
	for i := 0; i < 3; i++ {
		req := r.hub.emergency(i)
		if req.RetryCount != i {
			t.Errorf("attempt %d retry_count = %d", i, req.RetryCount)
		}
		if req.LocalAlertID != first.LocalAlertID {
			t.Errorf("attempt %d changed local alert id", i)
		}
	}
}

func TestStatusPollingWalksResponderStates(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.orch.TriggerSOS()
	r.waitState(StateEmergencyActive)

	r.hub.scriptStatuses(hub.StatusAcknowledged, hub.StatusResponding, hub.StatusResolved)
	r.waitState(StateEmergencyAcknowledged)
	r.waitState(StateEmergencyResponding)
	r.waitState(StateEmergencyResolved)
	r.waitState(StateIdle)

	// Resolution keeps the session alive.
	if _, ok := r.orch.CurrentSession(); !ok {
		t.Errorf("resolution ended the session")
	}
}

func TestRemoteDismissalDropsBannerImmediately(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.orch.TriggerSOS()
	r.waitState(StateEmergencyActive)
	r.hub.scriptStatuses(hub.StatusDismissed)
	r.waitState(StateIdle)
}

func TestPushedStatusEventApplies(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.orch.TriggerSOS()
	r.waitState(StateEmergencyActive)

	// An event for some other alert is dropped.
	r.orch.HandleStatusEvent(hub.StatusEvent{AlertID: 12345, Status: hub.StatusResponding})
	if s := r.orch.State(); s.Kind != StateEmergencyActive {
		t.Fatalf("stale event applied, state = %v", s.Kind)
	}

	r.orch.HandleStatusEvent(hub.StatusEvent{AlertID: 99, Status: hub.StatusResponding})
	r.waitState(StateEmergencyResponding)
}

func TestDismissNotifiesHub(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.orch.TriggerSOS()
	r.waitState(StateEmergencyActive)
	r.orch.DismissEmergency()
	r.waitState(StateIdle)
	r.waitFor("hub dismissal", func() bool { return r.hub.dismissCount() == 1 })
}

func TestEndSessionRefusedDuringEmergency(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.orch.TriggerSOS()
	r.waitState(StateEmergencyActive)

	r.orch.EndSession("user")
	if _, ok := r.orch.CurrentSession(); !ok {
		t.Fatalf("session ended during emergency")
	}
	if s := r.orch.State(); s.Kind != StateEmergencyActive {
		t.Errorf("state after refused end = %v", s.Kind)
	}
}

func TestCaptureIgnoredDuringEmergency(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.orch.TriggerSOS()
	r.waitState(StateEmergencyActive)

	before := r.stt.StartStreamCallCount()
	r.orch.StartCapture()
	time.Sleep(20 * time.Millisecond)
	if got := r.stt.StartStreamCallCount(); got != before {
		t.Errorf("capture opened an stt stream during emergency")
	}
	if s := r.orch.State(); s.Kind != StateEmergencyActive {
		t.Errorf("state after ignored capture = %v", s.Kind)
	}
}

func TestSOSIgnoredWhileEmergencyInProgress(t *testing.T) {
	r := newRig(t)
	r.orch.StartSession()

	r.orch.TriggerSOS()
	r.waitState(StateEmergencyActive)
	r.orch.TriggerSOS()
	time.Sleep(20 * time.Millisecond)
	if r.hub.emergencyCount() != 1 {
		t.Errorf("second sos produced %d deliveries", r.hub.emergencyCount())
	}
}
