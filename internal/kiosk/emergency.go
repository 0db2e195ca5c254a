package kiosk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/keithruezyl1/ResKiosk--sub000/internal/hub"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/journal"
)

// Emergency trigger origins, for metrics and the journal.
const (
	originDetector = "detector"
	originManual   = "manual"
)

// alertState is the one in-flight emergency alert. The local id identifies
// the alert to the hub until delivery succeeds; once the server assigns an
// id the local one is cleared and never reused.
type alertState struct {
	localID    string
	serverID   int64
	tier       int
	transcript string
	retries    int
}

// TriggerSOS starts the emergency flow from the manual SOS button. Unlike
// detector hits it skips confirmation and the cancel window: delivery starts
// immediately. Rejected during the post-resolution cooldown.
func (o *Orchestrator) TriggerSOS() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Kind.IsEmergency() {
		o.log.Debug("sos ignored, emergency already in progress", "state", o.state.Kind)
		return
	}
	if time.Now().Before(o.cooldownUntil) {
		o.log.Info("sos rejected during cooldown")
		return
	}
	o.triggerEmergencyLocked(1, "", originManual)
}

// triggerEmergencyLocked enters the emergency flow. Tier 2 asks for
// confirmation first; a tier-1 detector hit opens the cancel window; a
// manual trigger delivers immediately. Entering the flow silences playback,
// aborts any capture, and suspends the inactivity watchdog.
func (o *Orchestrator) triggerEmergencyLocked(tier int, transcript, origin string) {
	if o.state.Kind.IsEmergency() {
		o.log.Debug("emergency trigger ignored, already in progress")
		return
	}

	o.tts.Stop()
	o.closeCaptureLocked()
	for _, cat := range []string{taskWatchdog, taskQuery, taskSpeech, taskErrorClear} {
		o.tasks.stop(cat)
	}

	o.alert = &alertState{
		localID:    uuid.NewString(),
		tier:       tier,
		transcript: transcript,
	}
	o.metrics.EmergencyTriggers.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.Int("tier", tier),
			attribute.String("origin", origin),
		))
	o.journalEmergency("triggered", o.alert)

	switch {
	case origin == originManual:
		o.beginDeliveryLocked()
	case tier == 2:
		o.setStateLocked(State{
			Kind:             StateEmergencyConfirmation,
			Text:             transcript,
			RemainingSeconds: ConfirmTicks,
		})
		o.startCountdownLocked(StateEmergencyConfirmation)
	default:
		o.setStateLocked(State{
			Kind:             StateEmergencyCancelWindow,
			Text:             transcript,
			RemainingSeconds: CancelWindowTicks,
		})
		o.startCountdownLocked(StateEmergencyCancelWindow)
	}
}

// startCountdownLocked ticks the RemainingSeconds of the given state down to
// zero, then escalates to delivery. An unanswered confirmation escalates; so
// does an unused cancel window.
func (o *Orchestrator) startCountdownLocked(kind StateKind) {
	o.tasks.start(o.baseCtx, taskCountdown, func(ctx context.Context) {
		for {
			if !sleepCtx(ctx, o.timings.CountdownTick) {
				return
			}
			o.mu.Lock()
			if o.state.Kind != kind {
				o.mu.Unlock()
				return
			}
			next := o.state
			next.RemainingSeconds--
			if next.RemainingSeconds > 0 {
				o.setStateLocked(next)
				o.mu.Unlock()
				continue
			}
			o.beginDeliveryLocked()
			o.mu.Unlock()
			return
		}
	})
}

// ConfirmEmergency answers the tier-2 confirmation prompt affirmatively.
func (o *Orchestrator) ConfirmEmergency() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Kind != StateEmergencyConfirmation {
		o.log.Debug("emergency confirm ignored", "state", o.state.Kind)
		return
	}
	o.tasks.stop(taskCountdown)
	o.journalEmergency("confirmed", o.alert)
	o.beginDeliveryLocked()
}

// DeclineEmergency answers the tier-2 confirmation prompt negatively and
// returns to Idle. Declining counts as a resolution: the cooldown starts.
func (o *Orchestrator) DeclineEmergency() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Kind != StateEmergencyConfirmation {
		o.log.Debug("emergency decline ignored", "state", o.state.Kind)
		return
	}
	o.tasks.stop(taskCountdown)
	o.journalEmergency("declined", o.alert)
	o.alert = nil
	o.cooldownUntil = time.Now().Add(o.timings.EmergencyCooldown)
	o.setStateLocked(State{Kind: StateIdle})
	o.armWatchdogLocked()
}

// CancelEmergency aborts a tier-1 trigger during its cancel window. The
// cancelled banner is held briefly, then the kiosk folds back to Idle.
func (o *Orchestrator) CancelEmergency() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Kind != StateEmergencyCancelWindow {
		o.log.Debug("emergency cancel ignored", "state", o.state.Kind)
		return
	}
	o.tasks.stop(taskCountdown)
	o.journalEmergency("cancelled", o.alert)
	o.alert = nil
	o.cooldownUntil = time.Now().Add(o.timings.EmergencyCooldown)
	o.setStateLocked(State{Kind: StateEmergencyCancelled})
	o.tasks.start(o.baseCtx, taskHold, func(ctx context.Context) {
		if !sleepCtx(ctx, o.timings.CancelledHold) {
			return
		}
		o.mu.Lock()
		if o.state.Kind == StateEmergencyCancelled {
			o.setStateLocked(State{Kind: StateIdle})
			o.armWatchdogLocked()
		}
		o.mu.Unlock()
	})
}

// beginDeliveryLocked starts the unbounded delivery retry loop.
func (o *Orchestrator) beginDeliveryLocked() {
	a := o.alert
	if a == nil {
		return
	}
	o.setStateLocked(State{Kind: StateEmergencyPending, Text: a.transcript})
	o.tasks.start(o.baseCtx, taskDelivery, func(ctx context.Context) {
		o.deliverAlert(ctx, a)
	})
}

// deliverAlert POSTs the alert until the hub accepts it. Every failed
// attempt bumps the retry counter (carried on the wire so the hub can
// deduplicate) and waits out the retry interval. There is no attempt cap: an
// emergency is never silently dropped.
func (o *Orchestrator) deliverAlert(ctx context.Context, a *alertState) {
	for {
		prefs := o.prefs.Get()
		req := hub.EmergencyRequest{
			KioskID:       prefs.KioskID,
			KioskLocation: o.kioskCfg.Location,
			Transcript:    a.transcript,
			Language:      prefs.Language,
			Timestamp:     time.Now().Unix(),
			Tier:          a.tier,
			LocalAlertID:  a.localID,
			RetryCount:    a.retries,
		}

		start := time.Now()
		serverID, err := o.hub.Emergency(ctx, req)
		if err == nil {
			o.metrics.EmergencyDeliveryDuration.Record(context.Background(), time.Since(start).Seconds())
			o.mu.Lock()
			if ctx.Err() != nil || o.alert != a {
				o.mu.Unlock()
				return
			}
			a.serverID = serverID
			a.localID = ""
			o.setStateLocked(State{Kind: StateEmergencyActive, Text: a.transcript})
			o.startPollingLocked(a)
			o.journalEmergency("delivered", a)
			o.mu.Unlock()
			o.log.Info("emergency delivered", "alert_id", serverID, "attempts", a.retries+1)
			return
		}
		if ctx.Err() != nil {
			return
		}

		o.metrics.EmergencyRetries.Add(context.Background(), 1)
		o.mu.Lock()
		if o.alert != a {
			o.mu.Unlock()
			return
		}
		a.retries++
		o.setStateLocked(State{
			Kind:       StateEmergencyFailed,
			Text:       a.transcript,
			RetryCount: a.retries,
		})
		o.mu.Unlock()
		o.log.Warn("emergency delivery failed", "attempt", a.retries, "error", err)

		if !sleepCtx(ctx, o.timings.EmergencyRetryInterval) {
			return
		}
		o.mu.Lock()
		if o.alert != a {
			o.mu.Unlock()
			return
		}
		o.setStateLocked(State{Kind: StateEmergencyPending, Text: a.transcript})
		o.mu.Unlock()
	}
}

// startPollingLocked follows the delivered alert's status on the hub until
// it reaches a terminal state.
func (o *Orchestrator) startPollingLocked(a *alertState) {
	o.tasks.start(o.baseCtx, taskPoll, func(ctx context.Context) {
		for {
			if !sleepCtx(ctx, o.timings.EmergencyPollInterval) {
				return
			}
			status, err := o.hub.EmergencyStatus(ctx, a.serverID)
			if err != nil {
				o.log.Debug("emergency status poll failed", "alert_id", a.serverID, "error", err)
				continue
			}
			if !o.applyAlertStatus(a, status) {
				return
			}
		}
	})
}

// HandleStatusEvent applies a pushed emergency status update (websocket
// feed). Events for stale or unknown alerts are dropped.
func (o *Orchestrator) HandleStatusEvent(ev hub.StatusEvent) {
	o.mu.Lock()
	a := o.alert
	o.mu.Unlock()
	if a == nil || a.serverID == 0 || a.serverID != ev.AlertID {
		return
	}
	o.applyAlertStatus(a, ev.Status)
}

// applyAlertStatus folds one reported status into the state machine.
// Returns false when polling should stop (terminal status or stale alert).
func (o *Orchestrator) applyAlertStatus(a *alertState, status string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.alert != a {
		return false
	}

	tracking := false
	switch o.state.Kind {
	case StateEmergencyActive, StateEmergencyAcknowledged, StateEmergencyResponding:
		tracking = true
	}

	switch status {
	case hub.StatusActive:
		if tracking && o.state.Kind != StateEmergencyActive {
			o.setStateLocked(State{Kind: StateEmergencyActive, Text: a.transcript})
		}
	case hub.StatusAcknowledged:
		if tracking && o.state.Kind != StateEmergencyAcknowledged {
			o.setStateLocked(State{Kind: StateEmergencyAcknowledged, Text: a.transcript})
		}
	case hub.StatusResponding:
		if tracking && o.state.Kind != StateEmergencyResponding {
			o.setStateLocked(State{Kind: StateEmergencyResponding, Text: a.transcript})
		}
	case hub.StatusResolved:
		if !tracking {
			return false
		}
		o.journalEmergency("resolved", a)
		o.alert = nil
		o.cooldownUntil = time.Now().Add(o.timings.EmergencyCooldown)
		o.setStateLocked(State{Kind: StateEmergencyResolved})
		o.tasks.start(o.baseCtx, taskHold, func(ctx context.Context) {
			if !sleepCtx(ctx, o.timings.ResolvedHold) {
				return
			}
			o.mu.Lock()
			if o.state.Kind == StateEmergencyResolved {
				o.setStateLocked(State{Kind: StateIdle})
				o.armWatchdogLocked()
			}
			o.mu.Unlock()
		})
		return false
	case hub.StatusDismissed:
		if !tracking {
			return false
		}
		o.journalEmergency("dismissed_remote", a)
		o.alert = nil
		o.cooldownUntil = time.Now().Add(o.timings.EmergencyCooldown)
		o.setStateLocked(State{Kind: StateIdle})
		o.armWatchdogLocked()
		return false
	default:
		o.log.Debug("unknown emergency status", "status", status)
	}
	return true
}

// DismissEmergency ends the emergency flow from the kiosk side. The hub is
// notified best-effort when a server-side alert id exists.
func (o *Orchestrator) DismissEmergency() {
	o.mu.Lock()
	if !o.state.Kind.IsEmergency() {
		o.mu.Unlock()
		o.log.Debug("emergency dismiss ignored", "state", o.state.Kind)
		return
	}
	a := o.alert
	for _, cat := range []string{taskCountdown, taskDelivery, taskPoll, taskHold} {
		o.tasks.stop(cat)
	}
	o.alert = nil
	o.cooldownUntil = time.Now().Add(o.timings.EmergencyCooldown)
	o.journalEmergency("dismissed", a)
	o.setStateLocked(State{Kind: StateIdle})
	o.armWatchdogLocked()
	o.mu.Unlock()

	if a != nil {
		if a.serverID != 0 {
			go func() {
				if err := o.hub.DismissEmergency(o.baseCtx, a.serverID); err != nil {
					o.log.Warn("emergency dismiss notify failed", "alert_id", a.serverID, "error", err)
				}
			}()
		}
	}
}

func (o *Orchestrator) journalEmergency(event string, a *alertState) {
	if a == nil {
		return
	}
	rec := journal.Record{
		Kind:         journal.KindEmergency,
		KioskID:      o.prefs.Get().KioskID,
		LocalAlertID: a.localID,
		AlertID:      a.serverID,
		Event:        event,
		Tier:         a.tier,
	}
	if o.session != nil {
		rec.SessionID = o.session.ID
	}
	if err := o.journal.Append(rec); err != nil {
		o.log.Warn("journal append failed", "error", err)
	}
}
