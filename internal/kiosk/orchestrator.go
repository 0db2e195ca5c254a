// Package kiosk implements the session orchestrator: the single owner of the
// kiosk's interaction state machine, chat log, voice capture lifecycle,
// emergency escalation flow, and feedback coordination.
//
// The orchestrator is a mutex-owned single writer. Every externally visible
// mutation happens under one lock; background work (timers, hub calls, audio
// finalization) runs on per-category tasks that re-enter through the same
// lock and re-check that the world they captured still exists before acting.
package kiosk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/keithruezyl1/ResKiosk--sub000/internal/config"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/detect"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/hub"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/journal"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/observe"
	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/audio"
	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/punct"
	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/stt"
	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/tts"
)

// User-facing fixed strings. The UI localizes these by key in deployments
// with translated frontends; the orchestrator only carries the English text.
const (
	placeholderThinking   = "Thinking…"
	placeholderListening  = "Listening…"
	placeholderRetrieving = "Retrieving a new response…"

	clarificationQuestion = "Which category are you asking about?"

	fallbackAnswer = "I'm sorry, I don't have an answer for that. Please ask a staff member at the front desk."
)

// Session is one walk-up user's interaction scope. Chat history, the query
// thread, and the server-side conversation memory all live and die with it.
type Session struct {
	ID        string
	Language  string
	StartedAt time.Time
}

// Deps collects everything the orchestrator needs. All fields except Timings
// and Logger are required.
type Deps struct {
	STT        stt.Provider
	TTS        tts.Provider
	Audio      audio.Source
	Punct      punct.Processor
	Detector   detect.PhraseDetector
	Intonation detect.IntonationAnalyzer
	Hub        *hub.Client
	Prefs      *config.Store
	Kiosk      config.KioskConfig
	Capture    config.CaptureConfig
	Journal    journal.Writer
	Metrics    *observe.Metrics

	// Timings overrides the production timing profile; zero means
	// [DefaultTimings].
	Timings Timings

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Orchestrator owns all session state. Construct with [New], drive the audio
// pump with [Run], then call the public methods from the UI layer.
type Orchestrator struct {
	stt        stt.Provider
	tts        tts.Provider
	audio      audio.Source
	punct      punct.Processor
	detector   detect.PhraseDetector
	intonation detect.IntonationAnalyzer
	hub        *hub.Client
	prefs      *config.Store
	kioskCfg   config.KioskConfig
	captureCfg config.CaptureConfig
	journal    journal.Writer
	metrics    *observe.Metrics
	timings    Timings
	log        *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc
	tasks      *taskSet
	ring       *chunkRing
	chat       *ChatLog

	mu              sync.Mutex
	state           State
	session         *Session
	cap             *captureRun
	pendingLanguage string
	lastOriginal    string
	lastEnglish     string
	excludeIDs      []int64
	alert           *alertState
	cooldownUntil   time.Time
	onState         func(State)
	onPartial       func(text string)
}

// New creates an orchestrator in the Idle state with no session.
func New(d Deps) *Orchestrator {
	if d.Timings == (Timings{}) {
		d.Timings = DefaultTimings()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		stt:        d.STT,
		tts:        d.TTS,
		audio:      d.Audio,
		punct:      d.Punct,
		detector:   d.Detector,
		intonation: d.Intonation,
		hub:        d.Hub,
		prefs:      d.Prefs,
		kioskCfg:   d.Kiosk,
		captureCfg: d.Capture,
		journal:    d.Journal,
		metrics:    d.Metrics,
		timings:    d.Timings,
		log:        d.Logger,
		baseCtx:    ctx,
		baseCancel: cancel,
		tasks:      newTaskSet(),
		ring:       newChunkRing(64),
		chat:       NewChatLog(),
		state:      State{Kind: StateIdle},
	}
}

// Run opens the microphone source and pumps chunks until ctx is cancelled.
// The mic runs for the whole process lifetime: outside a capture, chunks land
// in the pre-capture ring so the next capture starts with a warm pipeline.
func (o *Orchestrator) Run(ctx context.Context) error {
	chunks, err := o.audio.Open(ctx)
	if err != nil {
		return fmt.Errorf("kiosk: open audio source: %w", err)
	}
	defer o.audio.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-chunks:
			if !ok {
				return nil
			}
			o.deliverChunk(c.Data)
		}
	}
}

// Close cancels all background tasks. The orchestrator is unusable afterwards.
func (o *Orchestrator) Close() {
	o.tasks.stopAll()
	o.baseCancel()
}

// OnStateChange registers the UI callback invoked on every state change.
// The callback runs while the orchestrator lock is held and must not call
// back into the orchestrator; UI layers should post to their render loop.
// Must be set before any session starts.
func (o *Orchestrator) OnStateChange(fn func(State)) {
	o.mu.Lock()
	o.onState = fn
	o.mu.Unlock()
}

// OnPartialTranscript registers the UI callback for live partial transcripts
// during streaming-language captures. Same reentrancy rule as OnStateChange.
func (o *Orchestrator) OnPartialTranscript(fn func(text string)) {
	o.mu.Lock()
	o.onPartial = fn
	o.mu.Unlock()
}

// State returns the current interaction state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Chat returns a snapshot of the conversation.
func (o *Orchestrator) Chat() []ChatEntry {
	return o.chat.Entries()
}

// CurrentSession returns the live session, if any.
func (o *Orchestrator) CurrentSession() (Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return Session{}, false
	}
	return *o.session, true
}

// StartSession begins a new walk-up session, replacing any existing one.
// The chat log is cleared, the query thread reset, and the inactivity
// watchdog armed.
func (o *Orchestrator) StartSession() Session {
	o.mu.Lock()
	if o.session != nil {
		o.endSessionLocked("replaced")
	}
	sess := &Session{
		ID:        uuid.NewString(),
		Language:  o.prefs.Get().Language,
		StartedAt: time.Now(),
	}
	o.session = sess
	o.chat.Clear()
	o.lastOriginal, o.lastEnglish, o.excludeIDs = "", "", nil
	o.setStateLocked(State{Kind: StateIdle})
	o.armWatchdogLocked()
	o.mu.Unlock()

	o.metrics.ActiveSessions.Add(context.Background(), 1)
	o.log.Info("session started", "session_id", sess.ID, "language", sess.Language)
	if err := o.journal.Append(journal.Record{
		Kind:      journal.KindSession,
		SessionID: sess.ID,
		KioskID:   o.prefs.Get().KioskID,
		Event:     "started",
	}); err != nil {
		o.log.Warn("journal append failed", "error", err)
	}
	return *sess
}

// EndSession terminates the current session. A no-op without a session, and
// refused while an emergency is in progress.
func (o *Orchestrator) EndSession(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		o.log.Debug("end session without session")
		return
	}
	if o.state.Kind.IsEmergency() {
		o.log.Debug("end session refused during emergency", "state", o.state.Kind)
		return
	}
	o.endSessionLocked(reason)
}

// endSessionLocked tears the session down. Caller holds the lock and has
// verified no emergency is in progress.
func (o *Orchestrator) endSessionLocked(reason string) {
	sess := o.session
	o.session = nil

	for _, cat := range []string{
		taskWatchdog, taskCaptureStart, taskFinalize,
		taskQuery, taskSpeech, taskErrorClear,
	} {
		o.tasks.stop(cat)
	}
	o.closeCaptureLocked()
	o.tts.Stop()
	o.chat.Clear()
	o.lastOriginal, o.lastEnglish, o.excludeIDs = "", "", nil
	o.setStateLocked(State{Kind: StateIdle})

	o.metrics.ActiveSessions.Add(context.Background(), -1)
	o.log.Info("session ended", "session_id", sess.ID, "reason", reason)

	// Release the hub-side conversation memory. Best effort: the hub
	// expires idle sessions on its own.
	go func() {
		if err := o.hub.EndSession(o.baseCtx, sess.ID); err != nil {
			o.log.Debug("hub session release failed", "session_id", sess.ID, "error", err)
		}
	}()
	if err := o.journal.Append(journal.Record{
		Kind:      journal.KindSession,
		SessionID: sess.ID,
		KioskID:   o.prefs.Get().KioskID,
		Event:     "ended:" + reason,
	}); err != nil {
		o.log.Warn("journal append failed", "error", err)
	}
}

// SetLanguage switches the recognition/UI language. A change requested while
// a capture or transcription is in flight is deferred until the orchestrator
// next returns to Idle, so the in-flight utterance keeps its language.
func (o *Orchestrator) SetLanguage(lang string) {
	o.mu.Lock()
	switch o.state.Kind {
	case StatePreparingToCapture, StateCapturing, StateTranscribing:
		o.pendingLanguage = lang
		o.mu.Unlock()
		o.log.Info("language change deferred until idle", "language", lang)
		return
	}
	o.mu.Unlock()
	o.prefs.SetLanguage(lang)
}

// setStateLocked replaces the current state and notifies. Same-kind payload
// updates (countdown ticks) notify without recording a transition metric.
func (o *Orchestrator) setStateLocked(next State) {
	prev := o.state.Kind
	o.state = next
	if next.Kind != prev {
		o.metrics.RecordStateTransition(context.Background(), prev.String(), next.Kind.String())
		o.log.Debug("state transition", "from", prev, "to", next.Kind)
	}
	if next.Kind == StateIdle && o.pendingLanguage != "" {
		lang := o.pendingLanguage
		o.pendingLanguage = ""
		go o.prefs.SetLanguage(lang)
	}
	if o.onState != nil {
		o.onState(next)
	}
}

// armWatchdogLocked (re)starts the inactivity timer. Every user-visible
// action calls this; the previous timer is always superseded.
func (o *Orchestrator) armWatchdogLocked() {
	if o.session == nil {
		return
	}
	o.tasks.start(o.baseCtx, taskWatchdog, func(ctx context.Context) {
		if !sleepCtx(ctx, o.timings.InactivityTimeout) {
			return
		}
		o.watchdogFire(ctx)
	})
}

// watchdogFire terminates an abandoned session: show the terminating banner
// for the grace period, then tear down.
func (o *Orchestrator) watchdogFire(ctx context.Context) {
	o.mu.Lock()
	if o.session == nil || o.state.Kind.IsEmergency() {
		o.mu.Unlock()
		return
	}
	o.tts.Stop()
	o.closeCaptureLocked()
	o.setStateLocked(State{Kind: StateTerminatingSession})
	o.mu.Unlock()

	if !sleepCtx(ctx, o.timings.TerminateGrace) {
		return
	}

	o.mu.Lock()
	if o.session != nil && o.state.Kind == StateTerminatingSession {
		o.endSessionLocked("inactivity")
	}
	o.mu.Unlock()
}

// dispatchSpec describes one query dispatch.
type dispatchSpec struct {
	original        string
	english         string
	isRetry         bool
	category        string
	excludeIDs      []int64
	placeholderText string
	appendUser      bool
}

// dispatchLocked appends the chat entries for a query and launches the hub
// round trip. The placeholder resolves (or is removed) when the result lands.
func (o *Orchestrator) dispatchLocked(d dispatchSpec) {
	if d.appendUser {
		o.chat.AppendUser(d.original)
	}
	phID := o.chat.AppendPlaceholder(d.placeholderText)
	o.setStateLocked(State{Kind: StateProcessing})
	o.armWatchdogLocked()

	sessID := o.session.ID
	prefs := o.prefs.Get()
	into := o.intonation.Analyze(d.original)
	req := hub.QueryRequest{
		CenterID:             o.kioskCfg.CenterID,
		KioskID:              prefs.KioskID,
		TranscriptOriginal:   d.original,
		TranscriptEnglish:    d.english,
		Language:             prefs.Language,
		KBVersion:            o.kioskCfg.KBVersion,
		IsRetry:              d.isRetry,
		SelectedCategory:     d.category,
		SessionID:            sessID,
		ExcludeIDs:           d.excludeIDs,
		IsQuestion:           into.IsQuestion,
		IntonationConfidence: into.Confidence,
	}

	o.tasks.start(o.baseCtx, taskQuery, func(ctx context.Context) {
		start := time.Now()
		resp, err := o.hub.Query(ctx, req)
		o.metrics.QueryDuration.Record(context.Background(), time.Since(start).Seconds())

		o.mu.Lock()
		defer o.mu.Unlock()
		if ctx.Err() != nil || o.session == nil || o.session.ID != sessID {
			o.chat.Remove(phID)
			return
		}
		if err != nil {
			o.chat.Remove(phID)
			o.log.Warn("query failed", "session_id", sessID, "error", err)
			o.enterFailureLocked(classifyHubFailure(err))
			return
		}
		o.metrics.RecordQuery(context.Background(), resp.AnswerType, d.isRetry)

		if resp.AnswerType == hub.AnswerNeedsClarification && len(resp.ClarificationCategories) > 0 {
			o.chat.Remove(phID)
			o.setStateLocked(State{
				Kind:     StateClarification,
				Question: clarificationQuestion,
				Options:  resp.ClarificationCategories,
			})
			o.armWatchdogLocked()
			o.speakAsync(clarificationQuestion)
			return
		}

		text := resp.AnswerText()
		if text == "" {
			text = fallbackAnswer
		}
		o.chat.Resolve(phID, ChatEntry{
			Text:          text,
			SourceID:      resp.SourceID,
			QueryLogID:    resp.QueryLogID,
			QueryOriginal: d.original,
			QueryEnglish:  d.english,
			ExcludeIDs:    d.excludeIDs,
		})
		o.speakLocked(text)
	})
}

// SelectClarification answers a pending clarification prompt by re-running
// the last query scoped to the chosen category.
func (o *Orchestrator) SelectClarification(category string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Kind != StateClarification || o.session == nil {
		o.log.Debug("clarification select ignored", "state", o.state.Kind)
		return
	}
	o.tts.Stop()
	o.dispatchLocked(dispatchSpec{
		original:        o.lastOriginal,
		english:         o.lastEnglish,
		isRetry:         true,
		category:        category,
		excludeIDs:      o.excludeIDs,
		placeholderText: placeholderThinking,
	})
}

// speakLocked enters the Speaking state and plays text, returning to Idle
// when playback finishes (or after the speech wait cap).
func (o *Orchestrator) speakLocked(text string) {
	o.setStateLocked(State{Kind: StateSpeaking, Text: text})
	o.armWatchdogLocked()
	lang := o.prefs.Get().Language
	o.tasks.start(o.baseCtx, taskSpeech, func(ctx context.Context) {
		if err := o.tts.Speak(ctx, text, lang); err != nil {
			o.log.Warn("tts speak failed", "error", err)
		}
		deadline := time.Now().Add(o.timings.SpeechWait)
		for o.tts.IsPlaying() && time.Now().Before(deadline) {
			if !sleepCtx(ctx, o.timings.PlaybackPollInterval) {
				return
			}
		}
		o.mu.Lock()
		if o.state.Kind == StateSpeaking && o.state.Text == text {
			o.setStateLocked(State{Kind: StateIdle})
		}
		o.mu.Unlock()
	})
}

// speakAsync plays text without changing state (clarification prompts,
// error banners).
func (o *Orchestrator) speakAsync(text string) {
	lang := o.prefs.Get().Language
	go func() {
		if err := o.tts.Speak(o.baseCtx, text, lang); err != nil {
			o.log.Warn("tts speak failed", "error", err)
		}
	}()
}

// enterFailureLocked shows (and speaks) the failure banner, then self-clears
// to Idle after the error hold.
func (o *Orchestrator) enterFailureLocked(kind FailureKind) {
	switch kind {
	case FailRecordingTooShort, FailSilenceOnly, FailUnintelligible:
		o.metrics.CaptureErrors.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("kind", string(kind))))
	default:
		o.metrics.RecordHubError(context.Background(), string(kind))
	}

	msg := kind.Message()
	o.setStateLocked(State{Kind: StateError, Text: msg})
	o.armWatchdogLocked()
	o.speakAsync(msg)
	o.tasks.start(o.baseCtx, taskErrorClear, func(ctx context.Context) {
		if !sleepCtx(ctx, o.timings.ErrorHold) {
			return
		}
		o.mu.Lock()
		if o.state.Kind == StateError && o.state.Text == msg {
			o.setStateLocked(State{Kind: StateIdle})
		}
		o.mu.Unlock()
	})
}

// sleepCtx sleeps for d. Returns false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
