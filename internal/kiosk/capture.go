package kiosk

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/stt"
)

// captureRun is the per-capture bundle: the STT stream, the in-flight sample
// buffer, and the chunk acceptance policy. Chunk delivery goes through its
// own context so StopCapture can cut delivery off while the mic keeps feeding
// the pre-capture ring.
type captureRun struct {
	ctx        context.Context
	cancel     context.CancelFunc
	sess       stt.SessionHandle
	streaming  bool
	sampleRate int
	buf        *sampleBuffer

	mu            sync.Mutex
	skippedWarmup bool
	accepted      int
	listeningID   string
}

// deliverChunk routes one mic chunk: into the active capture when one is
// accepting, into the pre-capture ring otherwise.
func (o *Orchestrator) deliverChunk(data []byte) {
	o.mu.Lock()
	c := o.cap
	o.mu.Unlock()

	if c == nil || c.ctx.Err() != nil {
		o.ring.push(data)
		return
	}
	o.acceptChunk(c, data)
}

// acceptChunk applies the per-capture chunk policy. Batch captures discard
// the first chunk (mic warm-up noise) and show a transient listening entry
// once real audio arrives, since batch engines produce no partials.
func (o *Orchestrator) acceptChunk(c *captureRun, data []byte) {
	c.mu.Lock()
	if !c.streaming && !c.skippedWarmup {
		c.skippedWarmup = true
		c.mu.Unlock()
		return
	}
	first := c.accepted == 0
	c.accepted++
	c.mu.Unlock()

	if !c.buf.append(data) {
		return
	}
	if err := c.sess.SendAudio(data); err != nil {
		o.log.Warn("stt send audio failed", "error", err)
	}
	if first && !c.streaming {
		o.insertListeningEntry(c)
	}
}

func (o *Orchestrator) insertListeningEntry(c *captureRun) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cap != c || o.state.Kind != StateCapturing {
		return
	}
	id := o.chat.AppendPlaceholder(placeholderListening)
	c.mu.Lock()
	c.listeningID = id
	c.mu.Unlock()
}

// StartCapture begins a voice capture. Legal from Idle, Speaking, Error and
// Clarification; pressing the button interrupts playback. During any
// emergency state the press is a logged no-op.
func (o *Orchestrator) StartCapture() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		o.log.Debug("capture without session ignored")
		return
	}
	if o.state.Kind.IsEmergency() {
		o.log.Debug("capture ignored during emergency", "state", o.state.Kind)
		return
	}
	if !canStartCapture(o.state.Kind) {
		o.log.Debug("capture ignored", "state", o.state.Kind)
		return
	}

	o.tts.Stop()
	o.tasks.stop(taskSpeech)
	o.tasks.stop(taskErrorClear)
	o.ring.discard()
	o.setStateLocked(State{Kind: StatePreparingToCapture})
	o.armWatchdogLocked()
	o.tasks.start(o.baseCtx, taskCaptureStart, o.prepareCapture)
}

// prepareCapture waits out speaker tail, opens the STT stream, and promotes
// the state to Capturing. Cancelled cleanly if the user releases the button
// first.
func (o *Orchestrator) prepareCapture(ctx context.Context) {
	deadline := time.Now().Add(o.timings.PlaybackSettleWait)
	for o.tts.IsPlaying() && time.Now().Before(deadline) {
		if !sleepCtx(ctx, o.timings.PlaybackPollInterval) {
			return
		}
	}
	if !sleepCtx(ctx, o.timings.SettleDelay) {
		return
	}

	lang := o.prefs.Get().Language
	sess, err := o.stt.StartStream(ctx, stt.StreamConfig{
		SampleRate: o.captureCfg.SampleRate,
		Channels:   1,
		Language:   lang,
	})
	if err != nil {
		o.log.Error("stt stream open failed", "language", lang, "error", err)
		o.mu.Lock()
		if o.state.Kind == StatePreparingToCapture {
			o.enterFailureLocked(FailUnintelligible)
		}
		o.mu.Unlock()
		return
	}

	o.mu.Lock()
	if ctx.Err() != nil || o.state.Kind != StatePreparingToCapture {
		o.mu.Unlock()
		sess.Close()
		return
	}
	runCtx, cancel := context.WithCancel(o.baseCtx)
	c := &captureRun{
		ctx:        runCtx,
		cancel:     cancel,
		sess:       sess,
		streaming:  o.captureCfg.IsStreamingLanguage(lang),
		sampleRate: o.captureCfg.SampleRate,
		buf:        newSampleBuffer(),
	}
	o.cap = c
	o.setStateLocked(State{Kind: StateCapturing})
	o.mu.Unlock()

	if c.streaming {
		go o.consumePartials(c)
	}
}

// consumePartials surfaces live partial transcripts to the UI, sentence-cased.
func (o *Orchestrator) consumePartials(c *captureRun) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case tr, ok := <-c.sess.Partials():
			if !ok {
				return
			}
			o.mu.Lock()
			cb := o.onPartial
			o.mu.Unlock()
			if cb != nil {
				cb(sentenceCase(tr.Text))
			}
		}
	}
}

// StopCapture ends the capture and starts transcription finalization. From
// PreparingToCapture it simply aborts back to Idle.
func (o *Orchestrator) StopCapture() {
	o.mu.Lock()
	switch o.state.Kind {
	case StatePreparingToCapture:
		o.tasks.stop(taskCaptureStart)
		o.setStateLocked(State{Kind: StateIdle})
		o.mu.Unlock()
		return
	case StateCapturing:
	default:
		o.mu.Unlock()
		o.log.Debug("stop capture ignored")
		return
	}

	c := o.cap
	o.cap = nil
	c.cancel()
	o.setStateLocked(State{Kind: StateTranscribing})
	o.armWatchdogLocked()
	o.mu.Unlock()

	o.tasks.start(o.baseCtx, taskFinalize, func(ctx context.Context) {
		o.finalizeCapture(ctx, c)
	})
}

// closeCaptureLocked aborts any in-flight capture without finalizing.
func (o *Orchestrator) closeCaptureLocked() {
	if o.cap == nil {
		return
	}
	c := o.cap
	o.cap = nil
	c.cancel()
	go c.sess.Close()
	o.tasks.stop(taskCaptureStart)
	o.tasks.stop(taskFinalize)
}

// finalizeCapture drains the sample buffer, runs transcription and
// post-processing, and either reports a capture failure, enters the
// emergency flow, or dispatches a query.
func (o *Orchestrator) finalizeCapture(ctx context.Context, c *captureRun) {
	defer c.sess.Close()

	_, totalBytes := c.buf.drain()
	dur := audioDuration(totalBytes, c.sampleRate)
	minDur := o.timings.MinStreamingCapture
	if !c.streaming {
		minDur = o.timings.MinBatchCapture
	}
	if dur < minDur {
		o.captureFailed(c, FailRecordingTooShort)
		return
	}

	tr, err := c.sess.Finish(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.log.Warn("transcription failed", "error", err)
		o.captureFailed(c, FailUnintelligible)
		return
	}

	text := strings.TrimSpace(tr.Text)
	lang := o.prefs.Get().Language
	if text != "" && o.punct != nil {
		processed, perr := o.punct.Process(ctx, text, lang)
		if perr != nil {
			o.log.Debug("punctuation restore failed", "error", perr)
		} else {
			text = strings.TrimSpace(processed)
		}
	}

	switch {
	case o.captureCfg.IsSilenceMarker(text):
		o.captureFailed(c, FailSilenceOnly)
		return
	case text == "":
		o.captureFailed(c, FailUnintelligible)
		return
	}

	o.metrics.CaptureDuration.Record(context.Background(), dur.Seconds())
	det := o.detector.Detect(text)

	o.mu.Lock()
	defer o.mu.Unlock()
	if ctx.Err() != nil || o.session == nil || o.state.Kind != StateTranscribing {
		return
	}
	o.removeListeningEntry(c)

	if det.IsEmergency {
		o.log.Info("emergency phrase detected", "tier", det.Tier, "phrase", det.Phrase)
		o.triggerEmergencyLocked(det.Tier, text, originDetector)
		return
	}

	english := ""
	if lang == "" || lang == "en" || strings.HasPrefix(lang, "en-") {
		english = text
	}
	// A fresh utterance starts a new question thread: the exclusion set
	// from any earlier dislike chain is discarded.
	o.lastOriginal, o.lastEnglish = text, english
	o.excludeIDs = nil
	o.dispatchLocked(dispatchSpec{
		original:        text,
		english:         english,
		placeholderText: placeholderThinking,
		appendUser:      true,
	})
}

func (o *Orchestrator) removeListeningEntry(c *captureRun) {
	c.mu.Lock()
	id := c.listeningID
	c.listeningID = ""
	c.mu.Unlock()
	if id != "" {
		o.chat.Remove(id)
	}
}

func (o *Orchestrator) captureFailed(c *captureRun, kind FailureKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Kind != StateTranscribing {
		return
	}
	o.removeListeningEntry(c)
	o.log.Info("capture failed", "kind", kind)
	o.enterFailureLocked(kind)
}

// audioDuration converts a 16-bit mono PCM byte count to wall time.
func audioDuration(bytes, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := bytes / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// sentenceCase upper-cases the first rune of s.
func sentenceCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
