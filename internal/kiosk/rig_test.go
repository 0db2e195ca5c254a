package kiosk

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/keithruezyl1/ResKiosk--sub000/internal/config"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/detect"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/hub"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/journal"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/observe"
	audiomock "github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/audio/mock"
	punctmock "github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/punct/mock"
	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/stt"
	sttmock "github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/stt/mock"
	ttsmock "github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/tts/mock"
)

// testTimings compresses every production duration so timer-driven paths run
// in milliseconds.
func testTimings() Timings {
	return Timings{
		PlaybackSettleWait:     40 * time.Millisecond,
		SettleDelay:            time.Millisecond,
		PlaybackPollInterval:   time.Millisecond,
		SpeechWait:             40 * time.Millisecond,
		InactivityTimeout:      time.Second,
		TerminateGrace:         20 * time.Millisecond,
		CountdownTick:          10 * time.Millisecond,
		EmergencyRetryInterval: 25 * time.Millisecond,
		EmergencyPollInterval:  10 * time.Millisecond,
		ResolvedHold:           30 * time.Millisecond,
		CancelledHold:          15 * time.Millisecond,
		EmergencyCooldown:      250 * time.Millisecond,
		ErrorHold:              30 * time.Millisecond,
		MinStreamingCapture:    50 * time.Millisecond,
		MinBatchCapture:        150 * time.Millisecond,
	}
}

// queryReply is one canned /query response.
type queryReply struct {
	status int
	resp   hub.QueryResponse
}

func directReply(text string, sourceID, queryLogID int64) queryReply {
	return queryReply{
		status: http.StatusOK,
		resp: hub.QueryResponse{
			AnswerTextEN: text,
			AnswerType:   hub.AnswerDirectMatch,
			Confidence:   0.9,
			KBVersion:    1,
			SourceID:     &sourceID,
			QueryLogID:   &queryLogID,
		},
	}
}

// hubRecorder is a scripted in-process hub. Each request is recorded; canned
// replies are popped in order, with the last one repeating.
type hubRecorder struct {
	mu sync.Mutex

	queries      []hub.QueryRequest
	queryReplies []queryReply

	emergencies       []hub.EmergencyRequest
	emergencyFailures int
	alertID           int64

	statusSeq []string

	feedbacks     []hub.FeedbackRequest
	dismissedIDs  []string
	endedSessions []string
}

func newHubRecorder() *hubRecorder {
	return &hubRecorder{alertID: 99}
}

func (h *hubRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/admin/ping":
		writeBody(w, http.StatusOK, map[string]string{"status": "ok"})

	case r.Method == http.MethodPost && path == "/query":
		var req hub.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.queries = append(h.queries, req)
		reply := directReply("The water point is near gate 2.", 41, 7)
		if len(h.queryReplies) > 0 {
			reply = h.queryReplies[0]
			if len(h.queryReplies) > 1 {
				h.queryReplies = h.queryReplies[1:]
			}
		}
		writeBody(w, reply.status, reply.resp)

	case r.Method == http.MethodPost && path == "/emergency":
		var req hub.EmergencyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.emergencies = append(h.emergencies, req)
		if h.emergencyFailures > 0 {
			h.emergencyFailures--
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeBody(w, http.StatusOK, hub.EmergencyResponse{Status: hub.StatusActive, AlertID: h.alertID})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/status"):
		status := hub.StatusActive
		if len(h.statusSeq) > 0 {
			status = h.statusSeq[0]
			if len(h.statusSeq) > 1 {
				h.statusSeq = h.statusSeq[1:]
			}
		}
		writeBody(w, http.StatusOK, map[string]string{"status": status})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/dismiss"):
		h.dismissedIDs = append(h.dismissedIDs, path)
		writeBody(w, http.StatusOK, map[string]string{"status": "ok"})

	case r.Method == http.MethodPost && path == "/feedback":
		var req hub.FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.feedbacks = append(h.feedbacks, req)
		writeBody(w, http.StatusOK, map[string]string{"status": "ok"})

	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/query/session/"):
		h.endedSessions = append(h.endedSessions, strings.TrimPrefix(path, "/query/session/"))
		writeBody(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *hubRecorder) queryCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queries)
}

func (h *hubRecorder) query(i int) hub.QueryRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.queries[i]
}

func (h *hubRecorder) emergencyCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.emergencies)
}

func (h *hubRecorder) emergency(i int) hub.EmergencyRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.emergencies[i]
}

func (h *hubRecorder) feedbackCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feedbacks)
}

func (h *hubRecorder) feedback(i int) hub.FeedbackRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.feedbacks[i]
}

func (h *hubRecorder) dismissCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.dismissedIDs)
}

func (h *hubRecorder) endedSessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.endedSessions)
}

func (h *hubRecorder) script(replies ...queryReply) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queryReplies = replies
}

func (h *hubRecorder) scriptStatuses(statuses ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusSeq = statuses
}

func (h *hubRecorder) failDeliveries(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.emergencyFailures = n
}

// rig wires an orchestrator to mocks and a scripted hub.
type rig struct {
	t    *testing.T
	orch *Orchestrator
	hub  *hubRecorder
	sess *sttmock.Session
	stt  *sttmock.Provider
	tts  *ttsmock.Provider
	src  *audiomock.Source
}

type rigOption func(*rigConfig)

type rigConfig struct {
	timings  Timings
	language string
	stt      stt.Provider
}

func withTimings(tm Timings) rigOption {
	return func(c *rigConfig) { c.timings = tm }
}

func withLanguage(lang string) rigOption {
	return func(c *rigConfig) { c.language = lang }
}

func withSTT(p stt.Provider) rigOption {
	return func(c *rigConfig) { c.stt = p }
}

func newRig(t *testing.T, opts ...rigOption) *rig {
	t.Helper()

	rc := rigConfig{timings: testTimings(), language: "en"}
	for _, o := range opts {
		o(&rc)
	}

	rec := newHubRecorder()
	server := httptest.NewServer(rec)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Kiosk: config.KioskConfig{
			ID:        "kiosk-7",
			CenterID:  "center-1",
			Location:  "Hall B, east entrance",
			Language:  rc.language,
			KBVersion: 3,
		},
		Hub: config.HubConfig{BaseURL: server.URL},
		Capture: config.CaptureConfig{
			SampleRate:         16000,
			StreamingLanguages: []string{"en"},
			SilenceMarkers:     []string{"sil", "blank audio", "no speech"},
		},
	}
	prefs := config.NewStore(cfg)

	sess := &sttmock.Session{PartialsCh: make(chan stt.Transcript, 16)}
	sttProvider := &sttmock.Provider{Session: sess}
	var sttDep stt.Provider = sttProvider
	if rc.stt != nil {
		sttDep = rc.stt
	}
	ttsProvider := &ttsmock.Provider{}
	src := &audiomock.Source{}

	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	orch := New(Deps{
		STT:        sttDep,
		TTS:        ttsProvider,
		Audio:      src,
		Punct:      &punctmock.Processor{},
		Detector:   detect.NewMatcher(),
		Intonation: detect.LexicalAnalyzer{},
		Hub:        hub.NewClient(prefs, 2*time.Second),
		Prefs:      prefs,
		Kiosk:      cfg.Kiosk,
		Capture:    cfg.Capture,
		Journal:    journal.Nop{},
		Metrics:    metrics,
		Timings:    rc.timings,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = orch.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		orch.Close()
	})

	return &rig{t: t, orch: orch, hub: rec, sess: sess, stt: sttProvider, tts: ttsProvider, src: src}
}

// waitState polls until the orchestrator reaches the given state kind.
func (r *rig) waitState(kind StateKind) State {
	r.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s := r.orch.State()
		if s.Kind == kind {
			return s
		}
		time.Sleep(2 * time.Millisecond)
	}
	r.t.Fatalf("timed out waiting for state %v, still in %v", kind, r.orch.State().Kind)
	return State{}
}

// waitFor polls until cond holds.
func (r *rig) waitFor(what string, cond func() bool) {
	r.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	r.t.Fatalf("timed out waiting for %s", what)
}

// capture runs a full capture cycle that finalizes to text.
func (r *rig) capture(text string) {
	r.t.Helper()

	r.sess.FinishResult = stt.Transcript{Text: text, IsFinal: true}
	before := r.sess.SendAudioCallCount()

	r.orch.StartCapture()
	r.waitState(StateCapturing)

	// Two half-second chunks at 16 kHz mono 16-bit.
	chunk := make([]byte, 16000)
	r.src.Emit(chunk)
	r.src.Emit(chunk)
	r.waitFor("chunks delivered", func() bool {
		return r.sess.SendAudioCallCount() >= before+2
	})

	r.orch.StopCapture()
}
