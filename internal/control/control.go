// Package control exposes the orchestrator to the kiosk frontend over a
// localhost HTTP+JSON API, plus a websocket event stream for state changes.
// The frontend is a thin webview: every button press maps to one POST here
// and all rendering state arrives on the stream.
package control

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/keithruezyl1/ResKiosk--sub000/internal/kiosk"
)

// eventBuf is the per-subscriber event buffer depth. A webview that stalls
// longer than this loses intermediate states, never the connection.
const eventBuf = 32

// stateView is the JSON shape of one interaction state.
type stateView struct {
	Kind             string   `json:"kind"`
	Text             string   `json:"text,omitempty"`
	Question         string   `json:"question,omitempty"`
	Options          []string `json:"options,omitempty"`
	RemainingSeconds int      `json:"remaining_seconds,omitempty"`
	RetryCount       int      `json:"retry_count,omitempty"`
}

func viewOf(s kiosk.State) stateView {
	return stateView{
		Kind:             s.Kind.String(),
		Text:             s.Text,
		Question:         s.Question,
		Options:          s.Options,
		RemainingSeconds: s.RemainingSeconds,
		RetryCount:       s.RetryCount,
	}
}

// entryView is the JSON shape of one chat entry.
type entryView struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Text        string `json:"text"`
	Placeholder bool   `json:"placeholder"`
	SourceID    *int64 `json:"source_id,omitempty"`
	Feedback    int    `json:"feedback"`
	Rateable    bool   `json:"rateable"`
}

// Handler serves the control API for one orchestrator.
type Handler struct {
	orch *kiosk.Orchestrator
	log  *slog.Logger

	mu   sync.Mutex
	subs map[chan stateView]struct{}
}

// New creates a Handler and hooks it into the orchestrator's state stream.
// Call before the orchestrator starts its first session.
func New(orch *kiosk.Orchestrator, log *slog.Logger) *Handler {
	h := &Handler{
		orch: orch,
		log:  log,
		subs: make(map[chan stateView]struct{}),
	}
	orch.OnStateChange(h.broadcast)
	orch.OnPartialTranscript(func(text string) {
		// Partials ride the same stream as states, tagged by kind.
		h.fanOut(stateView{Kind: "partial_transcript", Text: text})
	})
	return h
}

// broadcast fans a state change out to all websocket subscribers. It runs on
// the orchestrator's goroutine and must not block: full buffers drop.
func (h *Handler) broadcast(s kiosk.State) {
	h.fanOut(viewOf(s))
}

func (h *Handler) fanOut(v stateView) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Register adds all control routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /state", h.getState)
	mux.HandleFunc("GET /chat", h.getChat)
	mux.HandleFunc("GET /events", h.streamEvents)

	mux.HandleFunc("POST /session/start", h.startSession)
	mux.HandleFunc("POST /session/end", h.action(func() { h.orch.EndSession("user") }))

	mux.HandleFunc("POST /capture/start", h.action(h.orch.StartCapture))
	mux.HandleFunc("POST /capture/stop", h.action(h.orch.StopCapture))

	mux.HandleFunc("POST /clarify", h.clarify)
	mux.HandleFunc("POST /language", h.setLanguage)

	mux.HandleFunc("POST /chat/{id}/like", h.entryAction(h.orch.Like))
	mux.HandleFunc("POST /chat/{id}/dislike", h.entryAction(h.orch.Dislike))

	mux.HandleFunc("POST /emergency/sos", h.action(h.orch.TriggerSOS))
	mux.HandleFunc("POST /emergency/confirm", h.action(h.orch.ConfirmEmergency))
	mux.HandleFunc("POST /emergency/decline", h.action(h.orch.DeclineEmergency))
	mux.HandleFunc("POST /emergency/cancel", h.action(h.orch.CancelEmergency))
	mux.HandleFunc("POST /emergency/dismiss", h.action(h.orch.DismissEmergency))
}

// action wraps a no-argument orchestrator call. Illegal calls are no-ops on
// the orchestrator side, so every action answers 204.
func (h *Handler) action(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fn()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) entryAction(fn func(entryID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) startSession(w http.ResponseWriter, _ *http.Request) {
	sess := h.orch.StartSession()
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sess.ID,
		"language":   sess.Language,
	})
}

func (h *Handler) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(h.orch.State()))
}

func (h *Handler) getChat(w http.ResponseWriter, _ *http.Request) {
	entries := h.orch.Chat()
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView{
			ID:          e.ID,
			Author:      string(e.Author),
			Text:        e.Text,
			Placeholder: e.Placeholder,
			SourceID:    e.SourceID,
			Feedback:    int(e.Feedback),
			Rateable:    e.SourceID != nil && e.Feedback == kiosk.FeedbackNone && !e.Placeholder,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) clarify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Category == "" {
		http.Error(w, `{"error":"category is required"}`, http.StatusBadRequest)
		return
	}
	h.orch.SelectClarification(body.Category)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setLanguage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Language == "" {
		http.Error(w, `{"error":"language is required"}`, http.StatusBadRequest)
		return
	}
	h.orch.SetLanguage(body.Language)
	w.WriteHeader(http.StatusNoContent)
}

// streamEvents upgrades to a websocket and pushes every state change,
// starting with the current state so a reconnecting webview renders
// immediately.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Debug("control: websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ch := make(chan stateView, eventBuf)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}()

	ctx := r.Context()
	if err := wsjson.Write(ctx, conn, viewOf(h.orch.State())); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-ch:
			if err := wsjson.Write(ctx, conn, v); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}
