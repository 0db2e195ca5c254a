package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keithruezyl1/ResKiosk--sub000/internal/config"
)

func clientFor(t *testing.T, handler http.Handler, timeout time.Duration) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	prefs := config.NewStore(&config.Config{
		Kiosk: config.KioskConfig{ID: "kiosk-7"},
		Hub:   config.HubConfig{BaseURL: server.URL},
	})
	return NewClient(prefs, timeout), server
}

func TestQueryRoundTrip(t *testing.T) {
	var got QueryRequest
	c, _ := clientFor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/query" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		sourceID := int64(41)
		_ = json.NewEncoder(w).Encode(QueryResponse{
			AnswerTextEN: "Near gate 2.",
			AnswerType:   AnswerDirectMatch,
			Confidence:   0.92,
			SourceID:     &sourceID,
		})
	}), time.Second)

	resp, err := c.Query(context.Background(), QueryRequest{
		KioskID:            "kiosk-7",
		TranscriptOriginal: "where is the water point",
		Language:           "en",
		ExcludeIDs:         []int64{3, 9},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.AnswerText() != "Near gate 2." || *resp.SourceID != 41 {
		t.Errorf("response = %+v", resp)
	}
	if got.TranscriptOriginal != "where is the water point" || len(got.ExcludeIDs) != 2 {
		t.Errorf("server saw %+v", got)
	}
}

func TestAnswerTextPrefersLocalized(t *testing.T) {
	r := QueryResponse{AnswerTextEN: "english", AnswerTextLocalized: "hindi"}
	if r.AnswerText() != "hindi" {
		t.Errorf("AnswerText = %q", r.AnswerText())
	}
	r.AnswerTextLocalized = ""
	if r.AnswerText() != "english" {
		t.Errorf("AnswerText fallback = %q", r.AnswerText())
	}
}

func TestQueryNonSuccessStatusIsGenericError(t *testing.T) {
	c, _ := clientFor(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "kb rebuilding", http.StatusServiceUnavailable)
	}), time.Second)

	_, err := c.Query(context.Background(), QueryRequest{})
	if err == nil {
		t.Fatalf("no error for 503")
	}
	if errors.Is(err, ErrUnreachable) || errors.Is(err, ErrTimeout) {
		t.Errorf("status error misclassified: %v", err)
	}
}

func TestUnreachableHubClassified(t *testing.T) {
	prefs := config.NewStore(&config.Config{
		// Reserved TEST-NET address, nothing listens here.
		Hub: config.HubConfig{BaseURL: "http://127.0.0.1:1"},
	})
	c := NewClient(prefs, time.Second)

	err := c.Ping(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("err = %v, want ErrUnreachable", err)
	}
}

func TestSlowHubClassifiedAsTimeout(t *testing.T) {
	c, _ := clientFor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}), 50*time.Millisecond)

	err := c.Ping(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestEmergencyReturnsServerID(t *testing.T) {
	var got EmergencyRequest
	c, _ := clientFor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(EmergencyResponse{Status: StatusActive, AlertID: 77})
	}), time.Second)

	id, err := c.Emergency(context.Background(), EmergencyRequest{
		KioskID:      "kiosk-7",
		Tier:         2,
		LocalAlertID: "local-9",
		RetryCount:   1,
	})
	if err != nil || id != 77 {
		t.Fatalf("Emergency = %d, %v", id, err)
	}
	if got.LocalAlertID != "local-9" || got.RetryCount != 1 {
		t.Errorf("server saw %+v", got)
	}
}

func TestEmergencyStatusAndDismissPaths(t *testing.T) {
	var paths []string
	c, _ := clientFor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": StatusResponding})
	}), time.Second)

	status, err := c.EmergencyStatus(context.Background(), 77)
	if err != nil || status != StatusResponding {
		t.Fatalf("EmergencyStatus = %q, %v", status, err)
	}
	if err := c.DismissEmergency(context.Background(), 77); err != nil {
		t.Fatalf("DismissEmergency: %v", err)
	}

	want := []string{"GET /emergency/77/status", "POST /emergency/77/dismiss"}
	for i, w := range want {
		if paths[i] != w {
			t.Errorf("call %d = %q, want %q", i, paths[i], w)
		}
	}
}

func TestEndSessionEscapesID(t *testing.T) {
	var path string
	c, _ := clientFor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}), time.Second)

	if err := c.EndSession(context.Background(), "a/b c"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if path != "/query/session/a%2Fb%20c" {
		t.Errorf("path = %q", path)
	}
}

func TestBaseURLFollowsPreferenceStore(t *testing.T) {
	prefs := config.NewStore(&config.Config{Hub: config.HubConfig{BaseURL: "http://old:1"}})
	c := NewClient(prefs, time.Second)
	if c.BaseURL() != "http://old:1" {
		t.Fatalf("base url = %q", c.BaseURL())
	}

	p := prefs.Get()
	p.HubURL = "http://new:2"
	prefs.Set(p)
	if c.BaseURL() != "http://new:2" {
		t.Errorf("base url after change = %q", c.BaseURL())
	}
}

func TestPingerTracksFailureStreak(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	c, _ := clientFor(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), time.Second)

	p := NewPinger(c, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, "healthy", func() bool { return p.Healthy() })
	if p.ConsecutiveFailures() != 0 {
		t.Errorf("failures while healthy = %d", p.ConsecutiveFailures())
	}

	healthy.Store(false)
	waitFor(t, "failure streak", func() bool { return p.ConsecutiveFailures() >= 3 })
	if p.Healthy() {
		t.Errorf("healthy during failure streak")
	}

	healthy.Store(true)
	waitFor(t, "recovered", func() bool { return p.Healthy() && p.ConsecutiveFailures() == 0 })
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
