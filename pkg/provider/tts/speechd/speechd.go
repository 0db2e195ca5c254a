// Package speechd provides a tts.Provider backed by a local speech daemon:
// a small sidecar process that owns the kiosk speaker and exposes a REST API.
//
//	POST /speak  {"text": ..., "language": ...} — synthesise and play
//	POST /stop   — interrupt playback
//	GET  /status — {"playing": bool}
//
// Keeping synthesis and playback in a sidecar means the session core never
// touches audio output devices directly; any engine that can sit behind this
// three-endpoint shim (piper, espeak-ng, a cloud voice cached locally) works
// unchanged.
package speechd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultTimeout = 15 * time.Second
	statusTimeout  = 2 * time.Second
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout for /speak calls.
// Defaults to 15 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements tts.Provider against a local speech daemon.
// Safe for concurrent use.
type Provider struct {
	serverURL  string
	httpClient *http.Client
}

// New creates a Provider targeting the daemon at serverURL
// (e.g. "http://127.0.0.1:8091"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("speechd: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Speak submits text for synthesis and playback. The daemon replaces any
// utterance already playing. Returns once the daemon has accepted the job.
func (p *Provider) Speak(ctx context.Context, text string, language string) error {
	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"language": language,
	})
	if err != nil {
		return fmt.Errorf("speechd: marshal speak request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/speak", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("speechd: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("speechd: speak: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("speechd: speak: server returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Stop interrupts playback. Errors are swallowed: a daemon that is not
// playing (or briefly unreachable) leaves nothing to stop.
func (p *Provider) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/stop", nil)
	if err != nil {
		return
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// IsPlaying reports whether the daemon is currently playing audio. An
// unreachable daemon reports not playing, which lets capture proceed rather
// than blocking the kiosk on a dead sidecar.
func (p *Provider) IsPlaying() bool {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+"/status", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var out struct {
		Playing bool `json:"playing"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false
	}
	return out.Playing
}
