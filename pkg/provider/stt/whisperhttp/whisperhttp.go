// Package whisperhttp provides an stt.Provider backed by a local
// whisper-server binary (whisper.cpp), which exposes a REST API at
// POST /inference.
//
// whisper.cpp is a batch engine: audio is buffered for the whole capture and
// transcribed in one shot when the session is finished. The Partials channel
// therefore never emits and is closed immediately; the orchestrator's batch
// capture policy (listening placeholder instead of live partials) matches
// this behaviour.
//
// Usage:
//
//	p, err := whisperhttp.New("http://localhost:8089",
//	    whisperhttp.WithModel("base"),
//	)
//	handle, err := p.StartStream(ctx, cfg)
//	handle.SendAudio(pcmChunk)
//	final, err := handle.Finish(ctx)
//	handle.Close()
package whisperhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/stt"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

const (
	defaultTimeout    = 30 * time.Second
	defaultSampleRate = 16000
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the server (e.g. "base",
// "small"). When empty the server uses whichever model it was started with.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithTimeout sets the per-inference HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements stt.Provider backed by a whisper-server HTTP endpoint.
// Multiple sessions may be open simultaneously; each keeps its own buffer.
type Provider struct {
	serverURL  string
	model      string
	httpClient *http.Client
}

// New creates a Provider targeting the whisper-server at serverURL
// (e.g. "http://localhost:8089"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisperhttp: serverURL must not be empty")
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

// StartStream opens a buffering session. No network connection is made until
// Finish.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisperhttp: context already cancelled: %w", err)
	}
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = defaultSampleRate
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = 1
	}

	partials := make(chan stt.Transcript)
	close(partials) // batch engine, no partials

	return &session{
		serverURL:  p.serverURL,
		model:      p.model,
		language:   cfg.Language,
		sampleRate: sr,
		channels:   ch,
		httpClient: p.httpClient,
		partials:   partials,
	}, nil
}

// session buffers PCM until Finish.
type session struct {
	serverURL  string
	model      string
	language   string
	sampleRate int
	channels   int
	httpClient *http.Client
	partials   chan stt.Transcript

	mu       sync.Mutex
	buf      bytes.Buffer
	finished bool
	closed   bool
}

// SendAudio buffers one chunk of raw 16-bit little-endian PCM.
func (s *session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.finished {
		return errors.New("whisperhttp: session is closed")
	}
	s.buf.Write(chunk)
	return nil
}

// Partials returns the (already closed) partial channel.
func (s *session) Partials() <-chan stt.Transcript { return s.partials }

// Finish encodes the buffered audio as WAV and runs one inference call.
func (s *session) Finish(ctx context.Context) (stt.Transcript, error) {
	s.mu.Lock()
	if s.closed || s.finished {
		s.mu.Unlock()
		return stt.Transcript{}, errors.New("whisperhttp: session already finished")
	}
	s.finished = true
	pcm := s.buf.Bytes()
	s.mu.Unlock()

	if len(pcm) == 0 {
		return stt.Transcript{IsFinal: true}, nil
	}

	text, err := s.infer(ctx, pcm)
	if err != nil {
		return stt.Transcript{}, err
	}
	return stt.Transcript{
		Text:     strings.TrimSpace(text),
		IsFinal:  true,
		Duration: pcmDuration(len(pcm), s.sampleRate, s.channels),
	}, nil
}

// Close releases the session. Safe to call more than once.
func (s *session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.buf.Reset()
	s.mu.Unlock()
	return nil
}

// infer POSTs the audio to /inference as multipart/form-data and returns the
// transcribed text.
func (s *session) infer(ctx context.Context, pcm []byte) (string, error) {
	wav := encodeWAV(pcm, s.sampleRate, s.channels)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisperhttp: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisperhttp: write wav data: %w", err)
	}
	if s.language != "" {
		if err := mw.WriteField("language", s.language); err != nil {
			return "", fmt.Errorf("whisperhttp: write language field: %w", err)
		}
	}
	if s.model != "" {
		if err := mw.WriteField("model", s.model); err != nil {
			return "", fmt.Errorf("whisperhttp: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisperhttp: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("whisperhttp: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisperhttp: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisperhttp: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisperhttp: read response: %w", err)
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("whisperhttp: decode response: %w", err)
	}
	return out.Text, nil
}

// pcmDuration converts a 16-bit PCM byte count to wall time.
func pcmDuration(bytes, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	samples := bytes / 2 / channels
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
