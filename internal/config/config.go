// Package config provides the configuration schema, loader, and runtime
// preference store for the ResKiosk session core.
package config

import "strings"

// LogLevel controls log verbosity for the kiosk process.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the kiosk.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Kiosk     KioskConfig     `yaml:"kiosk"`
	Hub       HubConfig       `yaml:"hub"`
	Capture   CaptureConfig   `yaml:"capture"`
	Providers ProvidersConfig `yaml:"providers"`
	Control   ControlConfig   `yaml:"control"`
	Admin     AdminConfig     `yaml:"admin"`
	Journal   JournalConfig   `yaml:"journal"`
}

// KioskConfig identifies this kiosk to the hub.
type KioskConfig struct {
	// ID is the unique kiosk identifier reported on every hub request.
	ID string `yaml:"id"`

	// CenterID identifies the shelter/relief center this kiosk belongs to.
	CenterID string `yaml:"center_id"`

	// Location is the human-readable placement shown on emergency alerts
	// (e.g. "Hall B, east entrance").
	Location string `yaml:"location"`

	// Language is the default UI/recognition language code (e.g. "en", "hi").
	Language string `yaml:"language"`

	// KBVersion is the knowledge-base version the kiosk was provisioned with.
	// Carried on query requests so the hub can log version skew.
	KBVersion int `yaml:"kb_version"`
}

// HubConfig holds the connection settings for the remote answering service.
type HubConfig struct {
	// BaseURL is the hub endpoint (e.g. "http://192.168.4.1:8080").
	BaseURL string `yaml:"base_url"`

	// RequestTimeoutSeconds bounds every hub HTTP call. Default 10.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`

	// PushEnabled subscribes to the hub's websocket emergency feed in
	// addition to status polling.
	PushEnabled bool `yaml:"push_enabled"`
}

// CaptureConfig holds microphone and transcription policy settings.
type CaptureConfig struct {
	// SampleRate is the microphone sample rate in Hz. Default 16000.
	SampleRate int `yaml:"sample_rate"`

	// StreamingLanguages lists language codes whose STT engine delivers
	// usable partial transcripts. All other languages are treated as batch.
	StreamingLanguages []string `yaml:"streaming_languages"`

	// SilenceMarkers lists transcript tokens the STT engine emits for
	// non-speech audio (engine-specific; compared after bracket stripping
	// and lowercasing). Defaults to {"sil", "blank audio", "no speech"}.
	SilenceMarkers []string `yaml:"silence_markers"`
}

// ProvidersConfig selects the local engine sidecars the kiosk talks to.
type ProvidersConfig struct {
	STT EngineConfig `yaml:"stt"`
	TTS EngineConfig `yaml:"tts"`
	Mic MicConfig    `yaml:"mic"`
}

// EngineConfig locates one HTTP engine sidecar.
type EngineConfig struct {
	// BaseURL is the sidecar endpoint (e.g. "http://127.0.0.1:8089").
	BaseURL string `yaml:"base_url"`

	// Model is an optional model identifier forwarded to the sidecar.
	Model string `yaml:"model"`
}

// MicConfig locates the microphone PCM pipe.
type MicConfig struct {
	// Path is the FIFO the capture process writes raw PCM into.
	Path string `yaml:"path"`

	// ChunkMillis is the chunk duration delivered to the orchestrator.
	// Default 100.
	ChunkMillis int `yaml:"chunk_millis"`
}

// ControlConfig holds the local UI control API settings.
type ControlConfig struct {
	// ListenAddr is the TCP address the kiosk frontend connects to
	// (e.g. "127.0.0.1:8085"). Empty disables the control API.
	ListenAddr string `yaml:"listen_addr"`
}

// AdminConfig holds the local admin/diagnostics HTTP endpoint settings.
type AdminConfig struct {
	// ListenAddr is the TCP address for /healthz, /readyz and /metrics
	// (e.g. "127.0.0.1:9090"). Empty disables the admin endpoint.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// JournalConfig holds the local audit journal settings.
type JournalConfig struct {
	// Path is the JSON-lines journal file. Empty disables journaling.
	Path string `yaml:"path"`
}

// IsStreamingLanguage reports whether lang uses the streaming transcript
// delivery policy.
func (c CaptureConfig) IsStreamingLanguage(lang string) bool {
	for _, l := range c.StreamingLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// IsSilenceMarker reports whether transcript is a pure non-speech marker.
// Engines wrap markers in brackets or asterisks ("[BLANK_AUDIO]", "*sil*"),
// so decoration is stripped and the comparison is case-insensitive, with
// underscores treated as spaces.
func (c CaptureConfig) IsSilenceMarker(transcript string) bool {
	t := strings.ToLower(strings.TrimSpace(transcript))
	t = strings.Trim(t, "[]()<>*_. ")
	t = strings.ReplaceAll(t, "_", " ")
	for _, m := range c.SilenceMarkers {
		if t == strings.ToLower(m) {
			return true
		}
	}
	return false
}
