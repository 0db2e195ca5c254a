package config

import (
	"strings"
	"testing"
)

const validYAML = `
kiosk:
  id: kiosk-7
  center_id: center-1
  location: "Hall B, east entrance"
  language: hi
  kb_version: 3
hub:
  base_url: http://192.168.4.1:8080
  request_timeout_seconds: 5
  push_enabled: true
capture:
  sample_rate: 16000
  streaming_languages: [en]
  silence_markers: [sil, blank audio]
providers:
  stt:
    base_url: http://127.0.0.1:9000
    model: small
control:
  listen_addr: 127.0.0.1:8085
admin:
  listen_addr: 127.0.0.1:9090
  log_level: debug
journal:
  path: /var/lib/reskiosk/journal.jsonl
`

func TestLoadFromReaderValid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Kiosk.ID != "kiosk-7" || cfg.Kiosk.CenterID != "center-1" {
		t.Errorf("kiosk identity = %q/%q", cfg.Kiosk.ID, cfg.Kiosk.CenterID)
	}
	if cfg.Kiosk.Language != "hi" || cfg.Kiosk.KBVersion != 3 {
		t.Errorf("kiosk language/kb = %q/%d", cfg.Kiosk.Language, cfg.Kiosk.KBVersion)
	}
	if !cfg.Hub.PushEnabled || cfg.Hub.RequestTimeoutSeconds != 5 {
		t.Errorf("hub = %+v", cfg.Hub)
	}
	if cfg.Providers.STT.BaseURL != "http://127.0.0.1:9000" || cfg.Providers.STT.Model != "small" {
		t.Errorf("stt provider = %+v", cfg.Providers.STT)
	}
	// Unset provider fields get their defaults.
	if cfg.Providers.TTS.BaseURL == "" || cfg.Providers.Mic.Path == "" || cfg.Providers.Mic.ChunkMillis != 100 {
		t.Errorf("provider defaults = %+v", cfg.Providers)
	}
	if cfg.Control.ListenAddr != "127.0.0.1:8085" {
		t.Errorf("control = %+v", cfg.Control)
	}
}

func TestLoadFromReaderAppliesDefaults(t *testing.T) {
	minimal := `
kiosk:
  id: kiosk-1
  location: "front desk"
hub:
  base_url: http://hub.local:8080
`
	cfg, err := LoadFromReader(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Hub.RequestTimeoutSeconds != 10 {
		t.Errorf("timeout default = %d", cfg.Hub.RequestTimeoutSeconds)
	}
	if cfg.Capture.SampleRate != 16000 {
		t.Errorf("sample rate default = %d", cfg.Capture.SampleRate)
	}
	if len(cfg.Capture.SilenceMarkers) == 0 {
		t.Errorf("silence markers default missing")
	}
	if cfg.Kiosk.Language != "en" || cfg.Kiosk.KBVersion != 1 {
		t.Errorf("kiosk defaults = %q/%d", cfg.Kiosk.Language, cfg.Kiosk.KBVersion)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	bad := `
kiosk:
  id: kiosk-1
  location: here
  colour: blue
hub:
  base_url: http://hub.local:8080
`
	if _, err := LoadFromReader(strings.NewReader(bad)); err == nil {
		t.Fatalf("unknown field accepted")
	}
}

func TestValidateJoinsAllFailures(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Capture.SampleRate = 44100
	cfg.Admin.LogLevel = "loud"

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("invalid config accepted")
	}
	msg := err.Error()
	for _, want := range []string{
		"kiosk.id is required",
		"kiosk.location is required",
		"hub.base_url is required",
		"sample_rate 44100",
		`log_level "loud"`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q:\n%s", want, msg)
		}
	}
}

func TestValidateRejectsRelativeHubURL(t *testing.T) {
	cfg := &Config{
		Kiosk: KioskConfig{ID: "k", Location: "l"},
		Hub:   HubConfig{BaseURL: "hub.local/api"},
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err == nil {
		t.Fatalf("relative hub url accepted")
	}
}

func TestIsStreamingLanguage(t *testing.T) {
	c := CaptureConfig{StreamingLanguages: []string{"en", "es"}}
	if !c.IsStreamingLanguage("en") || c.IsStreamingLanguage("hi") {
		t.Errorf("streaming language classification wrong")
	}
}

func TestIsSilenceMarker(t *testing.T) {
	c := CaptureConfig{SilenceMarkers: []string{"sil", "blank audio", "no speech"}}

	hits := []string{
		"[BLANK_AUDIO]",
		"(no speech)",
		"*sil*",
		" sil ",
		"<Blank Audio>",
	}
	for _, s := range hits {
		if !c.IsSilenceMarker(s) {
			t.Errorf("IsSilenceMarker(%q) = false", s)
		}
	}

	misses := []string{
		"where is the water point",
		"silence of the crowd",
		"",
	}
	for _, s := range misses {
		if c.IsSilenceMarker(s) {
			t.Errorf("IsSilenceMarker(%q) = true", s)
		}
	}
}
