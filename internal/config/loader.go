package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultSilenceMarkers is the non-speech token set of the stock STT engine.
// Overridden per deployment via capture.silence_markers when a different
// engine is in use.
var defaultSilenceMarkers = []string{"sil", "blank audio", "no speech"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Hub.RequestTimeoutSeconds <= 0 {
		cfg.Hub.RequestTimeoutSeconds = 10
	}
	if cfg.Capture.SampleRate <= 0 {
		cfg.Capture.SampleRate = 16000
	}
	if len(cfg.Capture.SilenceMarkers) == 0 {
		cfg.Capture.SilenceMarkers = append([]string(nil), defaultSilenceMarkers...)
	}
	if cfg.Kiosk.Language == "" {
		cfg.Kiosk.Language = "en"
	}
	if cfg.Kiosk.KBVersion <= 0 {
		cfg.Kiosk.KBVersion = 1
	}
	if cfg.Providers.STT.BaseURL == "" {
		cfg.Providers.STT.BaseURL = "http://127.0.0.1:8089"
	}
	if cfg.Providers.TTS.BaseURL == "" {
		cfg.Providers.TTS.BaseURL = "http://127.0.0.1:8091"
	}
	if cfg.Providers.Mic.Path == "" {
		cfg.Providers.Mic.Path = "/run/reskiosk/mic"
	}
	if cfg.Providers.Mic.ChunkMillis <= 0 {
		cfg.Providers.Mic.ChunkMillis = 100
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Kiosk.ID == "" {
		errs = append(errs, errors.New("kiosk.id is required"))
	}
	if cfg.Kiosk.Location == "" {
		errs = append(errs, errors.New("kiosk.location is required"))
	}

	if cfg.Hub.BaseURL == "" {
		errs = append(errs, errors.New("hub.base_url is required"))
	} else if u, err := url.Parse(cfg.Hub.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("hub.base_url %q is not an absolute URL", cfg.Hub.BaseURL))
	}

	if cfg.Admin.LogLevel != "" && !cfg.Admin.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("admin.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Admin.LogLevel))
	}

	if cfg.Capture.SampleRate != 8000 && cfg.Capture.SampleRate != 16000 && cfg.Capture.SampleRate != 48000 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d is unsupported; valid values: 8000, 16000, 48000", cfg.Capture.SampleRate))
	}

	return errors.Join(errs...)
}
