package config

import "sync"

// Preferences holds the kiosk settings that an operator may change at
// runtime without restarting the process.
type Preferences struct {
	// HubURL is the current hub endpoint.
	HubURL string

	// KioskID is the kiosk identifier.
	KioskID string

	// Language is the active recognition/UI language code.
	Language string
}

// Store is an injected runtime preference store with explicit change
// notification, replacing ambient global state. Subscribers are invoked on
// every successful Set with the old and new values.
//
// All methods are safe for concurrent use. Callbacks run synchronously on
// the mutating goroutine but outside the store's lock, so a subscriber may
// safely call Get.
type Store struct {
	mu    sync.RWMutex
	prefs Preferences
	subs  []func(old, new Preferences)
}

// NewStore creates a Store seeded from cfg.
func NewStore(cfg *Config) *Store {
	return &Store{
		prefs: Preferences{
			HubURL:   cfg.Hub.BaseURL,
			KioskID:  cfg.Kiosk.ID,
			Language: cfg.Kiosk.Language,
		},
	}
}

// Get returns a snapshot of the current preferences.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Set replaces the preferences and notifies subscribers. Setting identical
// values is a no-op and does not notify.
func (s *Store) Set(p Preferences) {
	s.mu.Lock()
	if s.prefs == p {
		s.mu.Unlock()
		return
	}
	old := s.prefs
	s.prefs = p
	subs := make([]func(old, new Preferences), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(old, p)
	}
}

// SetLanguage updates only the language preference.
func (s *Store) SetLanguage(lang string) {
	p := s.Get()
	p.Language = lang
	s.Set(p)
}

// Subscribe registers fn to be called on every preference change.
// Subscriptions cannot be removed; the store lives for the process lifetime.
func (s *Store) Subscribe(fn func(old, new Preferences)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
