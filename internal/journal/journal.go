// Package journal provides the kiosk's local audit trail. Ratings and
// emergency lifecycle events are stored as append-only JSON lines in a local
// file so the kiosk retains a record even when the hub is unreachable.
//
// Volume is tiny (one line per user action), so a flat file is sufficient;
// the hub is the system of record once deliveries succeed.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Record kinds.
const (
	KindRating    = "rating"
	KindEmergency = "emergency"
	KindSession   = "session"
)

// Record is a single journal entry.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	KioskID   string    `json:"kiosk_id,omitempty"`

	// Rating fields.
	QueryLogID int64 `json:"query_log_id,omitempty"`
	SourceID   int64 `json:"source_id,omitempty"`
	Label      int   `json:"label,omitempty"`
	Delivered  bool  `json:"delivered,omitempty"`

	// Emergency fields.
	LocalAlertID string `json:"local_alert_id,omitempty"`
	AlertID      int64  `json:"alert_id,omitempty"`
	Event        string `json:"event,omitempty"`
	Tier         int    `json:"tier,omitempty"`
}

// Writer appends records to a journal. The zero-value Nop discards them.
type Writer interface {
	Append(rec Record) error
}

// Nop is a Writer that discards all records. Used when journaling is
// disabled in config.
type Nop struct{}

// Append implements [Writer].
func (Nop) Append(Record) error { return nil }

// FileStore persists records as JSON lines in a local file.
// Thread-safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// Ensure both writers satisfy the interface at compile time.
var (
	_ Writer = (*FileStore)(nil)
	_ Writer = Nop{}
)

// NewFileStore creates a FileStore that writes to the given path.
// The file is created if it does not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append writes one record to the file.
func (fs *FileStore) Append(rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}
