package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	fs := NewFileStore(path)

	if err := fs.Append(Record{
		Kind:      KindRating,
		SessionID: "s-1",
		KioskID:   "kiosk-7",
		Label:     -1,
		SourceID:  41,
		Delivered: true,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := fs.Append(Record{
		Kind:         KindEmergency,
		KioskID:      "kiosk-7",
		LocalAlertID: "local-1",
		Event:        "triggered",
		Tier:         2,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var recs []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %d: %v", len(recs), err)
		}
		recs = append(recs, rec)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	if recs[0].Kind != KindRating || recs[0].Label != -1 || !recs[0].Delivered {
		t.Errorf("rating record = %+v", recs[0])
	}
	if recs[0].Timestamp.IsZero() {
		t.Errorf("timestamp not filled in")
	}
	if recs[1].Kind != KindEmergency || recs[1].Event != "triggered" || recs[1].Tier != 2 {
		t.Errorf("emergency record = %+v", recs[1])
	}
}

func TestFileStoreKeepsExplicitTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	fs := NewFileStore(path)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := fs.Append(Record{Kind: KindSession, Timestamp: ts, Event: "started"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !rec.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp, ts)
	}
}

func TestNopDiscards(t *testing.T) {
	if err := (Nop{}).Append(Record{Kind: KindSession}); err != nil {
		t.Fatalf("nop append: %v", err)
	}
}
