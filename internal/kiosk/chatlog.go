package kiosk

import (
	"sync"

	"github.com/google/uuid"
)

// Author identifies who produced a chat entry.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Feedback is the user's rating of an assistant entry.
type Feedback int

const (
	FeedbackNone Feedback = iota
	FeedbackLike
	FeedbackDislike
)

// ChatEntry is one row of the on-screen conversation.
type ChatEntry struct {
	ID     string
	Author Author
	Text   string

	// Placeholder marks a transient assistant entry ("Thinking…") that is
	// resolved in place when the real answer arrives. Placeholders are the
	// only entries that may be resolved or removed; a resolved entry can
	// never become a placeholder again.
	Placeholder bool

	// Answer provenance, set when a placeholder resolves with a hub answer.
	SourceID   *int64
	QueryLogID *int64
	Feedback   Feedback

	// The exact query that produced this answer, kept so a dislike can
	// replay it byte-identically with a widened exclusion set.
	QueryOriginal string
	QueryEnglish  string
	ExcludeIDs    []int64
}

// ChatLog is the ordered conversation shown on screen. Entries keep their
// position for the life of the session: a placeholder resolves in place, it
// is never re-appended at the tail.
//
// Safe for concurrent use.
type ChatLog struct {
	mu      sync.Mutex
	entries []ChatEntry
}

func NewChatLog() *ChatLog {
	return &ChatLog{}
}

// AppendUser appends a user utterance and returns its entry id.
func (l *ChatLog) AppendUser(text string) string {
	return l.append(ChatEntry{Author: AuthorUser, Text: text})
}

// AppendPlaceholder appends a transient assistant entry and returns its id.
func (l *ChatLog) AppendPlaceholder(text string) string {
	return l.append(ChatEntry{Author: AuthorAssistant, Text: text, Placeholder: true})
}

func (l *ChatLog) append(e ChatEntry) string {
	e.ID = uuid.NewString()
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return e.ID
}

// Resolve replaces the placeholder with the given id in place, preserving its
// position and id. Only placeholders can be resolved; resolving twice or
// resolving a non-placeholder returns false and changes nothing.
func (l *ChatLog) Resolve(id string, resolved ChatEntry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == id {
			if !l.entries[i].Placeholder {
				return false
			}
			resolved.ID = id
			resolved.Author = AuthorAssistant
			resolved.Placeholder = false
			l.entries[i] = resolved
			return true
		}
	}
	return false
}

// Remove deletes the placeholder with the given id. Resolved entries are
// permanent and cannot be removed.
func (l *ChatLog) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == id {
			if !l.entries[i].Placeholder {
				return false
			}
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// SetFeedback records the user's rating on the entry with the given id.
func (l *ChatLog) SetFeedback(id string, fb Feedback) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].Feedback = fb
			return true
		}
	}
	return false
}

// Get returns a copy of the entry with the given id.
func (l *ChatLog) Get(id string) (ChatEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == id {
			return l.entries[i], true
		}
	}
	return ChatEntry{}, false
}

// Entries returns a copy of the conversation in order.
func (l *ChatLog) Entries() []ChatEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ChatEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *ChatLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops all entries. Called on session end.
func (l *ChatLog) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
