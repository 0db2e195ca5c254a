package hub

// Answer types returned by the hub's /query endpoint.
const (
	AnswerDirectMatch        = "DIRECT_MATCH"
	AnswerNoMatch            = "NO_MATCH"
	AnswerNeedsClarification = "NEEDS_CLARIFICATION"
)

// Emergency alert statuses reported by the hub.
const (
	StatusActive       = "ACTIVE"
	StatusAcknowledged = "ACKNOWLEDGED"
	StatusResponding   = "RESPONDING"
	StatusResolved     = "RESOLVED"
	StatusDismissed    = "DISMISSED"
)

// QueryRequest is the payload for POST /query.
type QueryRequest struct {
	CenterID           string  `json:"center_id"`
	KioskID            string  `json:"kiosk_id"`
	TranscriptOriginal string  `json:"transcript_original"`
	TranscriptEnglish  string  `json:"transcript_english,omitempty"`
	Language           string  `json:"language"`
	KBVersion          int     `json:"kb_version"`
	IsRetry            bool    `json:"is_retry"`
	SelectedCategory   string  `json:"selected_category,omitempty"`
	SessionID          string  `json:"session_id,omitempty"`
	ExcludeIDs         []int64 `json:"exclude_ids,omitempty"`

	// Lexical/intonation hints from the client-side analyzer.
	IsQuestion           bool    `json:"is_question"`
	IntonationConfidence float64 `json:"intonation_confidence"`
}

// QueryResponse is the hub's answer to a query. Exactly one of the three
// shapes applies, keyed by AnswerType: a direct answer (DIRECT_MATCH or
// NO_MATCH fallback text), a clarification request (NEEDS_CLARIFICATION with
// categories), or a transport-level error surfaced as a Go error instead.
type QueryResponse struct {
	AnswerTextEN            string   `json:"answer_text_en"`
	AnswerTextLocalized     string   `json:"answer_text_localized,omitempty"`
	AnswerType              string   `json:"answer_type"`
	Confidence              float64  `json:"confidence"`
	KBVersion               int      `json:"kb_version"`
	SourceID                *int64   `json:"source_id,omitempty"`
	ClarificationCategories []string `json:"clarification_categories,omitempty"`
	QueryLogID              *int64   `json:"query_log_id,omitempty"`
}

// AnswerText returns the localized answer when present, falling back to the
// English text.
func (r QueryResponse) AnswerText() string {
	if r.AnswerTextLocalized != "" {
		return r.AnswerTextLocalized
	}
	return r.AnswerTextEN
}

// EmergencyRequest is the payload for POST /emergency. LocalAlertID plus
// RetryCount make redelivery idempotent: the hub deduplicates on the local
// id until it has assigned a server-side alert id.
type EmergencyRequest struct {
	KioskID       string `json:"kiosk_id"`
	KioskLocation string `json:"kiosk_location"`
	Transcript    string `json:"transcript,omitempty"`
	Language      string `json:"language"`
	Timestamp     int64  `json:"timestamp"`
	Tier          int    `json:"tier"`
	LocalAlertID  string `json:"local_alert_id"`
	RetryCount    int    `json:"retry_count"`
}

// EmergencyResponse acknowledges an emergency delivery.
type EmergencyResponse struct {
	Status  string `json:"status"`
	AlertID int64  `json:"alert_id"`
}

// FeedbackRequest is the payload for POST /feedback. Label is +1 (like) or
// -1 (dislike).
type FeedbackRequest struct {
	QueryLogID int64  `json:"query_log_id"`
	Label      int    `json:"label"`
	SourceID   *int64 `json:"source_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	KioskID    string `json:"kiosk_id"`
}

// StatusEvent is one emergency status update, produced by both the poller
// and the optional websocket push feed.
type StatusEvent struct {
	AlertID int64  `json:"alert_id"`
	Status  string `json:"status"`
}
