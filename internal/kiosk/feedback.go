package kiosk

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/keithruezyl1/ResKiosk--sub000/internal/hub"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/journal"
)

// Rating labels on the wire: +1 like, -1 dislike.
const (
	labelLike    = 1
	labelDislike = -1
)

// Like marks an assistant answer as helpful. The rating is submitted
// fire-and-forget: it is never rolled back and a delivery failure only lands
// in the journal.
func (o *Orchestrator) Like(entryID string) {
	o.mu.Lock()
	entry, ok := o.ratableEntry(entryID)
	if !ok {
		o.mu.Unlock()
		return
	}
	o.chat.SetFeedback(entryID, FeedbackLike)
	o.armWatchdogLocked()
	o.mu.Unlock()

	o.submitRating(entry, labelLike)
}

// Dislike marks an assistant answer as unhelpful and immediately retries the
// question with the disliked source excluded. The original query text is
// replayed byte-identically; only the exclusion set widens. A dislike landing
// while a capture or emergency flow is running is ignored: the re-dispatch
// would race the flow's own query.
func (o *Orchestrator) Dislike(entryID string) {
	o.mu.Lock()
	entry, ok := o.ratableEntry(entryID)
	if !ok {
		o.mu.Unlock()
		return
	}
	if o.session == nil || !canStartCapture(o.state.Kind) {
		o.log.Debug("dislike ignored in current state", "state", o.state.Kind)
		o.mu.Unlock()
		return
	}
	o.chat.SetFeedback(entryID, FeedbackDislike)

	exclude := make([]int64, 0, len(entry.ExcludeIDs)+1)
	exclude = append(exclude, entry.ExcludeIDs...)
	exclude = append(exclude, *entry.SourceID)

	o.tts.Stop()
	o.tasks.stop(taskSpeech)
	o.lastOriginal, o.lastEnglish = entry.QueryOriginal, entry.QueryEnglish
	o.excludeIDs = exclude
	o.dispatchLocked(dispatchSpec{
		original:        entry.QueryOriginal,
		english:         entry.QueryEnglish,
		isRetry:         true,
		excludeIDs:      exclude,
		placeholderText: placeholderRetrieving,
	})
	o.mu.Unlock()

	o.submitRating(entry, labelDislike)
}

// ratableEntry fetches the entry and checks it can carry a rating: a
// resolved assistant answer with a knowledge-base source, not yet rated.
// Callers hold o.mu so the check and the SetFeedback that follows are one
// atomic step; a concurrent second rating sees the entry already rated.
func (o *Orchestrator) ratableEntry(entryID string) (ChatEntry, bool) {
	entry, ok := o.chat.Get(entryID)
	switch {
	case !ok:
		o.log.Debug("rating for unknown entry", "entry_id", entryID)
		return ChatEntry{}, false
	case entry.Author != AuthorAssistant || entry.Placeholder:
		o.log.Debug("rating for non-answer entry", "entry_id", entryID)
		return ChatEntry{}, false
	case entry.SourceID == nil:
		o.log.Debug("rating for entry without source", "entry_id", entryID)
		return ChatEntry{}, false
	case entry.Feedback != FeedbackNone:
		o.log.Debug("entry already rated", "entry_id", entryID)
		return ChatEntry{}, false
	}
	return entry, true
}

// submitRating ships the rating to the hub and journals the outcome, off
// the caller's goroutine.
func (o *Orchestrator) submitRating(entry ChatEntry, label int) {
	labelName := "like"
	if label == labelDislike {
		labelName = "dislike"
	}
	o.metrics.Ratings.Add(o.baseCtx, 1,
		metric.WithAttributes(attribute.String("label", labelName)))

	o.mu.Lock()
	sessionID := ""
	if o.session != nil {
		sessionID = o.session.ID
	}
	o.mu.Unlock()
	prefs := o.prefs.Get()

	go func() {
		delivered := false
		if entry.QueryLogID != nil {
			req := hub.FeedbackRequest{
				QueryLogID: *entry.QueryLogID,
				Label:      label,
				SourceID:   entry.SourceID,
				SessionID:  sessionID,
				KioskID:    prefs.KioskID,
			}
			if err := o.hub.Feedback(o.baseCtx, req); err != nil {
				o.log.Warn("rating delivery failed", "query_log_id", *entry.QueryLogID, "error", err)
			} else {
				delivered = true
			}
		}

		rec := journal.Record{
			Kind:      journal.KindRating,
			SessionID: sessionID,
			KioskID:   prefs.KioskID,
			Label:     label,
			Delivered: delivered,
		}
		if entry.QueryLogID != nil {
			rec.QueryLogID = *entry.QueryLogID
		}
		if entry.SourceID != nil {
			rec.SourceID = *entry.SourceID
		}
		if err := o.journal.Append(rec); err != nil {
			o.log.Warn("journal append failed", "error", err)
		}
	}()
}
