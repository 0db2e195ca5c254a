package kiosk

import (
	"context"
	"sync"
)

// Task categories. At most one task per category runs at a time; starting a
// new one cancels its predecessor. This is what makes timer restarts (watchdog
// re-arm, countdown replacement, retry-loop supersession) race-free.
const (
	taskWatchdog     = "watchdog"
	taskCaptureStart = "capture_start"
	taskFinalize     = "finalize"
	taskQuery        = "query"
	taskSpeech       = "speech"
	taskErrorClear   = "error_clear"
	taskCountdown    = "countdown"
	taskDelivery     = "delivery"
	taskPoll         = "poll"
	taskHold         = "hold"
)

// taskSet tracks one cancellable goroutine per category.
type taskSet struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newTaskSet() *taskSet {
	return &taskSet{cancels: make(map[string]context.CancelFunc)}
}

// start cancels any running task in the category and launches fn on a new
// goroutine with a context derived from parent. fn must return promptly once
// its context is cancelled.
func (t *taskSet) start(parent context.Context, category string, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	if prev, ok := t.cancels[category]; ok {
		prev()
	}
	t.cancels[category] = cancel
	t.mu.Unlock()

	go func() {
		defer cancel()
		fn(ctx)
	}()
}

// stop cancels the running task in the category, if any.
func (t *taskSet) stop(category string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cancel, ok := t.cancels[category]; ok {
		cancel()
		delete(t.cancels, category)
	}
}

// stopAll cancels every running task.
func (t *taskSet) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for cat, cancel := range t.cancels {
		cancel()
		delete(t.cancels, cat)
	}
}
