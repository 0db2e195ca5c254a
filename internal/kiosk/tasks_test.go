package kiosk

import (
	"context"
	"testing"
	"time"
)

func TestTaskSetStartCancelsPredecessor(t *testing.T) {
	ts := newTaskSet()
	defer ts.stopAll()

	firstDone := make(chan struct{})
	ts.start(context.Background(), taskWatchdog, func(ctx context.Context) {
		<-ctx.Done()
		close(firstDone)
	})

	// Same category: the first task's context is cancelled.
	ts.start(context.Background(), taskWatchdog, func(ctx context.Context) {
		<-ctx.Done()
	})
	select {
	case <-firstDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("predecessor not cancelled")
	}
}

func TestTaskSetStopIsPerCategory(t *testing.T) {
	ts := newTaskSet()
	defer ts.stopAll()

	watchdogDone := make(chan struct{})
	pollAlive := make(chan struct{})
	ts.start(context.Background(), taskWatchdog, func(ctx context.Context) {
		<-ctx.Done()
		close(watchdogDone)
	})
	ts.start(context.Background(), taskPoll, func(ctx context.Context) {
		close(pollAlive)
		<-ctx.Done()
	})
	<-pollAlive

	ts.stop(taskWatchdog)
	select {
	case <-watchdogDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("watchdog not cancelled")
	}

	// Stopping an absent category is a no-op.
	ts.stop(taskWatchdog)
}

func TestTaskSetStopAll(t *testing.T) {
	ts := newTaskSet()

	done := make(chan struct{}, 2)
	for _, cat := range []string{taskQuery, taskSpeech} {
		ts.start(context.Background(), cat, func(ctx context.Context) {
			<-ctx.Done()
			done <- struct{}{}
		})
	}

	ts.stopAll()
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("task %d not cancelled", i)
		}
	}
}
