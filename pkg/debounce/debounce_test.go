package debounce

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 16)}
}

func (r *recorder) fn(v string) {
	r.mu.Lock()
	r.calls = append(r.calls, v)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestTriggerCoalescesBurst(t *testing.T) {
	rec := newRecorder()
	d := New(20*time.Millisecond, rec.fn)

	for _, v := range []string{"b", "bo", "bos", "bost"} {
		d.Trigger(v)
	}

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never fired")
	}
	time.Sleep(60 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 || calls[0] != "bost" {
		t.Errorf("expected one call with bost, got %v", calls)
	}
	if d.Pending() {
		t.Errorf("nothing should be pending after firing")
	}
}

func TestFlushRunsImmediately(t *testing.T) {
	rec := newRecorder()
	d := New(time.Hour, rec.fn)

	if d.Flush() {
		t.Errorf("Flush without Trigger must report false")
	}
	d.Trigger("aus")
	if !d.Flush() {
		t.Fatalf("Flush must report the pending call")
	}
	calls := rec.snapshot()
	if len(calls) != 1 || calls[0] != "aus" {
		t.Errorf("expected [aus], got %v", calls)
	}
	if d.Flush() {
		t.Errorf("second Flush must be a no-op")
	}
}

func TestStopDropsPending(t *testing.T) {
	rec := newRecorder()
	d := New(10*time.Millisecond, rec.fn)

	d.Trigger("x")
	d.Stop()
	d.Trigger("y")
	time.Sleep(50 * time.Millisecond)

	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("expected no calls after Stop, got %v", calls)
	}
}

func TestCancelKeepsDebouncerUsable(t *testing.T) {
	rec := newRecorder()
	d := New(time.Hour, rec.fn)

	d.Trigger("old")
	d.Cancel()
	if d.Pending() {
		t.Fatalf("Cancel must clear the pending call")
	}
	d.Trigger("new")
	d.Flush()
	if calls := rec.snapshot(); len(calls) != 1 || calls[0] != "new" {
		t.Errorf("expected [new], got %v", calls)
	}
}

func TestDefaultWindow(t *testing.T) {
	if w := New(0, func(string) {}).Window(); w != DefaultWindow {
		t.Errorf("expected %v, got %v", DefaultWindow, w)
	}
}
