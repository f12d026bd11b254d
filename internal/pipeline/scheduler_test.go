package pipeline

import (
	"testing"
	"time"
)

// TestTimerSchedulerFires verifies the wall-clock scheduler runs the
// callback after the delay.
func TestTimerSchedulerFires(t *testing.T) {
	s := NewTimerScheduler()

	done := make(chan struct{})
	s.Schedule(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for scheduled callback")
	}
}

// TestTimerSchedulerCancel verifies a cancelled schedule never fires.
func TestTimerSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler()

	fired := make(chan struct{}, 1)
	cancel := s.Schedule(20*time.Millisecond, func() { fired <- struct{}{} })
	cancel()

	select {
	case <-fired:
		t.Fatal("Cancelled schedule must not fire")
	case <-time.After(60 * time.Millisecond):
	}
}
