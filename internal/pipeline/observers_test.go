package pipeline

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestObserverNilCallbacksTolerated verifies an observer with unset
// callbacks receives no events and causes no panics.
func TestObserverNilCallbacksTolerated(t *testing.T) {
	r := newObserverRegistry()
	r.Add(&Observer{})

	r.NotifyStart()
	r.NotifyStop()
	r.NotifyFailToStart()
	r.NotifyLatency(time.Second)
}

// TestObserverPanicIsolation verifies a panicking callback does not
// prevent other observers from being notified.
func TestObserverPanicIsolation(t *testing.T) {
	r := newObserverRegistry()

	var received atomic.Uint32
	r.Add(&Observer{ProcessingDidStart: func() { panic("observer broke") }})
	r.Add(&Observer{ProcessingDidStart: func() { received.Add(1) }})

	r.NotifyStart()

	if received.Load() != 1 {
		t.Errorf("Healthy observer must still be notified, got %d", received.Load())
	}
}

// TestObserverAddRemove verifies duplicate adds collapse and removal
// stops delivery.
func TestObserverAddRemove(t *testing.T) {
	r := newObserverRegistry()

	var count atomic.Uint32
	o := &Observer{ProcessingDidStop: func() { count.Add(1) }}
	r.Add(o)
	r.Add(o) // same pointer, no double delivery
	r.NotifyStop()
	if count.Load() != 1 {
		t.Errorf("Expected 1 delivery for duplicate add, got %d", count.Load())
	}

	r.Remove(o)
	r.NotifyStop()
	if count.Load() != 1 {
		t.Errorf("Removed observer must not be notified, got %d", count.Load())
	}

	// Nil add and unknown remove are no-ops.
	r.Add(nil)
	r.Remove(&Observer{})
	r.NotifyStop()
}

// TestObserverLatencyValue verifies the measured duration reaches the
// callback.
func TestObserverLatencyValue(t *testing.T) {
	r := newObserverRegistry()

	var got atomic.Int64
	r.Add(&Observer{ProcessingLatencyTooHigh: func(l time.Duration) { got.Store(int64(l)) }})

	r.NotifyLatency(250 * time.Millisecond)
	if time.Duration(got.Load()) != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", time.Duration(got.Load()))
	}
}
