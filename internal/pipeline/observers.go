package pipeline

import (
	"log/slog"
	"sync"
	"time"
)

// Observer exposes an independently-optional set of lifecycle callbacks.
// A nil field simply means the observer does not care about that event.
//
// Callbacks are invoked from the pipeline's tick goroutine; they should
// return quickly and must not call back into the pipeline synchronously.
type Observer struct {
	// ProcessingDidStart fires once per run, on the first successful tick.
	ProcessingDidStart func()

	// ProcessingDidStop fires when an established run ends, whether by
	// explicit stop or by a failure after at least one successful tick.
	ProcessingDidStop func()

	// ProcessingDidFailToStart fires when the first tick of a run fails
	// before any tick has ever succeeded for that run.
	ProcessingDidFailToStart func()

	// ProcessingLatencyTooHigh fires when a tick's capture+chain phase
	// exceeds the configured latency threshold.
	ProcessingLatencyTooHigh func(latency time.Duration)
}

// observerRegistry holds registered observers and broadcasts events.
//
// Broadcast order is unspecified. A panic in one observer's callback is
// recovered and logged; remaining observers still receive the event.
type observerRegistry struct {
	mu        sync.Mutex
	observers map[*Observer]struct{}
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{observers: make(map[*Observer]struct{})}
}

// Add registers an observer. Adding the same pointer twice is a no-op.
func (r *observerRegistry) Add(o *Observer) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers[o] = struct{}{}
}

// Remove unregisters an observer. Removing an unknown pointer is a no-op.
func (r *observerRegistry) Remove(o *Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.observers, o)
}

// snapshot returns the current observer set without holding the lock
// during callback invocation (observers may add/remove from callbacks
// run on other goroutines).
func (r *observerRegistry) snapshot() []*Observer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Observer, 0, len(r.observers))
	for o := range r.observers {
		out = append(out, o)
	}
	return out
}

// NotifyStart broadcasts processingDidStart.
func (r *observerRegistry) NotifyStart() {
	for _, o := range r.snapshot() {
		if o.ProcessingDidStart != nil {
			invoke("processingDidStart", o.ProcessingDidStart)
		}
	}
}

// NotifyStop broadcasts processingDidStop.
func (r *observerRegistry) NotifyStop() {
	for _, o := range r.snapshot() {
		if o.ProcessingDidStop != nil {
			invoke("processingDidStop", o.ProcessingDidStop)
		}
	}
}

// NotifyFailToStart broadcasts processingDidFailToStart.
func (r *observerRegistry) NotifyFailToStart() {
	for _, o := range r.snapshot() {
		if o.ProcessingDidFailToStart != nil {
			invoke("processingDidFailToStart", o.ProcessingDidFailToStart)
		}
	}
}

// NotifyLatency broadcasts processingLatencyTooHigh with the measured duration.
func (r *observerRegistry) NotifyLatency(latency time.Duration) {
	for _, o := range r.snapshot() {
		if o.ProcessingLatencyTooHigh != nil {
			cb := o.ProcessingLatencyTooHigh
			invoke("processingLatencyTooHigh", func() { cb(latency) })
		}
	}
}

// invoke runs one observer callback with panic isolation.
func invoke(event string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("framepipe: observer callback panicked",
				"event", event,
				"panic", rec,
			)
		}
	}()
	fn()
}
