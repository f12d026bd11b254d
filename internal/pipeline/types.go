package pipeline

import (
	"context"
	"errors"
	"time"
)

// State is the pipeline lifecycle state.
type State int32

const (
	// StateStopped means no run is active. Initial state, and the state
	// after an explicit stop, a destroy, or an established-run failure.
	StateStopped State = iota
	// StateRunning means a run has completed at least one successful tick.
	StateRunning
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Package errors - stable contract for callers.
var (
	// ErrDestroyedBuffer is reported when a stage hands the pipeline a
	// buffer that was already destroyed.
	ErrDestroyedBuffer = errors.New("framepipe: destroyed buffer in chain output")
	// ErrEmptyChainResult is reported when a processor returns a nil or
	// empty buffer slice. Treated as a tick failure (there is nothing
	// left to render and ownership of the inputs is unaccounted for).
	ErrEmptyChainResult = errors.New("framepipe: processor returned no buffers")
	// ErrNoFrame is reported by sources that have no frame available yet.
	ErrNoFrame = errors.New("framepipe: no frame available")
)

// FrameSource is an abstraction over a continuous input of raw video
// frames. The pipeline never owns the source; it only reads it.
//
// Implementations must guarantee:
//   - HasVideoTrack() is cheap and thread-safe
//   - Capture() returns one or more freshly owned FrameBuffers, or an error
//   - Capture() respects ctx cancellation
type FrameSource interface {
	// ID identifies the source (stable across calls).
	ID() string

	// HasVideoTrack reports whether the source currently carries at
	// least one video-capable track. A source without one is recorded
	// but never started (absence of media is not an error).
	HasVideoTrack() bool

	// Capture produces the current frame(s). Ownership of the returned
	// buffers transfers to the caller.
	Capture(ctx context.Context) ([]*FrameBuffer, error)
}

// Processor is a single transformation stage in the chain.
//
// Ownership contract: Process consumes its input slice and returns the
// buffers that continue down the chain. Inputs not present in the
// returned slice must be destroyed by the processor before returning.
type Processor interface {
	// Name identifies the processor in logs and stats.
	Name() string

	// Process transforms the buffers. May suspend; the pipeline awaits
	// completion before invoking the next stage.
	Process(ctx context.Context, in []*FrameBuffer) ([]*FrameBuffer, error)

	// Destroy releases processor-held resources. Called when the
	// pipeline is destroyed or the chain is torn down on stop.
	Destroy(ctx context.Context) error
}

// OutputHandle is a continuous, identity-stable output produced by an
// OutputSink. Downstream consumers hold it across many ticks.
type OutputHandle interface {
	// ID identifies the handle (stable for its lifetime).
	ID() string
	// Active reports whether the handle is still usable. An inactive
	// handle is replaced on the next render or ActiveOutputSource call.
	Active() bool
	// LastFrame returns the most recently rendered frame, or nil.
	LastFrame() *Frame
}

// OutputSink turns the final buffer of a tick into an OutputHandle.
//
// Contract: if a previously created handle exists and reports itself
// active, GetOrCreate returns it unchanged regardless of the buffer
// argument. Otherwise it builds a new handle from the given buffer and
// caches it. GetOrCreate retains the buffer; ownership transfers to the
// sink.
type OutputSink interface {
	GetOrCreate(buf *FrameBuffer) OutputHandle
}

// Stats is a snapshot of pipeline operational state.
type Stats struct {
	// State is the lifecycle state at snapshot time.
	State State
	// TicksTotal counts completed ticks (success + failure) across runs.
	TicksTotal uint64
	// TicksFailed counts failed ticks across runs.
	TicksFailed uint64
	// LastTickDuration is the capture+chain duration of the most recent tick.
	LastTickDuration time.Duration
	// MeanTickDuration is the running mean of capture+chain durations.
	MeanTickDuration time.Duration
	// MaxTickDuration is the worst capture+chain duration observed.
	MaxTickDuration time.Duration
	// LatencyWarnings counts ticks that exceeded the latency threshold.
	LatencyWarnings uint64
}
