package framepipe

import (
	"github.com/visiona/framepipe/internal/pipeline"
)

// Core types are re-exported from the internal package to keep the
// implementation private while presenting a stable contract.

// Frame is the raw payload produced by a FrameSource.
type Frame = pipeline.Frame

// FrameBuffer wraps one produced frame with ownership and destroy
// semantics. See internal/pipeline/buffer.go for the ownership rules.
type FrameBuffer = pipeline.FrameBuffer

// NewFrameBuffer wraps a frame into an owned buffer.
func NewFrameBuffer(f *Frame) *FrameBuffer { return pipeline.NewFrameBuffer(f) }

// FrameSource is a continuous input of raw video frames.
type FrameSource = pipeline.FrameSource

// Processor is a single transformation stage in the chain.
type Processor = pipeline.Processor

// Observer exposes an independently-optional set of lifecycle callbacks.
type Observer = pipeline.Observer

// OutputHandle is an identity-stable output produced by an OutputSink.
type OutputHandle = pipeline.OutputHandle

// OutputSink turns the final buffer of a tick into an OutputHandle.
type OutputSink = pipeline.OutputSink

// Handle is the default in-memory OutputHandle implementation.
type Handle = pipeline.Handle

// NewMemorySink returns the default in-memory OutputSink.
func NewMemorySink() OutputSink { return pipeline.NewMemorySink() }

// Scheduler is an injectable cancelable one-shot timer.
type Scheduler = pipeline.Scheduler

// NewTimerScheduler returns the wall-clock Scheduler used in production.
func NewTimerScheduler() Scheduler { return pipeline.NewTimerScheduler() }

// Default tuning, applied when the corresponding Config field is unset.
const (
	DefaultTickInterval  = pipeline.DefaultTickInterval
	DefaultLatencyFactor = pipeline.DefaultLatencyFactor
)

// State is the pipeline lifecycle state.
type State = pipeline.State

const (
	StateStopped = pipeline.StateStopped
	StateRunning = pipeline.StateRunning
)

// Stats is a snapshot of pipeline operational state.
type Stats = pipeline.Stats

// Config configures a Pipeline.
type Config = pipeline.Config

// Pipeline is the stateful core orchestrating capture, chain, sink and
// health monitoring. See the package documentation for the lifecycle.
type Pipeline = pipeline.Pipeline

// Public API errors - re-exported as stable contract.
var (
	ErrDestroyedBuffer  = pipeline.ErrDestroyedBuffer
	ErrEmptyChainResult = pipeline.ErrEmptyChainResult
	ErrNoFrame          = pipeline.ErrNoFrame
)

// New creates a Pipeline in the Stopped state. Zero-value Config fields
// fall back to defaults (33ms tick interval, 2.0 latency factor,
// wall-clock scheduler, in-memory sink).
func New(cfg Config) *Pipeline {
	return pipeline.New(cfg)
}
