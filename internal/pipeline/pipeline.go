// Package pipeline implements the frame processing core.
//
// This package is INTERNAL - clients use the public API in the parent
// package, which re-exports the types defined here.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default tuning. A 30fps source yields a ~33ms tick interval; latency
// warnings fire when capture+chain exceeds the interval by the factor.
const (
	DefaultTickInterval  = 33 * time.Millisecond
	DefaultLatencyFactor = 2.0
)

// Config configures a Pipeline. Zero values fall back to defaults.
type Config struct {
	// TickInterval is the target delay between ticks. The loop is
	// back-pressured: a slow chain delays the next tick rather than
	// overlapping with it.
	TickInterval time.Duration

	// LatencyFactor scales TickInterval into the latency threshold.
	// A tick whose capture+chain phase exceeds
	// TickInterval*LatencyFactor raises processingLatencyTooHigh.
	LatencyFactor float64

	// Scheduler drives tick scheduling. Defaults to the wall-clock
	// timer scheduler; tests inject deterministic ones.
	Scheduler Scheduler

	// Sink renders final buffers into an output handle. Defaults to
	// the in-memory sink.
	Sink OutputSink
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.LatencyFactor <= 0 {
		c.LatencyFactor = DefaultLatencyFactor
	}
	if c.Scheduler == nil {
		c.Scheduler = NewTimerScheduler()
	}
	if c.Sink == nil {
		c.Sink = NewMemorySink()
	}
	return c
}

// LatencyThreshold returns the derived per-tick duration budget.
func (c Config) LatencyThreshold() time.Duration {
	c = c.withDefaults()
	return time.Duration(float64(c.TickInterval) * c.LatencyFactor)
}

// Pipeline pulls frames from a FrameSource, passes them through an
// ordered processor chain and republishes the result through an
// OutputSink. The single stateful core of the package.
//
// Concurrency model: ticks are fully serialized - exactly one tick is
// in flight at a time, and the next one is only scheduled after the
// current tick has resolved. The source and chain references are read
// fresh at the start of every tick. A monotonically increasing run
// generation discards the outcome of in-flight ticks superseded by
// stop/destroy/replace.
type Pipeline struct {
	cfg       Config
	registry  *observerRegistry
	monitor   *latencyMonitor
	sink      OutputSink
	scheduler Scheduler

	// notifyMu serializes lifecycle broadcasts so clients observe events
	// in the order the pipeline decided them. Never acquired while mu is
	// held.
	notifyMu sync.Mutex

	mu         sync.Mutex
	state      State
	source     FrameSource
	processors []Processor
	gen        uint64 // run generation; bumped on stop/destroy/replace
	cancelTick func() // pending scheduled tick, nil if none
	runCtx     context.Context
	runCancel  context.CancelFunc
	hadSuccess bool // current run completed at least one successful tick
	destroyed  bool

	ticksTotal  uint64
	ticksFailed uint64
}

// New creates a Pipeline in the Stopped state.
func New(cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	registry := newObserverRegistry()
	return &Pipeline{
		cfg:       cfg,
		registry:  registry,
		monitor:   newLatencyMonitor(cfg.LatencyThreshold(), registry),
		sink:      cfg.Sink,
		scheduler: cfg.Scheduler,
	}
}

// SetInputSource records src as the current input and transitions the
// pipeline accordingly. It returns once the state transition completed.
//
// Rules:
//   - src == nil: cancel the loop, destroy and unassign all current
//     processors, transition to Stopped (notifying processingDidStop if
//     a run was established), clear the recorded source. Idempotent.
//   - src without a usable video track: recorded and queryable, but the
//     loop is not started and no failure is reported - absence of media
//     is not an error condition.
//   - src with a usable video track: recorded; any prior scheduled tick
//     is cancelled and the first tick of a new run is scheduled.
//
// Never returns an error for ordinary idempotent re-invocation.
func (p *Pipeline) SetInputSource(ctx context.Context, src FrameSource) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}

	wasRunning := p.endRunLocked()

	if src == nil {
		procs := p.processors
		p.processors = nil
		p.source = nil
		p.mu.Unlock()

		if wasRunning {
			p.notify(p.registry.NotifyStop)
		}
		p.destroyProcessors(ctx, procs)
		return nil
	}

	p.source = src
	if !src.HasVideoTrack() {
		p.mu.Unlock()
		if wasRunning {
			p.notify(p.registry.NotifyStop)
		}
		slog.Debug("framepipe: source has no usable video track, loop not started",
			"source", src.ID(),
		)
		return nil
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	p.runCtx, p.runCancel = runCtx, runCancel
	newGen := p.gen
	p.mu.Unlock()

	// The old run's stop is delivered before the new run's first tick is
	// scheduled, so the new run's start can never be observed ahead of it.
	if wasRunning {
		p.notify(p.registry.NotifyStop)
	}

	p.mu.Lock()
	if p.gen == newGen && !p.destroyed {
		p.scheduleTickLocked(0)
	}
	p.mu.Unlock()

	slog.Debug("framepipe: run scheduled", "source", src.ID())
	return nil
}

// InputSource returns the currently recorded source, or nil.
func (p *Pipeline) InputSource() FrameSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// ActiveOutputSource returns the current output handle, creating one
// via the sink if none exists or the existing one reports inactive.
// Repeated calls while the handle stays active return the same handle.
func (p *Pipeline) ActiveOutputSource() OutputHandle {
	return p.sink.GetOrCreate(nil)
}

// SetProcessors replaces the processor chain. The pipeline reads the
// chain fresh on every tick, so a mid-run replacement takes effect on
// the next tick. The previous chain is not destroyed - ownership of
// replaced processors stays with the caller.
func (p *Pipeline) SetProcessors(procs []Processor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processors = procs
}

// Processors returns the current chain.
func (p *Pipeline) Processors() []Processor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processors
}

// AddObserver registers o for lifecycle events. No broadcast ordering
// guarantee.
func (p *Pipeline) AddObserver(o *Observer) { p.registry.Add(o) }

// RemoveObserver unregisters o. Unknown observers are ignored.
func (p *Pipeline) RemoveObserver(o *Observer) { p.registry.Remove(o) }

// Stop halts the loop like SetInputSource(nil) with respect to
// cancellation, state and notification, but retains both the recorded
// input source (InputSource still returns it) and the assigned chain.
// Idempotent.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	wasRunning := p.endRunLocked()
	p.mu.Unlock()

	if wasRunning {
		p.notify(p.registry.NotifyStop)
	}
}

// Destroy stops the loop as Stop does, then invokes Destroy on every
// currently-assigned processor (best-effort: a failing destroy is
// logged and does not prevent the rest from being destroyed). Safe to
// call with no processors assigned, and safe to call multiple times -
// each processor is destroyed at most once.
func (p *Pipeline) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	wasRunning := p.endRunLocked()
	procs := p.processors
	p.processors = nil
	p.mu.Unlock()

	if wasRunning {
		p.notify(p.registry.NotifyStop)
	}
	p.destroyProcessors(context.Background(), procs)
	slog.Debug("framepipe: pipeline destroyed", "processors_destroyed", len(procs))
}

// Stats returns an operational snapshot (non-blocking).
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		State:       p.state,
		TicksTotal:  p.ticksTotal,
		TicksFailed: p.ticksFailed,
	}
	p.mu.Unlock()
	p.monitor.snapshot(&s)
	return s
}

// notify delivers one broadcast at a time. Must not be called with mu
// held.
func (p *Pipeline) notify(fn func()) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	fn()
}

// endRunLocked cancels any pending tick, invalidates in-flight tick
// outcomes and moves to Stopped. Returns whether a run was established
// (caller notifies processingDidStop outside the lock).
func (p *Pipeline) endRunLocked() (wasRunning bool) {
	p.gen++
	if p.cancelTick != nil {
		p.cancelTick()
		p.cancelTick = nil
	}
	if p.runCancel != nil {
		p.runCancel()
		p.runCancel = nil
		p.runCtx = nil
	}
	wasRunning = p.state == StateRunning
	p.state = StateStopped
	p.hadSuccess = false
	return wasRunning
}

// scheduleTickLocked schedules the next tick for the current generation.
func (p *Pipeline) scheduleTickLocked(delay time.Duration) {
	gen := p.gen
	p.cancelTick = p.scheduler.Schedule(delay, func() {
		p.runTick(gen)
	})
}

// destroyProcessors tears down procs best-effort: errors and panics are
// logged and do not abort the teardown of the remaining processors.
func (p *Pipeline) destroyProcessors(ctx context.Context, procs []Processor) {
	for _, proc := range procs {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("framepipe: processor destroy panicked",
						"processor", proc.Name(),
						"panic", rec,
					)
				}
			}()
			if err := proc.Destroy(ctx); err != nil {
				slog.Warn("framepipe: processor destroy failed",
					"processor", proc.Name(),
					"error", err,
				)
			}
		}()
	}
}
