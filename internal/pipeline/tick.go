package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// runTick executes one capture → chain → sink → monitor cycle for the
// given run generation.
//
// Serialization: the tick body runs on the scheduler's goroutine; the
// next tick is only scheduled after this one has fully resolved, so
// ticks never overlap. The generation is re-checked after the chain
// completes and again after rendering, before any notification - an
// in-flight tick superseded by stop/destroy/replace finishes silently:
// no notifications, no rescheduling, buffers destroyed.
func (p *Pipeline) runTick(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.destroyed {
		p.mu.Unlock()
		return
	}
	p.cancelTick = nil
	src := p.source
	procs := append([]Processor(nil), p.processors...)
	ctx := p.runCtx
	p.mu.Unlock()

	if src == nil || ctx == nil {
		return
	}

	start := time.Now()
	bufs, err := p.executeChain(ctx, src, procs)
	elapsed := time.Since(start)

	p.mu.Lock()
	if gen != p.gen {
		// Superseded while in flight: discard the outcome.
		p.mu.Unlock()
		destroyAll(bufs)
		return
	}
	p.ticksTotal++

	if err != nil {
		p.ticksFailed++
		firstTick := !p.hadSuccess
		p.endRunLocked()
		p.mu.Unlock()

		destroyAll(bufs)
		if firstTick {
			slog.Warn("framepipe: first tick failed, run not started",
				"source", src.ID(),
				"error", err,
			)
			p.notify(p.registry.NotifyFailToStart)
		} else {
			slog.Warn("framepipe: tick failed, run stopped",
				"source", src.ID(),
				"error", err,
			)
			p.notify(p.registry.NotifyStop)
		}
		return
	}

	firstSuccess := !p.hadSuccess
	p.hadSuccess = true
	p.state = StateRunning
	p.mu.Unlock()

	p.render(bufs)

	// A stop/destroy/replace landing while rendering wins: its stop
	// notification is ordered behind notifyMu, and the generation check
	// inside the same critical section suppresses the superseded start.
	p.notifyMu.Lock()
	p.mu.Lock()
	current := gen == p.gen
	p.mu.Unlock()
	if current {
		if firstSuccess {
			slog.Info("framepipe: run started",
				"source", src.ID(),
				"processors", len(procs),
			)
			p.registry.NotifyStart()
		}
		p.monitor.Observe(elapsed)
	}
	p.notifyMu.Unlock()
	if !current {
		return
	}

	// Schedule the follow-up tick unless a stop/destroy/new-source
	// request superseded this run while notifying.
	p.mu.Lock()
	if gen == p.gen && p.state == StateRunning {
		p.scheduleTickLocked(p.cfg.TickInterval)
	}
	p.mu.Unlock()
}

// executeChain captures the current frame(s) and passes them through the
// processor chain in order. Each stage receives the slice produced by
// the previous one and returns a new slice; ownership transfers
// linearly along the chain within the tick.
//
// Failure conditions: capture error, a stage error, a stage returning a
// nil/empty slice, or a destroyed buffer in the final slice. On failure
// every buffer the pipeline still knows about is destroyed (Destroy is
// idempotent, so double-destroying a stage-owned buffer is harmless).
func (p *Pipeline) executeChain(ctx context.Context, src FrameSource, procs []Processor) ([]*FrameBuffer, error) {
	bufs, err := src.Capture(ctx)
	if err != nil {
		destroyAll(bufs)
		return nil, fmt.Errorf("capture: %w", err)
	}
	if len(bufs) == 0 {
		return nil, ErrNoFrame
	}

	for _, proc := range procs {
		out, perr := processStage(ctx, proc, bufs)
		if perr != nil {
			destroyAll(bufs)
			destroyAll(out)
			return nil, fmt.Errorf("processor %q: %w", proc.Name(), perr)
		}
		if len(out) == 0 {
			destroyAll(bufs)
			return nil, fmt.Errorf("processor %q: %w", proc.Name(), ErrEmptyChainResult)
		}
		bufs = out
	}

	for _, b := range bufs {
		if b == nil || b.Destroyed() {
			destroyAll(bufs)
			return nil, ErrDestroyedBuffer
		}
	}
	return bufs, nil
}

// processStage invokes one processor with panic isolation: a panicking
// stage fails the tick instead of crashing the host.
func processStage(ctx context.Context, proc Processor, in []*FrameBuffer) (out []*FrameBuffer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return proc.Process(ctx, in)
}

// render forwards the final buffer to the sink (which retains it) and
// destroys the remaining buffers - they reached the end of the chain
// and have no further consumer.
func (p *Pipeline) render(bufs []*FrameBuffer) {
	if len(bufs) == 0 {
		return
	}
	p.sink.GetOrCreate(bufs[0])
	destroyAll(bufs[1:])
}
