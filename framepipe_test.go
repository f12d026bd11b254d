package framepipe_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/visiona/framepipe"
)

// memorySource is a minimal in-memory FrameSource for exercising the
// public API with the real wall-clock scheduler.
type memorySource struct {
	seq atomic.Uint64
}

func (s *memorySource) ID() string          { return "memory" }
func (s *memorySource) HasVideoTrack() bool { return true }

func (s *memorySource) Capture(context.Context) ([]*framepipe.FrameBuffer, error) {
	frame := &framepipe.Frame{
		Data:      []byte{0, 0, 0},
		Width:     1,
		Height:    1,
		Timestamp: time.Now(),
		Seq:       s.seq.Add(1),
	}
	return []*framepipe.FrameBuffer{framepipe.NewFrameBuffer(frame)}, nil
}

// TestPipelineEndToEnd drives a capture → passthrough → sink loop
// through the public API and the real timer scheduler.
func TestPipelineEndToEnd(t *testing.T) {
	p := framepipe.New(framepipe.Config{TickInterval: time.Millisecond})
	defer p.Destroy()

	started := make(chan struct{})
	var once atomic.Bool
	p.AddObserver(&framepipe.Observer{
		ProcessingDidStart: func() {
			if once.CompareAndSwap(false, true) {
				close(started)
			}
		},
	})

	p.SetProcessors([]framepipe.Processor{framepipe.Passthrough()})
	if err := p.SetInputSource(context.Background(), &memorySource{}); err != nil {
		t.Fatalf("SetInputSource failed: %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for the run to start")
	}

	// Let a few ticks pass, then verify the output side.
	deadline := time.Now().Add(2 * time.Second)
	for p.Stats().TicksTotal < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	stats := p.Stats()
	if stats.State != framepipe.StateRunning {
		t.Errorf("Expected Running, got %v", stats.State)
	}
	if stats.TicksTotal < 3 {
		t.Errorf("Expected at least 3 ticks, got %d", stats.TicksTotal)
	}
	if stats.TicksFailed != 0 {
		t.Errorf("Expected no failed ticks, got %d", stats.TicksFailed)
	}

	handle := p.ActiveOutputSource()
	if !handle.Active() {
		t.Error("Expected an active output handle")
	}
	if handle.LastFrame() == nil {
		t.Error("Expected a rendered frame on the handle")
	}

	p.Stop()
	if p.Stats().State != framepipe.StateStopped {
		t.Error("Expected Stopped after Stop")
	}
}

// TestProcessorFunc verifies the function adapter forwards calls and
// reports its name.
func TestProcessorFunc(t *testing.T) {
	var calls int
	proc := framepipe.ProcessorFunc("doubler", func(_ context.Context, in []*framepipe.FrameBuffer) ([]*framepipe.FrameBuffer, error) {
		calls++
		return in, nil
	})

	if proc.Name() != "doubler" {
		t.Errorf("Expected name doubler, got %q", proc.Name())
	}

	in := []*framepipe.FrameBuffer{framepipe.NewFrameBuffer(&framepipe.Frame{Seq: 1})}
	out, err := proc.Process(context.Background(), in)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(out) != 1 || calls != 1 {
		t.Errorf("Expected forwarded call, got out=%d calls=%d", len(out), calls)
	}
	if err := proc.Destroy(context.Background()); err != nil {
		t.Errorf("Destroy must be a no-op, got %v", err)
	}
}
