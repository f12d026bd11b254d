package gstcapture

import (
	"context"
	"testing"
	"time"

	"github.com/visiona/framepipe"
)

// TestMailboxSetReceive verifies the basic handoff.
func TestMailboxSetReceive(t *testing.T) {
	m := newFrameMailbox()

	dropped := m.Set(&framepipe.Frame{Seq: 1})
	if dropped {
		t.Error("First set must not report a drop")
	}

	frame := m.Receive(context.Background())
	if frame == nil || frame.Seq != 1 {
		t.Fatalf("Expected frame 1, got %+v", frame)
	}

	// The slot is consumed.
	if got := m.TryReceive(); got != nil {
		t.Errorf("Expected empty slot after receive, got %+v", got)
	}
}

// TestMailboxOverwriteDrops verifies latest-wins: an unconsumed frame is
// replaced and reported as dropped.
func TestMailboxOverwriteDrops(t *testing.T) {
	m := newFrameMailbox()

	m.Set(&framepipe.Frame{Seq: 1})
	if dropped := m.Set(&framepipe.Frame{Seq: 2}); !dropped {
		t.Error("Overwriting an unconsumed frame must report a drop")
	}

	frame := m.Receive(context.Background())
	if frame == nil || frame.Seq != 2 {
		t.Fatalf("Expected the latest frame, got %+v", frame)
	}
}

// TestMailboxReceiveBlocksUntilSet verifies a blocked receiver wakes on
// the next set.
func TestMailboxReceiveBlocksUntilSet(t *testing.T) {
	m := newFrameMailbox()

	got := make(chan *framepipe.Frame, 1)
	go func() { got <- m.Receive(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	m.Set(&framepipe.Frame{Seq: 7})

	select {
	case frame := <-got:
		if frame == nil || frame.Seq != 7 {
			t.Errorf("Expected frame 7, got %+v", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for receive to wake")
	}
}

// TestMailboxReceiveCancelled verifies ctx cancellation unblocks the
// receiver with nil.
func TestMailboxReceiveCancelled(t *testing.T) {
	m := newFrameMailbox()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *framepipe.Frame, 1)
	go func() { got <- m.Receive(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case frame := <-got:
		if frame != nil {
			t.Errorf("Expected nil on cancellation, got %+v", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for cancelled receive")
	}
}

// TestMailboxClose verifies close wakes receivers and drops later sets.
func TestMailboxClose(t *testing.T) {
	m := newFrameMailbox()

	got := make(chan *framepipe.Frame, 1)
	go func() { got <- m.Receive(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	m.Close()
	m.Close() // idempotent

	select {
	case frame := <-got:
		if frame != nil {
			t.Errorf("Expected nil on close, got %+v", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for closed receive")
	}

	if dropped := m.Set(&framepipe.Frame{Seq: 1}); dropped {
		t.Error("Set after close must not report a drop")
	}
	if frame := m.TryReceive(); frame != nil {
		t.Errorf("Closed mailbox must stay empty, got %+v", frame)
	}
}
