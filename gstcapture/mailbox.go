package gstcapture

import (
	"context"
	"sync"

	"github.com/visiona/framepipe"
)

// frameMailbox is a single-slot latest-frame holder with overwrite
// policy: a new frame replaces an unconsumed one (drop tracked by the
// caller). Receive blocks until a frame is available, the context is
// cancelled, or the mailbox is closed.
type frameMailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *framepipe.Frame
	closed bool
}

func newFrameMailbox() *frameMailbox {
	m := &frameMailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Set overwrites the slot with frame. Returns true if an unconsumed
// frame was overwritten (a drop).
func (m *frameMailbox) Set(frame *framepipe.Frame) (dropped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	dropped = m.frame != nil
	m.frame = frame
	m.cond.Broadcast()
	return dropped
}

// Receive blocks until a frame is available and consumes it. Returns
// nil when the mailbox is closed or ctx is cancelled.
func (m *frameMailbox) Receive(ctx context.Context) *framepipe.Frame {
	// Wake the cond wait when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for m.frame == nil && !m.closed && ctx.Err() == nil {
		m.cond.Wait()
	}
	if m.closed || ctx.Err() != nil {
		return nil
	}
	frame := m.frame
	m.frame = nil
	return frame
}

// TryReceive consumes the slot without blocking.
func (m *frameMailbox) TryReceive() *framepipe.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := m.frame
	m.frame = nil
	return frame
}

// Close wakes all blocked receivers; further Sets are dropped.
// Idempotent.
func (m *frameMailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.frame = nil
	m.cond.Broadcast()
}
