package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is the default OutputHandle implementation: an in-memory,
// identity-stable view over the most recently rendered frame.
type Handle struct {
	id     string
	active atomic.Bool

	mu    sync.Mutex
	frame *Frame
}

// ID implements OutputHandle.
func (h *Handle) ID() string { return h.id }

// Active implements OutputHandle.
func (h *Handle) Active() bool { return h.active.Load() }

// LastFrame implements OutputHandle.
func (h *Handle) LastFrame() *Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

// Close deactivates the handle. Downstream consumers holding it see
// Active()==false; the sink builds a fresh handle on the next render.
// Idempotent.
func (h *Handle) Close() {
	h.active.Store(false)
}

func (h *Handle) render(frame *Frame) {
	h.mu.Lock()
	h.frame = frame
	h.mu.Unlock()
}

// memorySink is the default OutputSink. It caches at most one handle
// plus the buffer it was built from, and recreates the handle only when
// the cached one reports itself inactive.
type memorySink struct {
	mu     sync.Mutex
	handle *Handle
	buf    *FrameBuffer // retained source of the cached handle
}

// NewMemorySink returns the default in-memory OutputSink.
func NewMemorySink() OutputSink {
	return &memorySink{}
}

// GetOrCreate implements OutputSink. Identity-stable: while the cached
// handle is active it is returned unchanged and the new buffer only
// refreshes the handle's frame. The previously retained buffer is
// destroyed once replaced.
func (s *memorySink) GetOrCreate(buf *FrameBuffer) OutputHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil || !s.handle.Active() {
		h := &Handle{id: uuid.NewString()}
		h.active.Store(true)
		s.handle = h
	}

	if buf != nil {
		if prev := s.buf; prev != nil && prev != buf {
			prev.Destroy()
		}
		s.buf = buf
		if f := buf.Frame(); f != nil {
			s.handle.render(f)
		}
	}

	return s.handle
}
