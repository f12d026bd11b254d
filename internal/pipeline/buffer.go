package pipeline

import "sync/atomic"

// FrameBuffer wraps a single produced Frame with explicit ownership and
// destroy semantics.
//
// Ownership rule: exactly one owner at a time. A processor that receives
// a buffer and does not include it in its returned slice is responsible
// for destroying it. A buffer that is neither returned nor destroyed is
// a leak; the pipeline's tests account for every buffer at tick end.
//
// Invariant: once destroyed, a buffer must never be consumed again. Any
// stage (or the pipeline itself) that encounters a destroyed buffer
// treats the current tick as failed.
type FrameBuffer struct {
	frame     *Frame
	destroyed atomic.Bool
}

// NewFrameBuffer wraps frame into an owned buffer.
func NewFrameBuffer(frame *Frame) *FrameBuffer {
	return &FrameBuffer{frame: frame}
}

// Frame returns the underlying frame, or nil after Destroy.
func (b *FrameBuffer) Frame() *Frame {
	if b.destroyed.Load() {
		return nil
	}
	return b.frame
}

// Destroy releases the underlying frame resource.
//
// Idempotent: safe to call multiple times, only the first call has effect.
func (b *FrameBuffer) Destroy() {
	if b.destroyed.CompareAndSwap(false, true) {
		b.frame = nil
	}
}

// Destroyed reports whether the buffer has been destroyed.
func (b *FrameBuffer) Destroyed() bool {
	return b.destroyed.Load()
}

// destroyAll destroys every buffer in bufs (nil entries skipped).
// Used by the pipeline when a tick outcome is discarded or failed.
func destroyAll(bufs []*FrameBuffer) {
	for _, b := range bufs {
		if b != nil {
			b.Destroy()
		}
	}
}
