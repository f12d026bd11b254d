package pipeline

import "testing"

// TestSinkCreatesHandleWithoutBuffer verifies GetOrCreate(nil) builds a
// usable empty handle (the ActiveOutputSource path).
func TestSinkCreatesHandleWithoutBuffer(t *testing.T) {
	s := NewMemorySink()

	h := s.GetOrCreate(nil)
	if h == nil {
		t.Fatal("Expected a handle")
	}
	if !h.Active() {
		t.Error("Fresh handle must be active")
	}
	if h.LastFrame() != nil {
		t.Error("Handle without a render must have no frame")
	}
}

// TestSinkIdentityStableWhileActive verifies repeated calls return the
// same handle and renders refresh its frame in place.
func TestSinkIdentityStableWhileActive(t *testing.T) {
	s := NewMemorySink()

	h1 := s.GetOrCreate(NewFrameBuffer(&Frame{Seq: 1}))
	h2 := s.GetOrCreate(NewFrameBuffer(&Frame{Seq: 2}))

	if h1.ID() != h2.ID() {
		t.Errorf("Expected same handle, got %q and %q", h1.ID(), h2.ID())
	}
	if f := h1.LastFrame(); f == nil || f.Seq != 2 {
		t.Errorf("Handle must expose the latest rendered frame, got %+v", f)
	}
}

// TestSinkReleasesReplacedBuffer verifies the previously retained buffer
// is destroyed when a new one arrives.
func TestSinkReleasesReplacedBuffer(t *testing.T) {
	s := NewMemorySink()

	first := NewFrameBuffer(&Frame{Seq: 1})
	second := NewFrameBuffer(&Frame{Seq: 2})

	s.GetOrCreate(first)
	if first.Destroyed() {
		t.Fatal("Retained buffer must stay alive")
	}

	s.GetOrCreate(second)
	if !first.Destroyed() {
		t.Error("Replaced buffer must be destroyed")
	}
	if second.Destroyed() {
		t.Error("Current buffer must stay alive")
	}
}

// TestSinkRecreatesAfterClose verifies an inactive handle is replaced by
// a fresh one on the next call.
func TestSinkRecreatesAfterClose(t *testing.T) {
	s := NewMemorySink()

	h1 := s.GetOrCreate(NewFrameBuffer(&Frame{Seq: 1}))
	h1.(*Handle).Close()

	h2 := s.GetOrCreate(NewFrameBuffer(&Frame{Seq: 2}))
	if h2.ID() == h1.ID() {
		t.Error("Expected a fresh handle after close")
	}
	if f := h2.LastFrame(); f == nil || f.Seq != 2 {
		t.Errorf("Fresh handle must carry the new frame, got %+v", f)
	}

	// The old handle is frozen at its last render.
	if f := h1.LastFrame(); f == nil || f.Seq != 1 {
		t.Errorf("Closed handle must keep its last frame, got %+v", f)
	}
}
