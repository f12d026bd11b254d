package gstcapture

import (
	"testing"
	"time"
)

// TestNewValidation verifies config validation without touching
// GStreamer (the pipeline is only built on Start).
func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("Expected error for missing URL")
	}
	if _, err := New(Config{URL: "rtsp://cam/stream", TargetFPS: 31}); err == nil {
		t.Error("Expected error for FPS above range")
	}
	if _, err := New(Config{URL: "rtsp://cam/stream", TargetFPS: 0.05}); err == nil {
		t.Error("Expected error for FPS below range")
	}

	src, err := New(Config{URL: "rtsp://cam/stream"})
	if err != nil {
		t.Fatalf("Expected defaults to apply, got %v", err)
	}
	if src.ID() != "gstcapture/default" {
		t.Errorf("Expected default stream ID, got %q", src.ID())
	}
	if src.HasVideoTrack() {
		t.Error("No video track before the first decoded sample")
	}
}

// TestBackoffDelay verifies the exponential schedule and its cap.
func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second}, // capped
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, expected %v", tt.attempt, got, tt.want)
		}
	}
}

// TestStopBeforeStart verifies Stop on a never-started source is a
// no-op.
func TestStopBeforeStart(t *testing.T) {
	src, err := New(Config{URL: "rtsp://cam/stream"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Errorf("Stop before Start must be a no-op, got %v", err)
	}
}
