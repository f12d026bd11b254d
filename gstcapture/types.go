package gstcapture

import "time"

// Resolution represents supported capture resolutions.
type Resolution int

const (
	// Res512p represents 910x512 resolution
	Res512p Resolution = iota
	// Res720p represents 1280x720 resolution (HD)
	Res720p
	// Res1080p represents 1920x1080 resolution (Full HD)
	Res1080p
)

// Dimensions returns the width and height for the resolution.
func (r Resolution) Dimensions() (width, height int) {
	switch r {
	case Res512p:
		return 910, 512
	case Res720p:
		return 1280, 720
	case Res1080p:
		return 1920, 1080
	default:
		// Safe default: 720p
		return 1280, 720
	}
}

// String returns a human-readable representation of the resolution.
func (r Resolution) String() string {
	switch r {
	case Res512p:
		return "512p"
	case Res720p:
		return "720p"
	case Res1080p:
		return "1080p"
	default:
		return "720p"
	}
}

// ParseResolution maps a config string to a Resolution.
func ParseResolution(s string) (Resolution, bool) {
	switch s {
	case "512p":
		return Res512p, true
	case "720p", "":
		return Res720p, true
	case "1080p":
		return Res1080p, true
	default:
		return Res720p, false
	}
}

// Config contains configuration for RTSP capture.
type Config struct {
	// URL is the RTSP stream URL (required).
	URL string
	// Resolution is the target video resolution.
	Resolution Resolution
	// TargetFPS is the target capture rate (0.1 - 30.0).
	TargetFPS float64
	// StreamID identifies the source in frames and logs (e.g. "LQ", "HQ").
	StreamID string
}

// Stats contains capture statistics.
type Stats struct {
	// FrameCount is the total number of frames decoded.
	FrameCount uint64
	// FramesDropped is the number of frames overwritten before consumption.
	FramesDropped uint64
	// Reconnects is the number of reconnection attempts.
	Reconnects uint32
	// BytesRead is the total bytes decoded from the stream.
	BytesRead uint64
	// LastFrameAt is the arrival time of the most recent frame.
	LastFrameAt time.Time
	// Connected indicates whether the pipeline is currently playing.
	Connected bool
}
