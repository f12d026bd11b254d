package pipeline

import "time"

// Frame is the raw payload produced by a FrameSource.
//
// IMMUTABILITY CONTRACT:
//   - Source: MUST NOT modify Data after handing the frame to a FrameBuffer
//   - Processors: treat Data as read-only; produce a new Frame to transform
//   - Enforcement: documentation-based (runtime checks would add overhead)
type Frame struct {
	// Data contains the raw frame bytes (typically RGB or JPEG-encoded).
	// Shared by reference along the chain; never modified in place.
	Data []byte

	// Width of the frame in pixels
	Width int

	// Height of the frame in pixels
	Height int

	// Timestamp when the frame was captured (source time, not processing time)
	Timestamp time.Time

	// Seq is a monotonic sequence number assigned by the source.
	Seq uint64

	// TraceID is a unique identifier for correlating a frame across
	// capture, chain and sink (distributed tracing).
	TraceID string
}
