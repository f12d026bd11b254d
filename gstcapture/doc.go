// Package gstcapture provides a GStreamer-backed FrameSource over RTSP.
//
// The GStreamer pipeline pushes decoded frames into a single-slot
// latest-frame mailbox (overwrite policy, drop counter); Capture blocks
// until a frame is available and wraps it into an owned FrameBuffer.
// The pipeline owner polls HasVideoTrack to decide whether the source
// is usable: it reports true once the first sample has been decoded.
//
// Lifecycle: New() → Start(ctx) → Capture()/Stats() → Stop().
// Stop is idempotent. Bus errors are classified for telemetry and
// trigger exponential-backoff reconnection up to a configured cap.
package gstcapture
