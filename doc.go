// Package framepipe implements a real-time video frame processing
// pipeline: frames are pulled from an input source, passed through an
// ordered chain of transformation stages and republished as a
// continuous, identity-stable output for downstream consumption.
//
// # Philosophy
//
// "One tick in flight, never two. Back-pressure over overlap."
//
// The loop is cooperative, not a fixed-rate timer: the next tick is only
// scheduled after the current capture → chain → sink cycle has fully
// resolved, so a slow chain naturally delays the loop instead of piling
// up concurrent work. Health degradation is surfaced through latency
// observations rather than throttling.
//
// # Components
//
//	FrameSource → Pipeline (tick loop) → Processor chain → OutputSink
//	                   ↓ lifecycle / latency events
//	               Observers
//
//   - FrameSource: continuous input of raw frames (may lack a usable
//     video track, in which case the loop simply does not start)
//   - FrameBuffer: ownership-tracked wrapper around one produced frame;
//     ownership transfers linearly along the chain within a tick
//   - Processor: one transformation stage; consumes its input slice and
//     returns the buffers that continue down the chain
//   - OutputSink: caches a single identity-stable output handle,
//     recreated only when the current one reports itself inactive
//   - Observer: optional-capability callbacks for start/stop/
//     fail-to-start/latency events
//
// # Lifecycle
//
//	p := framepipe.New(framepipe.Config{})
//	p.AddObserver(&framepipe.Observer{
//	    ProcessingDidStart: func() { log.Println("started") },
//	})
//	p.SetProcessors([]framepipe.Processor{myStage})
//	p.SetInputSource(ctx, source) // schedules the first tick
//	...
//	p.Stop()    // halts the loop, retains source and chain
//	p.Destroy() // halts the loop and destroys the chain
//
// A run transitions to Running on its first successful tick and fires
// processingDidStart exactly once. A failure on the very first tick
// fires processingDidFailToStart instead and the run never starts; a
// failure after at least one success ends the run exactly like an
// explicit stop.
//
// # Failure Isolation
//
// Errors and panics inside the processor chain are caught at the tick
// boundary and converted into lifecycle notifications; they never
// propagate out of the scheduling loop. One observer's panic does not
// prevent delivery to the remaining observers.
//
// # Collaborator Packages
//
//   - gstcapture: GStreamer-backed FrameSource (RTSP)
//   - mqttemitter: observer publishing lifecycle/latency telemetry to
//     an MQTT broker
package framepipe
