package gstcapture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/visiona/framepipe"
)

// Reconnection tuning: exponential backoff 1s → 2s → 4s → 8s → 16s,
// capped, then give up.
const (
	maxReconnects     = 5
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 30 * time.Second
)

// Source is a GStreamer-backed framepipe.FrameSource.
//
// Thread-safety: all methods are safe for concurrent use. Capture is
// intended for a single consumer (the pipeline's tick loop).
type Source struct {
	cfg     Config
	id      string
	mailbox *frameMailbox

	frameCount    atomic.Uint64
	bytesRead     atomic.Uint64
	framesDropped atomic.Uint64
	reconnects    atomic.Uint32
	connected     atomic.Bool
	sawVideo      atomic.Bool
	lastFrameAt   atomic.Int64 // unix nanos

	mu       sync.Mutex
	elements *pipelineElements
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
}

// New creates a Source. The GStreamer pipeline is not built until Start.
func New(cfg Config) (*Source, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("gstcapture: URL is required")
	}
	if cfg.TargetFPS == 0 {
		cfg.TargetFPS = 1.0
	}
	if cfg.TargetFPS < 0.1 || cfg.TargetFPS > 30.0 {
		return nil, fmt.Errorf("gstcapture: target FPS %.2f out of range [0.1, 30.0]", cfg.TargetFPS)
	}
	if cfg.StreamID == "" {
		cfg.StreamID = "default"
	}
	return &Source{
		cfg:     cfg,
		id:      fmt.Sprintf("gstcapture/%s", cfg.StreamID),
		mailbox: newFrameMailbox(),
	}, nil
}

// Start builds the pipeline, sets it to PLAYING and spawns the bus
// monitor with reconnection. Returns an error if already started or
// the pipeline cannot be built.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("gstcapture: already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := s.startPipelineLocked(); err != nil {
		cancel()
		return err
	}
	s.cancel = cancel
	s.started = true

	s.wg.Add(1)
	go s.superviseLoop(runCtx)

	slog.Info("gstcapture: started",
		"url", s.cfg.URL,
		"resolution", s.cfg.Resolution.String(),
		"target_fps", s.cfg.TargetFPS,
	)
	return nil
}

// Stop tears the pipeline down and wakes any blocked Capture call.
// Idempotent.
func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.mailbox.Close()

	s.mu.Lock()
	s.teardownPipelineLocked()
	s.mu.Unlock()

	slog.Info("gstcapture: stopped", "frames", s.frameCount.Load())
	return nil
}

// ID implements framepipe.FrameSource.
func (s *Source) ID() string { return s.id }

// HasVideoTrack implements framepipe.FrameSource. It reports true once
// the first sample has been decoded - before that the stream's video
// capability is unconfirmed and the pipeline owner should not start
// the loop.
func (s *Source) HasVideoTrack() bool { return s.sawVideo.Load() }

// Capture implements framepipe.FrameSource: it blocks until the latest
// decoded frame is available and returns it as a single owned buffer.
func (s *Source) Capture(ctx context.Context) ([]*framepipe.FrameBuffer, error) {
	frame := s.mailbox.Receive(ctx)
	if frame == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, framepipe.ErrNoFrame
	}
	return []*framepipe.FrameBuffer{framepipe.NewFrameBuffer(frame)}, nil
}

// Stats returns a snapshot of capture statistics.
func (s *Source) Stats() Stats {
	var last time.Time
	if n := s.lastFrameAt.Load(); n > 0 {
		last = time.Unix(0, n)
	}
	return Stats{
		FrameCount:    s.frameCount.Load(),
		FramesDropped: s.framesDropped.Load(),
		Reconnects:    s.reconnects.Load(),
		BytesRead:     s.bytesRead.Load(),
		LastFrameAt:   last,
		Connected:     s.connected.Load(),
	}
}

// startPipelineLocked builds a fresh pipeline and sets it to PLAYING.
func (s *Source) startPipelineLocked() error {
	elements, err := buildPipeline(s.cfg)
	if err != nil {
		return err
	}

	width, height := s.cfg.Resolution.Dimensions()
	elements.appSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return s.onNewSample(sink, width, height)
		},
	})

	if err := elements.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("gstcapture: set PLAYING: %w", err)
	}
	s.elements = elements
	return nil
}

func (s *Source) teardownPipelineLocked() {
	if s.elements == nil {
		return
	}
	if err := s.elements.pipeline.SetState(gst.StateNull); err != nil {
		slog.Warn("gstcapture: failed to set pipeline NULL", "error", err)
	}
	s.elements = nil
	s.connected.Store(false)
}

// onNewSample copies the decoded sample into the mailbox. A corrupted
// sample is skipped rather than terminating the stream.
func (s *Source) onNewSample(sink *app.Sink, width, height int) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("gstcapture: failed to pull sample, skipping frame")
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstcapture: sample without buffer, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("gstcapture: empty buffer received")
		return gst.FlowOK
	}
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	seq := s.frameCount.Add(1)
	s.bytesRead.Add(uint64(len(frameData)))
	s.sawVideo.Store(true)
	now := time.Now()
	s.lastFrameAt.Store(now.UnixNano())

	frame := &framepipe.Frame{
		Data:      frameData,
		Width:     width,
		Height:    height,
		Timestamp: now,
		Seq:       seq,
		TraceID:   uuid.NewString(),
	}
	if s.mailbox.Set(frame) {
		s.framesDropped.Add(1)
	}
	return gst.FlowOK
}

// superviseLoop monitors the pipeline bus and restarts the pipeline
// with exponential backoff on errors, up to maxReconnects attempts.
func (s *Source) superviseLoop(ctx context.Context) {
	defer s.wg.Done()

	retries := 0
	for {
		err := s.monitorBus(ctx)
		if err == nil {
			return // graceful shutdown
		}

		retries++
		s.reconnects.Add(1)
		if retries > maxReconnects {
			slog.Error("gstcapture: max reconnects exceeded, giving up",
				"attempts", maxReconnects,
				"url", s.cfg.URL,
			)
			return
		}

		delay := backoffDelay(retries)
		slog.Warn("gstcapture: pipeline error, reconnecting",
			"error", err,
			"attempt", retries,
			"delay", delay,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}

		s.mu.Lock()
		s.teardownPipelineLocked()
		rerr := s.startPipelineLocked()
		s.mu.Unlock()
		if rerr != nil {
			slog.Error("gstcapture: pipeline rebuild failed", "error", rerr)
			continue
		}
	}
}

// monitorBus polls bus messages until an error (returned) or ctx is
// cancelled (returns nil).
func (s *Source) monitorBus(ctx context.Context) error {
	s.mu.Lock()
	elements := s.elements
	s.mu.Unlock()
	if elements == nil {
		return fmt.Errorf("gstcapture: pipeline not initialized")
	}
	bus := elements.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// Short timeout keeps shutdown responsive.
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			s.connected.Store(false)
			slog.Info("gstcapture: end of stream", "url", s.cfg.URL)
			return fmt.Errorf("end of stream")

		case gst.MessageError:
			gerr := msg.ParseError()
			category := classifyError(gerr)
			s.connected.Store(false)
			slog.Error("gstcapture: pipeline error",
				"error", gerr.Error(),
				"category", category.String(),
				"url", s.cfg.URL,
			)
			return fmt.Errorf("pipeline error [%s]: %s", category, gerr.Error())

		case gst.MessageStateChanged:
			if msg.Source() == elements.pipeline.GetName() {
				_, newState := msg.ParseStateChanged()
				if newState == gst.StatePlaying {
					s.connected.Store(true)
					slog.Debug("gstcapture: pipeline playing")
				}
			}
		}
	}
}

// backoffDelay computes retryDelay * 2^(attempt-1), capped.
func backoffDelay(attempt int) time.Duration {
	delay := initialRetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
