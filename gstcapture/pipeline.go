package gstcapture

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// pipelineElements holds references to GStreamer elements needed for
// cleanup and state inspection.
type pipelineElements struct {
	pipeline   *gst.Pipeline
	appSink    *app.Sink
	rtspSrc    *gst.Element
	capsFilter *gst.Element
}

// buildPipeline creates and links the capture pipeline:
//
//	rtspsrc → rtph264depay → avdec_h264 → videoconvert → videoscale →
//	videorate → capsfilter → appsink
//
// The pipeline is configured but NOT started (state remains NULL);
// the caller sets it to PLAYING.
func buildPipeline(cfg Config) (*pipelineElements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	rtspsrc, err := gst.NewElement("rtspsrc")
	if err != nil {
		return nil, fmt.Errorf("create rtspsrc: %w", err)
	}
	rtspsrc.SetProperty("location", cfg.URL)
	rtspsrc.SetProperty("protocols", 4) // TCP only

	// Low FPS benefits from a minimal jitter buffer.
	latency := 200
	if cfg.TargetFPS <= 2.0 {
		latency = 50
	}
	rtspsrc.SetProperty("latency", latency)
	rtspsrc.SetProperty("tcp-timeout", uint64(10000000)) // 10s

	depay, err := gst.NewElement("rtph264depay")
	if err != nil {
		return nil, fmt.Errorf("create rtph264depay: %w", err)
	}
	depay.SetProperty("request-keyframe", true)

	decoder, err := gst.NewElement("avdec_h264")
	if err != nil {
		return nil, fmt.Errorf("create avdec_h264: %w", err)
	}
	decoder.SetProperty("max-threads", 0) // auto-detect cores
	decoder.SetProperty("output-corrupt", false)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("create videoconvert: %w", err)
	}
	converter.SetProperty("n-threads", 0)

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("create videoscale: %w", err)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("create videorate: %w", err)
	}
	videorate.SetProperty("drop-only", true)
	videorate.SetProperty("skip-to-first", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsString(cfg)))

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("create appsink: %w", err)
	}
	sink.SetProperty("emit-signals", true)
	sink.SetProperty("max-buffers", uint(1))
	sink.SetProperty("drop", true)

	elements := []*gst.Element{
		rtspsrc, depay, decoder, converter, scaler, videorate, capsfilter, sink.Element,
	}
	if err := pipeline.AddMany(elements...); err != nil {
		return nil, fmt.Errorf("add elements: %w", err)
	}
	// rtspsrc has dynamic pads, linked via pad-added; the rest is static.
	if err := gst.ElementLinkMany(depay, decoder, converter, scaler, videorate, capsfilter, sink.Element); err != nil {
		return nil, fmt.Errorf("link elements: %w", err)
	}

	rtspsrc.Connect("pad-added", func(src *gst.Element, pad *gst.Pad) {
		sinkPad := depay.GetStaticPad("sink")
		if sinkPad == nil {
			slog.Error("gstcapture: failed to get depay sink pad")
			return
		}
		if ret := pad.Link(sinkPad); ret != gst.PadLinkOK {
			slog.Error("gstcapture: failed to link rtspsrc pad",
				"pad", pad.GetName(),
				"ret", ret,
			)
			return
		}
		slog.Debug("gstcapture: rtspsrc pad linked", "pad", pad.GetName())
	})

	return &pipelineElements{
		pipeline:   pipeline,
		appSink:    sink,
		rtspSrc:    rtspsrc,
		capsFilter: capsfilter,
	}, nil
}

// capsString builds the RGB caps with target resolution and framerate.
func capsString(cfg Config) string {
	width, height := cfg.Resolution.Dimensions()
	num, den := fpsFraction(cfg.TargetFPS)
	return fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/%d",
		width, height, num, den)
}

// fpsFraction converts a float FPS into a GStreamer framerate fraction.
// Sub-1.0 rates map to 1/N (e.g. 0.5 → 1/2); others to N/1.
func fpsFraction(fps float64) (num, den int) {
	if fps <= 0 {
		return 1, 1
	}
	if fps < 1.0 {
		return 1, int(1.0/fps + 0.5)
	}
	return int(fps + 0.5), 1
}
