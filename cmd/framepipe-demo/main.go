// Command framepipe-demo runs a capture → passthrough → sink pipeline
// against an RTSP stream, with optional MQTT health telemetry.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visiona/framepipe"
	"github.com/visiona/framepipe/gstcapture"
	"github.com/visiona/framepipe/mqttemitter"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional, flags override)")
		url        = flag.String("url", "", "RTSP stream URL")
		resolution = flag.String("resolution", "720p", "Stream resolution (512p, 720p, 1080p)")
		fps        = flag.Float64("fps", 1.0, "Target FPS")
		broker     = flag.String("mqtt-broker", "", "MQTT broker host:port (optional)")
		instanceID = flag.String("instance-id", "framepipe-demo", "Instance ID for telemetry")
		statsEvery = flag.Duration("stats-interval", 5*time.Second, "Statistics reporting interval")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	fileCfg := &framepipe.FileConfig{}
	if *configPath != "" {
		loaded, err := framepipe.LoadConfig(*configPath)
		if err != nil {
			logger.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		fileCfg = loaded
	}
	if *url != "" {
		fileCfg.Source.URL = *url
	}
	if fileCfg.Source.URL == "" {
		fmt.Fprintln(os.Stderr, "Error: --url or source.url in config is required")
		flag.Usage()
		os.Exit(1)
	}
	if fileCfg.Source.Resolution == "" {
		fileCfg.Source.Resolution = *resolution
	}
	if fileCfg.Source.FPS == 0 {
		fileCfg.Source.FPS = *fps
	}
	if *broker != "" {
		fileCfg.MQTT.Broker = *broker
		fileCfg.MQTT.InstanceID = *instanceID
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received, stopping gracefully")
		cancel()
	}()

	if err := run(ctx, fileCfg, *statsEvery, logger); err != nil && err != context.Canceled {
		logger.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
	logger.Info("pipeline stopped gracefully")
}

func run(ctx context.Context, cfg *framepipe.FileConfig, statsEvery time.Duration, logger *slog.Logger) error {
	res, ok := gstcapture.ParseResolution(cfg.Source.Resolution)
	if !ok {
		return fmt.Errorf("invalid resolution %q", cfg.Source.Resolution)
	}

	source, err := gstcapture.New(gstcapture.Config{
		URL:        cfg.Source.URL,
		Resolution: res,
		TargetFPS:  cfg.Source.FPS,
		StreamID:   "demo",
	})
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	if err := source.Start(ctx); err != nil {
		return fmt.Errorf("start source: %w", err)
	}
	defer source.Stop()

	p := framepipe.New(cfg.PipelineConfig())
	defer p.Destroy()

	p.SetProcessors([]framepipe.Processor{framepipe.Passthrough()})

	logObserver := &framepipe.Observer{
		ProcessingDidStart: func() { logger.Info("processing started") },
		ProcessingDidStop:  func() { logger.Info("processing stopped") },
		ProcessingDidFailToStart: func() {
			logger.Warn("processing failed to start")
		},
		ProcessingLatencyTooHigh: func(latency time.Duration) {
			logger.Warn("processing latency too high", "latency", latency)
		},
	}
	p.AddObserver(logObserver)

	if cfg.MQTT.Broker != "" {
		emitter := mqttemitter.New(mqttemitter.Config{
			Broker:      cfg.MQTT.Broker,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			InstanceID:  cfg.MQTT.InstanceID,
		})
		if err := emitter.Connect(ctx); err != nil {
			// Telemetry is optional: run without it rather than abort.
			logger.Warn("mqtt connect failed, continuing without telemetry", "error", err)
		} else {
			defer emitter.Disconnect()
			p.AddObserver(emitter.Observer())
		}
	}

	// Wait for the first decoded sample so the source reports a usable
	// video track before the pipeline inspects it.
	waitForVideo(ctx, source, logger)

	if err := p.SetInputSource(ctx, source); err != nil {
		return fmt.Errorf("set input source: %w", err)
	}

	go reportStats(ctx, p, source, statsEvery, logger)

	<-ctx.Done()
	p.Stop()
	return ctx.Err()
}

// waitForVideo polls until the source decoded its first frame or ctx
// is cancelled.
func waitForVideo(ctx context.Context, source *gstcapture.Source, logger *slog.Logger) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for !source.HasVideoTrack() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
	logger.Info("video track detected")
}

func reportStats(ctx context.Context, p *framepipe.Pipeline, source *gstcapture.Source, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ps := p.Stats()
			cs := source.Stats()
			logger.Info("stats",
				"state", ps.State.String(),
				"ticks", ps.TicksTotal,
				"failed", ps.TicksFailed,
				"mean_tick", ps.MeanTickDuration,
				"latency_warnings", ps.LatencyWarnings,
				"captured", cs.FrameCount,
				"dropped", cs.FramesDropped,
				"connected", cs.Connected,
			)
		}
	}
}
