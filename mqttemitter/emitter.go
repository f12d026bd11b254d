// Package mqttemitter publishes pipeline lifecycle and latency events
// to an MQTT broker as compact msgpack payloads.
//
// The emitter is wired into a pipeline as an observer:
//
//	em := mqttemitter.New(cfg)
//	if err := em.Connect(ctx); err != nil { ... }
//	p.AddObserver(em.Observer())
//
// Publish failures are counted and logged, never propagated into the
// pipeline - telemetry must not affect the tick loop.
package mqttemitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/visiona/framepipe"
)

// Event kinds published by the emitter.
const (
	KindStarted     = "started"
	KindStopped     = "stopped"
	KindFailToStart = "fail_to_start"
	KindLatency     = "latency"
)

// HealthEvent is the wire payload for one pipeline event.
type HealthEvent struct {
	Kind       string `msgpack:"kind"`
	InstanceID string `msgpack:"instance_id"`
	LatencyMS  int64  `msgpack:"latency_ms,omitempty"`
	At         int64  `msgpack:"at"` // unix millis
}

// Config contains broker settings.
type Config struct {
	// Broker is the host:port of the MQTT broker (required).
	Broker string
	// TopicPrefix prefixes the publish topics (default "framepipe").
	TopicPrefix string
	// InstanceID identifies this pipeline instance (client ID and payload field).
	InstanceID string
	// QoS is the publish QoS level (default 0).
	QoS byte
}

// Stats contains emitter statistics.
type Stats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

// Emitter publishes pipeline health events over MQTT.
type Emitter struct {
	cfg    Config
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published map[string]uint64
	errors    uint64
}

// New creates an Emitter. Connect must be called before events are
// delivered; events emitted while disconnected count as errors.
func New(cfg Config) *Emitter {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "framepipe"
	}
	return &Emitter{
		cfg:       cfg,
		published: make(map[string]uint64),
	}
}

// Connect establishes the broker connection with auto-reconnect.
func (e *Emitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.cfg.InstanceID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		slog.Info("mqttemitter: connection established",
			"broker", e.cfg.Broker,
			"client_id", e.cfg.InstanceID,
		)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		slog.Warn("mqttemitter: connection lost, will auto-reconnect",
			"error", err,
			"broker", e.cfg.Broker,
		)
	}

	e.client = mqtt.NewClient(opts)

	token := e.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqttemitter: connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttemitter: connection failed: %w", err)
	}
	e.setConnected(true)
	return nil
}

// Disconnect closes the broker connection. Idempotent.
func (e *Emitter) Disconnect() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		slog.Info("mqttemitter: disconnected")
	}
	e.setConnected(false)
}

// Observer returns an observer whose callbacks publish the
// corresponding health events. Register it with Pipeline.AddObserver.
func (e *Emitter) Observer() *framepipe.Observer {
	return &framepipe.Observer{
		ProcessingDidStart: func() {
			e.emit(HealthEvent{Kind: KindStarted})
		},
		ProcessingDidStop: func() {
			e.emit(HealthEvent{Kind: KindStopped})
		},
		ProcessingDidFailToStart: func() {
			e.emit(HealthEvent{Kind: KindFailToStart})
		},
		ProcessingLatencyTooHigh: func(latency time.Duration) {
			e.emit(HealthEvent{Kind: KindLatency, LatencyMS: latency.Milliseconds()})
		},
	}
}

// Stats returns emitter statistics.
func (e *Emitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{
		Connected: e.connected,
		Published: published,
		Errors:    e.errors,
	}
}

// topicFor builds the publish topic for an event kind:
// <prefix>/pipeline/<kind>.
func (e *Emitter) topicFor(kind string) string {
	return fmt.Sprintf("%s/pipeline/%s", e.cfg.TopicPrefix, kind)
}

// emit encodes and publishes one event, best-effort.
func (e *Emitter) emit(ev HealthEvent) {
	ev.InstanceID = e.cfg.InstanceID
	ev.At = time.Now().UnixMilli()

	if !e.isConnected() {
		e.countError()
		slog.Debug("mqttemitter: dropping event, not connected", "kind", ev.Kind)
		return
	}

	payload, err := msgpack.Marshal(&ev)
	if err != nil {
		e.countError()
		slog.Error("mqttemitter: failed to encode event", "kind", ev.Kind, "error", err)
		return
	}

	topic := e.topicFor(ev.Kind)
	token := e.client.Publish(topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.countError()
		slog.Warn("mqttemitter: publish timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		e.countError()
		slog.Warn("mqttemitter: publish failed", "topic", topic, "error", err)
		return
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	slog.Debug("mqttemitter: event published",
		"topic", topic,
		"size", len(payload),
	)
}

func (e *Emitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *Emitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *Emitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
