package framepipe

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk configuration consumed by deployments
// (cmd/framepipe-demo). It maps to a runtime Config plus collaborator
// settings that the pipeline core does not know about.
type FileConfig struct {
	Pipeline PipelineFileConfig `yaml:"pipeline"`
	Source   SourceFileConfig   `yaml:"source"`
	MQTT     MQTTFileConfig     `yaml:"mqtt"`
}

// PipelineFileConfig contains tick loop tuning.
type PipelineFileConfig struct {
	// TickIntervalMS is the target delay between ticks in milliseconds.
	TickIntervalMS int `yaml:"tick_interval_ms"`
	// LatencyFactor scales the tick interval into the latency threshold.
	LatencyFactor float64 `yaml:"latency_factor"`
}

// SourceFileConfig contains input source settings.
type SourceFileConfig struct {
	// URL is the RTSP stream URL.
	URL string `yaml:"url"`
	// Resolution is the target resolution: 512p, 720p or 1080p.
	Resolution string `yaml:"resolution"`
	// FPS is the target capture rate.
	FPS float64 `yaml:"fps"`
}

// MQTTFileConfig contains health telemetry settings. An empty Broker
// disables MQTT emission.
type MQTTFileConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	InstanceID  string `yaml:"instance_id"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate checks field ranges. Unset optional fields are allowed;
// contradictory ones are not.
func (c *FileConfig) Validate() error {
	if c.Pipeline.TickIntervalMS < 0 {
		return fmt.Errorf("pipeline.tick_interval_ms must be >= 0, got %d", c.Pipeline.TickIntervalMS)
	}
	if c.Pipeline.LatencyFactor < 0 {
		return fmt.Errorf("pipeline.latency_factor must be >= 0, got %g", c.Pipeline.LatencyFactor)
	}
	switch c.Source.Resolution {
	case "", "512p", "720p", "1080p":
	default:
		return fmt.Errorf("source.resolution must be one of 512p, 720p, 1080p, got %q", c.Source.Resolution)
	}
	if c.Source.FPS < 0 || c.Source.FPS > 60 {
		return fmt.Errorf("source.fps must be within [0, 60], got %g", c.Source.FPS)
	}
	if c.MQTT.Broker != "" && c.MQTT.InstanceID == "" {
		return fmt.Errorf("mqtt.instance_id is required when mqtt.broker is set")
	}
	return nil
}

// PipelineConfig converts the file settings into a runtime Config.
// Unset fields stay zero and fall back to the package defaults.
func (c *FileConfig) PipelineConfig() Config {
	return Config{
		TickInterval:  time.Duration(c.Pipeline.TickIntervalMS) * time.Millisecond,
		LatencyFactor: c.Pipeline.LatencyFactor,
	}
}
