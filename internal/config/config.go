// Package config loads the YAML configuration for the capture daemon.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete daemon configuration
type Config struct {
	Display  int            `yaml:"display"` // display index to capture
	Pipeline PipelineConfig `yaml:"pipeline"`
	Encoding EncodingConfig `yaml:"encoding"`
	Capture  CaptureConfig  `yaml:"capture"`
	MQTT     *MQTTConfig    `yaml:"mqtt,omitempty"` // nil disables stats publishing
}

// PipelineConfig contains tiling and scheduling settings
type PipelineConfig struct {
	ChunkWidth        int `yaml:"chunk_width"`
	ChunkHeight       int `yaml:"chunk_height"`
	MaxMemoryMB       int `yaml:"max_memory_mb"`
	Workers           int `yaml:"workers"`             // 0 = max(2, num CPUs)
	AdmissionTimeoutS int `yaml:"admission_timeout_s"` // budget wait ceiling (default: 30)
}

// EncodingConfig contains codec tuning
type EncodingConfig struct {
	Quality        float32 `yaml:"quality"`         // 0-100
	Effort         int     `yaml:"effort"`          // 0-6, encoder method level
	FilterStrength int     `yaml:"filter_strength"` // 0-100
	TargetSize     int     `yaml:"target_size"`     // bytes, 0 = honor quality
}

// CaptureConfig contains screen grab settings
type CaptureConfig struct {
	DisplayName string `yaml:"display_name"` // X display, e.g. ":0" (empty = $DISPLAY)
	ShowPointer bool   `yaml:"show_pointer"`
}

// MQTTConfig contains broker settings for the stats emitter
type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	ClientID  string `yaml:"client_id"`
	Topic     string `yaml:"topic"`
	IntervalS int    `yaml:"interval_s"` // publish period in seconds (default: 10)
}

// Default returns a configuration that works without a file.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			ChunkWidth:        512,
			ChunkHeight:       512,
			MaxMemoryMB:       256,
			AdmissionTimeoutS: 30,
		},
		Encoding: EncodingConfig{
			Quality:        80,
			Effort:         4,
			FilterStrength: 60,
		},
	}
}

// Load reads and parses a YAML configuration file. Fields absent from the
// file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline would refuse or misbehave on.
func Validate(cfg *Config) error {
	if cfg.Display < 0 {
		return fmt.Errorf("display index must be >= 0, got %d", cfg.Display)
	}
	p := cfg.Pipeline
	if p.ChunkWidth < 0 || p.ChunkHeight < 0 {
		return fmt.Errorf("chunk dimensions must be >= 0, got %dx%d", p.ChunkWidth, p.ChunkHeight)
	}
	if p.MaxMemoryMB < 0 {
		return fmt.Errorf("max_memory_mb must be >= 0, got %d", p.MaxMemoryMB)
	}
	if p.AdmissionTimeoutS < 0 {
		return fmt.Errorf("admission_timeout_s must be >= 0, got %d", p.AdmissionTimeoutS)
	}
	e := cfg.Encoding
	if e.Quality < 0 || e.Quality > 100 {
		return fmt.Errorf("quality must be in 0-100, got %.1f", e.Quality)
	}
	if e.Effort < 0 || e.Effort > 6 {
		return fmt.Errorf("effort must be in 0-6, got %d", e.Effort)
	}
	if e.FilterStrength < 0 || e.FilterStrength > 100 {
		return fmt.Errorf("filter_strength must be in 0-100, got %d", e.FilterStrength)
	}
	if m := cfg.MQTT; m != nil {
		if m.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is configured")
		}
		if m.Topic == "" {
			return fmt.Errorf("mqtt.topic is required when mqtt is configured")
		}
	}
	return nil
}
