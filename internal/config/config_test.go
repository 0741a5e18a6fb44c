package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
display: 1
pipeline:
  chunk_width: 256
  chunk_height: 128
  max_memory_mb: 64
  workers: 8
  admission_timeout_s: 5
encoding:
  quality: 90
  effort: 6
  filter_strength: 40
capture:
  display_name: ":1"
  show_pointer: true
mqtt:
  broker: tcp://localhost:1883
  client_id: daemon-1
  topic: screenshots/stats
  interval_s: 15
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Display != 1 {
		t.Errorf("display = %d, want 1", cfg.Display)
	}
	if cfg.Pipeline.ChunkWidth != 256 || cfg.Pipeline.Workers != 8 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Encoding.Quality != 90 || cfg.Encoding.Effort != 6 {
		t.Errorf("encoding = %+v", cfg.Encoding)
	}
	if cfg.Capture.DisplayName != ":1" || !cfg.Capture.ShowPointer {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.MQTT == nil || cfg.MQTT.Broker != "tcp://localhost:1883" || cfg.MQTT.IntervalS != 15 {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
}

func TestLoadDefaultsFillGaps(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  workers: 3\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.ChunkWidth != 512 || cfg.Pipeline.MaxMemoryMB != 256 {
		t.Errorf("defaults not applied: %+v", cfg.Pipeline)
	}
	if cfg.Encoding.Quality != 80 {
		t.Errorf("quality default = %.1f, want 80", cfg.Encoding.Quality)
	}
	if cfg.MQTT != nil {
		t.Error("mqtt should stay nil when absent")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformed(t *testing.T) {
	if _, err := Load(writeConfig(t, "pipeline: [not a map")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative display", func(c *Config) { c.Display = -1 }},
		{"bad quality", func(c *Config) { c.Encoding.Quality = 101 }},
		{"bad effort", func(c *Config) { c.Encoding.Effort = 9 }},
		{"negative memory", func(c *Config) { c.Pipeline.MaxMemoryMB = -1 }},
		{"mqtt without broker", func(c *Config) { c.MQTT = &MQTTConfig{Topic: "t"} }},
		{"mqtt without topic", func(c *Config) { c.MQTT = &MQTTConfig{Broker: "tcp://h:1883"} }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}

	if err := Validate(Default()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
