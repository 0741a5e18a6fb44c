package emitter

import (
	"testing"
	"time"

	"github.com/KCuppens/screenshot-webp/internal/config"
	"github.com/KCuppens/screenshot-webp/internal/pipeline"
)

type fixedStats struct{ st pipeline.Stats }

func (f fixedStats) Stats() pipeline.Stats { return f.st }

func TestPublishRequiresConnection(t *testing.T) {
	e := New(config.MQTTConfig{Broker: "tcp://localhost:1883", Topic: "t"}, fixedStats{}, nil)

	if err := e.publishOnce(); err == nil {
		t.Fatal("expected error while disconnected")
	}
	st := e.Stats()
	if st.Connected || st.Errors != 1 || st.Published != 0 {
		t.Fatalf("stats = %+v, want disconnected with 1 error", st)
	}
}

func TestInterval(t *testing.T) {
	e := New(config.MQTTConfig{IntervalS: 15}, fixedStats{}, nil)
	if got := e.interval(); got != 15*time.Second {
		t.Fatalf("interval = %v, want 15s", got)
	}

	e = New(config.MQTTConfig{}, fixedStats{}, nil)
	if got := e.interval(); got != 10*time.Second {
		t.Fatalf("default interval = %v, want 10s", got)
	}
}

func TestDisconnectBeforeConnect(t *testing.T) {
	e := New(config.MQTTConfig{}, fixedStats{}, nil)
	if err := e.Disconnect(); err != nil {
		t.Fatalf("Disconnect on never-connected emitter: %v", err)
	}
}
