// Package emitter publishes pipeline statistics to an MQTT broker.
package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/KCuppens/screenshot-webp/internal/config"
	"github.com/KCuppens/screenshot-webp/internal/pipeline"
)

// statsSource is what the emitter samples; satisfied by *pipeline.Pipeline.
type statsSource interface {
	Stats() pipeline.Stats
}

// statsMessage is the wire shape of one published sample.
type statsMessage struct {
	ClientID            string    `msgpack:"client_id"`
	Timestamp           time.Time `msgpack:"timestamp"`
	FramesEncoded       uint64    `msgpack:"frames_encoded"`
	ChunksEncoded       uint64    `msgpack:"chunks_encoded"`
	PixelsProcessed     uint64    `msgpack:"pixels_processed"`
	BytesProduced       uint64    `msgpack:"bytes_produced"`
	InFlightBytes       int64     `msgpack:"in_flight_bytes"`
	PeakInFlightBytes   int64     `msgpack:"peak_in_flight_bytes"`
	AvgCompressionRatio float64   `msgpack:"avg_compression_ratio"`
}

// MQTTEmitter periodically samples pipeline stats and publishes them as
// msgpack payloads.
type MQTTEmitter struct {
	cfg    config.MQTTConfig
	source statsSource
	log    *slog.Logger
	Client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an emitter for the given broker configuration. An IntervalS
// of zero publishes every 10 seconds.
func New(cfg config.MQTTConfig, source statsSource, log *slog.Logger) *MQTTEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &MQTTEmitter{
		cfg:    cfg,
		source: source,
		log:    log.With("component", "emitter"),
	}
}

// Connect establishes the broker connection and starts the publish loop.
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(e.cfg.Broker)
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.mu.Lock()
		e.connected = true
		e.mu.Unlock()
		e.log.Info("mqtt connection established",
			"broker", e.cfg.Broker, "client_id", e.cfg.ClientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.mu.Lock()
		e.connected = false
		e.mu.Unlock()
		e.log.Warn("mqtt connection lost, will auto-reconnect",
			"error", err, "broker", e.cfg.Broker)
	}

	e.Client = mqtt.NewClient(opts)

	token := e.Client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("emitter: mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("emitter: mqtt connection failed: %w", err)
	}

	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.wg.Add(1)
	go e.publishLoop(loopCtx)

	return nil
}

func (e *MQTTEmitter) interval() time.Duration {
	if e.cfg.IntervalS > 0 {
		return time.Duration(e.cfg.IntervalS) * time.Second
	}
	return 10 * time.Second
}

func (e *MQTTEmitter) publishLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.publishOnce(); err != nil {
				e.log.Debug("stats publish failed", "error", err)
			}
		}
	}
}

func (e *MQTTEmitter) publishOnce() error {
	if !e.isConnected() {
		e.recordError()
		return fmt.Errorf("emitter: mqtt not connected")
	}

	st := e.source.Stats()
	payload, err := msgpack.Marshal(statsMessage{
		ClientID:            e.cfg.ClientID,
		Timestamp:           time.Now().UTC(),
		FramesEncoded:       st.FramesEncoded,
		ChunksEncoded:       st.ChunksEncoded,
		PixelsProcessed:     st.PixelsProcessed,
		BytesProduced:       st.BytesProduced,
		InFlightBytes:       st.InFlightBytes,
		PeakInFlightBytes:   st.PeakInFlightBytes,
		AvgCompressionRatio: st.AvgCompressionRatio,
	})
	if err != nil {
		e.recordError()
		return fmt.Errorf("emitter: marshal stats: %w", err)
	}

	token := e.Client.Publish(e.cfg.Topic, 0, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.recordError()
		return fmt.Errorf("emitter: publish timeout")
	}
	if err := token.Error(); err != nil {
		e.recordError()
		return fmt.Errorf("emitter: publish failed: %w", err)
	}

	e.mu.Lock()
	e.published++
	e.mu.Unlock()

	e.log.Debug("stats published", "topic", e.cfg.Topic, "size", len(payload))
	return nil
}

// Disconnect stops the publish loop and closes the broker connection.
func (e *MQTTEmitter) Disconnect() error {
	if e.cancel != nil {
		e.cancel()
		e.wg.Wait()
	}
	if e.Client != nil && e.Client.IsConnected() {
		e.Client.Disconnect(250)
		e.log.Info("mqtt disconnected")
	}

	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()
	return nil
}

// Stats contains emitter counters.
type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// Stats returns a snapshot of emitter counters.
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{Connected: e.connected, Published: e.published, Errors: e.errors}
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) recordError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
