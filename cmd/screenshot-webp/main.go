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

	screenshotwebp "github.com/KCuppens/screenshot-webp"
	"github.com/KCuppens/screenshot-webp/capture"
	"github.com/KCuppens/screenshot-webp/codec"
	"github.com/KCuppens/screenshot-webp/internal/config"
	"github.com/KCuppens/screenshot-webp/internal/emitter"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	display := flag.Int("display", -1, "Display index to capture (overrides config)")
	output := flag.String("o", "screenshot.webp", "Output file path")
	list := flag.Bool("list", false, "List displays and exit")
	mock := flag.Bool("mock", false, "Use the synthetic mock backend")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup structured logger
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load configuration", "error", err, "path", *configPath)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *display >= 0 {
		cfg.Display = *display
	}

	// Context cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := selectBackend(*mock, cfg)
	if err != nil {
		slog.Error("failed to initialize capture backend", "error", err)
		os.Exit(1)
	}

	if *list {
		if err := listDisplays(backend); err != nil {
			slog.Error("failed to enumerate displays", "error", err)
			os.Exit(1)
		}
		return
	}

	p, err := screenshotwebp.New(screenshotwebp.Options{
		Encoder:          codec.Placeholder{},
		Backend:          backend,
		Workers:          cfg.Pipeline.Workers,
		ChunkWidth:       cfg.Pipeline.ChunkWidth,
		ChunkHeight:      cfg.Pipeline.ChunkHeight,
		MaxMemoryMB:      cfg.Pipeline.MaxMemoryMB,
		Effort:           cfg.Encoding.Effort,
		AdmissionTimeout: time.Duration(cfg.Pipeline.AdmissionTimeoutS) * time.Second,
	}, logger)
	if err != nil {
		slog.Error("failed to create pipeline", "error", err)
		os.Exit(1)
	}
	if err := p.Start(ctx); err != nil {
		slog.Error("failed to start pipeline", "error", err)
		os.Exit(1)
	}
	defer p.Stop()

	info := p.Info()
	slog.Info("pipeline ready",
		"backend", info.Backend,
		"workers", info.Workers,
		"chunk", fmt.Sprintf("%dx%d", info.ChunkWidth, info.ChunkHeight),
		"memory_budget_mb", info.MaxMemoryMB,
		"conversion", info.Conversion,
	)

	var em *emitter.MQTTEmitter
	if cfg.MQTT != nil {
		em = emitter.New(*cfg.MQTT, p, logger)
		if err := em.Connect(ctx); err != nil {
			slog.Error("failed to connect stats emitter", "error", err)
			os.Exit(1)
		}
		defer em.Disconnect()
	}

	params := codec.Params{
		Quality:        cfg.Encoding.Quality,
		Method:         cfg.Encoding.Effort,
		TargetSize:     cfg.Encoding.TargetSize,
		FilterStrength: cfg.Encoding.FilterStrength,
	}

	res := <-p.CaptureAndEncode(ctx, cfg.Display, params, func(pct int, stage string) bool {
		slog.Debug("encode progress", "percent", pct, "stage", stage)
		return ctx.Err() == nil
	})
	if res.Err != nil {
		slog.Error("capture and encode failed", "error", res.Err, "display", cfg.Display)
		os.Exit(1)
	}

	if err := os.WriteFile(*output, res.Data, 0o644); err != nil {
		slog.Error("failed to write output file", "error", err, "path", *output)
		os.Exit(1)
	}

	st := p.Stats()
	slog.Info("screenshot written",
		"path", *output,
		"bytes", len(res.Data),
		"chunks", st.ChunksEncoded,
		"peak_in_flight_bytes", st.PeakInFlightBytes,
		"compression_ratio", fmt.Sprintf("%.3f", st.AvgCompressionRatio),
	)
}

func selectBackend(mock bool, cfg *config.Config) (capture.Backend, error) {
	if mock {
		return capture.NewMockBackend([2]int{1920, 1080}), nil
	}
	return capture.NewGstBackend(capture.GstOptions{
		Display:     cfg.Capture.DisplayName,
		ShowPointer: cfg.Capture.ShowPointer,
	})
}

func listDisplays(backend capture.Backend) error {
	displays, err := backend.Displays()
	if err != nil {
		return err
	}
	for _, d := range displays {
		primary := ""
		if d.Primary {
			primary = " (primary)"
		}
		fmt.Printf("%d: %s %dx%d%s\n", d.Index, d.Name, d.Width, d.Height, primary)
	}
	return nil
}
