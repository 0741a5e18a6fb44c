package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/KCuppens/screenshot-webp/internal/zerocopy"
)

// maxProbedScreens bounds display enumeration; X servers with more screens
// than this are not a realistic target.
const maxProbedScreens = 8

// GstOptions configures the GStreamer capture backend.
type GstOptions struct {
	// Display is the X display to capture, e.g. ":0". Empty uses the
	// DISPLAY environment default.
	Display string

	// ShowPointer includes the mouse cursor in captures.
	ShowPointer bool
}

// GstBackend captures displays through a GStreamer ximagesrc pipeline:
//
//	ximagesrc → videoconvert → capsfilter(BGRA) → appsink
//
// One pipeline is built per capture and torn down when the returned frame's
// zero-copy buffer is released, so the encode stage reads straight out of the
// mapped GStreamer buffer without an intermediate frame copy.
type GstBackend struct {
	opts GstOptions
}

// NewGstBackend creates the backend and fails fast if GStreamer or the
// ximagesrc element is unavailable.
func NewGstBackend(opts GstOptions) (*GstBackend, error) {
	gst.Init(nil)

	probe, err := gst.NewElement("ximagesrc")
	if err != nil {
		return nil, fmt.Errorf("capture: ximagesrc not available: %w", err)
	}
	probe.SetState(gst.StateNull)

	slog.Info("capture: gstreamer backend created",
		"display", opts.Display,
		"show_pointer", opts.ShowPointer,
	)
	return &GstBackend{opts: opts}, nil
}

// Name implements Backend.
func (b *GstBackend) Name() string { return "gstreamer" }

// Supported implements Backend.
func (b *GstBackend) Supported() bool {
	e, err := gst.NewElement("ximagesrc")
	if err != nil {
		return false
	}
	e.SetState(gst.StateNull)
	return true
}

// screenName returns the X display string for a screen index (":0.1").
func (b *GstBackend) screenName(screen int) string {
	d := b.opts.Display
	if d == "" {
		d = ":0"
	}
	if screen == 0 {
		return d
	}
	return fmt.Sprintf("%s.%d", d, screen)
}

// Displays probes X screens in order until one fails to negotiate.
func (b *GstBackend) Displays() ([]Display, error) {
	var displays []Display
	for screen := 0; screen < maxProbedScreens; screen++ {
		w, h, err := b.probeScreen(screen)
		if err != nil {
			if screen == 0 {
				return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
			}
			break
		}
		displays = append(displays, Display{
			Index:       screen,
			Width:       w,
			Height:      h,
			ScaleFactor: 1.0,
			Primary:     screen == 0,
			Name:        b.screenName(screen),
		})
	}
	return displays, nil
}

// probeScreen pauses a capture pipeline long enough to read the negotiated
// frame dimensions from the appsink pad.
func (b *GstBackend) probeScreen(screen int) (width, height int, err error) {
	pipeline, sink, err := b.buildPipeline(screen)
	if err != nil {
		return 0, 0, err
	}
	defer pipeline.SetState(gst.StateNull)

	if err := pipeline.SetState(gst.StatePaused); err != nil {
		return 0, 0, fmt.Errorf("pause pipeline for screen %d: %w", screen, err)
	}
	if err := waitForState(pipeline, gst.StatePaused, 5*time.Second); err != nil {
		return 0, 0, err
	}

	pad := sink.Element.GetStaticPad("sink")
	if pad == nil {
		return 0, 0, fmt.Errorf("appsink has no sink pad")
	}
	caps := pad.GetCurrentCaps()
	if caps == nil {
		return 0, 0, fmt.Errorf("no negotiated caps on screen %d", screen)
	}
	st := caps.GetStructureAt(0)
	wv, err := st.GetValue("width")
	if err != nil {
		return 0, 0, fmt.Errorf("caps missing width: %w", err)
	}
	hv, err := st.GetValue("height")
	if err != nil {
		return 0, 0, fmt.Errorf("caps missing height: %w", err)
	}
	w, _ := wv.(int)
	h, _ := hv.(int)
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid negotiated dimensions %dx%d", w, h)
	}
	return w, h, nil
}

// Capture implements Backend. The returned frame is zero-copy: its pixel
// memory is the mapped GStreamer buffer, and releasing the frame unmaps the
// buffer and tears the pipeline down.
func (b *GstBackend) Capture(ctx context.Context, displayIndex int) (*Frame, error) {
	if displayIndex < 0 || displayIndex >= maxProbedScreens {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDisplay, displayIndex)
	}

	pipeline, sink, err := b.buildPipeline(displayIndex)
	if err != nil {
		return nil, err
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("capture: start pipeline: %w", err)
	}

	samples := make(chan *gst.Sample, 1)
	go func() {
		samples <- sink.PullSample()
	}()

	sample, err := awaitSample(ctx, samples, func(s *gst.Sample) { s.Unref() })
	if err != nil {
		// Going to NULL unblocks the pull goroutine, so the drain inside
		// awaitSample terminates too.
		pipeline.SetState(gst.StateNull)
		return nil, err
	}
	if sample == nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("capture: no sample from screen %d (pipeline stalled or EOS)", displayIndex)
	}
	return b.frameFromSample(sample, pipeline, displayIndex)
}

// awaitSample returns the first sample delivered on ch, or the context error
// if cancellation wins the race. On cancellation the channel is drained in
// the background: a sample pulled after the caller gave up is handed to
// discard instead of sitting in the channel until finalizers run.
func awaitSample(ctx context.Context, ch <-chan *gst.Sample, discard func(*gst.Sample)) (*gst.Sample, error) {
	select {
	case s := <-ch:
		return s, nil
	case <-ctx.Done():
		go func() {
			if s := <-ch; s != nil && discard != nil {
				discard(s)
			}
		}()
		return nil, ctx.Err()
	}
}

func (b *GstBackend) frameFromSample(sample *gst.Sample, pipeline *gst.Pipeline, screen int) (*Frame, error) {
	buffer := sample.GetBuffer()
	if buffer == nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("capture: sample has no buffer")
	}

	caps := sample.GetCaps()
	if caps == nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("capture: sample has no caps")
	}
	st := caps.GetStructureAt(0)
	wv, werr := st.GetValue("width")
	hv, herr := st.GetValue("height")
	if werr != nil || herr != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("capture: caps missing dimensions")
	}
	width, _ := wv.(int)
	height, _ := hv.(int)

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) < width*height*4 {
		buffer.Unmap()
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("capture: short buffer: %d bytes for %dx%d BGRA",
			len(data), width, height)
	}

	// The frame owns the mapped memory until released; teardown happens in
	// the release callback so encode can read the capture surface directly.
	buf := zerocopy.WrapMapped(data, func() {
		buffer.Unmap()
		pipeline.SetState(gst.StateNull)
	})

	slog.Debug("capture: frame grabbed",
		"screen", screen,
		"resolution", fmt.Sprintf("%dx%d", width, height),
		"bytes", len(data),
	)

	return &Frame{
		Buffer:        buf,
		Width:         width,
		Height:        height,
		Stride:        width * 4,
		BytesPerPixel: 4,
		Format:        FormatBGRA,
	}, nil
}

// buildPipeline assembles ximagesrc → videoconvert → capsfilter → appsink.
func (b *GstBackend) buildPipeline(screen int) (*gst.Pipeline, *app.Sink, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create pipeline: %w", err)
	}

	src, err := gst.NewElement("ximagesrc")
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create ximagesrc: %w", err)
	}
	src.SetProperty("display-name", b.screenName(screen))
	src.SetProperty("use-damage", false)
	src.SetProperty("show-pointer", b.opts.ShowPointer)
	// One frame is enough; EOS right after.
	src.SetProperty("num-buffers", 1)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create videoconvert: %w", err)
	}
	converter.SetProperty("n-threads", 0) // auto-detect cores

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString("video/x-raw,format=BGRA"))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, nil, fmt.Errorf("capture: create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)

	if err := pipeline.AddMany(src, converter, capsfilter, appsink.Element); err != nil {
		return nil, nil, fmt.Errorf("capture: add elements: %w", err)
	}
	if err := gst.ElementLinkMany(src, converter, capsfilter, appsink.Element); err != nil {
		return nil, nil, fmt.Errorf("capture: link elements: %w", err)
	}

	return pipeline, appsink, nil
}

// waitForState polls the pipeline bus until the target state is reached.
func waitForState(pipeline *gst.Pipeline, target gst.State, timeout time.Duration) error {
	bus := pipeline.GetPipelineBus()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			return fmt.Errorf("pipeline error: %s", gerr.Error())
		case gst.MessageStateChanged:
			if msg.Source() == pipeline.GetName() {
				_, newState := msg.ParseStateChanged()
				if newState == target {
					return nil
				}
			}
		}
	}
	return fmt.Errorf("timeout waiting for pipeline state %s", target)
}
