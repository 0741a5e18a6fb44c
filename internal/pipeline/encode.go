package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KCuppens/screenshot-webp/capture"
	"github.com/KCuppens/screenshot-webp/codec"
	"github.com/KCuppens/screenshot-webp/internal/container"
	"github.com/KCuppens/screenshot-webp/internal/tile"
)

// progressReporter enforces the progress contract: percentages never go
// backwards within one operation, a nil callback means "never cancel", and
// once the callback declines, every later report declines too.
type progressReporter struct {
	mu        sync.Mutex
	fn        ProgressFunc
	last      int
	cancelled bool
}

func newReporter(fn ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn}
}

func (r *progressReporter) report(pct int, stage string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancelled {
		return false
	}
	if pct < r.last {
		pct = r.last
	}
	r.last = pct
	if r.fn != nil && !r.fn(pct, stage) {
		r.cancelled = true
		return false
	}
	return true
}

// snapshot of the tunables one encode runs with. Configure calls during the
// encode do not affect it.
type encodeConfig struct {
	chunkWidth       int
	chunkHeight      int
	budget           int64
	effort           int
	admissionTimeout time.Duration
}

func (p *Pipeline) config() encodeConfig {
	p.cfgMu.RLock()
	defer p.cfgMu.RUnlock()
	return encodeConfig{
		chunkWidth:       p.chunkWidth,
		chunkHeight:      p.chunkHeight,
		budget:           p.memoryBudget,
		effort:           p.effort,
		admissionTimeout: p.admissionTimeout,
	}
}

// EncodeFrame compresses one frame synchronously. Frames under the
// single-pass threshold are encoded whole; frames at the threshold or larger
// are tiled, encoded chunk-parallel, and combined into an extended-canvas
// container.
//
// The caller keeps ownership of the frame and releases it afterwards.
func (p *Pipeline) EncodeFrame(ctx context.Context, f *capture.Frame, params codec.Params, progress ProgressFunc) ([]byte, error) {
	return p.encodeFrame(ctx, f, params, newReporter(progress))
}

func (p *Pipeline) encodeFrame(ctx context.Context, f *capture.Frame, params codec.Params, rep *progressReporter) ([]byte, error) {
	if !p.running() {
		return nil, ErrNotStarted
	}
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("pipeline: invalid frame")
	}

	cfg := p.config()
	if params.Method == 0 && cfg.effort > 0 {
		params.Method = cfg.effort
	}

	if f.Width*f.Height < singlePassThreshold {
		return p.encodeSinglePass(f, params, rep)
	}
	return p.encodeTiled(ctx, f, params, cfg, rep)
}

// encodeSinglePass compresses the whole frame in one encoder call, with no
// container wrapper. The frame's pixels are never mutated; any conversion
// goes through pooled scratch.
func (p *Pipeline) encodeSinglePass(f *capture.Frame, params codec.Params, rep *progressReporter) ([]byte, error) {
	if !rep.report(20, "encoding") {
		return nil, ErrCancelled
	}

	out, err := p.encodeRect(f.Bytes(), f.Width, f.Height, f.Stride,
		f.Format, false, f.HasAlpha, params)
	if err != nil {
		return nil, fmt.Errorf("pipeline: single-pass encode: %w", err)
	}

	rep.report(100, "done")
	p.recordFrame(f.Height*f.Stride, len(out), f.Width, f.Height, 1)
	return out, nil
}

// encodeTiled runs the chunked path: split, submit under the memory budget,
// collect in order, combine.
//
// Failure discipline: every submitted task is always collected, even after
// an error or cancellation, so in-flight accounting and buffer ownership
// stay consistent. Chunks never submitted are closed immediately.
func (p *Pipeline) encodeTiled(ctx context.Context, f *capture.Frame, params codec.Params, cfg encodeConfig, rep *progressReporter) ([]byte, error) {
	if !rep.report(15, "tiling") {
		return nil, ErrCancelled
	}

	chunks, err := tile.Split(f, cfg.chunkWidth, cfg.chunkHeight, p.pool)
	if err != nil {
		return nil, err
	}
	if !rep.report(20, "chunked") {
		tile.ReleaseAll(chunks, p.pool)
		return nil, ErrCancelled
	}

	trace := uuid.NewString()
	p.log.Debug("tiled frame",
		"trace", trace,
		"width", f.Width, "height", f.Height,
		"chunks", len(chunks),
		"chunk_width", cfg.chunkWidth, "chunk_height", cfg.chunkHeight)

	tasks := make([]*encodingTask, len(chunks))
	var submitErr error
	cancelled := false

	for i, c := range chunks {
		if submitErr != nil || cancelled {
			c.Close(p.pool)
			continue
		}

		cost := int64(c.ByteSize())
		if err := p.admit(ctx, cost, cfg.budget, cfg.admissionTimeout); err != nil {
			submitErr = err
			c.Close(p.pool)
			continue
		}

		t := &encodingTask{
			chunk:    c,
			format:   f.Format,
			hasAlpha: f.HasAlpha,
			params:   params,
			cost:     cost,
			trace:    trace,
			result:   make(chan encodeResult, 1),
		}
		if !p.queue.push(t) {
			p.inFlight.Add(-cost)
			c.Close(p.pool)
			submitErr = ErrNotStarted
			continue
		}
		tasks[i] = t

		if !rep.report(20+(i+1)*60/len(chunks), "encoding") {
			cancelled = true
		}
	}

	rep.report(80, "waiting")

	payloads := make([][]byte, len(chunks))
	var encodeErr error
	for i, t := range tasks {
		if t == nil {
			continue
		}
		r := <-t.result
		if r.err != nil && encodeErr == nil {
			encodeErr = r.err
		}
		payloads[i] = r.data
	}

	switch {
	case submitErr != nil:
		return nil, submitErr
	case encodeErr != nil:
		return nil, fmt.Errorf("pipeline: chunk encode: %w", encodeErr)
	case cancelled:
		return nil, ErrCancelled
	}

	if !rep.report(90, "combining") {
		return nil, ErrCancelled
	}
	out, err := container.Combine(payloads, f.Width, f.Height, f.HasAlpha)
	if err != nil {
		return nil, err
	}

	rep.report(100, "done")
	p.recordFrame(f.Height*f.Stride, len(out), f.Width, f.Height, len(chunks))
	return out, nil
}

// EncodeDisplay grabs one display and compresses it synchronously.
func (p *Pipeline) EncodeDisplay(ctx context.Context, display int, params codec.Params, progress ProgressFunc) ([]byte, error) {
	return p.captureAndEncode(ctx, display, params, newReporter(progress))
}

// CaptureAndEncode grabs one display and compresses it asynchronously. The
// returned channel delivers exactly one Result and is then closed.
func (p *Pipeline) CaptureAndEncode(ctx context.Context, display int, params codec.Params, progress ProgressFunc) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		data, err := p.captureAndEncode(ctx, display, params, newReporter(progress))
		ch <- Result{Display: display, Data: data, Err: err}
	}()
	return ch
}

func (p *Pipeline) captureAndEncode(ctx context.Context, display int, params codec.Params, rep *progressReporter) ([]byte, error) {
	if p.backend == nil {
		return nil, fmt.Errorf("pipeline: no capture backend configured")
	}
	if !p.running() {
		return nil, ErrNotStarted
	}

	frame, err := p.backend.Capture(ctx, display)
	if err != nil {
		return nil, fmt.Errorf("pipeline: capture display %d: %w", display, err)
	}
	defer frame.Release()

	if !rep.report(10, "captured") {
		return nil, ErrCancelled
	}
	return p.encodeFrame(ctx, frame, params, rep)
}

// CaptureAndEncodeMultiple captures and compresses several displays
// concurrently. One Result per display arrives on the returned channel as
// each finishes (completion order, not argument order); the channel closes
// when all are done. The progress callback sees the average percentage
// across displays and, like the single-display form, never observes it
// decrease.
func (p *Pipeline) CaptureAndEncodeMultiple(ctx context.Context, displays []int, params codec.Params, progress ProgressFunc) <-chan Result {
	ch := make(chan Result, len(displays))
	if len(displays) == 0 {
		close(ch)
		return ch
	}

	agg := &aggregateProgress{
		fn:       progress,
		percents: make([]int, len(displays)),
	}

	var wg sync.WaitGroup
	for i, d := range displays {
		wg.Add(1)
		go func(slot, display int) {
			defer wg.Done()
			data, err := p.captureAndEncode(ctx, display, params, newReporter(agg.sub(slot)))
			ch <- Result{Display: display, Data: data, Err: err}
		}(i, d)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()
	return ch
}

// aggregateProgress folds per-display percentages into one monotonic
// overall percentage. Cancellation from the shared callback stops every
// display.
type aggregateProgress struct {
	mu        sync.Mutex
	fn        ProgressFunc
	percents  []int
	last      int
	cancelled bool
}

func (a *aggregateProgress) sub(slot int) ProgressFunc {
	return func(pct int, stage string) bool {
		a.mu.Lock()
		defer a.mu.Unlock()

		if a.cancelled {
			return false
		}
		if pct > a.percents[slot] {
			a.percents[slot] = pct
		}

		total := 0
		for _, v := range a.percents {
			total += v
		}
		overall := total / len(a.percents)
		if overall < a.last {
			overall = a.last
		}
		a.last = overall

		if a.fn != nil && !a.fn(overall, stage) {
			a.cancelled = true
			return false
		}
		return true
	}
}
