package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KCuppens/screenshot-webp/capture"
	"github.com/KCuppens/screenshot-webp/codec"
	"github.com/KCuppens/screenshot-webp/internal/pixconv"
	"github.com/KCuppens/screenshot-webp/internal/pool"
)

// Pipeline drives chunked parallel compression.
//
// Goroutine topology:
//   - N fixed: worker loops (spawned by Start, stopped by Stop)
//   - transient: one capture goroutine per CaptureAndEncode call
//
// Thread-safety: all public methods safe for concurrent use. Multiple
// encodes may run at once; they share the worker pool and memory budget.
type Pipeline struct {
	enc     codec.Encoder
	backend capture.Backend
	pool    *pool.BufferPool
	log     *slog.Logger

	queue *taskQueue
	wg    sync.WaitGroup

	// --- Tunables (Configure) ---

	cfgMu            sync.RWMutex
	chunkWidth       int
	chunkHeight      int
	memoryBudget     int64 // bytes
	effort           int
	admissionTimeout time.Duration
	workers          int

	// --- Lifecycle ---

	ctx    context.Context
	cancel context.CancelFunc

	startedMu sync.Mutex
	started   bool
	stopped   bool

	// --- Counters ---

	inFlight      atomic.Int64
	peakInFlight  atomic.Int64
	framesEncoded atomic.Uint64
	chunksEncoded atomic.Uint64
	pixels        atomic.Uint64
	bytesOut      atomic.Uint64

	ratioMu sync.Mutex
	ratio   float64
}

// New builds a stopped pipeline. Call Start before encoding.
func New(opts Options, log *slog.Logger) (*Pipeline, error) {
	if opts.Encoder == nil {
		return nil, fmt.Errorf("pipeline: encoder is required")
	}
	if log == nil {
		log = slog.Default()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 2 {
			workers = 2
		}
	}
	chunkW := opts.ChunkWidth
	if chunkW <= 0 {
		chunkW = DefaultChunkWidth
	}
	chunkH := opts.ChunkHeight
	if chunkH <= 0 {
		chunkH = DefaultChunkHeight
	}
	memMB := opts.MaxMemoryMB
	if memMB <= 0 {
		memMB = DefaultMaxMemoryMB
	}
	admission := opts.AdmissionTimeout
	if admission <= 0 {
		admission = DefaultAdmissionTimeout
	}

	return &Pipeline{
		enc:              opts.Encoder,
		backend:          opts.Backend,
		pool:             pool.New(),
		log:              log.With("component", "pipeline"),
		queue:            newTaskQueue(),
		chunkWidth:       chunkW,
		chunkHeight:      chunkH,
		memoryBudget:     int64(memMB) * 1024 * 1024,
		effort:           opts.Effort,
		admissionTimeout: admission,
		workers:          workers,
	}, nil
}

// Start spawns the worker pool. Safe for concurrent calls; only the first
// succeeds.
func (p *Pipeline) Start(ctx context.Context) error {
	p.startedMu.Lock()
	defer p.startedMu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}

	p.log.Debug("started",
		"workers", p.workers,
		"chunk_width", p.chunkWidth,
		"chunk_height", p.chunkHeight,
		"memory_budget_mb", p.memoryBudget/(1024*1024),
		"conversion", pixconv.Capabilities())
	return nil
}

// Stop drains queued tasks and waits for workers to exit. Idempotent. A
// stopped pipeline stays stopped; build a new one rather than restarting.
func (p *Pipeline) Stop() error {
	p.startedMu.Lock()
	if !p.started || p.stopped {
		p.startedMu.Unlock()
		return nil
	}
	p.stopped = true
	p.startedMu.Unlock()

	p.queue.close()
	p.cancel()
	p.wg.Wait()

	p.pool.Clear()
	p.log.Debug("stopped")
	return nil
}

func (p *Pipeline) running() bool {
	p.startedMu.Lock()
	defer p.startedMu.Unlock()
	return p.started && !p.stopped
}

// Configure adjusts tiling and budget tunables. Takes effect for the next
// frame; encodes already in flight keep the values they started with.
// Zero or negative arguments leave the corresponding tunable unchanged.
func (p *Pipeline) Configure(chunkWidth, chunkHeight, maxMemoryMB, compressionEffort int) {
	p.cfgMu.Lock()
	defer p.cfgMu.Unlock()

	if chunkWidth > 0 {
		p.chunkWidth = chunkWidth
	}
	if chunkHeight > 0 {
		p.chunkHeight = chunkHeight
	}
	if maxMemoryMB > 0 {
		p.memoryBudget = int64(maxMemoryMB) * 1024 * 1024
	}
	if compressionEffort > 0 {
		p.effort = compressionEffort
	}
}

// Stats returns a counter snapshot. Non-blocking; values may be slightly
// stale relative to each other.
func (p *Pipeline) Stats() Stats {
	p.ratioMu.Lock()
	ratio := p.ratio
	p.ratioMu.Unlock()

	return Stats{
		Workers:             p.workers,
		FramesEncoded:       p.framesEncoded.Load(),
		ChunksEncoded:       p.chunksEncoded.Load(),
		PixelsProcessed:     p.pixels.Load(),
		BytesProduced:       p.bytesOut.Load(),
		InFlightBytes:       p.inFlight.Load(),
		PeakInFlightBytes:   p.peakInFlight.Load(),
		AvgCompressionRatio: ratio,
	}
}

// Info reports the fixed configuration.
func (p *Pipeline) Info() Info {
	p.cfgMu.RLock()
	defer p.cfgMu.RUnlock()

	backend := "none"
	if p.backend != nil {
		backend = p.backend.Name()
	}
	return Info{
		Workers:          p.workers,
		ChunkWidth:       p.chunkWidth,
		ChunkHeight:      p.chunkHeight,
		MaxMemoryMB:      int(p.memoryBudget / (1024 * 1024)),
		Encoder:          p.enc.Name(),
		Backend:          backend,
		Conversion:       pixconv.Capabilities(),
		AdmissionTimeout: p.admissionTimeout,
	}
}

// admit blocks until cost bytes fit under the memory budget, polling at
// admissionPoll. A chunk larger than the whole budget is admitted once
// nothing else is in flight, so a single oversized chunk cannot wedge the
// pipeline.
func (p *Pipeline) admit(ctx context.Context, cost int64, budget int64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		cur := p.inFlight.Load()
		if cur+cost <= budget || cur == 0 {
			if p.inFlight.CompareAndSwap(cur, cur+cost) {
				p.updatePeak(cur + cost)
				return nil
			}
			continue
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d bytes in flight, chunk needs %d, budget %d",
				ErrBudgetTimeout, cur, cost, budget)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return ErrNotStarted
		case <-time.After(admissionPoll):
		}
	}
}

func (p *Pipeline) updatePeak(v int64) {
	for {
		peak := p.peakInFlight.Load()
		if v <= peak || p.peakInFlight.CompareAndSwap(peak, v) {
			return
		}
	}
}

// recordFrame folds one finished frame into the counters.
func (p *Pipeline) recordFrame(rawBytes, encodedBytes, width, height, chunks int) {
	p.framesEncoded.Add(1)
	p.chunksEncoded.Add(uint64(chunks))
	p.pixels.Add(uint64(width) * uint64(height))
	p.bytesOut.Add(uint64(encodedBytes))

	if rawBytes <= 0 || encodedBytes <= 0 {
		return
	}
	ratio := float64(rawBytes) / float64(encodedBytes)

	p.ratioMu.Lock()
	if p.ratio == 0 {
		p.ratio = ratio
	} else {
		p.ratio = (p.ratio + ratio) / 2
	}
	p.ratioMu.Unlock()
}
