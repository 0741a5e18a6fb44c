// Package pipeline implements streaming screenshot compression: frames are
// tiled into chunks, chunks are encoded in parallel on a fixed worker pool
// under a memory budget, and the encoded pieces are combined into a single
// extended-canvas container.
//
// This package is INTERNAL - clients use the public API in the root package.
package pipeline

import (
	"errors"
	"time"

	"github.com/KCuppens/screenshot-webp/capture"
	"github.com/KCuppens/screenshot-webp/codec"
	"github.com/KCuppens/screenshot-webp/internal/tile"
)

var (
	// ErrAlreadyStarted is returned by Start on a running pipeline.
	ErrAlreadyStarted = errors.New("pipeline: already started")

	// ErrNotStarted is returned by encode operations before Start.
	ErrNotStarted = errors.New("pipeline: not started")

	// ErrCancelled is returned when a progress callback aborts an encode.
	// Tasks already handed to workers still run to completion.
	ErrCancelled = errors.New("pipeline: cancelled by progress callback")

	// ErrBudgetTimeout is returned when a chunk cannot be admitted under
	// the memory budget within the admission timeout. It usually means the
	// budget is too small for the configured chunk size and worker count.
	ErrBudgetTimeout = errors.New("pipeline: memory budget admission timed out")
)

// Defaults applied by New when an Options field is zero.
const (
	DefaultChunkWidth       = 512
	DefaultChunkHeight      = 512
	DefaultMaxMemoryMB      = 256
	DefaultAdmissionTimeout = 30 * time.Second

	// admissionPoll is how often a blocked submitter re-checks the budget.
	admissionPoll = 10 * time.Millisecond
)

// singlePassThreshold is the pixel count at which tiling kicks in. Frames
// strictly smaller than one 8K screen are encoded in a single pass; a frame
// at exactly 7680x4320 or larger goes through the chunked path. Variable so
// tests can force tiling on small frames.
var singlePassThreshold = 7680 * 4320

// Options configures a Pipeline. The zero value is usable: New fills in
// defaults for every zero field except Encoder, which is required.
type Options struct {
	// Encoder compresses chunks. Required.
	Encoder codec.Encoder

	// Backend captures frames for CaptureAndEncode. Optional; EncodeFrame
	// works without one.
	Backend capture.Backend

	// Workers is the pool size. Default max(2, runtime.NumCPU()).
	Workers int

	// ChunkWidth and ChunkHeight are the tile dimensions for large frames.
	ChunkWidth  int
	ChunkHeight int

	// MaxMemoryMB bounds the raw bytes of chunks in flight at once.
	MaxMemoryMB int

	// Effort is the encoder method level applied when the caller's params
	// leave it zero.
	Effort int

	// AdmissionTimeout bounds how long a submitter waits for budget.
	AdmissionTimeout time.Duration
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	// Workers is the fixed pool size the pipeline was built with.
	Workers int

	FramesEncoded   uint64
	ChunksEncoded   uint64
	PixelsProcessed uint64
	BytesProduced   uint64

	// InFlightBytes is the raw chunk memory currently admitted.
	InFlightBytes int64

	// PeakInFlightBytes is the high-water mark of InFlightBytes.
	PeakInFlightBytes int64

	// AvgCompressionRatio is a running average of raw/encoded size per
	// frame, folded as (previous+new)/2 so recent frames dominate.
	AvgCompressionRatio float64
}

// Info describes the pipeline's fixed configuration for logs and debugging.
type Info struct {
	Workers          int
	ChunkWidth       int
	ChunkHeight      int
	MaxMemoryMB      int
	Encoder          string
	Backend          string
	Conversion       string
	AdmissionTimeout time.Duration
}

// ProgressFunc observes an encode as it advances. percent is 0..100 and
// never decreases within one operation. Returning false requests
// cancellation; the operation fails with ErrCancelled once in-flight chunks
// drain.
type ProgressFunc func(percent int, stage string) bool

// Result is the outcome of one asynchronous encode.
type Result struct {
	Display int
	Data    []byte
	Err     error
}

// encodeResult is a task's single-assignment result slot payload.
type encodeResult struct {
	data []byte
	err  error
}

// encodingTask carries one chunk from submitter to worker. The result
// channel has capacity 1: the worker sends exactly once and never blocks.
type encodingTask struct {
	chunk    *tile.Chunk
	format   capture.PixelFormat
	hasAlpha bool
	params   codec.Params
	cost     int64
	trace    string
	result   chan encodeResult
}
