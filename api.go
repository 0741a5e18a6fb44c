package screenshotwebp

import (
	"log/slog"

	"github.com/KCuppens/screenshot-webp/internal/pipeline"
)

// Public API - Re-export internal types as stable contract

// Options configures a Pipeline. Encoder is required; every other zero
// field gets a default.
type Options = pipeline.Options

// Stats is a point-in-time snapshot of pipeline counters.
type Stats = pipeline.Stats

// Info describes the pipeline's configuration.
type Info = pipeline.Info

// Result is the outcome of one asynchronous capture-and-encode.
type Result = pipeline.Result

// ProgressFunc observes an encode; returning false cancels it.
type ProgressFunc = pipeline.ProgressFunc

// Pipeline drives chunked parallel WebP compression.
type Pipeline = pipeline.Pipeline

// Public API errors - Re-export internal errors as stable contract
var (
	ErrAlreadyStarted = pipeline.ErrAlreadyStarted
	ErrNotStarted     = pipeline.ErrNotStarted
	ErrCancelled      = pipeline.ErrCancelled
	ErrBudgetTimeout  = pipeline.ErrBudgetTimeout
)

// New builds a stopped Pipeline. A nil logger falls back to slog.Default.
func New(opts Options, log *slog.Logger) (*Pipeline, error) {
	return pipeline.New(opts, log)
}
