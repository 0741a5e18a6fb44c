// Package codec defines the compression primitive the pipeline drives.
//
// The pipeline is codec-agnostic: anything satisfying Encoder can compress
// chunks, whether it wraps libwebp through cgo or something else entirely.
// A deterministic in-process Placeholder is provided for tests and for
// environments without a native encoder.
package codec

import (
	"errors"
	"fmt"
)

// Params carries the per-encode tuning knobs. Zero values are not useful;
// start from DefaultParams.
type Params struct {
	// Quality in 0..100. Higher is larger and closer to the source.
	Quality float32

	// Method is the effort level in 0..6. Higher is slower and smaller.
	Method int

	// TargetSize, when non-zero, asks the encoder to aim for this many
	// bytes instead of honoring Quality directly.
	TargetSize int

	// TargetPSNR, when non-zero, asks for a minimum reconstruction
	// fidelity in dB. Takes precedence over TargetSize.
	TargetPSNR float32

	// FilterStrength in 0..100 controls deblocking.
	FilterStrength int

	// ThreadLevel enables the encoder's internal threading when non-zero.
	// Chunk-level parallelism usually makes this redundant.
	ThreadLevel int
}

// DefaultParams returns the tuning used when the caller does not care.
func DefaultParams() Params {
	return Params{
		Quality:        80,
		Method:         4,
		FilterStrength: 60,
	}
}

// Validate reports the first out-of-range knob.
func (p Params) Validate() error {
	if p.Quality < 0 || p.Quality > 100 {
		return fmt.Errorf("codec: quality %.1f out of range [0,100]", p.Quality)
	}
	if p.Method < 0 || p.Method > 6 {
		return fmt.Errorf("codec: method %d out of range [0,6]", p.Method)
	}
	if p.FilterStrength < 0 || p.FilterStrength > 100 {
		return fmt.Errorf("codec: filter strength %d out of range [0,100]", p.FilterStrength)
	}
	return nil
}

// ErrInvalidInput reports pixel data inconsistent with the stated geometry.
var ErrInvalidInput = errors.New("codec: invalid pixel input")

// Encoder compresses one RGBA (or RGB) pixel buffer into the target format.
// Implementations must be safe for concurrent use: the pipeline calls Encode
// from every worker at once.
type Encoder interface {
	// Encode compresses pixels laid out row-major with the given stride in
	// bytes. hasAlpha selects between 4- and 3-channel interpretation.
	// Deterministic input must yield deterministic output.
	Encode(pixels []byte, width, height, stride int, hasAlpha bool, p Params) ([]byte, error)

	// Name identifies the backend for logs and stats.
	Name() string
}

func checkGeometry(pixels []byte, width, height, stride int, hasAlpha bool) error {
	bpp := 4
	if !hasAlpha {
		bpp = 3
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidInput, width, height)
	}
	if stride < width*bpp {
		return fmt.Errorf("%w: stride %d below row size %d", ErrInvalidInput, stride, width*bpp)
	}
	if need := (height-1)*stride + width*bpp; len(pixels) < need {
		return fmt.Errorf("%w: %d bytes for %dx%d stride %d (need %d)",
			ErrInvalidInput, len(pixels), width, height, stride, need)
	}
	return nil
}
