package capture

import (
	"context"
	"errors"

	"github.com/KCuppens/screenshot-webp/internal/zerocopy"
)

// PixelFormat identifies the packed layout of frame pixel data.
type PixelFormat string

const (
	// FormatBGRA is the native output of X11/Windows capture paths.
	FormatBGRA PixelFormat = "BGRA"
	// FormatRGBA is the layout the encoder consumes.
	FormatRGBA PixelFormat = "RGBA"
	// FormatRGB is a 3-byte layout without alpha.
	FormatRGB PixelFormat = "RGB"
)

// BytesPerPixel returns the packed byte width of the format.
func (f PixelFormat) BytesPerPixel() int {
	if f == FormatRGB {
		return 3
	}
	return 4
}

var (
	// ErrBackendUnavailable reports that no capture backend works on this
	// system (no display server, missing GStreamer plugins).
	ErrBackendUnavailable = errors.New("capture: backend unavailable")

	// ErrInvalidDisplay reports a display index outside the enumerated range.
	ErrInvalidDisplay = errors.New("capture: invalid display index")
)

// Display describes one attached display.
type Display struct {
	Index       int
	Width       int
	Height      int
	X           int
	Y           int
	ScaleFactor float64
	Primary     bool
	Name        string
}

// Frame is one captured screen image.
//
// Pixel memory lives either in Data (owned by the frame) or in Buffer, a
// reference-counted view over capture-owned memory. Exactly one of the two
// is set. Invariant: Stride*Height bytes are valid and
// Stride >= Width*BytesPerPixel.
type Frame struct {
	Data          []byte
	Buffer        *zerocopy.Buffer
	Width         int
	Height        int
	Stride        int
	BytesPerPixel int
	Format        PixelFormat
	HasAlpha      bool
}

// Bytes returns the frame's pixel memory regardless of backing.
func (f *Frame) Bytes() []byte {
	if f.Buffer != nil {
		return f.Buffer.Bytes()
	}
	return f.Data
}

// ZeroCopy reports whether the frame is backed by capture-owned memory.
func (f *Frame) ZeroCopy() bool { return f.Buffer != nil }

// Release drops the frame's hold on zero-copy backing memory, if any.
// Safe to call on owned frames (no-op).
func (f *Frame) Release() {
	if f.Buffer != nil {
		f.Buffer.Release()
		f.Buffer = nil
	}
}

// Backend is the platform capture collaborator.
//
// Implementations must guarantee:
//   - Displays() is safe to call before any Capture
//   - Capture() honors ctx cancellation
//   - a returned Frame satisfies the Frame invariants
type Backend interface {
	// Name identifies the implementation for logging ("gstreamer", "mock").
	Name() string

	// Supported reports whether the backend can run on this system.
	Supported() bool

	// Displays enumerates attached displays.
	Displays() ([]Display, error)

	// Capture grabs one full-resolution frame of the given display.
	Capture(ctx context.Context, displayIndex int) (*Frame, error)
}

// FlipVertically reverses the row order of a frame in place. Some capture
// paths deliver bottom-up rows; backends normalize before returning.
func FlipVertically(f *Frame) {
	data := f.Bytes()
	row := make([]byte, f.Stride)
	for top, bot := 0, f.Height-1; top < bot; top, bot = top+1, bot-1 {
		a := data[top*f.Stride : top*f.Stride+f.Stride]
		b := data[bot*f.Stride : bot*f.Stride+f.Stride]
		copy(row, a)
		copy(a, b)
		copy(b, row)
	}
}
