package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/KCuppens/screenshot-webp/internal/zerocopy"
)

// MockBackend generates deterministic synthetic frames for tests and
// offline development.
type MockBackend struct {
	displays []Display

	// ZeroCopyFrames makes Capture return frames backed by a
	// reference-counted buffer instead of an owned slice.
	ZeroCopyFrames bool

	captures atomic.Uint64
	releases atomic.Uint64
}

// NewMockBackend creates a mock with one display per given size.
func NewMockBackend(sizes ...[2]int) *MockBackend {
	m := &MockBackend{}
	for i, wh := range sizes {
		m.displays = append(m.displays, Display{
			Index:       i,
			Width:       wh[0],
			Height:      wh[1],
			ScaleFactor: 1.0,
			Primary:     i == 0,
			Name:        fmt.Sprintf("mock-%d", i),
		})
	}
	return m
}

// Name implements Backend.
func (m *MockBackend) Name() string { return "mock" }

// Supported implements Backend.
func (m *MockBackend) Supported() bool { return true }

// Displays implements Backend.
func (m *MockBackend) Displays() ([]Display, error) {
	out := make([]Display, len(m.displays))
	copy(out, m.displays)
	return out, nil
}

// Captures returns how many frames were captured (for test assertions).
func (m *MockBackend) Captures() uint64 { return m.captures.Load() }

// Releases returns how many zero-copy frames were released.
func (m *MockBackend) Releases() uint64 { return m.releases.Load() }

// Capture implements Backend. The frame is a BGRA gradient that is a pure
// function of display size and pixel position, so tests can assert on exact
// bytes.
func (m *MockBackend) Capture(ctx context.Context, displayIndex int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if displayIndex < 0 || displayIndex >= len(m.displays) {
		return nil, fmt.Errorf("%w: %d (have %d displays)",
			ErrInvalidDisplay, displayIndex, len(m.displays))
	}

	d := m.displays[displayIndex]
	stride := d.Width * 4
	data := make([]byte, stride*d.Height)
	for y := 0; y < d.Height; y++ {
		row := data[y*stride:]
		for x := 0; x < d.Width; x++ {
			row[x*4+0] = byte(x)     // B
			row[x*4+1] = byte(y)     // G
			row[x*4+2] = byte(x ^ y) // R
			row[x*4+3] = 0xFF
		}
	}

	m.captures.Add(1)
	f := &Frame{
		Width:         d.Width,
		Height:        d.Height,
		Stride:        stride,
		BytesPerPixel: 4,
		Format:        FormatBGRA,
	}
	if m.ZeroCopyFrames {
		f.Buffer = zerocopy.Wrap(data, func() { m.releases.Add(1) })
	} else {
		f.Data = data
	}

	slog.Debug("capture: mock frame generated",
		"display", displayIndex,
		"resolution", fmt.Sprintf("%dx%d", d.Width, d.Height),
		"zero_copy", m.ZeroCopyFrames,
	)
	return f, nil
}
