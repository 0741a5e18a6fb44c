package tile

import (
	"testing"

	"github.com/KCuppens/screenshot-webp/capture"
	"github.com/KCuppens/screenshot-webp/internal/pool"
	"github.com/KCuppens/screenshot-webp/internal/zerocopy"
)

func testFrame(w, h int) *capture.Frame {
	stride := w * 4
	data := make([]byte, stride*h)
	for i := range data {
		data[i] = byte(i)
	}
	return &capture.Frame{
		Data: data, Width: w, Height: h,
		Stride: stride, BytesPerPixel: 4, Format: capture.FormatRGBA,
	}
}

// TestTilingExactness paints every chunk rectangle onto a coverage grid and
// verifies the union is exactly the frame, with no overlap.
func TestTilingExactness(t *testing.T) {
	cases := []struct{ w, h, tw, th int }{
		{100, 100, 64, 64},
		{256, 256, 64, 64},
		{257, 255, 64, 128},
		{64, 64, 64, 64},
		{1000, 70, 999, 64},
		{130, 130, 65, 65},
	}

	for _, tc := range cases {
		bp := pool.New()
		f := testFrame(tc.w, tc.h)
		chunks, err := Split(f, tc.tw, tc.th, bp)
		if err != nil {
			t.Fatalf("Split(%dx%d, %dx%d) failed: %v", tc.w, tc.h, tc.tw, tc.th, err)
		}

		wantCount := ((tc.w + tc.tw - 1) / tc.tw) * ((tc.h + tc.th - 1) / tc.th)
		if len(chunks) != wantCount {
			t.Errorf("%dx%d/%dx%d: expected %d chunks, got %d",
				tc.w, tc.h, tc.tw, tc.th, wantCount, len(chunks))
		}

		covered := make([]int, tc.w*tc.h)
		for _, c := range chunks {
			for y := c.YOffset; y < c.YOffset+c.Height; y++ {
				for x := c.XOffset; x < c.XOffset+c.Width; x++ {
					covered[y*tc.w+x]++
				}
			}
		}
		for i, n := range covered {
			if n != 1 {
				t.Fatalf("%dx%d/%dx%d: pixel %d covered %d times",
					tc.w, tc.h, tc.tw, tc.th, i, n)
			}
		}

		for _, c := range chunks {
			c.Close(bp)
		}
	}
}

// TestScenario100x100 is the canonical 4-chunk split: 64x64, 36x64, 64x36,
// 36x36 in row-major order, last one final.
func TestScenario100x100(t *testing.T) {
	bp := pool.New()
	chunks, err := Split(testFrame(100, 100), 64, 64, bp)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}

	want := []struct{ w, h, x, y int }{
		{64, 64, 0, 0},
		{36, 64, 64, 0},
		{64, 36, 0, 64},
		{36, 36, 64, 64},
	}
	for i, c := range chunks {
		if c.Width != want[i].w || c.Height != want[i].h ||
			c.XOffset != want[i].x || c.YOffset != want[i].y {
			t.Errorf("chunk %d: got %dx%d at (%d,%d), want %dx%d at (%d,%d)",
				i, c.Width, c.Height, c.XOffset, c.YOffset,
				want[i].w, want[i].h, want[i].x, want[i].y)
		}
		if c.ID != i {
			t.Errorf("chunk %d has ID %d", i, c.ID)
		}
		if c.IsFinal != (i == 3) {
			t.Errorf("chunk %d IsFinal=%v", i, c.IsFinal)
		}
	}
}

// TestChunkPixels verifies copied chunk data matches the source region.
func TestChunkPixels(t *testing.T) {
	bp := pool.New()
	f := testFrame(128, 128)
	chunks, err := Split(f, 64, 64, bp)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	// Chunk 3 is the bottom-right 64x64 region.
	c := chunks[3]
	for row := 0; row < 3; row++ {
		srcOff := (c.YOffset+row)*f.Stride + c.XOffset*4
		for i := 0; i < c.Stride; i++ {
			if c.Bytes()[row*c.Stride+i] != f.Data[srcOff+i] {
				t.Fatalf("chunk 3 row %d byte %d differs from source", row, i)
			}
		}
	}
}

// TestMinTileClamp verifies tiny tile requests are clamped to 64x64.
func TestMinTileClamp(t *testing.T) {
	bp := pool.New()
	chunks, err := Split(testFrame(128, 128), 8, 8, bp)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	// Clamped to 64x64 → 2x2 grid, not 16x16.
	if len(chunks) != 4 {
		t.Errorf("expected clamp to produce 4 chunks, got %d", len(chunks))
	}
}

// TestZeroCopyFullWidthChunks verifies full-width chunks of a zero-copy
// frame are views, edge-column chunks are copies, and closing all chunks
// plus the frame releases the backing exactly once.
func TestZeroCopyFullWidthChunks(t *testing.T) {
	bp := pool.New()
	released := 0
	stride := 100 * 4
	data := make([]byte, stride*100)
	f := &capture.Frame{
		Buffer: zerocopy.Wrap(data, func() { released++ }),
		Width:  100, Height: 100, Stride: stride,
		BytesPerPixel: 4, Format: capture.FormatRGBA,
	}

	// Tile width >= frame width → every chunk spans full rows.
	chunks, err := Split(f, 128, 64, bp)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !c.ZeroCopy() {
			t.Errorf("full-width chunk %d should be a zero-copy view", i)
		}
		if c.Stride != stride {
			t.Errorf("view chunk %d must keep frame stride, got %d", i, c.Stride)
		}
	}

	// Frame released first; views must keep the backing alive.
	f.Release()
	if released != 0 {
		t.Fatal("backing released while chunk views outstanding")
	}
	for _, c := range chunks {
		c.Close(bp)
	}
	if released != 1 {
		t.Fatalf("backing released %d times, want 1", released)
	}
}

// TestZeroCopyPartialWidthCopies verifies narrow chunks of a zero-copy frame
// are copied (a gapped view cannot be expressed).
func TestZeroCopyPartialWidthCopies(t *testing.T) {
	bp := pool.New()
	stride := 200 * 4
	f := &capture.Frame{
		Buffer: zerocopy.Wrap(make([]byte, stride*80), nil),
		Width:  200, Height: 80, Stride: stride,
		BytesPerPixel: 4, Format: capture.FormatRGBA,
	}
	defer f.Release()

	chunks, err := Split(f, 100, 80, bp)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	for i, c := range chunks {
		if c.ZeroCopy() {
			t.Errorf("partial-width chunk %d must be a copy", i)
		}
		c.Close(bp)
	}
}

// TestSplitInvalidFrame verifies validation.
func TestSplitInvalidFrame(t *testing.T) {
	bp := pool.New()
	if _, err := Split(nil, 64, 64, bp); err == nil {
		t.Error("nil frame should fail")
	}
	bad := testFrame(10, 10)
	bad.Stride = 8 // < width * bpp
	if _, err := Split(bad, 64, 64, bp); err == nil {
		t.Error("undersized stride should fail")
	}
}
