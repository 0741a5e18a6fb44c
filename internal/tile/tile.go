// Package tile partitions one large frame into a grid of independently
// compressible chunks.
//
// Chunks are produced in row-major order and exactly cover the frame: edge
// chunks are clipped to the frame boundary, nothing overlaps, nothing is
// missed. Chunk pixel data is either a pooled copy or, when the source frame
// is backed by capture-owned memory and the chunk spans full rows, a
// zero-copy sub-view of the frame.
package tile

import (
	"fmt"

	"github.com/KCuppens/screenshot-webp/capture"
	"github.com/KCuppens/screenshot-webp/internal/pool"
	"github.com/KCuppens/screenshot-webp/internal/zerocopy"
)

// MinTileSize clamps requested tile dimensions; smaller tiles produce a
// pathological number of tiny encode tasks.
const MinTileSize = 64

// Chunk is one rectangular sub-region of a frame.
type Chunk struct {
	// data holds the pixels for pooled copies; view holds them for
	// zero-copy chunks. Exactly one is set.
	data []byte
	view *zerocopy.Buffer

	Width   int
	Height  int
	Stride  int
	XOffset int
	YOffset int

	// ID is the row-major chunk index, which is also the payload order in
	// the combined container.
	ID int

	// IsFinal marks the last chunk in row-major order.
	IsFinal bool
}

// Bytes returns the chunk's pixel data.
func (c *Chunk) Bytes() []byte {
	if c.view != nil {
		return c.view.Bytes()
	}
	return c.data
}

// ZeroCopy reports whether the chunk aliases the source frame's memory.
func (c *Chunk) ZeroCopy() bool { return c.view != nil }

// ByteSize returns the chunk's in-memory pixel footprint.
func (c *Chunk) ByteSize() int { return c.Height * c.Stride }

// Close releases the chunk's pixel memory: pooled copies return to the pool,
// zero-copy views drop their reference on the frame. Idempotent.
func (c *Chunk) Close(p *pool.BufferPool) {
	if c.view != nil {
		c.view.Release()
		c.view = nil
		return
	}
	if c.data != nil {
		p.Release(c.data)
		c.data = nil
	}
}

// Split partitions a frame into ceil(W/tw) * ceil(H/th) chunks in row-major
// order. Tile dimensions are clamped to MinTileSize. A chunk becomes a
// zero-copy view when the frame has zero-copy backing and the chunk spans
// full source rows (x offset 0, full frame width); any narrower rectangle
// would need a gapped view, so it is copied row by row into a pooled buffer.
func Split(f *capture.Frame, tileWidth, tileHeight int, bp *pool.BufferPool) ([]*Chunk, error) {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("tile: invalid frame")
	}
	if f.Stride < f.Width*f.BytesPerPixel {
		return nil, fmt.Errorf("tile: stride %d too small for width %d at %d bytes/pixel",
			f.Stride, f.Width, f.BytesPerPixel)
	}

	if tileWidth < MinTileSize {
		tileWidth = MinTileSize
	}
	if tileHeight < MinTileSize {
		tileHeight = MinTileSize
	}

	cols := (f.Width + tileWidth - 1) / tileWidth
	rows := (f.Height + tileHeight - 1) / tileHeight

	chunks := make([]*Chunk, 0, cols*rows)
	src := f.Bytes()
	bpp := f.BytesPerPixel

	id := 0
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			c := &Chunk{
				XOffset: tx * tileWidth,
				YOffset: ty * tileHeight,
				ID:      id,
				IsFinal: id == cols*rows-1,
			}
			c.Width = min(tileWidth, f.Width-c.XOffset)
			c.Height = min(tileHeight, f.Height-c.YOffset)

			if f.ZeroCopy() && c.XOffset == 0 && c.Width == f.Width {
				// Full-width rows are contiguous in the source; the view
				// keeps the frame's stride.
				view, err := f.Buffer.View(c.YOffset*f.Stride, c.Height*f.Stride)
				if err != nil {
					ReleaseAll(chunks, bp)
					return nil, fmt.Errorf("tile: chunk %d view: %w", id, err)
				}
				c.view = view
				c.Stride = f.Stride
			} else {
				c.Stride = c.Width * bpp
				buf, err := bp.Acquire(c.Height * c.Stride)
				if err != nil {
					ReleaseAll(chunks, bp)
					return nil, fmt.Errorf("tile: chunk %d buffer: %w", id, err)
				}
				for row := 0; row < c.Height; row++ {
					srcOff := (c.YOffset+row)*f.Stride + c.XOffset*bpp
					copy(buf[row*c.Stride:(row+1)*c.Stride], src[srcOff:srcOff+c.Stride])
				}
				c.data = buf
			}

			chunks = append(chunks, c)
			id++
		}
	}

	return chunks, nil
}

// ReleaseAll closes every chunk in the slice.
func ReleaseAll(chunks []*Chunk, bp *pool.BufferPool) {
	for _, c := range chunks {
		c.Close(bp)
	}
}
