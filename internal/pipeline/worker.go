package pipeline

import (
	"github.com/KCuppens/screenshot-webp/capture"
	"github.com/KCuppens/screenshot-webp/codec"
	"github.com/KCuppens/screenshot-webp/internal/pixconv"
)

// workerLoop pops tasks until the queue closes. Each task's result is
// delivered through its own capacity-1 channel, so a worker never blocks on
// a slow collector.
func (p *Pipeline) workerLoop(id int) {
	defer p.wg.Done()

	for {
		t, ok := p.queue.pop()
		if !ok {
			return
		}

		c := t.chunk
		// Pooled copies are exclusively ours and may be converted in
		// place; zero-copy views alias the captured frame, which other
		// chunks still read.
		data, err := p.encodeRect(c.Bytes(), c.Width, c.Height, c.Stride,
			t.format, !c.ZeroCopy(), t.hasAlpha, t.params)

		c.Close(p.pool)
		p.inFlight.Add(-t.cost)

		if err != nil {
			p.log.Debug("chunk encode failed",
				"worker", id, "trace", t.trace, "chunk", c.ID, "error", err)
		}
		t.result <- encodeResult{data: data, err: err}
	}
}

// encodeRect converts one rectangle of pixels into the layout the encoder
// expects and compresses it.
//
// Conversion steps:
//   - BGRA becomes RGBA, in place when mutable, otherwise via pooled scratch.
//   - Opaque quads (hasAlpha=false) are packed down to 3-byte RGB so the
//     encoder sees the channel count the alpha flag promises.
//   - RGB passes through untouched.
func (p *Pipeline) encodeRect(src []byte, width, height, stride int, format capture.PixelFormat, mutable, hasAlpha bool, params codec.Params) ([]byte, error) {
	if format == capture.FormatRGB {
		return p.enc.Encode(src, width, height, stride, false, params)
	}

	quad := src
	quadStride := stride
	var scratch []byte

	if format == capture.FormatBGRA {
		if mutable {
			if stride == width*4 {
				pixconv.SwapRB(quad, width*height)
			} else {
				for y := 0; y < height; y++ {
					pixconv.SwapRB(quad[y*stride:], width)
				}
			}
		} else {
			rowBytes := width * 4
			buf, err := p.pool.Acquire(height * rowBytes)
			if err != nil {
				return nil, err
			}
			scratch = buf
			if stride == rowBytes {
				pixconv.BGRAToRGBA(buf, src, width*height)
			} else {
				for y := 0; y < height; y++ {
					pixconv.BGRAToRGBA(buf[y*rowBytes:], src[y*stride:], width)
				}
			}
			quad = buf
			quadStride = rowBytes
		}
	}

	if hasAlpha {
		out, err := p.enc.Encode(quad, width, height, quadStride, true, params)
		if scratch != nil {
			p.pool.Release(scratch)
		}
		return out, err
	}

	rgbStride := width * 3
	rgb, err := p.pool.Acquire(height * rgbStride)
	if err != nil {
		if scratch != nil {
			p.pool.Release(scratch)
		}
		return nil, err
	}
	if quadStride == width*4 {
		pixconv.RGBAToRGB(rgb, quad, width*height)
	} else {
		for y := 0; y < height; y++ {
			pixconv.RGBAToRGB(rgb[y*rgbStride:], quad[y*quadStride:], width)
		}
	}
	if scratch != nil {
		p.pool.Release(scratch)
	}

	out, err := p.enc.Encode(rgb, width, height, rgbStride, false, params)
	p.pool.Release(rgb)
	return out, err
}
