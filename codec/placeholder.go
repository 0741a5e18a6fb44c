package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Placeholder is a deterministic stand-in encoder. It is not a real
// compressor: the output records the frame geometry and a quality-dependent
// subsampling of the pixel data, enough for the pipeline and its tests to
// exercise sizing, ordering, and reassembly without a native codec.
type Placeholder struct{}

const placeholderMagic = "VP8 "

// Name implements Encoder.
func (Placeholder) Name() string { return "placeholder" }

// Encode implements Encoder. The payload layout is:
//
//	"RIFF" uint32 "WEBP" "VP8 " uint32 | u32 width | u32 height | u8 alpha |
//	u8 step | subsampled rows
//
// where step = max(1, 101-quality) and every step-th byte of each pixel row
// is carried. Identical input and params always produce identical output.
func (Placeholder) Encode(pixels []byte, width, height, stride int, hasAlpha bool, p Params) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkGeometry(pixels, width, height, stride, hasAlpha); err != nil {
		return nil, err
	}

	bpp := 4
	if !hasAlpha {
		bpp = 3
	}
	step := 101 - int(p.Quality)
	if step < 1 {
		step = 1
	}

	rowBytes := width * bpp
	sampled := (rowBytes + step - 1) / step

	payload := 4 + 4 + 1 + 1 + height*sampled
	out := make([]byte, 0, 20+payload)
	out = append(out, 'R', 'I', 'F', 'F')
	out = binary.LittleEndian.AppendUint32(out, uint32(12+payload))
	out = append(out, 'W', 'E', 'B', 'P')
	out = append(out, placeholderMagic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(payload))
	out = binary.LittleEndian.AppendUint32(out, uint32(width))
	out = binary.LittleEndian.AppendUint32(out, uint32(height))
	if hasAlpha {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, byte(step))

	for y := 0; y < height; y++ {
		row := pixels[y*stride : y*stride+rowBytes]
		for x := 0; x < rowBytes; x += step {
			out = append(out, row[x])
		}
	}
	return out, nil
}

// PlaceholderDims reads the geometry back out of a Placeholder payload.
func PlaceholderDims(data []byte) (width, height int, hasAlpha bool, err error) {
	if len(data) < 30 ||
		string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" ||
		string(data[12:16]) != placeholderMagic {
		return 0, 0, false, errors.New("codec: not a placeholder payload")
	}
	width = int(binary.LittleEndian.Uint32(data[20:24]))
	height = int(binary.LittleEndian.Uint32(data[24:28]))
	hasAlpha = data[28] == 1
	if width <= 0 || height <= 0 {
		return 0, 0, false, fmt.Errorf("codec: corrupt placeholder geometry %dx%d", width, height)
	}
	return width, height, hasAlpha, nil
}
