// Package container assembles per-chunk encoded payloads into one
// self-describing WebP extended-format buffer.
//
// Layout:
//
//	offset 0   "RIFF"
//	offset 4   uint32 LE: total size - 8 (written back after assembly)
//	offset 8   "WEBP"
//	offset 12  "VP8X" chunk: uint32 LE size (10), flags byte, 3 reserved
//	           bytes, 24-bit LE canvas width-1, 24-bit LE canvas height-1
//	offset 30  chunk payloads in tile row-major order
package container

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	headerSize = 30

	// MaxCanvasDim is the format limit: canvas dimensions are stored as
	// 24-bit minus-one fields.
	MaxCanvasDim = 1 << 24

	// flagAlpha is the VP8X alpha-presence bit.
	flagAlpha = 0x10
)

var (
	// ErrNoChunks reports an empty chunk set.
	ErrNoChunks = errors.New("container: no encoded chunks to combine")

	// ErrTooLarge reports a canvas dimension beyond the 24-bit format limit.
	ErrTooLarge = errors.New("container: canvas dimension exceeds format limit")
)

// Combine concatenates encoded chunk payloads, in the order generated by the
// tiler, under a VP8X extended-canvas header. An empty payload in the set
// means a tile was lost somewhere; the whole combine fails rather than emit
// a container with a hole in it.
func Combine(chunks [][]byte, canvasWidth, canvasHeight int, hasAlpha bool) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	if canvasWidth <= 0 || canvasHeight <= 0 {
		return nil, fmt.Errorf("container: invalid canvas %dx%d", canvasWidth, canvasHeight)
	}
	if canvasWidth > MaxCanvasDim || canvasHeight > MaxCanvasDim {
		return nil, fmt.Errorf("%w: %dx%d (limit %d)",
			ErrTooLarge, canvasWidth, canvasHeight, MaxCanvasDim)
	}

	total := headerSize
	for i, c := range chunks {
		if len(c) == 0 {
			return nil, fmt.Errorf("container: chunk %d is empty", i)
		}
		total += len(c)
	}

	out := make([]byte, 0, total)
	out = append(out, 'R', 'I', 'F', 'F')
	out = append(out, 0, 0, 0, 0) // riff size, patched below
	out = append(out, 'W', 'E', 'B', 'P')

	out = append(out, 'V', 'P', '8', 'X')
	out = binary.LittleEndian.AppendUint32(out, 10)

	flags := byte(0)
	if hasAlpha {
		flags |= flagAlpha
	}
	out = append(out, flags, 0, 0, 0)
	out = appendUint24(out, uint32(canvasWidth-1))
	out = appendUint24(out, uint32(canvasHeight-1))

	for _, c := range chunks {
		out = append(out, c...)
	}

	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out, nil
}

// Canvas reads the canvas dimensions and alpha flag back out of a combined
// container. Used by callers that need to verify reassembly without a
// decoder.
func Canvas(data []byte) (width, height int, hasAlpha bool, err error) {
	if len(data) < headerSize ||
		string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" ||
		string(data[12:16]) != "VP8X" {
		return 0, 0, false, errors.New("container: not a combined VP8X container")
	}
	hasAlpha = data[20]&flagAlpha != 0
	width = int(readUint24(data[24:27])) + 1
	height = int(readUint24(data[27:30])) + 1
	return width, height, hasAlpha, nil
}

func appendUint24(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16))
}

func readUint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
