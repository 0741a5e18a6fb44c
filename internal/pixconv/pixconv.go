// Package pixconv converts packed pixel layouts over caller-supplied buffers.
//
// Every conversion has a scalar reference implementation and wider,
// word-parallel variants that process 4 or 8 pixels per iteration. The widest
// variant the running CPU profits from is selected once at process start (see
// dispatch.go); all variants produce byte-identical output, and any tail that
// does not divide evenly into the vector width is finished by the scalar
// path. No function in this package allocates.
package pixconv

import "encoding/binary"

// Per-lane R/B swap masks for word-parallel BGRA<->RGBA. Within each 32-bit
// little-endian pixel lane, bytes 0 and 2 trade places and bytes 1 and 3
// (G, A) stay put.
const (
	keepGA8 = 0xFF00FF00FF00FF00
	low8x8  = 0x000000FF000000FF
)

// BGRAToRGBA converts pixels 4-byte BGRA pixels from src into dst as RGBA.
// src and dst must each hold at least pixels*4 bytes; they may not overlap
// unless they are the same slice (use SwapRB for in-place). Degenerate
// inputs (nil slices, pixels <= 0) are no-ops.
func BGRAToRGBA(dst, src []byte, pixels int) {
	if dst == nil || src == nil || pixels <= 0 {
		return
	}
	active.bgraToRGBA(dst, src, pixels)
}

// SwapRB swaps the R and B channels of pixels 4-byte pixels in place,
// converting BGRA to RGBA or back. Degenerate inputs are no-ops.
func SwapRB(buf []byte, pixels int) {
	if buf == nil || pixels <= 0 {
		return
	}
	active.swapRB(buf, pixels)
}

// RGBAToRGB packs pixels 4-byte RGBA pixels from src into dst as 3-byte RGB,
// dropping alpha. dst must hold at least pixels*3 bytes.
func RGBAToRGB(dst, src []byte, pixels int) {
	if dst == nil || src == nil || pixels <= 0 {
		return
	}
	active.rgbaToRGB(dst, src, pixels)
}

// RGBToRGBA expands pixels 3-byte RGB pixels from src into dst as 4-byte
// RGBA with opaque alpha. dst must hold at least pixels*4 bytes.
func RGBToRGBA(dst, src []byte, pixels int) {
	if dst == nil || src == nil || pixels <= 0 {
		return
	}
	active.rgbToRGBA(dst, src, pixels)
}

// --- scalar reference implementations ---

func bgraToRGBAScalar(dst, src []byte, pixels int) {
	for i := 0; i < pixels; i++ {
		b, g, r, a := src[i*4+0], src[i*4+1], src[i*4+2], src[i*4+3]
		dst[i*4+0] = r
		dst[i*4+1] = g
		dst[i*4+2] = b
		dst[i*4+3] = a
	}
}

func swapRBScalar(buf []byte, pixels int) {
	for i := 0; i < pixels; i++ {
		buf[i*4+0], buf[i*4+2] = buf[i*4+2], buf[i*4+0]
	}
}

func rgbaToRGBScalar(dst, src []byte, pixels int) {
	for i := 0; i < pixels; i++ {
		dst[i*3+0] = src[i*4+0]
		dst[i*3+1] = src[i*4+1]
		dst[i*3+2] = src[i*4+2]
	}
}

func rgbToRGBAScalar(dst, src []byte, pixels int) {
	for i := 0; i < pixels; i++ {
		dst[i*4+0] = src[i*3+0]
		dst[i*4+1] = src[i*3+1]
		dst[i*4+2] = src[i*3+2]
		dst[i*4+3] = 0xFF
	}
}

// --- word-parallel variants ---
//
// The 4- and 8-wide variants operate on 32/64-bit words holding one or two
// little-endian pixel lanes. Reading and writing through binary.LittleEndian
// keeps the result byte-identical to the scalar path on any architecture.

func swapLanes64(v uint64) uint64 {
	return v&keepGA8 | v>>16&low8x8 | v<<16&(low8x8<<16)
}

func bgraToRGBAWide4(dst, src []byte, pixels int) {
	n := pixels &^ 3
	for i := 0; i < n; i += 4 {
		o := i * 4
		binary.LittleEndian.PutUint64(dst[o:], swapLanes64(binary.LittleEndian.Uint64(src[o:])))
		binary.LittleEndian.PutUint64(dst[o+8:], swapLanes64(binary.LittleEndian.Uint64(src[o+8:])))
	}
	bgraToRGBAScalar(dst[n*4:], src[n*4:], pixels-n)
}

func bgraToRGBAWide8(dst, src []byte, pixels int) {
	n := pixels &^ 7
	for i := 0; i < n; i += 8 {
		o := i * 4
		binary.LittleEndian.PutUint64(dst[o:], swapLanes64(binary.LittleEndian.Uint64(src[o:])))
		binary.LittleEndian.PutUint64(dst[o+8:], swapLanes64(binary.LittleEndian.Uint64(src[o+8:])))
		binary.LittleEndian.PutUint64(dst[o+16:], swapLanes64(binary.LittleEndian.Uint64(src[o+16:])))
		binary.LittleEndian.PutUint64(dst[o+24:], swapLanes64(binary.LittleEndian.Uint64(src[o+24:])))
	}
	bgraToRGBAScalar(dst[n*4:], src[n*4:], pixels-n)
}

func swapRBWide4(buf []byte, pixels int) {
	n := pixels &^ 3
	for i := 0; i < n; i += 4 {
		o := i * 4
		binary.LittleEndian.PutUint64(buf[o:], swapLanes64(binary.LittleEndian.Uint64(buf[o:])))
		binary.LittleEndian.PutUint64(buf[o+8:], swapLanes64(binary.LittleEndian.Uint64(buf[o+8:])))
	}
	swapRBScalar(buf[n*4:], pixels-n)
}

func swapRBWide8(buf []byte, pixels int) {
	n := pixels &^ 7
	for i := 0; i < n; i += 8 {
		o := i * 4
		binary.LittleEndian.PutUint64(buf[o:], swapLanes64(binary.LittleEndian.Uint64(buf[o:])))
		binary.LittleEndian.PutUint64(buf[o+8:], swapLanes64(binary.LittleEndian.Uint64(buf[o+8:])))
		binary.LittleEndian.PutUint64(buf[o+16:], swapLanes64(binary.LittleEndian.Uint64(buf[o+16:])))
		binary.LittleEndian.PutUint64(buf[o+24:], swapLanes64(binary.LittleEndian.Uint64(buf[o+24:])))
	}
	swapRBScalar(buf[n*4:], pixels-n)
}

func rgbaToRGBWide4(dst, src []byte, pixels int) {
	n := pixels &^ 3
	for i := 0; i < n; i += 4 {
		s, d := i*4, i*3
		dst[d+0], dst[d+1], dst[d+2] = src[s+0], src[s+1], src[s+2]
		dst[d+3], dst[d+4], dst[d+5] = src[s+4], src[s+5], src[s+6]
		dst[d+6], dst[d+7], dst[d+8] = src[s+8], src[s+9], src[s+10]
		dst[d+9], dst[d+10], dst[d+11] = src[s+12], src[s+13], src[s+14]
	}
	rgbaToRGBScalar(dst[n*3:], src[n*4:], pixels-n)
}

func rgbToRGBAWide4(dst, src []byte, pixels int) {
	n := pixels &^ 3
	for i := 0; i < n; i += 4 {
		s, d := i*3, i*4
		dst[d+0], dst[d+1], dst[d+2], dst[d+3] = src[s+0], src[s+1], src[s+2], 0xFF
		dst[d+4], dst[d+5], dst[d+6], dst[d+7] = src[s+3], src[s+4], src[s+5], 0xFF
		dst[d+8], dst[d+9], dst[d+10], dst[d+11] = src[s+6], src[s+7], src[s+8], 0xFF
		dst[d+12], dst[d+13], dst[d+14], dst[d+15] = src[s+9], src[s+10], src[s+11], 0xFF
	}
	rgbToRGBAScalar(dst[n*4:], src[n*3:], pixels-n)
}
