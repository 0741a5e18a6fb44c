package pixconv

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// kernels binds each conversion to one concrete implementation.
type kernels struct {
	name       string
	bgraToRGBA func(dst, src []byte, pixels int)
	swapRB     func(buf []byte, pixels int)
	rgbaToRGB  func(dst, src []byte, pixels int)
	rgbToRGBA  func(dst, src []byte, pixels int)
}

// active is selected once at process start; widest profitable path wins.
var active = detect()

func detect() kernels {
	switch {
	case cpu.X86.HasAVX2:
		return kernels{
			name:       "wide8",
			bgraToRGBA: bgraToRGBAWide8,
			swapRB:     swapRBWide8,
			rgbaToRGB:  rgbaToRGBWide4,
			rgbToRGBA:  rgbToRGBAWide4,
		}
	case cpu.X86.HasSSE2, cpu.ARM64.HasASIMD:
		return kernels{
			name:       "wide4",
			bgraToRGBA: bgraToRGBAWide4,
			swapRB:     swapRBWide4,
			rgbaToRGB:  rgbaToRGBWide4,
			rgbToRGBA:  rgbToRGBAWide4,
		}
	default:
		return kernels{
			name:       "scalar",
			bgraToRGBA: bgraToRGBAScalar,
			swapRB:     swapRBScalar,
			rgbaToRGB:  rgbaToRGBScalar,
			rgbToRGBA:  rgbToRGBAScalar,
		}
	}
}

// Capabilities describes the CPU features probed and the selected path,
// e.g. "SSE2 AVX2 (wide8)". Useful for startup logging.
func Capabilities() string {
	var caps []string
	if cpu.X86.HasSSE2 {
		caps = append(caps, "SSE2")
	}
	if cpu.X86.HasSSE41 {
		caps = append(caps, "SSE4.1")
	}
	if cpu.X86.HasAVX2 {
		caps = append(caps, "AVX2")
	}
	if cpu.ARM64.HasASIMD {
		caps = append(caps, "NEON")
	}
	if len(caps) == 0 {
		caps = append(caps, "none")
	}
	return strings.Join(caps, " ") + " (" + active.name + ")"
}
