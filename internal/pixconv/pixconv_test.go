package pixconv

import (
	"bytes"
	"math/rand"
	"testing"
)

func randomPixels(t *testing.T, rng *rand.Rand, pixels, bpp int) []byte {
	t.Helper()
	buf := make([]byte, pixels*bpp)
	rng.Read(buf)
	return buf
}

// TestBGRAToRGBAEquivalence property-tests that every wide path matches the
// scalar reference byte for byte, including tails that do not divide evenly
// into the vector width.
func TestBGRAToRGBAEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	variants := map[string]func(dst, src []byte, pixels int){
		"wide4": bgraToRGBAWide4,
		"wide8": bgraToRGBAWide8,
	}

	for trial := 0; trial < 100; trial++ {
		pixels := rng.Intn(257) // includes 0 and non-multiples of 4/8
		src := randomPixels(t, rng, pixels, 4)

		want := make([]byte, pixels*4)
		bgraToRGBAScalar(want, src, pixels)

		for name, fn := range variants {
			got := make([]byte, pixels*4)
			fn(got, src, pixels)
			if !bytes.Equal(got, want) {
				t.Fatalf("%s diverges from scalar at pixels=%d", name, pixels)
			}
		}
	}
}

// TestSwapRBEquivalence property-tests the in-place variants, which must not
// read past the buffer when finishing the tail.
func TestSwapRBEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	variants := map[string]func(buf []byte, pixels int){
		"wide4": swapRBWide4,
		"wide8": swapRBWide8,
	}

	for trial := 0; trial < 100; trial++ {
		pixels := rng.Intn(131)
		src := randomPixels(t, rng, pixels, 4)

		want := append([]byte(nil), src...)
		swapRBScalar(want, pixels)

		for name, fn := range variants {
			got := append([]byte(nil), src...)
			fn(got, pixels)
			if !bytes.Equal(got, want) {
				t.Fatalf("%s diverges from scalar at pixels=%d", name, pixels)
			}
		}
	}
}

// TestSwapRBRoundTrip verifies swapping twice restores the input.
func TestSwapRBRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	orig := randomPixels(t, rng, 99, 4)
	buf := append([]byte(nil), orig...)

	SwapRB(buf, 99)
	SwapRB(buf, 99)
	if !bytes.Equal(buf, orig) {
		t.Error("double swap did not restore original pixels")
	}
}

// TestRGBAToRGBEquivalence covers the packing conversion.
func TestRGBAToRGBEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for trial := 0; trial < 100; trial++ {
		pixels := rng.Intn(97)
		src := randomPixels(t, rng, pixels, 4)

		want := make([]byte, pixels*3)
		rgbaToRGBScalar(want, src, pixels)

		got := make([]byte, pixels*3)
		rgbaToRGBWide4(got, src, pixels)
		if !bytes.Equal(got, want) {
			t.Fatalf("wide4 diverges from scalar at pixels=%d", pixels)
		}
	}
}

// TestRGBToRGBAExpansion verifies depth expansion sets opaque alpha.
func TestRGBToRGBAExpansion(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 100; trial++ {
		pixels := rng.Intn(77)
		src := randomPixels(t, rng, pixels, 3)

		want := make([]byte, pixels*4)
		rgbToRGBAScalar(want, src, pixels)

		got := make([]byte, pixels*4)
		rgbToRGBAWide4(got, src, pixels)
		if !bytes.Equal(got, want) {
			t.Fatalf("wide4 diverges from scalar at pixels=%d", pixels)
		}
		for i := 0; i < pixels; i++ {
			if got[i*4+3] != 0xFF {
				t.Fatalf("pixel %d alpha not opaque", i)
			}
		}
	}
}

// TestConversionSemantics spot-checks the channel mapping.
func TestConversionSemantics(t *testing.T) {
	// One BGRA pixel: B=1 G=2 R=3 A=4.
	src := []byte{1, 2, 3, 4}
	dst := make([]byte, 4)
	BGRAToRGBA(dst, src, 1)
	if dst[0] != 3 || dst[1] != 2 || dst[2] != 1 || dst[3] != 4 {
		t.Errorf("BGRA->RGBA mapped to % d", dst)
	}
}

// TestDegenerateInputs verifies nil and zero-count calls are no-ops.
func TestDegenerateInputs(t *testing.T) {
	BGRAToRGBA(nil, nil, 10)
	SwapRB(nil, 10)
	RGBAToRGB(nil, nil, 10)
	RGBToRGBA(nil, nil, 10)

	buf := []byte{1, 2, 3, 4}
	SwapRB(buf, 0)
	if !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Error("pixel count 0 must not touch the buffer")
	}
}

// TestCapabilities sanity-checks the probe description.
func TestCapabilities(t *testing.T) {
	if Capabilities() == "" {
		t.Error("Capabilities returned empty string")
	}
}

func BenchmarkSwapRB(b *testing.B) {
	buf := make([]byte, 1920*1080*4)
	b.SetBytes(int64(len(buf)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SwapRB(buf, 1920*1080)
	}
}
