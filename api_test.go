package screenshotwebp

import (
	"context"
	"errors"
	"testing"

	"github.com/KCuppens/screenshot-webp/capture"
	"github.com/KCuppens/screenshot-webp/codec"
)

// Exercises the whole public surface end to end through the re-exports.
func TestPublicAPIRoundTrip(t *testing.T) {
	backend := capture.NewMockBackend([2]int{320, 200})
	p, err := New(Options{Encoder: codec.Placeholder{}, Backend: backend}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	res := <-p.CaptureAndEncode(context.Background(), 0, codec.DefaultParams(), nil)
	if res.Err != nil {
		t.Fatalf("CaptureAndEncode: %v", res.Err)
	}
	w, h, _, err := codec.PlaceholderDims(res.Data)
	if err != nil {
		t.Fatalf("PlaceholderDims: %v", err)
	}
	if w != 320 || h != 200 {
		t.Fatalf("dims = %dx%d, want 320x200", w, h)
	}

	if st := p.Stats(); st.FramesEncoded != 1 {
		t.Fatalf("frames encoded = %d, want 1", st.FramesEncoded)
	}
	if info := p.Info(); info.Encoder != "placeholder" || info.Backend != "mock" {
		t.Fatalf("info = %+v", info)
	}
}

func TestPublicErrors(t *testing.T) {
	p, err := New(Options{Encoder: codec.Placeholder{}}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := <-p.CaptureAndEncode(context.Background(), 0, codec.DefaultParams(), nil)
	if res.Err == nil {
		t.Fatal("expected error without backend")
	}

	if _, err := New(Options{}, nil); err == nil {
		t.Fatal("expected error without encoder")
	}

	if !errors.Is(ErrCancelled, ErrCancelled) || ErrNotStarted == nil || ErrAlreadyStarted == nil || ErrBudgetTimeout == nil {
		t.Fatal("re-exported errors must be non-nil")
	}
}
