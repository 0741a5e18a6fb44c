// Package screenshotwebp captures screenshots and compresses them to WebP
// with a streaming, memory-bounded pipeline.
//
// # Overview
//
// Frames smaller than one 8K screen are compressed in a single encoder
// pass. Frames at that size or larger are split into tiles, compressed in parallel on a
// fixed worker pool, and reassembled into one extended-canvas (VP8X)
// container. The guiding principle is:
//
//	"Bound memory, stream the rest. Footprint > Throughput."
//
// Tile submission is gated by a memory budget: raw tile bytes in flight
// never exceed the configured cap, so an arbitrarily large capture
// compresses in bounded memory.
//
// # Basic Usage
//
// Create a pipeline, start it, encode:
//
//	p, err := screenshotwebp.New(screenshotwebp.Options{
//	    Encoder: codec.Placeholder{},
//	    Backend: capture.NewMockBackend([2]int{1920, 1080}),
//	}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := p.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Stop()
//
//	res := <-p.CaptureAndEncode(ctx, 0, codec.DefaultParams(), nil)
//	if res.Err != nil {
//	    log.Fatal(res.Err)
//	}
//	os.WriteFile("screen.webp", res.Data, 0o644)
//
// # Progress and Cancellation
//
// Every encode accepts an optional progress callback:
//
//	p.EncodeFrame(ctx, frame, params, func(pct int, stage string) bool {
//	    fmt.Printf("%3d%% %s\n", pct, stage)
//	    return pct < 95 // returning false cancels
//	})
//
// Percentages are monotonic within one operation. Returning false aborts
// the encode with ErrCancelled once in-flight tiles drain.
//
// # Observability
//
// Stats() is a non-blocking counter snapshot:
//
//	st := p.Stats()
//	fmt.Printf("frames=%d chunks=%d peak=%dB ratio=%.3f\n",
//	    st.FramesEncoded, st.ChunksEncoded,
//	    st.PeakInFlightBytes, st.AvgCompressionRatio)
//
// # Thread Safety
//
// All pipeline methods are safe for concurrent use. Multiple encodes may
// run at once; they share the worker pool and the memory budget.
package screenshotwebp
