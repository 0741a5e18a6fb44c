// Package capture acquires full-resolution screen frames.
//
// # Overview
//
// The package exposes one capability interface, Backend, with two operations:
// display enumeration and single-frame capture. The streaming encode pipeline
// depends only on this interface; platform integration lives behind it.
//
// Two implementations ship:
//
//   - GstBackend drives a GStreamer ximagesrc pipeline and returns zero-copy
//     frames backed by the mapped GStreamer buffer.
//   - MockBackend generates deterministic gradient frames for tests and
//     offline development.
//
// # Frame Ownership
//
// A Frame backed by capture-owned memory (Frame.ZeroCopy() == true) must be
// released with Frame.Release() once encoding is done; the backing buffer's
// release callback unmaps the capture surface. Owned frames ignore Release.
//
// # Basic Usage
//
//	backend, err := capture.NewGstBackend(capture.GstOptions{Display: ":0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	displays, _ := backend.Displays()
//	frame, err := backend.Capture(ctx, displays[0].Index)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer frame.Release()
package capture
