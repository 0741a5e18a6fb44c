// Package zerocopy provides a reference-counted view over externally-owned
// pixel memory.
//
// Capture backends hand out buffers whose lifetime is tied to an OS resource
// (an XShm segment, a mapped GPU surface, a GStreamer buffer). Wrapping that
// memory lets the encode stage read it directly instead of copying a full
// frame per capture; the registered release callback runs exactly once, when
// the last reference drops.
package zerocopy

import (
	"fmt"
	"sync/atomic"
)

// Buffer is a reference-counted view over a byte slice it does not own.
//
// A new Buffer starts with one reference held by the creator. Retain/Release
// are safe for concurrent use. Releasing the last reference runs the release
// callback and, for views, drops the reference held on the parent.
type Buffer struct {
	data    []byte
	refs    atomic.Int32
	release func()
	parent  *Buffer
	mapped  bool
}

// Wrap creates a buffer over externally-owned memory. release may be nil;
// when set it runs exactly once, when the last reference is dropped
// (e.g. to unmap a capture surface).
func Wrap(data []byte, release func()) *Buffer {
	b := &Buffer{data: data, release: release}
	b.refs.Store(1)
	return b
}

// WrapMapped is Wrap for memory-mapped sources; Mapped() reports true.
func WrapMapped(data []byte, release func()) *Buffer {
	b := Wrap(data, release)
	b.mapped = true
	return b
}

// Bytes returns the underlying memory. The slice must not be used after the
// last reference is released.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the byte length of the view.
func (b *Buffer) Len() int { return len(b.data) }

// Mapped reports whether the backing memory is a memory-mapped surface.
func (b *Buffer) Mapped() bool { return b.mapped }

// Retain adds a reference.
func (b *Buffer) Retain() {
	if b.refs.Add(1) <= 1 {
		panic("zerocopy: retain of released buffer")
	}
}

// Release drops a reference. On the 1→0 transition the release callback runs
// and any parent reference is dropped. Releasing more times than retained is
// a programming error and panics.
func (b *Buffer) Release() {
	n := b.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic("zerocopy: release of already-released buffer")
	}
	if b.release != nil {
		b.release()
		b.release = nil
	}
	if b.parent != nil {
		b.parent.Release()
		b.parent = nil
	}
}

// View returns a sub-view of offset+length bytes sharing this buffer's
// backing memory. The view holds a reference on its parent, so the parent's
// release callback cannot run while the view is outstanding. The view's own
// single reference belongs to the caller.
func (b *Buffer) View(offset, length int) (*Buffer, error) {
	if offset < 0 || length < 0 || offset+length > len(b.data) {
		return nil, fmt.Errorf("zerocopy: view [%d:%d) exceeds buffer length %d",
			offset, offset+length, len(b.data))
	}
	b.Retain()
	v := &Buffer{
		data:   b.data[offset : offset+length],
		parent: b,
		mapped: b.mapped,
	}
	v.refs.Store(1)
	return v, nil
}
