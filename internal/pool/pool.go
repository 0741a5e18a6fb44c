// Package pool implements a best-fit buffer pool for frame and chunk staging.
//
// Screen captures at 8K churn through buffers of a handful of recurring sizes
// (full frames, chunk rows, conversion scratch). Recycling them keeps the
// allocator and GC out of the hot path. The pool is deliberately small and
// cheap: a mutex-guarded slice of at most MaxPoolSize idle buffers.
package pool

import (
	"fmt"
	"sync"
	"time"
)

const (
	// MaxPoolSize bounds the number of idle buffers retained.
	// When full, the least-recently-used idle buffer is evicted.
	MaxPoolSize = 10

	// idleTimeout is how long an idle buffer may sit unused before it is
	// purged. Purging runs at the start of every Acquire.
	idleTimeout = 60 * time.Second
)

// Stats is a snapshot of pool counters.
type Stats struct {
	// AvailableBuffers is the current number of idle buffers.
	AvailableBuffers int

	// TotalBuffersCreated counts fresh allocations (cache misses).
	TotalBuffersCreated uint64

	// TotalMemoryAllocated is the cumulative bytes of fresh allocations.
	TotalMemoryAllocated uint64

	// PeakMemoryUsage is the high-water mark of cumulative allocations
	// plus idle bytes observed at allocation time.
	PeakMemoryUsage uint64

	// MemoryReuseCount counts Acquire calls satisfied from the pool.
	MemoryReuseCount uint64
}

type idleBuffer struct {
	buf      []byte
	lastUsed time.Time
}

// BufferPool recycles byte buffers with a best-fit policy.
//
// Thread-safety: all state is guarded by one mutex. Operations are
// O(MaxPoolSize), so the critical section is short.
type BufferPool struct {
	mu    sync.Mutex
	idle  []idleBuffer
	stats Stats

	// now is swappable for timeout tests.
	now func() time.Time
}

// New creates an empty pool.
func New() *BufferPool {
	return &BufferPool{now: time.Now}
}

// Acquire returns a buffer with capacity >= size, sliced to length size.
//
// The smallest idle buffer that satisfies the request wins (best fit, ties
// broken by first match); an exact-size match short-circuits the search.
// If nothing fits, a fresh buffer is allocated. Idle buffers unused for more
// than the idle timeout are purged before the search.
func (p *BufferPool) Acquire(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool: invalid buffer size %d", size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.purgeExpiredLocked()

	if i := p.bestFitLocked(size); i >= 0 {
		buf := p.idle[i].buf
		p.idle = append(p.idle[:i], p.idle[i+1:]...)
		p.stats.AvailableBuffers = len(p.idle)
		p.stats.MemoryReuseCount++
		return buf[:size], nil
	}

	buf := make([]byte, size)
	p.stats.TotalBuffersCreated++
	p.stats.TotalMemoryAllocated += uint64(size)

	current := p.stats.TotalMemoryAllocated
	for _, ib := range p.idle {
		current += uint64(cap(ib.buf))
	}
	if current > p.stats.PeakMemoryUsage {
		p.stats.PeakMemoryUsage = current
	}

	return buf, nil
}

// Release returns a buffer to the pool, stamped with the current time.
// A nil or empty buffer is a no-op. If the pool is full, the
// least-recently-used idle buffer is evicted first.
func (p *BufferPool) Release(buf []byte) {
	if cap(buf) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.idle) >= MaxPoolSize {
		oldest := 0
		for i := 1; i < len(p.idle); i++ {
			if p.idle[i].lastUsed.Before(p.idle[oldest].lastUsed) {
				oldest = i
			}
		}
		p.idle = append(p.idle[:oldest], p.idle[oldest+1:]...)
	}

	p.idle = append(p.idle, idleBuffer{buf: buf[:cap(buf)], lastUsed: p.now()})
	p.stats.AvailableBuffers = len(p.idle)
}

// Clear drops all idle buffers.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle = nil
	p.stats.AvailableBuffers = 0
}

// Stats returns a snapshot of the pool counters.
func (p *BufferPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *BufferPool) purgeExpiredLocked() {
	cutoff := p.now().Add(-idleTimeout)
	kept := p.idle[:0]
	for _, ib := range p.idle {
		if ib.lastUsed.After(cutoff) {
			kept = append(kept, ib)
		}
	}
	p.idle = kept
	p.stats.AvailableBuffers = len(p.idle)
}

// bestFitLocked returns the index of the smallest idle buffer with
// capacity >= size, or -1 if none fits.
func (p *BufferPool) bestFitLocked(size int) int {
	best := -1
	bestCap := 0
	for i, ib := range p.idle {
		c := cap(ib.buf)
		if c < size {
			continue
		}
		if best < 0 || c < bestCap {
			best = i
			bestCap = c
			if c == size {
				break
			}
		}
	}
	return best
}
