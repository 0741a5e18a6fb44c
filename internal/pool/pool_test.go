package pool

import (
	"sync"
	"testing"
	"time"
)

// TestAcquireReuse verifies the release/acquire round-trip reuses the same
// backing buffer without a fresh allocation.
func TestAcquireReuse(t *testing.T) {
	p := New()

	buf, err := p.Acquire(1000)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	buf[0] = 0xAB
	p.Release(buf)

	again, err := p.Acquire(1000)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	// Same backing array: the marker byte survives the round-trip.
	if again[0] != 0xAB {
		t.Error("expected pooled buffer to be reused, got a fresh allocation")
	}

	stats := p.Stats()
	if stats.TotalBuffersCreated != 1 {
		t.Errorf("expected 1 buffer created, got %d", stats.TotalBuffersCreated)
	}
	if stats.MemoryReuseCount != 1 {
		t.Errorf("expected reuse count 1, got %d", stats.MemoryReuseCount)
	}
}

// TestBestFit verifies Acquire picks the smallest idle buffer that fits.
func TestBestFit(t *testing.T) {
	p := New()

	sizes := []int{4096, 512, 1024, 2048}
	var bufs [][]byte
	for _, s := range sizes {
		b, err := p.Acquire(s)
		if err != nil {
			t.Fatalf("Acquire(%d) failed: %v", s, err)
		}
		bufs = append(bufs, b)
	}
	for _, b := range bufs {
		p.Release(b)
	}

	got, err := p.Acquire(600)
	if err != nil {
		t.Fatalf("Acquire(600) failed: %v", err)
	}

	// Smallest capacity >= 600 among {4096, 512, 1024, 2048} is 1024.
	if cap(got) != 1024 {
		t.Errorf("best fit: expected capacity 1024, got %d", cap(got))
	}
	if p.Stats().MemoryReuseCount != 1 {
		t.Errorf("expected reuse count 1, got %d", p.Stats().MemoryReuseCount)
	}
	if p.Stats().TotalBuffersCreated != uint64(len(sizes)) {
		t.Errorf("best-fit Acquire must not allocate, created=%d", p.Stats().TotalBuffersCreated)
	}
}

// TestExactFitShortCircuit verifies an exact-size match wins even when a
// smaller-capacity candidate appears later in the scan.
func TestExactFitShortCircuit(t *testing.T) {
	p := New()

	a, _ := p.Acquire(2048)
	b, _ := p.Acquire(1000)
	p.Release(a)
	p.Release(b)

	got, err := p.Acquire(1000)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if cap(got) != 1000 {
		t.Errorf("expected exact match of capacity 1000, got %d", cap(got))
	}
}

// TestPoolBound verifies the pool never holds more than MaxPoolSize idle
// buffers and evicts the least-recently-used one when full.
func TestPoolBound(t *testing.T) {
	p := New()

	var bufs [][]byte
	for i := 0; i < MaxPoolSize+5; i++ {
		b, err := p.Acquire(100 + i)
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		bufs = append(bufs, b)
	}
	for _, b := range bufs {
		p.Release(b)
	}

	if n := p.Stats().AvailableBuffers; n > MaxPoolSize {
		t.Errorf("pool holds %d idle buffers, bound is %d", n, MaxPoolSize)
	}

	// The first releases are the oldest; they must have been evicted.
	// Remaining capacities are the last MaxPoolSize released sizes.
	got, _ := p.Acquire(100)
	if cap(got) == 100 {
		t.Error("oldest buffer should have been evicted by LRU policy")
	}
}

// TestIdleTimeout verifies buffers idle past the timeout are purged on the
// next Acquire.
func TestIdleTimeout(t *testing.T) {
	p := New()
	base := time.Now()
	p.now = func() time.Time { return base }

	b, _ := p.Acquire(500)
	p.Release(b)

	if p.Stats().AvailableBuffers != 1 {
		t.Fatalf("expected 1 idle buffer, got %d", p.Stats().AvailableBuffers)
	}

	// Advance past the 60s idle timeout.
	p.now = func() time.Time { return base.Add(61 * time.Second) }

	got, _ := p.Acquire(500)
	if cap(got) == 500 && p.Stats().TotalBuffersCreated == 1 {
		t.Error("expired buffer should have been purged, not reused")
	}
	if p.Stats().MemoryReuseCount != 0 {
		t.Errorf("expected no reuse after purge, got %d", p.Stats().MemoryReuseCount)
	}
}

// TestReleaseNil verifies Release of a nil/empty buffer is a no-op.
func TestReleaseNil(t *testing.T) {
	p := New()
	p.Release(nil)
	p.Release([]byte{})
	if p.Stats().AvailableBuffers != 0 {
		t.Errorf("expected empty pool, got %d idle", p.Stats().AvailableBuffers)
	}
}

// TestAcquireInvalidSize verifies size <= 0 is rejected.
func TestAcquireInvalidSize(t *testing.T) {
	p := New()
	if _, err := p.Acquire(0); err == nil {
		t.Error("Acquire(0) should fail")
	}
	if _, err := p.Acquire(-1); err == nil {
		t.Error("Acquire(-1) should fail")
	}
}

// TestConcurrentAccess hammers the pool from multiple goroutines.
func TestConcurrentAccess(t *testing.T) {
	p := New()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b, err := p.Acquire(256 + g*64)
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				p.Release(b)
			}
		}(g)
	}
	wg.Wait()

	if n := p.Stats().AvailableBuffers; n > MaxPoolSize {
		t.Errorf("pool bound violated under concurrency: %d idle", n)
	}
}
