package bufpool

import (
	"sync"
	"testing"

	"github.com/adred-codev/etfw/internal/msgid"
)

func TestAllocateReleaseRoundTrip(t *testing.T) {
	p := New(4)

	b, ok := p.AllocateRaw(16)
	if !ok {
		t.Fatal("expected allocation to succeed")
	}
	if got := p.Stats().InUse; got != 1 {
		t.Fatalf("InUse = %d, want 1", got)
	}
	if got := p.Stats().AllocCount; got != 1 {
		t.Fatalf("AllocCount = %d, want 1", got)
	}

	b.Release()
	stats := p.Stats()
	if stats.InUse != 0 {
		t.Fatalf("InUse after release = %d, want 0", stats.InUse)
	}
	if stats.ReleaseCount != 1 {
		t.Fatalf("ReleaseCount = %d, want 1", stats.ReleaseCount)
	}
}

func TestDepletionReturnsFalse(t *testing.T) {
	p := New(2)
	b1, ok1 := p.AllocateRaw(8)
	b2, ok2 := p.AllocateRaw(8)
	if !ok1 || !ok2 {
		t.Fatal("expected first two allocations to succeed")
	}
	_, ok3 := p.AllocateRaw(8)
	if ok3 {
		t.Fatal("expected third allocation to fail: pool depleted")
	}
	stats := p.Stats()
	if stats.InUse != 2 || stats.Capacity != 2 {
		t.Fatalf("unexpected stats after depletion: %+v", stats)
	}

	b1.Release()
	b2.Release()
}

func TestWaterMarkTracksMaxInUse(t *testing.T) {
	p := New(4)
	b1, _ := p.AllocateRaw(8)
	b2, _ := p.AllocateRaw(8)
	b3, _ := p.AllocateRaw(8)
	b1.Release()
	b2.Release()

	if got := p.Stats().WaterMark; got != 3 {
		t.Fatalf("WaterMark = %d, want 3", got)
	}
	b3.Release()
	if got := p.Stats().WaterMark; got != 3 {
		t.Fatalf("WaterMark after drain = %d, want 3 (high-water, not current)", got)
	}
}

func TestDoubleReleasePanics(t *testing.T) {
	p := New(2)
	b, _ := p.AllocateRaw(8)
	b.Release()
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected double release to panic")
		}
	}()
	b.Release()
}

func TestRetainKeepsBufferAlive(t *testing.T) {
	p := New(1)
	b, _ := p.AllocateRaw(8)
	b.Retain()
	b.Release() // refcount 1 -> still alive
	if p.Stats().InUse != 1 {
		t.Fatal("buffer should still be in use after one of two releases")
	}
	b.Release() // refcount 0 -> returned
	if p.Stats().InUse != 0 {
		t.Fatal("buffer should be released after matching release count")
	}
}

func TestAllocateCopyWritesPayload(t *testing.T) {
	p := New(4)
	id := msgid.Pack(1, msgid.Tlm, 5)
	payload := []byte("hello")
	b, ok := p.AllocateCopy(id, payload)
	if !ok {
		t.Fatal("expected allocation to succeed")
	}
	if b.ID() != id {
		t.Fatalf("ID() = %v, want %v", b.ID(), id)
	}
	if string(b.Bytes()) != "hello" {
		t.Fatalf("Bytes() = %q, want %q", b.Bytes(), "hello")
	}
	b.Release()
}

func TestConcurrentAllocateRelease(t *testing.T) {
	p := New(16)
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				b, ok := p.AllocateRaw(8)
				if ok {
					b.Release()
					return
				}
			}
		}()
	}
	wg.Wait()

	stats := p.Stats()
	if stats.InUse != 0 {
		t.Fatalf("InUse after drain = %d, want 0", stats.InUse)
	}
	if stats.AllocCount-stats.ReleaseCount != int64(stats.InUse) {
		t.Fatal("alloc_count - release_count must equal in_use")
	}
}

func TestReturnUnused(t *testing.T) {
	p := New(1)
	b, _ := p.AllocateRaw(8)
	p.ReturnUnused(b)
	if p.Stats().InUse != 0 {
		t.Fatal("ReturnUnused must release the buffer")
	}
}
