// Package bufpool implements the fixed-capacity, reference-counted
// message-buffer pool: a bounded set of Buffer
// objects, allocated and released under a single mutex, with reference
// counting kept lock-free on the hot path.
//
// The pool recycles a fixed number of *Buffer objects (its "slots") so
// that steady-state traffic does no further allocation once the working
// set of buffer sizes has stabilized, the Go analogue of the source's
// "no dynamic heap churn" requirement, grounded on
// a size-classed sync.Pool wrapper (see DESIGN.md), redesigned
// here with explicit reference counting instead of Get/Put semantics so
// a buffer can outlive the call that allocated it (queued pipes retain
// a reference).
package bufpool

import (
	"sync"
	"sync/atomic"

	"github.com/adred-codev/etfw/internal/msgid"
)

// Stats is the read-only snapshot of pool statistics exposed externally.
type Stats struct {
	Capacity     int
	InUse        int
	WaterMark    int
	AllocCount   int64
	ReleaseCount int64
}

// Pool is a fixed-capacity allocator of reference-counted Buffers.
type Pool struct {
	mu    sync.Mutex
	free  []*Buffer
	cap   int
	inUse int

	waterMark    int64 // atomic
	allocCount   int64 // atomic
	releaseCount int64 // atomic
}

// New creates a pool with room for at most capacity concurrently live
// buffers.
func New(capacity int) *Pool {
	if capacity <= 0 {
		panic("bufpool: capacity must be positive")
	}
	return &Pool{
		cap:  capacity,
		free: make([]*Buffer, 0, capacity),
	}
}

// AllocateRaw returns a buffer whose data region has at least size usable
// bytes, or ok=false if the pool is depleted (in_use == capacity).
// Successful allocation increments in_use and alloc_count and updates the
// water mark.
func (p *Pool) AllocateRaw(size int) (buf *Buffer, ok bool) {
	p.mu.Lock()
	if p.inUse >= p.cap {
		p.mu.Unlock()
		return nil, false
	}

	var b *Buffer
	if n := len(p.free); n > 0 {
		b = p.free[n-1]
		p.free = p.free[:n-1]
		if cap(b.data) < size {
			b.data = make([]byte, size)
		}
	} else {
		b = &Buffer{pool: p, data: make([]byte, size)}
	}

	p.inUse++
	p.mu.Unlock()

	b.refs = 1
	b.id = msgid.None
	b.size = size

	atomic.AddInt64(&p.allocCount, 1)
	p.bumpWaterMark()

	return b, true
}

// AllocateCopy sizes a buffer for len(payload) bytes, copies payload into
// it, and returns it with refcount 1, the Go analogue of the source's
// allocate_copy<T>(&msg).
func (p *Pool) AllocateCopy(id msgid.Id, payload []byte) (*Buffer, bool) {
	b, ok := p.AllocateRaw(len(payload))
	if !ok {
		return nil, false
	}
	b.SetID(id)
	copy(b.data, payload)
	b.size = len(payload)
	return b, true
}

// ReturnUnused hands back a buffer that was allocated but never sent,
// treating it like any other release.
func (p *Pool) ReturnUnused(b *Buffer) {
	b.Release()
}

func (p *Pool) bumpWaterMark() {
	for {
		cur := atomic.LoadInt64(&p.waterMark)
		p.mu.Lock()
		inUse := int64(p.inUse)
		p.mu.Unlock()
		if inUse <= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&p.waterMark, cur, inUse) {
			return
		}
	}
}

// reclaim is called by Buffer.Release when a buffer's refcount reaches
// zero. It is the only path that takes the pool mutex on the release
// side.
func (p *Pool) reclaim(b *Buffer) {
	if b.pool != p {
		panic("bufpool: buffer returned to a pool that does not own it")
	}
	p.mu.Lock()
	p.inUse--
	p.free = append(p.free, b)
	p.mu.Unlock()
	atomic.AddInt64(&p.releaseCount, 1)
}

// Stats returns a read-only snapshot of the pool's statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	inUse, capacity := p.inUse, p.cap
	p.mu.Unlock()
	return Stats{
		Capacity:     capacity,
		InUse:        inUse,
		WaterMark:    int(atomic.LoadInt64(&p.waterMark)),
		AllocCount:   atomic.LoadInt64(&p.allocCount),
		ReleaseCount: atomic.LoadInt64(&p.releaseCount),
	}
}

// Capacity returns the pool's fixed buffer-count capacity.
func (p *Pool) Capacity() int { return p.cap }
