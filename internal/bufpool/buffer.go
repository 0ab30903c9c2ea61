package bufpool

import (
	"sync/atomic"

	"github.com/adred-codev/etfw/internal/msgid"
)

// Buffer is a pool-owned region containing exactly one message plus a
// reference count. Every live Buffer has a refcount >= 1 and
// exactly one owning Pool for its entire life. Reaching refcount 0 is the
// sole trigger for returning the buffer to its pool.
//
// Buffer is not safe for concurrent mutation of its payload, but Retain
// and Release are safe for concurrent use from multiple goroutines: the
// refcount itself is manipulated with atomics and never takes the pool's
// mutex except on the terminal return-to-pool transition.
type Buffer struct {
	pool *Pool
	data []byte
	id   msgid.Id
	size int
	refs int32
}

// ID returns the message id written into this buffer.
func (b *Buffer) ID() msgid.Id { return b.id }

// SetID sets the message id carried by this buffer.
func (b *Buffer) SetID(id msgid.Id) { b.id = id }

// Size returns the used length of the buffer's payload (may be less than
// its capacity for variable-length messages).
func (b *Buffer) Size() int { return b.size }

// SetSize sets the used length of the payload. It is a programmer error
// to set a size larger than Cap.
func (b *Buffer) SetSize(n int) {
	if n > cap(b.data) {
		panic("bufpool: size exceeds buffer capacity")
	}
	b.size = n
}

// Cap returns the total usable capacity of the buffer's backing region.
func (b *Buffer) Cap() int { return cap(b.data) }

// Bytes returns the used portion of the buffer's payload.
func (b *Buffer) Bytes() []byte { return b.data[:b.size] }

// RefCount returns the buffer's current reference count. Intended for
// tests and diagnostics, not for synchronization decisions.
func (b *Buffer) RefCount() int32 { return atomic.LoadInt32(&b.refs) }

// Retain increments the buffer's reference count and returns the same
// buffer, so callers can write `delivered := buf.Retain()` to express
// "I now hold an additional reference to this buffer".
func (b *Buffer) Retain() *Buffer {
	atomic.AddInt32(&b.refs, 1)
	return b
}

// Release decrements the buffer's reference count. When the count reaches
// zero, the buffer is returned to its owning pool. Releasing a buffer more
// times than it was retained is a fatal programming error: the pool traps this as a panic rather than silently corrupting
// pool statistics.
func (b *Buffer) Release() {
	n := atomic.AddInt32(&b.refs, -1)
	switch {
	case n > 0:
		return
	case n == 0:
		b.pool.reclaim(b)
	default:
		panic("bufpool: double release of buffer")
	}
}
