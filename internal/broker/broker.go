package broker

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/adred-codev/etfw/internal/bufpool"
	"github.com/adred-codev/etfw/internal/msgid"
)

// HeaderSize is the minimum size a buffer handed to SendBuf must report.
// The source's BaseMessageHeader lives inside the buffer's byte payload;
// this Go rendition stores the message id out-of-band on the Buffer
// itself (bufpool.Buffer.ID), so the floor collapses to zero: there is
// no header to reserve room for. Kept as a named constant, rather than a
// literal 0, so the size check in SendBuf still reads as the general
// "msg.size >= header_size" rule.
const HeaderSize = 0

// Stats is the read-only snapshot of broker statistics exposed
// externally.
type Stats struct {
	RegisteredPipes int
	NumSendCalls    int64
	AllocFailures   int64
}

// Broker holds the buffer pool and the set of registered pipes, and fans
// messages out to every subscribed pipe on send.
type Broker struct {
	pool *bufpool.Pool

	mu    sync.Mutex
	pipes []Pipe

	numSendCalls    int64 // atomic
	allocFailures   int64 // atomic
	registeredPipes int64 // atomic
}

// New creates a broker backed by pool.
func New(pool *bufpool.Pool) *Broker {
	return &Broker{pool: pool}
}

// RegisterPipe adds p to the broker's registry, ordered by Priority()
// (ties broken by registration order). Re-registering
// an already-registered pipe is a no-op.
func (b *Broker) RegisterPipe(p Pipe) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.pipes {
		if existing == p {
			return
		}
	}
	b.pipes = append(b.pipes, p)
	sort.SliceStable(b.pipes, func(i, j int) bool {
		return b.pipes[i].Priority() < b.pipes[j].Priority()
	})
	atomic.AddInt64(&b.registeredPipes, 1)
}

// UnregisterPipe removes p from the registry if present, always
// decrementing registered_pipes on success. A no-op if p isn't
// registered.
func (b *Broker) UnregisterPipe(p Pipe) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.pipes {
		if existing == p {
			b.pipes = append(b.pipes[:i], b.pipes[i+1:]...)
			atomic.AddInt64(&b.registeredPipes, -1)
			return
		}
	}
}

// Send allocates a buffer sized for payload, copies payload in under id,
// and fans it out to every currently-subscribed pipe.
// Allocation failure is silent to the caller beyond the alloc_failures
// counter, keeping the fast path branchless.
func (b *Broker) Send(id msgid.Id, payload []byte) {
	buf, ok := b.pool.AllocateCopy(id, payload)
	if !ok {
		atomic.AddInt64(&b.allocFailures, 1)
		return
	}
	atomic.AddInt64(&b.numSendCalls, 1)
	b.fanout(buf)
}

// GetMessageBuf returns a buffer with refcount 1, owned by the caller,
// for building a message to hand to SendBuf. The caller
// must either SendBuf it or ReturnMessageBuf it.
func (b *Broker) GetMessageBuf(size int) (*bufpool.Buffer, bool) {
	return b.pool.AllocateRaw(size)
}

// ReturnMessageBuf hands back a buffer obtained from GetMessageBuf that
// was never sent.
func (b *Broker) ReturnMessageBuf(buf *bufpool.Buffer) {
	b.pool.ReturnUnused(buf)
}

// SendBuf fans out a buffer the caller has already written a well-formed
// message into (including id and size). It validates msg.size against
// HeaderSize before fanning out; on validation failure the buffer is
// released immediately and SendBuf returns false.
func (b *Broker) SendBuf(buf *bufpool.Buffer) bool {
	if buf.Size() < HeaderSize {
		buf.Release()
		return false
	}
	b.fanout(buf)
	return true
}

// fanout walks the pipe registry under the broker lock, so pipes cannot
// be added or removed mid-fanout, delivering to every pipe whose current
// subscription accepts the message's id, then drops the broker's own
// initial reference. The pool's mutex is never held here: only the
// broker's own lock is held during dispatch.
func (b *Broker) fanout(buf *bufpool.Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.pipes {
		if p.Accepts(buf.ID()) {
			delivered := buf.Retain()
			p.ReceiveShared(delivered)
			delivered.Release()
		}
	}
	buf.Release()
}

// Stats returns a read-only snapshot of the broker's statistics.
func (b *Broker) Stats() Stats {
	return Stats{
		RegisteredPipes: int(atomic.LoadInt64(&b.registeredPipes)),
		NumSendCalls:    atomic.LoadInt64(&b.numSendCalls),
		AllocFailures:   atomic.LoadInt64(&b.allocFailures),
	}
}

// Pool returns the buffer pool backing this broker.
func (b *Broker) Pool() *bufpool.Pool { return b.pool }
