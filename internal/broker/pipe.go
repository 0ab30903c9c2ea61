package broker

import (
	"sync/atomic"
	"time"

	"github.com/adred-codev/etfw/internal/bufpool"
	"github.com/adred-codev/etfw/internal/msgid"
)

// Handler processes one delivered buffer. Handlers never retain buf
// beyond the call: if they need the payload afterwards, they must copy
// it. The buffer's lifetime past the call is managed by the pipe that
// invoked the handler.
type Handler func(buf *bufpool.Buffer)

// Pipe is the delivery endpoint the broker fans messages out to.
// Every concrete pipe kind (sync, queued, static, wakeup) satisfies
// this interface.
type Pipe interface {
	// Accepts reports whether the pipe is currently subscribed to id.
	Accepts(id msgid.Id) bool
	// ReceiveShared delivers a message via a shared, reference-counted
	// buffer. The caller (the broker) has already retained a reference
	// for the duration of this call and releases it when ReceiveShared
	// returns; a pipe that wants the message to outlive the call must
	// retain its own reference before returning.
	ReceiveShared(buf *bufpool.Buffer)
	// Priority orders delivery across pipes receiving the same message;
	// lower runs earlier.
	Priority() int
	// Subscription exposes the pipe's mutable subscription set.
	Subscription() *Subscription
}

// SyncPipe invokes its handler inline, on the sender's thread, for every
// accepted message.
type SyncPipe struct {
	priority int
	sub      *Subscription
	handle   Handler
}

// NewSyncPipe creates a synchronous pipe with no initial subscriptions.
func NewSyncPipe(priority int, handler Handler) *SyncPipe {
	return &SyncPipe{priority: priority, sub: NewSubscription(), handle: handler}
}

func (p *SyncPipe) Accepts(id msgid.Id) bool         { return p.sub.Has(id) }
func (p *SyncPipe) Priority() int                    { return p.priority }
func (p *SyncPipe) Subscription() *Subscription      { return p.sub }
func (p *SyncPipe) ReceiveShared(buf *bufpool.Buffer) {
	if p.handle != nil {
		p.handle(buf)
	}
}

// QueueObserver receives queued-pipe backpressure events, named by pipe.
// internal/metrics.Registry satisfies this interface.
type QueueObserver interface {
	RecordQueueDrop(pipe string)
	RecordQueueIdleTimeout(pipe string)
}

// QueuedPipe buffers a shared reference to each accepted message in a
// bounded queue; the owning service drains it from its own thread by
// calling ProcessQueue.
type QueuedPipe struct {
	priority int
	sub      *Subscription
	handle   Handler
	queue    *BlockingQueue[*bufpool.Buffer]
	drops    int64 // atomic

	obsName string
	obs     QueueObserver
}

// NewQueuedPipe creates a queued pipe with the given bounded depth.
func NewQueuedPipe(priority int, depth int, handler Handler) *QueuedPipe {
	return &QueuedPipe{
		priority: priority,
		sub:      NewSubscription(),
		handle:   handler,
		queue:    NewBlockingQueue[*bufpool.Buffer](depth),
	}
}

func (p *QueuedPipe) Accepts(id msgid.Id) bool    { return p.sub.Has(id) }
func (p *QueuedPipe) Priority() int               { return p.priority }
func (p *QueuedPipe) Subscription() *Subscription { return p.sub }

// SetObserver wires this pipe to obs, which is notified of every drop
// and idle timeout under name. A nil observer disables reporting.
func (p *QueuedPipe) SetObserver(name string, obs QueueObserver) {
	p.obsName = name
	p.obs = obs
}

// ReceiveShared retains its own reference to buf and pushes it onto the
// queue. If the queue is full, the reference is dropped immediately and
// the drop counter is incremented.
func (p *QueuedPipe) ReceiveShared(buf *bufpool.Buffer) {
	retained := buf.Retain()
	if !p.queue.Push(retained) {
		atomic.AddInt64(&p.drops, 1)
		if p.obs != nil {
			p.obs.RecordQueueDrop(p.obsName)
		}
		retained.Release()
	}
}

// ProcessQueue drains up to the queue's current length, invoking the
// handler once per message and releasing each buffer afterward. If the
// queue is empty, it waits up to timeout for the next message. It
// returns the number of messages processed.
func (p *QueuedPipe) ProcessQueue(timeout time.Duration) int {
	n := p.queue.Len()
	if n == 0 {
		buf, ok := p.queue.PopWait(timeout)
		if !ok {
			if p.obs != nil {
				p.obs.RecordQueueIdleTimeout(p.obsName)
			}
			return 0
		}
		p.dispatch(buf)
		return 1
	}

	processed := 0
	for i := 0; i < n; i++ {
		buf, ok := p.queue.PopNonBlocking()
		if !ok {
			break
		}
		p.dispatch(buf)
		processed++
	}
	return processed
}

func (p *QueuedPipe) dispatch(buf *bufpool.Buffer) {
	defer buf.Release()
	if p.handle != nil {
		p.handle(buf)
	}
}

// QueueLen returns the number of messages currently queued.
func (p *QueuedPipe) QueueLen() int { return p.queue.Len() }

// Drops returns the monotonic count of messages dropped because the
// queue was full when they arrived.
func (p *QueuedPipe) Drops() int64 { return atomic.LoadInt64(&p.drops) }

// ResetDrops zeroes the drop counter.
func (p *QueuedPipe) ResetDrops() { atomic.StoreInt64(&p.drops, 0) }

// StaticPipe freezes its subscription to the exact set of ids given at
// construction and dispatches each message to a per-id handler, falling
// back to an unknown handler when no id matches.
type StaticPipe struct {
	priority int
	sub      *Subscription
	handlers map[msgid.Id]Handler
	unknown  Handler
}

// NewStaticPipe creates a pipe frozen to the ids present in handlers.
func NewStaticPipe(priority int, handlers map[msgid.Id]Handler, unknown Handler) *StaticPipe {
	sub := NewSubscription()
	for id := range handlers {
		sub.Subscribe(id)
	}
	return &StaticPipe{priority: priority, sub: sub, handlers: handlers, unknown: unknown}
}

func (p *StaticPipe) Accepts(id msgid.Id) bool    { return p.sub.Has(id) }
func (p *StaticPipe) Priority() int               { return p.priority }
func (p *StaticPipe) Subscription() *Subscription { return p.sub }

func (p *StaticPipe) ReceiveShared(buf *bufpool.Buffer) {
	if h, ok := p.handlers[buf.ID()]; ok {
		h(buf)
		return
	}
	if p.unknown != nil {
		p.unknown(buf)
	}
}

// WakeupPipe is a queued pipe of depth 1 subscribed to a single wakeup id
// for one module, used to wake a service's thread on arrival or timeout.
type WakeupPipe struct {
	*QueuedPipe
}

// NewWakeupPipe creates a wakeup pipe for the given module id.
func NewWakeupPipe(module uint8) *WakeupPipe {
	qp := NewQueuedPipe(0, 1, nil)
	qp.sub.Subscribe(msgid.Pack(module, msgid.Wakeup, 0))
	return &WakeupPipe{QueuedPipe: qp}
}

// Wait blocks up to timeout for the wakeup message to arrive, returning
// true if it did.
func (w *WakeupPipe) Wait(timeout time.Duration) bool {
	buf, ok := w.queue.PopWait(timeout)
	if ok {
		buf.Release()
	}
	return ok
}
