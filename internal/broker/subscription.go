// Package broker implements the messaging core's subscription table,
// pipes, blocking queue, and the broker itself.
package broker

import (
	"sync"

	"github.com/adred-codev/etfw/internal/msgid"
)

// Subscription is the mutable set of message ids owned by one pipe.
// Duplicates are permitted but semantically equivalent to a
// single entry; mutation is monotonic-safe at any time, including while
// the owning pipe is registered with a broker.
type Subscription struct {
	mu  sync.RWMutex
	ids []msgid.Id
}

// NewSubscription returns an empty subscription.
func NewSubscription() *Subscription {
	return &Subscription{}
}

// Subscribe adds id to the subscription. Safe to call at any time.
func (s *Subscription) Subscribe(id msgid.Id) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
}

// Unsubscribe removes the first occurrence of id, if present.
func (s *Subscription) Unsubscribe(id msgid.Id) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
}

// Has reports whether id is currently in the subscription.
func (s *Subscription) Has(id msgid.Id) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// View returns a snapshot of the ids currently subscribed. The broker
// does not use View: it calls Has (through Pipe.Accepts) once per pipe
// on each send, so a concurrent mutation may or may not be visible to an
// in-flight send depending on interleaving; this is explicitly permitted.
func (s *Subscription) View() []msgid.Id {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]msgid.Id, len(s.ids))
	copy(out, s.ids)
	return out
}
