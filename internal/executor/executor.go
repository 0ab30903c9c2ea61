package executor

import (
	"sync"

	"github.com/adred-codev/etfw/internal/service"
	"github.com/adred-codev/etfw/internal/status"
	"github.com/rs/zerolog"
)

// DefaultCapacity is the registry's default fixed capacity. Grounded on
// the same "bounded, no unbounded growth on the hot path" preference as
// service.MaxChildren.
const DefaultCapacity = 256

// Result is one service's outcome from a start_all/stop_all pass
// (a supplemented feature: the source logs and discards per-service
// failures; this exposes them as data too, so a caller can act on
// which services failed without re-parsing log lines).
type Result struct {
	ID     uint32
	Name   string
	Status status.Status
}

// Executor is a bounded, insertion-ordered registry of services.
// Register/StartAll/StopAll iterate in registration order; per-service
// failures are logged and do not abort the loop.
type Executor struct {
	capacity int
	log      zerolog.Logger

	mu    sync.Mutex
	order []*service.Service
	byID  map[uint32]*service.Service
}

// New creates an executor with the given capacity (DefaultCapacity if
// capacity <= 0).
func New(capacity int, log zerolog.Logger) *Executor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Executor{
		capacity: capacity,
		log:      log,
		byID:     make(map[uint32]*service.Service),
	}
}

// Register inserts svc once, in order. A duplicate id yields ID_TAKEN;
// exceeding capacity yields REGISTRY_FULL.
func (e *Executor) Register(svc *service.Service) status.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byID[svc.ID()]; ok {
		return newStatus(CodeIDTaken)
	}
	if len(e.order) >= e.capacity {
		return newStatus(CodeRegistryFull)
	}
	e.order = append(e.order, svc)
	e.byID[svc.ID()] = svc
	return newStatus(CodeOK)
}

// StartAll iterates in registration order and, for each service, calls
// Init if not already initialized, then Start if not already started.
// Per-service failures are logged and do not abort the loop; the
// executor reports best-effort completion via the returned Results.
func (e *Executor) StartAll() []Result {
	return e.forEach(func(svc *service.Service) status.Status {
		if !svc.IsInit() {
			if st := svc.Init(); st.IsError() {
				return st
			}
		}
		if svc.IsStarted() {
			return newStatus(CodeOK)
		}
		return svc.Start()
	})
}

// StopAll iterates in registration order and stops only services
// currently started.
func (e *Executor) StopAll() []Result {
	return e.forEach(func(svc *service.Service) status.Status {
		if !svc.IsStarted() {
			return newStatus(CodeOK)
		}
		return svc.Stop()
	})
}

// Start starts a single registered service by id.
func (e *Executor) Start(id uint32) status.Status {
	svc, ok := e.lookup(id)
	if !ok {
		return newStatus(CodeNotFound)
	}
	if !svc.IsInit() {
		if st := svc.Init(); st.IsError() {
			return st
		}
	}
	return svc.Start()
}

// Stop stops a single registered service by id.
func (e *Executor) Stop(id uint32) status.Status {
	svc, ok := e.lookup(id)
	if !ok {
		return newStatus(CodeNotFound)
	}
	return svc.Stop()
}

func (e *Executor) lookup(id uint32) (*service.Service, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	svc, ok := e.byID[id]
	return svc, ok
}

func (e *Executor) snapshot() []*service.Service {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*service.Service, len(e.order))
	copy(out, e.order)
	return out
}

func (e *Executor) forEach(op func(*service.Service) status.Status) []Result {
	results := make([]Result, 0, len(e.order))
	for _, svc := range e.snapshot() {
		st := op(svc)
		if st.IsError() {
			e.log.Error().
				Uint32("service_id", svc.ID()).
				Str("service_name", svc.Name()).
				Str("status", st.Message()).
				Msg("service operation failed")
		}
		results = append(results, Result{ID: svc.ID(), Name: svc.Name(), Status: st})
	}
	return results
}

// Len returns the number of registered services.
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}
