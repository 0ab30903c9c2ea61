package service

import (
	"sync"

	"github.com/adred-codev/etfw/internal/broker"
	"github.com/adred-codev/etfw/internal/msgid"
	"github.com/adred-codev/etfw/internal/status"
	"github.com/rs/zerolog"
)

// MaxChildren bounds the number of children one service may register,
// mirroring the framework's preference for fixed-capacity registries
// over unbounded growth.
const MaxChildren = 32

// Service wraps a Hooks implementation with the lifecycle guards, child
// registry, and runner. It is the unit the
// Executor registers and drives.
type Service struct {
	id   uint32
	name string

	mu     sync.Mutex
	isInit bool

	runner Runner
	hooks  Hooks

	children   []*Service
	childNames map[uint32]struct{}

	broker *broker.Broker
	log    zerolog.Logger
}

// New creates a service with the given id and name, backed by runner and
// driving hooks. broker and log back the AppFwProxy handed to user code.
func New(id uint32, name string, runner Runner, hooks Hooks, b *broker.Broker, log zerolog.Logger) *Service {
	return &Service{
		id:         id,
		name:       name,
		runner:     runner,
		hooks:      hooks,
		childNames: make(map[uint32]struct{}),
		broker:     b,
		log:        log.With().Str("service", name).Logger(),
	}
}

func (s *Service) ID() uint32    { return s.id }
func (s *Service) Name() string  { return s.name }
func (s *Service) IsInit() bool  { s.mu.Lock(); defer s.mu.Unlock(); return s.isInit }
// IsStarted reports whether the runner is currently running, derived
// directly from its live State() rather than a separately tracked flag:
// a runner can self-transition to Exited or Error without Stop() ever
// being called, and a cached bool would never observe that.
func (s *Service) IsStarted() bool { return s.isRunning() }

func (s *Service) isRunning() bool {
	switch s.runner.State() {
	case Starting, Active, StopRequested, Stopping:
		return true
	default:
		return false
	}
}

func (s *Service) State() State { return s.runner.State() }

// Children returns a snapshot of the currently registered children.
func (s *Service) Children() []*Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Service, len(s.children))
	copy(out, s.children)
	return out
}

// Init marks the service initialized, which Start requires. It does not
// change State(): that reports the runner's state, which stays Created
// until the first Start and never reads Initialized. Calling Init again
// before Cleanup returns ALREADY_INIT without re-running anything.
func (s *Service) Init() status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isInit {
		return newStatus(CodeAlreadyInit)
	}
	s.isInit = true
	return newStatus(CodeOK)
}

// Start runs the service's runner. It requires Init to have succeeded
// first; calling it while already started returns ALREADY_STARTED. A
// runner that has self-exited or self-errored is not running, so Start
// is legal again without an intervening Stop/Cleanup; it restarts the
// same runner in place.
func (s *Service) Start() status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isInit {
		return newStatus(CodeUninitErr)
	}
	if s.isRunning() {
		return newStatus(CodeAlreadyStarted)
	}
	s.runner.Start(s.hooks, s.stopChildren)
	return newStatus(CodeOK)
}

// Stop requests the runner stop. Stopping a service that isn't started
// returns STOPPED, not an error.
func (s *Service) Stop() status.Status {
	s.mu.Lock()
	running := s.isRunning()
	s.mu.Unlock()
	if !running {
		return newStatus(CodeStopped)
	}

	s.runner.Stop()
	return newStatus(CodeOK)
}

// Cleanup tears the service down, allowing a future Init. It returns
// ALREADY_STARTED if the service is currently started.
func (s *Service) Cleanup() status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning() {
		return newStatus(CodeAlreadyStarted)
	}
	s.isInit = false
	return newStatus(CodeOK)
}

// RegisterChild adds child to the registry idempotently, returning
// REGISTRY_FULL-equivalent status if at capacity. Re-registering the
// same child id is a no-op.
func (s *Service) RegisterChild(child *Service) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.childNames[child.id]; ok {
		return newStatus(CodeOK)
	}
	if len(s.children) >= MaxChildren {
		return newStatus(CodeChildRegistryFull)
	}
	s.children = append(s.children, child)
	s.childNames[child.id] = struct{}{}
	return newStatus(CodeOK)
}

// StartChild registers child (if not already) and starts it.
func (s *Service) StartChild(child *Service) status.Status {
	if st := s.RegisterChild(child); st.IsError() {
		return st
	}
	if !child.IsInit() {
		if st := child.Init(); st.IsError() {
			return st
		}
	}
	return child.Start()
}

// stopChildren stops every registered child in registration order and
// waits for each to leave ACTIVE before returning, so the caller's
// post_run_cleanup runs only after all children are down.
func (s *Service) stopChildren() {
	for _, child := range s.Children() {
		if child.IsStarted() {
			child.Stop()
		}
	}
}

// Proxy returns the narrow capability object handed to user hook code.
func (s *Service) Proxy() *AppFwProxy {
	return &AppFwProxy{owner: s}
}

// AppFwProxy is the capability user code inside a service receives: it
// can register and start children, subscribe to messages, and log,
// without depending on the full Service type.
type AppFwProxy struct {
	owner *Service
}

func (p *AppFwProxy) RegisterChild(child *Service) status.Status { return p.owner.RegisterChild(child) }
func (p *AppFwProxy) StartChild(child *Service) status.Status    { return p.owner.StartChild(child) }

// Subscribe adds id to pipe's subscription set. It is a thin pass-
// through; the proxy exists to keep user code from reaching past it
// into the broker directly.
func (p *AppFwProxy) Subscribe(pipe broker.Pipe, id msgid.Id) {
	pipe.Subscription().Subscribe(id)
}

func (p *AppFwProxy) Send(id msgid.Id, payload []byte) {
	p.owner.broker.Send(id, payload)
}

func (p *AppFwProxy) Log() zerolog.Logger { return p.owner.log }
