package executor

import (
	"testing"

	"github.com/adred-codev/etfw/internal/broker"
	"github.com/adred-codev/etfw/internal/bufpool"
	"github.com/adred-codev/etfw/internal/service"
	"github.com/rs/zerolog"
)

type nopHooks struct{}

func (nopHooks) PreRunInit() service.HookResult     { return service.HookOK }
func (nopHooks) Process() service.HookResult        { return service.HookOK }
func (nopHooks) PostRunCleanup() service.HookResult { return service.HookOK }

func newSvc(id uint32, name string) *service.Service {
	b := broker.New(bufpool.New(4))
	return service.New(id, name, service.NewPassiveRunner(), nopHooks{}, b, zerolog.Nop())
}

func TestRegisterDuplicateAndCapacity(t *testing.T) {
	e := New(2, zerolog.Nop())

	if st := e.Register(newSvc(1, "a")); st.IsError() {
		t.Fatalf("first register: %v", st)
	}
	if st := e.Register(newSvc(1, "dup")); st.Code() != CodeIDTaken {
		t.Fatalf("duplicate register: %v", st)
	}
	if st := e.Register(newSvc(2, "b")); st.IsError() {
		t.Fatalf("second register: %v", st)
	}
	if st := e.Register(newSvc(3, "c")); st.Code() != CodeRegistryFull {
		t.Fatalf("over-capacity register: %v", st)
	}
	if e.Len() != 2 {
		t.Fatalf("Len = %d, want 2", e.Len())
	}
}

func TestStartAllInitsAndStartsInOrder(t *testing.T) {
	e := New(4, zerolog.Nop())
	svcs := []*service.Service{newSvc(1, "a"), newSvc(2, "b"), newSvc(3, "c")}
	for _, s := range svcs {
		if st := e.Register(s); st.IsError() {
			t.Fatalf("register %s: %v", s.Name(), st)
		}
	}

	results := e.StartAll()
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, r := range results {
		if r.ID != svcs[i].ID() {
			t.Fatalf("results[%d].ID = %d, want %d (registration order)", i, r.ID, svcs[i].ID())
		}
		if r.Status.IsError() {
			t.Fatalf("results[%d] = %v", i, r.Status)
		}
	}
	for _, s := range svcs {
		if !s.IsStarted() {
			t.Fatalf("%s not started", s.Name())
		}
	}
}

func TestStopAllOnlyStopsStarted(t *testing.T) {
	e := New(4, zerolog.Nop())
	running := newSvc(1, "running")
	idle := newSvc(2, "idle")
	e.Register(running)
	e.Register(idle)

	running.Init()
	running.Start()

	results := e.StopAll()
	for _, r := range results {
		if r.Status.IsError() {
			t.Fatalf("StopAll result for %s: %v", r.Name, r.Status)
		}
	}
	if running.IsStarted() {
		t.Fatal("running service still started after StopAll")
	}
}

func TestStartStopByID(t *testing.T) {
	e := New(4, zerolog.Nop())
	s := newSvc(1, "solo")
	e.Register(s)

	if st := e.Start(1); st.IsError() {
		t.Fatalf("Start(1): %v", st)
	}
	if !s.IsStarted() {
		t.Fatal("expected started")
	}
	if st := e.Stop(1); st.IsError() {
		t.Fatalf("Stop(1): %v", st)
	}
	if st := e.Start(99); st.Code() != CodeNotFound {
		t.Fatalf("Start(99): %v", st)
	}
}
