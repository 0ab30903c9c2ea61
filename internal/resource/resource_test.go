package resource

import (
	"context"
	"testing"
	"time"
)

func TestPoolCapacityFromMemoryFallsBackWithNoLimit(t *testing.T) {
	if got := PoolCapacityFromMemory(0, 1024, 256); got != 256 {
		t.Fatalf("got %d, want fallback 256", got)
	}
}

func TestPoolCapacityFromMemoryClampsToMinimum(t *testing.T) {
	got := PoolCapacityFromMemory(1, 1, 256)
	if got < 16 {
		t.Fatalf("got %d, want >= 16 (clamped minimum)", got)
	}
}

func TestPoolCapacityFromMemoryScalesWithLimit(t *testing.T) {
	small := PoolCapacityFromMemory(256*1024*1024, 4096, 16)
	large := PoolCapacityFromMemory(2*1024*1024*1024, 4096, 16)
	if large <= small {
		t.Fatalf("expected larger memory limit to yield larger capacity: small=%d large=%d", small, large)
	}
}

func TestSendGuardAllowsWithinBurst(t *testing.T) {
	g := NewSendGuard(1, 3)
	allowed := 0
	for i := 0; i < 3; i++ {
		if g.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want 3 (full burst)", allowed)
	}
	if g.Allow() {
		t.Fatal("expected 4th immediate call to be denied")
	}
}

func TestSendGuardWaitRespectsContext(t *testing.T) {
	g := NewSendGuard(0.001, 1)
	g.Allow() // consume the single burst token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := g.Wait(ctx); err == nil {
		t.Fatal("expected context deadline to be hit before the limiter refills")
	}
}

func TestSamplerDoesNotPanic(t *testing.T) {
	s := NewSampler()
	sample := s.Sample()
	if sample.SystemMemoryBytes == 0 {
		t.Skip("no system memory info available in this environment")
	}
}
