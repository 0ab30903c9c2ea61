package logx

import "testing"

type recordingPolicy struct {
	writes []string
}

func (r *recordingPolicy) Write(level Level, caller, msg string) {
	r.writes = append(r.writes, level.String()+" "+caller+" "+msg)
}

func TestLogFansOutToAllPolicies(t *testing.T) {
	p1 := &recordingPolicy{}
	p2 := &recordingPolicy{}
	l := New(Debug, p1, p2)

	l.Infof("svc", "hello %s", "world")

	if len(p1.writes) != 1 || len(p2.writes) != 1 {
		t.Fatalf("writes = %d, %d, want 1, 1", len(p1.writes), len(p2.writes))
	}
	want := "INFO svc hello world"
	if p1.writes[0] != want {
		t.Fatalf("p1.writes[0] = %q, want %q", p1.writes[0], want)
	}
}

func TestMinLevelFilters(t *testing.T) {
	p := &recordingPolicy{}
	l := New(Warning, p)

	l.Debugf("svc", "debug msg")
	l.Infof("svc", "info msg")
	l.Warningf("svc", "warn msg")

	if len(p.writes) != 1 {
		t.Fatalf("writes = %d, want 1 (only WARNING+)", len(p.writes))
	}
}

func TestLevelOrdering(t *testing.T) {
	levels := []Level{Debug, Info, Warning, Error, Critical}
	for i := 1; i < len(levels); i++ {
		if !(levels[i-1] < levels[i]) {
			t.Fatalf("%v should order before %v", levels[i-1], levels[i])
		}
	}
}

func TestNullPolicyDiscardsSilently(t *testing.T) {
	l := New(Debug, NullPolicy{})
	l.Criticalf("svc", "should not panic")
}

func TestMultiPolicyFansOutToWrapped(t *testing.T) {
	p1 := &recordingPolicy{}
	p2 := &recordingPolicy{}
	l := New(Debug, MultiPolicy{p1, p2})

	l.Errorf("svc", "boom")

	if len(p1.writes) != 1 || len(p2.writes) != 1 {
		t.Fatalf("expected both wrapped policies to receive the write")
	}
}
