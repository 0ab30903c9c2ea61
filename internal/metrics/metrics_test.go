package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adred-codev/etfw/internal/broker"
	"github.com/adred-codev/etfw/internal/bufpool"
)

func TestObservePoolAndBrokerExposedViaHandler(t *testing.T) {
	r := New()
	r.ObservePool(bufpool.Stats{Capacity: 10, InUse: 3, WaterMark: 5, AllocCount: 20, ReleaseCount: 17})
	r.ObserveBroker(broker.Stats{RegisteredPipes: 2, NumSendCalls: 20, AllocFailures: 1})
	r.RecordQueueDrop("wakeup")
	r.RecordQueueIdleTimeout("wakeup")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"etfw_pool_capacity 10",
		"etfw_pool_in_use 3",
		"etfw_pool_water_mark 5",
		"etfw_broker_registered_pipes 2",
		`etfw_queued_pipe_drops_total{pipe="wakeup"} 1`,
		`etfw_queued_pipe_idle_timeouts_total{pipe="wakeup"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q\n--- body ---\n%s", want, body)
		}
	}
}

func TestNewRegistryDoesNotPanicOnDoubleInstantiation(t *testing.T) {
	r1 := New()
	r2 := New()
	if r1 == r2 {
		t.Fatal("expected distinct registries")
	}
}
