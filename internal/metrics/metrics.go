// Package metrics exports pool stats, broker stats, and the queued-pipe
// drop and idle-timeout counters as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/adred-codev/etfw/internal/broker"
	"github.com/adred-codev/etfw/internal/bufpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private prometheus.Registry (rather than the global
// default) so a process can run more than one in tests without
// double-registration panics.
type Registry struct {
	reg *prometheus.Registry

	poolCapacity     prometheus.Gauge
	poolInUse        prometheus.Gauge
	poolWaterMark    prometheus.Gauge
	poolAllocCount   prometheus.Gauge // cumulative total, sourced from bufpool.Stats rather than Inc()'d locally
	poolReleaseCount prometheus.Gauge

	brokerRegisteredPipes prometheus.Gauge
	brokerNumSendCalls    prometheus.Gauge // cumulative total, sourced from broker.Stats
	brokerAllocFailures   prometheus.Gauge

	queueDrops        *prometheus.CounterVec
	queueIdleTimeouts *prometheus.CounterVec
}

// New creates a Registry with every metric registered.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.poolCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "etfw_pool_capacity", Help: "Fixed capacity of the buffer pool.",
	})
	r.poolInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "etfw_pool_in_use", Help: "Buffers currently allocated from the pool.",
	})
	r.poolWaterMark = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "etfw_pool_water_mark", Help: "Maximum observed in_use since process start.",
	})
	r.poolAllocCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "etfw_pool_alloc_total", Help: "Total successful allocations from the pool.",
	})
	r.poolReleaseCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "etfw_pool_release_total", Help: "Total buffers returned to the pool.",
	})

	r.brokerRegisteredPipes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "etfw_broker_registered_pipes", Help: "Currently registered pipes.",
	})
	r.brokerNumSendCalls = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "etfw_broker_send_calls_total", Help: "Total broker.Send calls that allocated successfully.",
	})
	r.brokerAllocFailures = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "etfw_broker_alloc_failures_total", Help: "Total send calls that failed because the pool was exhausted.",
	})

	r.queueDrops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "etfw_queued_pipe_drops_total", Help: "Messages dropped because a queued pipe was full.",
	}, []string{"pipe"})
	r.queueIdleTimeouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "etfw_queued_pipe_idle_timeouts_total", Help: "process_queue calls that timed out with no message delivered.",
	}, []string{"pipe"})

	r.reg.MustRegister(
		r.poolCapacity, r.poolInUse, r.poolWaterMark, r.poolAllocCount, r.poolReleaseCount,
		r.brokerRegisteredPipes, r.brokerNumSendCalls, r.brokerAllocFailures,
		r.queueDrops, r.queueIdleTimeouts,
	)
	return r
}

// ObservePool copies a bufpool.Stats snapshot into the registered
// gauges. AllocCount/ReleaseCount are monotonic totals already tracked
// by the pool itself, so they are set directly rather than re-derived
// as Prometheus counters.
func (r *Registry) ObservePool(s bufpool.Stats) {
	r.poolCapacity.Set(float64(s.Capacity))
	r.poolInUse.Set(float64(s.InUse))
	r.poolWaterMark.Set(float64(s.WaterMark))
	r.poolAllocCount.Set(float64(s.AllocCount))
	r.poolReleaseCount.Set(float64(s.ReleaseCount))
}

// ObserveBroker copies a broker.Stats snapshot into the registered
// gauges.
func (r *Registry) ObserveBroker(s broker.Stats) {
	r.brokerRegisteredPipes.Set(float64(s.RegisteredPipes))
	r.brokerNumSendCalls.Set(float64(s.NumSendCalls))
	r.brokerAllocFailures.Set(float64(s.AllocFailures))
}

// RecordQueueDrop increments the drop counter for a named queued pipe.
func (r *Registry) RecordQueueDrop(pipe string) {
	r.queueDrops.WithLabelValues(pipe).Inc()
}

// RecordQueueIdleTimeout increments the idle-timeout counter for a named
// queued pipe, incremented whenever ProcessQueue's wait times out
// without a message, the supplemented process_queue idle-timeout metric.
func (r *Registry) RecordQueueIdleTimeout(pipe string) {
	r.queueIdleTimeouts.WithLabelValues(pipe).Inc()
}

// Handler returns an http.Handler serving this registry's metrics in the
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

