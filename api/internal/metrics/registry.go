// Package metrics owns the agent's Prometheus registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/irgordon/vigil/api/internal/core/domain"
)

const namespace = "vigil"

// Registry bundles the process registry with the collectors the agent updates.
type Registry struct {
	reg *prometheus.Registry

	cpuPercent    prometheus.Gauge
	memoryUsed    prometheus.Gauge
	memoryPercent prometheus.Gauge
	load1         prometheus.Gauge
	diskPercent   prometheus.Gauge
	generation    prometheus.Gauge

	refreshes     prometheus.Counter
	configSaves   prometheus.Counter
	streamClients prometheus.Gauge

	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// New builds a registry with the Go runtime and process collectors plus the
// agent's own metrics.
func New() *Registry {
	started := time.Now()

	r := &Registry{
		reg: prometheus.NewRegistry(),
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "host", Name: "cpu_percent",
			Help: "Host CPU utilisation at the last snapshot refresh.",
		}),
		memoryUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "host", Name: "memory_used_bytes",
			Help: "Host memory in use at the last snapshot refresh.",
		}),
		memoryPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "host", Name: "memory_percent",
			Help: "Host memory utilisation at the last snapshot refresh.",
		}),
		load1: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "host", Name: "load1",
			Help: "One minute load average at the last snapshot refresh.",
		}),
		diskPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "host", Name: "disk_used_percent",
			Help: "Root filesystem utilisation at the last snapshot refresh.",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "snapshot", Name: "generation",
			Help: "Generation of the current system snapshot.",
		}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "snapshot", Name: "refreshes_total",
			Help: "Completed system snapshot refreshes.",
		}),
		configSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "config_saves_total",
			Help: "Configuration entries accepted from the dashboard.",
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "log_stream_clients",
			Help: "Websocket clients currently following the log stream.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests served, by listener, method and status code.",
		}, []string{"listener", "method", "code"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by listener.",
			Buckets: prometheus.DefBuckets,
		}, []string{"listener"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "uptime_seconds",
			Help: "Seconds since the agent started.",
		}, func() float64 { return time.Since(started).Seconds() }),
		r.cpuPercent, r.memoryUsed, r.memoryPercent, r.load1, r.diskPercent, r.generation,
		r.refreshes, r.configSaves, r.streamClients,
		r.requests, r.durations,
	)

	return r
}

// Gatherer exposes the registry for the /api/metrics handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveSnapshot implements domain.SnapshotObserver.
func (r *Registry) ObserveSnapshot(s domain.SystemSnapshot) {
	r.cpuPercent.Set(s.CPUPercent)
	r.memoryUsed.Set(float64(s.MemoryUsed))
	r.memoryPercent.Set(s.MemoryPercent)
	r.load1.Set(s.Load.Load1)
	r.diskPercent.Set(s.DiskPercent)
	r.generation.Set(float64(s.Generation))
	r.refreshes.Inc()
}

func (r *Registry) ConfigSaved() {
	r.configSaves.Inc()
}

func (r *Registry) StreamOpened() {
	r.streamClients.Inc()
}

func (r *Registry) StreamClosed() {
	r.streamClients.Dec()
}

// ObserveRequest records one served HTTP request.
func (r *Registry) ObserveRequest(listener, method string, code int, elapsed time.Duration) {
	r.requests.WithLabelValues(listener, method, strconv.Itoa(code)).Inc()
	r.durations.WithLabelValues(listener).Observe(elapsed.Seconds())
}
