package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Metrics are created and registered lazily on first use, so constructing a
// collector that is never exercised leaves the registerer untouched.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Scheduler metrics
	scheduled          *prometheus.CounterVec
	scheduleLatency    *prometheus.HistogramVec
	scheduleErrors     *prometheus.CounterVec
	walkSteps          *prometheus.HistogramVec
	admissions         *prometheus.CounterVec
	boundOverflows     *prometheus.CounterVec
	loadSum            prometheus.Gauge
	maxAssignedLoad    prometheus.Gauge
	boundLoadThreshold prometheus.Gauge

	// Topology metrics
	rebuilds        *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	virtualNodes    prometheus.Gauge
	servers         prometheus.Gauge
	categoryServers *prometheus.GaugeVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "chs" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "chs"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.scheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "tasks_scheduled_total",
			Help:      "Total tasks scheduled by category and ring path (category, general).",
		}, []string{"category", "path"})

		p.scheduleLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "schedule_duration_seconds",
			Help:      "Latency of ScheduleTask in seconds by ring path.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs .. ~0.26s
		}, []string{"path"})

		p.scheduleErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "schedule_errors_total",
			Help:      "Total failed ScheduleTask calls by reason.",
		}, []string{"reason"})

		p.walkSteps = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "walk_steps",
			Help:      "Overloaded virtual nodes skipped per ring walk.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}, []string{"ring"})

		p.admissions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "admissions_total",
			Help:      "Total servers admitted into a category ring.",
		}, []string{"category"})

		p.boundOverflows = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "bound_overflows_total",
			Help:      "Ring walks that completed a lap without a server within the bound.",
		}, []string{"ring"})

		p.loadSum = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "load_sum",
			Help:      "Sum of the weights of all scheduled tasks.",
		})

		p.maxAssignedLoad = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "max_assigned_load",
			Help:      "Current per-server load ceiling.",
		})

		p.boundLoadThreshold = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "bound_load_threshold",
			Help:      "Current cap on servers a category may claim before reusing its own.",
		})

		p.rebuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "topology",
			Name:      "rebuilds_total",
			Help:      "Total full ring rebuilds by reason (add_server, remove_server).",
		}, []string{"reason"})

		p.rebuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "topology",
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of full ring rebuilds in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		})

		p.virtualNodes = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "topology",
			Name:      "virtual_nodes",
			Help:      "Virtual nodes across all rings after the last rebuild.",
		})

		p.servers = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "topology",
			Name:      "servers",
			Help:      "Current number of registered servers.",
		})

		p.categoryServers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "topology",
			Name:      "category_servers",
			Help:      "Servers admitted into each category ring.",
		}, []string{"category"})

		p.reg.MustRegister(
			p.scheduled,
			p.scheduleLatency,
			p.scheduleErrors,
			p.walkSteps,
			p.admissions,
			p.boundOverflows,
			p.loadSum,
			p.maxAssignedLoad,
			p.boundLoadThreshold,
			p.rebuilds,
			p.rebuildDuration,
			p.virtualNodes,
			p.servers,
			p.categoryServers,
		)
	})
}

// SchedulerMetrics implementation

// RecordSchedule increments the scheduled counter and observes latency.
func (p *PrometheusCollector) RecordSchedule(category string, path string, duration float64) {
	p.ensureRegistered()
	p.scheduled.WithLabelValues(category, path).Inc()
	p.scheduleLatency.WithLabelValues(path).Observe(duration)
}

// RecordScheduleError increments the error counter for reason.
func (p *PrometheusCollector) RecordScheduleError(reason string) {
	p.ensureRegistered()
	p.scheduleErrors.WithLabelValues(reason).Inc()
}

// RecordWalkSteps observes the number of skipped virtual nodes.
func (p *PrometheusCollector) RecordWalkSteps(ring string, steps int) {
	p.ensureRegistered()
	p.walkSteps.WithLabelValues(ring).Observe(float64(steps))
}

// RecordAdmission increments the admission counter.
func (p *PrometheusCollector) RecordAdmission(category string) {
	p.ensureRegistered()
	p.admissions.WithLabelValues(category).Inc()
}

// RecordBoundOverflow increments the overflow counter.
func (p *PrometheusCollector) RecordBoundOverflow(ring string) {
	p.ensureRegistered()
	p.boundOverflows.WithLabelValues(ring).Inc()
}

// RecordThresholds sets the threshold gauges.
func (p *PrometheusCollector) RecordThresholds(loadSum int64, maxAssignedLoad float64, boundLoadThreshold int) {
	p.ensureRegistered()
	p.loadSum.Set(float64(loadSum))
	p.maxAssignedLoad.Set(maxAssignedLoad)
	p.boundLoadThreshold.Set(float64(boundLoadThreshold))
}

// TopologyMetrics implementation

// RecordRebuild increments the rebuild counter and observes its duration.
func (p *PrometheusCollector) RecordRebuild(reason string, duration float64, virtualNodes int) {
	p.ensureRegistered()
	p.rebuilds.WithLabelValues(reason).Inc()
	p.rebuildDuration.Observe(duration)
	p.virtualNodes.Set(float64(virtualNodes))
}

// RecordServerCount sets the server gauge.
func (p *PrometheusCollector) RecordServerCount(count int) {
	p.ensureRegistered()
	p.servers.Set(float64(count))
}

// RecordCategoryServers sets the per-category server gauge.
func (p *PrometheusCollector) RecordCategoryServers(category string, count int) {
	p.ensureRegistered()
	p.categoryServers.WithLabelValues(category).Set(float64(count))
}
