// Package metrics provides Prometheus metrics for the team allocation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace   string
	subsystem   string
	buckets     []float64
	constLabels prometheus.Labels
	registry    prometheus.Registerer

	// Allocation outcomes
	allocationRuns     *prometheus.CounterVec
	allocationDuration *prometheus.HistogramVec
	teamsFormed        prometheus.Counter
	teamsFlagged       prometheus.Counter
	studentsUnplaced   prometheus.Counter
	degradations       *prometheus.CounterVec
	triggerDuplicates  prometheus.Counter

	// Queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueEnqueued prometheus.Counter
	queueDequeued prometheus.Counter
	queueRejected *prometheus.CounterVec

	// Workers
	workerCount  prometheus.Gauge
	workerBusy   prometheus.Gauge
	workerErrors prometheus.Counter

	// Adapters
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	notifications       *prometheus.CounterVec
	storeLatency        *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry keeps the default Go runtime collectors out of /metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "teamalloc",
		subsystem: "allocator",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		})
	}
	histogramVec := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
			Buckets: m.buckets,
		}, labels)
	}

	m.allocationRuns = counterVec("runs_total", "Allocation runs by stage and outcome", "stage", "outcome")
	m.allocationDuration = histogramVec("run_duration_seconds", "Wall time of one university allocation", "stage")
	m.teamsFormed = counter("teams_formed_total", "Teams formed across all runs")
	m.teamsFlagged = counter("teams_flagged_total", "Teams flagged for an exclusion conflict")
	m.studentsUnplaced = counter("students_unplaced_total", "Students left without a team")
	m.degradations = counterVec("preference_degradations_total", "Teammate references dropped during resolution", "reason")
	m.triggerDuplicates = counter("trigger_duplicates_total", "Allocation triggers ignored as duplicates")

	m.queueSize = gauge("queue_size", "Jobs waiting in the allocation queue")
	m.queueCapacity = gauge("queue_capacity", "Allocation queue capacity")
	m.queueEnqueued = counter("queue_enqueued_total", "Jobs accepted by the queue")
	m.queueDequeued = counter("queue_dequeued_total", "Jobs handed to workers")
	m.queueRejected = counterVec("queue_rejected_total", "Jobs refused by the queue", "reason")

	m.workerCount = gauge("worker_count", "Configured allocation workers")
	m.workerBusy = gauge("worker_busy", "Workers currently running an allocation")
	m.workerErrors = counter("worker_errors_total", "Jobs that finished with an error")

	m.httpRequests = counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status")
	m.httpRequestDuration = histogramVec("http_request_duration_seconds", "HTTP request latency", "endpoint", "method")
	m.notifications = counterVec("notifications_total", "Outbound notifications by channel and outcome", "channel", "outcome")
	m.storeLatency = histogramVec("store_latency_seconds", "Team store call latency", "op")
}

// RecordAllocationRun counts a finished run and observes its duration.
func (m *Manager) RecordAllocationRun(stage, outcome string, d time.Duration) {
	m.allocationRuns.WithLabelValues(stage, outcome).Inc()
	m.allocationDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordTeams adds the counts of one allocation result.
func (m *Manager) RecordTeams(formed, flagged, unplaced int) {
	m.teamsFormed.Add(float64(formed))
	m.teamsFlagged.Add(float64(flagged))
	m.studentsUnplaced.Add(float64(unplaced))
}

// RecordDegradation counts a dropped teammate reference.
func (m *Manager) RecordDegradation(reason string) {
	m.degradations.WithLabelValues(reason).Inc()
}

// RecordTriggerDuplicate counts a trigger suppressed by deduplication.
func (m *Manager) RecordTriggerDuplicate() { m.triggerDuplicates.Inc() }

// UpdateQueue sets the queue gauges.
func (m *Manager) UpdateQueue(size, capacity int) {
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func (m *Manager) RecordQueueEnqueue() { m.queueEnqueued.Inc() }

// RecordQueueDequeue counts a job handed to a worker.
func (m *Manager) RecordQueueDequeue() { m.queueDequeued.Inc() }

// RecordQueueRejected counts a refused job.
func (m *Manager) RecordQueueRejected(reason string) {
	m.queueRejected.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the configured worker count.
func (m *Manager) UpdateWorkerCount(n int) { m.workerCount.Set(float64(n)) }

// WorkerBusy moves the busy gauge by delta.
func (m *Manager) WorkerBusy(delta int) { m.workerBusy.Add(float64(delta)) }

// RecordWorkerError counts a failed job.
func (m *Manager) RecordWorkerError() { m.workerErrors.Inc() }

// RecordHTTPRequest counts a request and observes its latency.
func (m *Manager) RecordHTTPRequest(endpoint, method, status string, d time.Duration) {
	m.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method).Observe(d.Seconds())
}

// RecordNotification counts an outbound mail or event.
func (m *Manager) RecordNotification(channel, outcome string) {
	m.notifications.WithLabelValues(channel, outcome).Inc()
}

// RecordStoreLatency observes a store call.
func (m *Manager) RecordStoreLatency(op string, d time.Duration) {
	m.storeLatency.WithLabelValues(op).Observe(d.Seconds())
}

// Package-level helpers write to the global manager.

func RecordAllocationRun(stage, outcome string, d time.Duration) {
	globalManager.RecordAllocationRun(stage, outcome, d)
}
func RecordTeams(formed, flagged, unplaced int) { globalManager.RecordTeams(formed, flagged, unplaced) }
func RecordDegradation(reason string)          { globalManager.RecordDegradation(reason) }
func RecordTriggerDuplicate()                  { globalManager.RecordTriggerDuplicate() }
func UpdateQueue(size, capacity int)           { globalManager.UpdateQueue(size, capacity) }
func RecordQueueEnqueue()                      { globalManager.RecordQueueEnqueue() }
func RecordQueueDequeue()                      { globalManager.RecordQueueDequeue() }
func RecordQueueRejected(reason string)        { globalManager.RecordQueueRejected(reason) }
func UpdateWorkerCount(n int)                  { globalManager.UpdateWorkerCount(n) }
func WorkerBusy(delta int)                     { globalManager.WorkerBusy(delta) }
func RecordWorkerError()                       { globalManager.RecordWorkerError() }
func RecordNotification(channel, outcome string) {
	globalManager.RecordNotification(channel, outcome)
}
func RecordStoreLatency(op string, d time.Duration) { globalManager.RecordStoreLatency(op, d) }
func RecordHTTPRequest(endpoint, method, status string, d time.Duration) {
	globalManager.RecordHTTPRequest(endpoint, method, status, d)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
