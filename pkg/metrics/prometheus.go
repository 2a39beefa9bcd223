// Package metrics provides Prometheus metrics for the Checkers match service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Voting
	ballotsCast   *prometheus.CounterVec
	votesRaised   *prometheus.CounterVec
	votesResolved *prometheus.CounterVec

	// Match lifecycle
	matchesCreated       prometheus.Counter
	matchesResolved      *prometheus.CounterVec
	activeMatches        prometheus.Gauge
	registeredPlayers    prometheus.Gauge
	duplicateResolutions prometheus.Counter
	settlementLatency    prometheus.Histogram
	settlementFailures   prometheus.Counter

	// Outbound queue and notifier
	queueSize           prometheus.Gauge
	queueCapacity       prometheus.Gauge
	queueEnqueued       prometheus.Counter
	queueDropped        *prometheus.CounterVec
	notifierDeliveries  *prometheus.CounterVec
	notifierErrors      *prometheus.CounterVec
	notifierWorkerCount prometheus.Gauge

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "checkers",
		subsystem:        "matches",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.ballotsCast = auto.NewCounterVec(
		m.counterOpts("ballots_cast_total", "Ballots received by vote kind and result"),
		[]string{"kind", "result"},
	)
	m.votesRaised = auto.NewCounterVec(
		m.counterOpts("votes_raised_total", "Votes raised by kind"),
		[]string{"kind"},
	)
	m.votesResolved = auto.NewCounterVec(
		m.counterOpts("votes_resolved_total", "Votes resolved by kind and result"),
		[]string{"kind", "result"},
	)

	m.matchesCreated = auto.NewCounter(m.counterOpts("created_total", "Matches created"))
	m.matchesResolved = auto.NewCounterVec(
		m.counterOpts("resolved_total", "Matches settled by outcome"),
		[]string{"outcome"},
	)
	m.activeMatches = auto.NewGauge(m.gaugeOpts("active", "Matches currently registered"))
	m.registeredPlayers = auto.NewGauge(m.gaugeOpts("registered_players", "Players currently registered to a match"))
	m.duplicateResolutions = auto.NewCounter(m.counterOpts(
		"duplicate_resolutions_total", "Resolution signals ignored because the match was already resolved"))
	m.settlementLatency = auto.NewHistogram(m.histogramOpts(
		"settlement_latency_milliseconds", "Time to persist rating changes for a resolved match"))
	m.settlementFailures = auto.NewCounter(m.counterOpts(
		"settlement_failures_total", "Settlements that failed to persist rating changes"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("outbound_queue_size", "Jobs waiting in the outbound queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("outbound_queue_capacity", "Capacity of the outbound queue"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("outbound_enqueued_total", "Jobs accepted by the outbound queue"))
	m.queueDropped = auto.NewCounterVec(
		m.counterOpts("outbound_dropped_total", "Jobs dropped by the outbound queue"),
		[]string{"reason"},
	)
	m.notifierDeliveries = auto.NewCounterVec(
		m.counterOpts("notifier_deliveries_total", "Jobs handled by notifier workers"),
		[]string{"kind"},
	)
	m.notifierErrors = auto.NewCounterVec(
		m.counterOpts("notifier_errors_total", "Jobs that notifier workers failed to handle"),
		[]string{"kind"},
	)
	m.notifierWorkerCount = auto.NewGauge(m.gaugeOpts("notifier_workers", "Running notifier workers"))

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Persistence store call latency"),
		[]string{"backend", "op"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Persistence store call failures"),
		[]string{"backend", "op"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by route, method and status"),
		[]string{"route", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"route", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and type"),
		[]string{"component", "type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_milliseconds", "Average GC pause in milliseconds"))
}

// RecordBallot counts a ballot for kind with result accepted, duplicate,
// resolved or rejected.
func RecordBallot(kind, result string) {
	globalManager.ballotsCast.WithLabelValues(kind, result).Inc()
}

// RecordVoteRaised counts a newly raised vote.
func RecordVoteRaised(kind string) {
	globalManager.votesRaised.WithLabelValues(kind).Inc()
}

// RecordVoteResolved counts a vote reaching passed or failed.
func RecordVoteResolved(kind, result string) {
	globalManager.votesResolved.WithLabelValues(kind, result).Inc()
}

// RecordMatchCreated counts a created match.
func RecordMatchCreated() {
	globalManager.matchesCreated.Inc()
}

// RecordMatchResolved counts a settled match by outcome.
func RecordMatchResolved(outcome string) {
	globalManager.matchesResolved.WithLabelValues(outcome).Inc()
}

// UpdateActiveMatches sets the number of registered matches.
func UpdateActiveMatches(n int) {
	globalManager.activeMatches.Set(float64(n))
}

// UpdateRegisteredPlayers sets the number of players bound to a match.
func UpdateRegisteredPlayers(n int) {
	globalManager.registeredPlayers.Set(float64(n))
}

// RecordDuplicateResolution counts a resolution signal that lost the race.
func RecordDuplicateResolution() {
	globalManager.duplicateResolutions.Inc()
}

// RecordSettlementLatency records settlement latency in milliseconds.
func RecordSettlementLatency(ms float64) {
	globalManager.settlementLatency.Observe(ms)
}

// RecordSettlementFailure counts a failed settlement.
func RecordSettlementFailure() {
	globalManager.settlementFailures.Inc()
}

// UpdateQueueSize sets the outbound queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the outbound queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDrop counts a dropped job.
func RecordQueueDrop(reason string) {
	globalManager.queueDropped.WithLabelValues(reason).Inc()
}

// RecordNotifierDelivery counts a handled job.
func RecordNotifierDelivery(kind string) {
	globalManager.notifierDeliveries.WithLabelValues(kind).Inc()
}

// RecordNotifierError counts a job that failed.
func RecordNotifierError(kind string) {
	globalManager.notifierErrors.WithLabelValues(kind).Inc()
}

// UpdateNotifierWorkers sets the running notifier worker count.
func UpdateNotifierWorkers(n int) {
	globalManager.notifierWorkerCount.Set(float64(n))
}

// RecordStoreCall records a store call; err marks it failed.
func RecordStoreCall(backend, op string, ms float64, err error) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(ms)
	if err != nil {
		globalManager.storeErrors.WithLabelValues(backend, op).Inc()
	}
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(route, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
