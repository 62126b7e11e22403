package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// HTTP метрики
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Бизнес-метрики
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	SolveIterations      *prometheus.HistogramVec
	MaxFlowValue         *prometheus.GaugeVec
	NetworkNodesTotal    *prometheus.HistogramVec
	NetworkEdgesTotal    *prometheus.HistogramVec
	CutEdgesFound        *prometheus.HistogramVec
	SweepRunsTotal       *prometheus.CounterVec

	// Кэш
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Безопасность
	AuthAttemptsTotal *prometheus.CounterVec
	RateLimitedTotal  *prometheus.CounterVec

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		// HTTP метрики
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		// Бизнес-метрики
		SolveOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_operations_total",
				Help:      "Total number of max-flow runs",
			},
			[]string{"algorithm", "reason"},
		),

		SolveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of max-flow runs",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"algorithm"},
		),

		SolveIterations: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_iterations",
				Help:      "Iterations performed per max-flow run",
				Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 100000},
			},
			[]string{"algorithm"},
		),

		MaxFlowValue: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "max_flow_value",
				Help:      "Last calculated max flow value",
			},
			[]string{"algorithm"},
		),

		NetworkNodesTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_nodes_total",
				Help:      "Number of nodes in processed networks",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"operation"},
		),

		NetworkEdgesTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_edges_total",
				Help:      "Number of pipes in processed networks",
				Buckets:   []float64{20, 100, 500, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"operation"},
		),

		CutEdgesFound: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cut_edges_found",
				Help:      "Number of edges in extracted min cuts",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
			[]string{"algorithm"},
		),

		SweepRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sweep_runs_total",
				Help:      "Total number of scenario sweep runs",
			},
			[]string{"kind", "status"},
		),

		// Кэш
		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of result cache hits",
			},
			[]string{"operation"},
		),

		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of result cache misses",
			},
			[]string{"operation"},
		),

		// Безопасность
		AuthAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "auth_attempts_total",
				Help:      "Total number of token validation attempts",
			},
			[]string{"status"},
		),

		RateLimitedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rate_limited_total",
				Help:      "Total number of rate limited requests",
			},
			[]string{"scope"},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("waterflow", "")
	}
	return defaultMetrics
}

// RecordHTTPRequest записывает метрики HTTP запроса
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSolve записывает метрики прогона max-flow
func (m *Metrics) RecordSolve(algorithm, reason string, iterations int, duration time.Duration, maxFlow float64) {
	m.SolveOperationsTotal.WithLabelValues(algorithm, reason).Inc()
	m.SolveDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	m.SolveIterations.WithLabelValues(algorithm).Observe(float64(iterations))
	m.MaxFlowValue.WithLabelValues(algorithm).Set(maxFlow)
}

// RecordNetworkSize записывает размер сети
func (m *Metrics) RecordNetworkSize(operation string, nodes, edges int) {
	m.NetworkNodesTotal.WithLabelValues(operation).Observe(float64(nodes))
	m.NetworkEdgesTotal.WithLabelValues(operation).Observe(float64(edges))
}

// RecordMinCut записывает размер найденного минимального разреза
func (m *Metrics) RecordMinCut(algorithm string, cutEdges int) {
	m.CutEdgesFound.WithLabelValues(algorithm).Observe(float64(cutEdges))
}

// RecordSweepRun записывает один прогон сценарного анализа
func (m *Metrics) RecordSweepRun(kind string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.SweepRunsTotal.WithLabelValues(kind, status).Inc()
}

// RecordCacheHit записывает попадание в кэш
func (m *Metrics) RecordCacheHit(operation string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(operation).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(operation).Inc()
}

// RecordAuthAttempt записывает попытку аутентификации
func (m *Metrics) RecordAuthAttempt(success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	m.AuthAttemptsTotal.WithLabelValues(status).Inc()
}

// RecordRateLimited записывает отклонённый лимитером запрос.
// В метрику попадает только вид ключа, не сам ключ, чтобы не раздувать
// кардинальность.
func (m *Metrics) RecordRateLimited(key string) {
	scope := "other"
	if i := strings.IndexByte(key, ':'); i > 0 {
		scope = key[:i]
	}
	m.RateLimitedTotal.WithLabelValues(scope).Inc()
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
