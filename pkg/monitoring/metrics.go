package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector owns a private registry, so several collectors can
// coexist in one process (tests included). All names are prefixed with the
// sanitized service name.
type MetricsCollector struct {
	prefix   string
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	inFlight            prometheus.Gauge
}

// Summary requests block on the generative call, so the latency buckets
// reach past LLM_TIMEOUT.
var httpDurationBuckets = []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 20, 45}

func NewMetricsCollector(serviceName, version, commit string) *MetricsCollector {
	mc := &MetricsCollector{
		prefix:   strings.ReplaceAll(serviceName, "-", "_"),
		registry: prometheus.NewRegistry(),
	}

	mc.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: mc.name("http_requests_total"), Help: "HTTP requests by route and status class"},
		[]string{"method", "route", "status"},
	)
	mc.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: mc.name("http_request_duration_seconds"), Help: "HTTP request latency", Buckets: httpDurationBuckets},
		[]string{"method", "route"},
	)
	mc.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{Name: mc.name("http_requests_in_flight"), Help: "Requests currently being served"})
	info := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: mc.name("service_info"), Help: "Build information"},
		[]string{"version", "commit"},
	)

	mc.registry.MustRegister(
		mc.httpRequestsTotal,
		mc.httpRequestDuration,
		mc.inFlight,
		info,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	info.WithLabelValues(version, commit).Set(1)

	return mc
}

func (mc *MetricsCollector) name(n string) string {
	return mc.prefix + "_" + n
}

// Registry is for packages that register their own collectors, such as
// circuit breaker state.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// MetricsMiddleware records request counts and latency per matched route.
// Unmatched paths share one "unmatched" label; scrapes are not recorded.
func (mc *MetricsCollector) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		mc.inFlight.Inc()
		defer mc.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		mc.httpRequestsTotal.WithLabelValues(c.Request.Method, route, statusClass(c.Writer.Status())).Inc()
		mc.httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// Handler serves the collector's registry in the Prometheus text format.
func (mc *MetricsCollector) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{Registry: mc.registry}))
}

func (mc *MetricsCollector) NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{Name: mc.name(name), Help: help}, labels)
	mc.registry.MustRegister(v)
	return v
}

func (mc *MetricsCollector) NewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: mc.name(name), Help: help}, labels)
	mc.registry.MustRegister(v)
	return v
}

// NewHistogram uses prometheus.DefBuckets when buckets is nil.
func (mc *MetricsCollector) NewHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: mc.name(name), Help: help, Buckets: buckets}, labels)
	mc.registry.MustRegister(v)
	return v
}

// PipelineMetrics are the summary pipeline's counters.
type PipelineMetrics struct {
	// Builds counts results by source (external|fallback|cache) and fallback reason.
	Builds *prometheus.CounterVec
	// CacheLookups counts lookups by store (memory|redis) and result (hit|miss|error).
	CacheLookups *prometheus.CounterVec
	// ExternalDuration observes generative calls by provider and outcome.
	ExternalDuration *prometheus.HistogramVec
	// Alerts counts emitted alerts by category and severity.
	Alerts *prometheus.CounterVec
}

// CreatePipelineMetrics creates the summary pipeline metrics
func (mc *MetricsCollector) CreatePipelineMetrics() PipelineMetrics {
	return PipelineMetrics{
		Builds:           mc.NewCounter("summary_builds_total", "Summaries produced by source and fallback reason", []string{"kind", "source", "reason"}),
		CacheLookups:     mc.NewCounter("cache_lookups_total", "Cache lookups by store and result", []string{"store", "result"}),
		ExternalDuration: mc.NewHistogram("llm_call_duration_seconds", "Generative service call duration", []string{"provider", "outcome"}, []float64{.25, .5, 1, 2, 5, 10, 20, 30}),
		Alerts:           mc.NewCounter("alerts_total", "Alerts emitted by category and severity", []string{"category", "severity"}),
	}
}

// CreateKafkaMetrics creates standard Kafka producer metrics
func (mc *MetricsCollector) CreateKafkaMetrics() (
	*prometheus.CounterVec, // kafka_messages_total
	*prometheus.HistogramVec, // kafka_operation_duration_seconds
) {
	messages := mc.NewCounter("kafka_messages_total", "Total Kafka messages", []string{"topic", "operation", "status"})
	duration := mc.NewHistogram("kafka_operation_duration_seconds", "Kafka operation duration", []string{"operation"}, nil)

	return messages, duration
}
