package summary

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is optional; every method is a no-op on a nil receiver or nil vector.
type Metrics struct {
	Builds           *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	ExternalDuration *prometheus.HistogramVec
	Alerts           *prometheus.CounterVec
}

func (m *Metrics) IncBuild(kind string, source Source, reason Reason) {
	if m == nil || m.Builds == nil {
		return
	}
	m.Builds.WithLabelValues(kind, string(source), string(reason)).Inc()
}

func (m *Metrics) IncCacheLookup(store, result string) {
	if m == nil || m.CacheLookups == nil {
		return
	}
	m.CacheLookups.WithLabelValues(store, result).Inc()
}

func (m *Metrics) ObserveExternal(provider, outcome string, d time.Duration) {
	if m == nil || m.ExternalDuration == nil {
		return
	}
	m.ExternalDuration.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

func (m *Metrics) IncAlerts(alerts []Alert) {
	if m == nil || m.Alerts == nil {
		return
	}
	for _, a := range alerts {
		m.Alerts.WithLabelValues(a.Category, string(a.Severity)).Inc()
	}
}
