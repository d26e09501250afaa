package popular

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Builds           *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	ExternalDuration *prometheus.HistogramVec
}

func (m *Metrics) IncBuild(source, reason string) {
	if m == nil || m.Builds == nil {
		return
	}
	m.Builds.WithLabelValues("popular", source, reason).Inc()
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
