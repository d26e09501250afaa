package handlers

import "github.com/prometheus/client_golang/prometheus"

type AIMetrics struct {
	SummaryRequests *prometheus.CounterVec
	PopularRequests *prometheus.CounterVec
}

func (m *AIMetrics) IncSummary(status string) {
	if m == nil || m.SummaryRequests == nil {
		return
	}

	m.SummaryRequests.WithLabelValues(status).Inc()
}

func (m *AIMetrics) IncPopular(status string) {
	if m == nil || m.PopularRequests == nil {
		return
	}

	m.PopularRequests.WithLabelValues(status).Inc()
}
