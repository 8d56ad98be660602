package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the poll endpoint and the embeds.
type Metrics struct {
	PollRequests  *prometheus.CounterVec // labels: outcome
	PollItems     *prometheus.CounterVec // labels: kind=ticker|widget|skipped
	TicksRendered *prometheus.CounterVec // labels: variant
	PollDuration  prometheus.Histogram
	EmbedRenders  *prometheus.CounterVec // labels: kind=ticker|widget|page|feed

	registry *prometheus.Registry
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PollRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liveticker_poll_requests_total",
			Help: "Poll endpoint calls by outcome",
		}, []string{"outcome"}),
		PollItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liveticker_poll_items_total",
			Help: "Poll request items by kind",
		}, []string{"kind"}),
		TicksRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liveticker_ticks_rendered_total",
			Help: "Tick fragments rendered by variant",
		}, []string{"variant"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "liveticker_poll_duration_seconds",
			Help:    "Time to answer one poll batch",
			Buckets: prometheus.DefBuckets,
		}),
		EmbedRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liveticker_embed_renders_total",
			Help: "Initial renders by kind",
		}, []string{"kind"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.PollRequests,
		m.PollItems,
		m.TicksRendered,
		m.PollDuration,
		m.EmbedRenders,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
