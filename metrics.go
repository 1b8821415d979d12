package splotch

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics are the Prometheus collectors of one App.
type Metrics struct {
	Registry *prometheus.Registry

	buildsTotal   *prometheus.CounterVec
	buildDuration prometheus.Histogram
	pagesRendered prometheus.Counter
	posts         prometheus.Gauge
	loadDuration  prometheus.Histogram
	httpRequests  *prometheus.CounterVec
}

func newMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		buildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splotch_builds_total",
			Help: "Static site builds by outcome.",
		}, []string{"status"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "splotch_build_duration_seconds",
			Help:    "Duration of static site builds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		pagesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "splotch_pages_rendered_total",
			Help: "Pages written by static builds.",
		}),
		posts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "splotch_posts",
			Help: "Posts in the last successful load.",
		}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "splotch_post_load_duration_seconds",
			Help:    "Duration of loading and rendering every post.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splotch_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.buildsTotal, m.buildDuration, m.pagesRendered, m.posts, m.loadDuration, m.httpRequests,
	)
	return m
}

func (m *Metrics) observeBuild(seconds float64, pages int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.buildsTotal.WithLabelValues(status).Inc()
	m.buildDuration.Observe(seconds)
	m.pagesRendered.Add(float64(pages))
}

func (m *Metrics) observeLoad(seconds float64, posts int, err error) {
	m.loadDuration.Observe(seconds)
	if err == nil {
		m.posts.Set(float64(posts))
	}
}

func (m *Metrics) observeRequest(method string, code int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
