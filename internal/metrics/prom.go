package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collectors groups the service's Prometheus instruments so tests can use a
// private registry.
type Collectors struct {
	Registry *prometheus.Registry

	calculations     *prometheus.CounterVec
	analysisRequests *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func NewCollectors() *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnel_calculations_total",
			Help: "Funnel calculations by result (ok or empty).",
		}, []string{"result"}),
		analysisRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funnel_analysis_requests_total",
			Help: "Narrative analysis requests by result.",
		}, []string{"result"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "funnel_analysis_duration_seconds",
			Help:    "Latency of narrative analysis requests.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.Registry.MustRegister(
		c.calculations, c.analysisRequests, c.analysisDuration,
		c.httpRequests, c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collectors) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collectors) calculation(empty bool) {
	if empty {
		c.calculations.WithLabelValues("empty").Inc()
		return
	}
	c.calculations.WithLabelValues("ok").Inc()
}

func (c *Collectors) analysis(err error, d time.Duration) {
	c.analysisDuration.Observe(d.Seconds())
	if err != nil {
		c.analysisRequests.WithLabelValues("error").Inc()
		return
	}
	c.analysisRequests.WithLabelValues("ok").Inc()
}
