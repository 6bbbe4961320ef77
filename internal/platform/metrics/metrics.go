package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bonussim"

// Collector owns a private registry so tests and multiple servers in one
// process do not collide on the default one.
type Collector struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	calculations prometheus.Counter
	notes        *prometheus.CounterVec
	sinkAppends  *prometheus.CounterVec
	jobsDropped  *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		calculations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Bonus calculations performed.",
		}),
		notes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculation_notes_total",
			Help:      "Degenerate inputs seen during calculation.",
		}, []string{"note"}),
		sinkAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_appends_total",
			Help:      "Record sink appends by sink and result.",
		}, []string{"sink", "result"}),
		jobsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_dropped_total",
			Help:      "Background jobs dropped because the queue was full.",
		}, []string{"job_type"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests,
		c.duration,
		c.calculations,
		c.notes,
		c.sinkAppends,
		c.jobsDropped,
	)
	return c
}

func (c *Collector) Record(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(route, method).Observe(duration.Seconds())
}

func (c *Collector) CalculationRecorded(notes []string) {
	c.calculations.Inc()
	for _, note := range notes {
		c.notes.WithLabelValues(noteLabel(note)).Inc()
	}
}

func (c *Collector) SinkAppended(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.sinkAppends.WithLabelValues(sink, result).Inc()
}

func (c *Collector) JobDropped(jobType string) {
	c.jobsDropped.WithLabelValues(jobType).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// noteLabel keeps label cardinality bounded: "zero_target:revenue" counts
// under "zero_target".
func noteLabel(note string) string {
	kind, _, _ := strings.Cut(note, ":")
	return kind
}
