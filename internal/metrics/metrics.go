// Package metrics records outbound call outcomes and HTTP traffic. A nil
// *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/varsilias/ease/pkg/types"
)

const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

type Recorder struct {
	reg        *prometheus.Registry
	generation *prometheus.CounterVec
	genLatency *prometheus.HistogramVec
	synthesis  *prometheus.CounterVec
	requests   *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		generation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ease",
			Name:      "generation_calls_total",
			Help:      "Text generation calls by tab and outcome.",
		}, []string{"tab", "outcome"}),
		genLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ease",
			Name:      "generation_latency_seconds",
			Help:      "Text generation latency by tab.",
			Buckets:   []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		}, []string{"tab"}),
		synthesis: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ease",
			Name:      "synthesis_calls_total",
			Help:      "Speech synthesis calls by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ease",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
	}
	r.reg.MustRegister(
		r.generation, r.genLatency, r.synthesis, r.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveGeneration(tab types.Tab, outcome string, latency time.Duration) {
	if r == nil {
		return
	}
	r.generation.WithLabelValues(tab.Slug(), outcome).Inc()
	if latency > 0 {
		r.genLatency.WithLabelValues(tab.Slug()).Observe(latency.Seconds())
	}
}

func (r *Recorder) ObserveSynthesis(outcome string) {
	if r == nil {
		return
	}
	r.synthesis.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveRequest(method string, status int) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
