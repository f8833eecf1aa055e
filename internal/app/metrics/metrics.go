// Package metrics exposes Prometheus instruments for transcription runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "t4a"

// Metrics groups the run instruments on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	errors      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	words       *prometheus.CounterVec
	audio       *prometheus.CounterVec
	inFlight    prometheus.Gauge
	httpLatency *prometheus.HistogramVec
}

// New registers the run instruments plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Transcription runs by engine and status.",
		}, []string{"engine", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_errors_total",
			Help:      "Failed transcription runs by engine and error kind.",
		}, []string{"engine", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of transcription runs.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"engine"}),
		words: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognized_words_total",
			Help:      "Word results written to reports.",
		}, []string{"engine"}),
		audio: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_seconds_total",
			Help:      "Seconds of input audio transcribed.",
		}, []string{"engine"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Transcription runs currently executing.",
		}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	m.registry.MustRegister(
		m.runs, m.errors, m.duration, m.words, m.audio, m.inFlight, m.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RunStarted marks a run in flight; call the returned func when it ends.
func (m *Metrics) RunStarted() func() {
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// RecordRun records a finished run. kind is empty on success.
func (m *Metrics) RecordRun(engine string, elapsed time.Duration, words int, kind string) {
	status := "success"
	if kind != "" {
		status = "failure"
		m.errors.WithLabelValues(engine, kind).Inc()
	}
	m.runs.WithLabelValues(engine, status).Inc()
	m.duration.WithLabelValues(engine).Observe(elapsed.Seconds())
	if words > 0 {
		m.words.WithLabelValues(engine).Add(float64(words))
	}
}

// RecordAudio adds the length of a transcribed input.
func (m *Metrics) RecordAudio(engine string, seconds int) {
	if seconds > 0 {
		m.audio.WithLabelValues(engine).Add(float64(seconds))
	}
}

func (m *Metrics) ObserveHTTP(method, route, code string, elapsed time.Duration) {
	m.httpLatency.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
