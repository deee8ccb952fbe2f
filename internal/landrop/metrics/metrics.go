// Package metrics exposes ingest and broadcaster activity in the Prometheus
// text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "landrop"

// File outcomes recorded by FileFinished.
const (
	OutcomeDone     = "done"
	OutcomeFailed   = "failed"
	OutcomeTooLarge = "too_large"
)

// Recorder owns a private registry so tests and multiple servers in one
// process do not collide on the global one.
type Recorder struct {
	registry *prometheus.Registry

	files       *prometheus.CounterVec
	bytes       prometheus.Counter
	requests    *prometheus.CounterVec
	subscribers prometheus.Gauge
	published   prometheus.Counter
	dropped     prometheus.Counter
}

// New creates a Recorder with process and Go runtime collectors attached.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Uploaded file fields by outcome.",
		}, []string{"outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_bytes_total",
			Help:      "Bytes written to the destination directory.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_requests_total",
			Help:      "Upload requests by HTTP status code.",
		}, []string{"code"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Connected event stream observers.",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Upload events published while at least one observer was connected.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events evicted from full observer queues.",
		}),
	}

	r.registry.MustRegister(
		r.files, r.bytes, r.requests, r.subscribers, r.published, r.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// FileFinished counts one file field with its outcome.
func (r *Recorder) FileFinished(outcome string) {
	r.files.WithLabelValues(outcome).Inc()
}

func (r *Recorder) BytesWritten(n int) {
	r.bytes.Add(float64(n))
}

func (r *Recorder) UploadRequest(code string) {
	r.requests.WithLabelValues(code).Inc()
}

func (r *Recorder) SubscribersChanged(n int) {
	r.subscribers.Set(float64(n))
}

func (r *Recorder) EventPublished() {
	r.published.Inc()
}

func (r *Recorder) EventDropped() {
	r.dropped.Inc()
}
