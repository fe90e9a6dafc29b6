// Package metrics records transform and render activity in Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "srcset"

// Recorder is what the pipeline reports to. Nop discards everything.
type Recorder interface {
	TransformDone(mode, outcome string)
	VariantRendered(format string, d time.Duration, size int)
	ArtifactEmitted(format string)
}

// Nop is a Recorder that records nothing.
type Nop struct{}

func (Nop) TransformDone(string, string)               {}
func (Nop) VariantRendered(string, time.Duration, int) {}
func (Nop) ArtifactEmitted(string)                     {}

// Prometheus holds the collectors, registered on its own registry.
type Prometheus struct {
	registry   *prometheus.Registry
	transforms *prometheus.CounterVec
	renders    *prometheus.HistogramVec
	bytes      *prometheus.CounterVec
	artifacts  *prometheus.CounterVec
}

// NewPrometheus creates and registers the collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		transforms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transforms_total",
			Help:      "Transform invocations by mode and outcome.",
		}, []string{"mode", "outcome"}),
		renders: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent resizing and encoding one variant.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"format"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rendered_bytes_total",
			Help:      "Encoded bytes produced per format.",
		}, []string{"format"}),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_emitted_total",
			Help:      "Variants registered as build artifacts.",
		}, []string{"format"}),
	}
	p.registry.MustRegister(p.transforms, p.renders, p.bytes, p.artifacts)
	return p
}

func (p *Prometheus) TransformDone(mode, outcome string) {
	p.transforms.WithLabelValues(mode, outcome).Inc()
}

func (p *Prometheus) VariantRendered(format string, d time.Duration, size int) {
	p.renders.WithLabelValues(format).Observe(d.Seconds())
	p.bytes.WithLabelValues(format).Add(float64(size))
}

func (p *Prometheus) ArtifactEmitted(format string) {
	p.artifacts.WithLabelValues(format).Inc()
}

// Gatherer exposes the registry, e.g. for promhttp or tests.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile dumps the current values in the text exposition format.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}
