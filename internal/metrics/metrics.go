// Package metrics provides Prometheus metrics for training runs.
//
// Training is a batch job, so nothing is served over HTTP. The registry is
// written once at the end of a run in the node-exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a training run.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	StageDuration    *prometheus.HistogramVec // Wall time per preprocessing stage
	ChannelsKept     prometheus.Gauge
	ChannelsRejected prometheus.Gauge
	TrialsKept       prometheus.Gauge
	TrialsRejected   prometheus.Gauge
	UnknownLabels    prometheus.Counter // Trials whose event value matched neither class

	// Model metrics
	Features         prometheus.Gauge
	TrainingSamples  prometheus.Gauge
	TrainingAccuracy prometheus.Gauge
	ArtifactBytes    prometheus.Gauge

	// Run metrics
	RunsTotal   prometheus.Counter
	ErrorsTotal prometheus.Counter
}

// New creates metrics on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates metrics registered on registry.
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bci_stage_duration_seconds",
			Help:    "Duration of each preprocessing stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"stage"}),
		ChannelsKept: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bci_channels_kept",
			Help: "Number of channels kept after bad-channel removal",
		}),
		ChannelsRejected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bci_channels_rejected",
			Help: "Number of channels rejected as bad",
		}),
		TrialsKept: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bci_trials_kept",
			Help: "Number of trials used for training",
		}),
		TrialsRejected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bci_trials_rejected",
			Help: "Number of trials rejected as outliers",
		}),
		UnknownLabels: factory.NewCounter(prometheus.CounterOpts{
			Name: "bci_unknown_labels_total",
			Help: "Total number of trials with an unrecognised label",
		}),
		Features: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bci_features",
			Help: "Number of features per trial",
		}),
		TrainingSamples: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bci_training_samples",
			Help: "Number of rows in the training matrix",
		}),
		TrainingAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bci_training_accuracy",
			Help: "Classifier accuracy on the training set",
		}),
		ArtifactBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bci_artifact_bytes",
			Help: "Size of the encoded model artifact in bytes",
		}),
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bci_runs_total",
			Help: "Total number of training runs started",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bci_errors_total",
			Help: "Total number of failed training runs",
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
