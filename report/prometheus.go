package report

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/teilomillet/textgrad"
	"github.com/teilomillet/textgrad/types"
)

// PrometheusSink exposes the latest epoch metrics as gauges.
type PrometheusSink struct {
	Epochs         prometheus.Counter
	Epoch          prometheus.Gauge
	Accuracy       prometheus.Gauge
	Failures       prometheus.Gauge
	FormatFailures prometheus.Gauge
	PromptLength   prometheus.Gauge
	PromptTokens   prometheus.Gauge
}

// NewPrometheusSink registers the epoch metrics with reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		Epochs: factory.NewCounter(prometheus.CounterOpts{
			Name: "textgrad_epochs_total",
			Help: "Total number of finished training epochs",
		}),
		Epoch: factory.NewGauge(prometheus.GaugeOpts{
			Name: "textgrad_epoch",
			Help: "Number of the last finished epoch",
		}),
		Accuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "textgrad_accuracy_ratio",
			Help: "Accuracy of the student in the last epoch",
		}),
		Failures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "textgrad_failures",
			Help: "Failed examples in the last epoch",
		}),
		FormatFailures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "textgrad_format_failures",
			Help: "Outputs without a readable answer in the last epoch",
		}),
		PromptLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "textgrad_prompt_length_runes",
			Help: "Length of the optimized prompt text",
		}),
		PromptTokens: factory.NewGauge(prometheus.GaugeOpts{
			Name: "textgrad_prompt_tokens",
			Help: "Length of the optimized prompt text in tokens",
		}),
	}
}

func (s *PrometheusSink) Report(m textgrad.EpochMetrics) {
	s.Epochs.Inc()
	s.Epoch.Set(float64(m.Epoch))
	s.Accuracy.Set(m.Accuracy)
	s.Failures.Set(float64(m.FailureCount))
	s.FormatFailures.Set(float64(m.FormatFailureCount))
	s.PromptLength.Set(float64(m.PromptLength))
	s.PromptTokens.Set(float64(m.PromptTokens))
}

// BackendMetrics counts and times the calls made to inference backends.
type BackendMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	factory := promauto.With(reg)
	return &BackendMetrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "textgrad_backend_requests_total",
			Help: "Total backend calls by outcome",
		}, []string{"backend", "status"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "textgrad_backend_request_duration_seconds",
			Help:    "Backend call duration",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"backend"}),
	}
}

// Wrap instruments b under the given label. An empty output is counted as
// status "empty".
func (bm *BackendMetrics) Wrap(label string, b textgrad.Backend) textgrad.Backend {
	return textgrad.BackendFunc(func(ctx context.Context, messages []types.Message) string {
		start := time.Now()
		out := b.Generate(ctx, messages)
		bm.Duration.WithLabelValues(label).Observe(time.Since(start).Seconds())

		status := "ok"
		if out == "" {
			status = "empty"
		}
		bm.Requests.WithLabelValues(label, status).Inc()
		return out
	})
}
