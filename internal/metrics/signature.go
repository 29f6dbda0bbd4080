package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/docsig/internal/domain/category"
	"github.com/kailas-cloud/docsig/internal/usecase/signature"
)

// noCategory labels outcomes recorded before classification (signing disabled).
const noCategory = "none"

// Signature records document signing outcomes.
type Signature struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewSignature creates unregistered signature collectors.
func NewSignature() *Signature {
	return &Signature{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docsig",
				Name:      "signatures_total",
				Help:      "Documents processed by the signature router",
			},
			[]string{"category", "result"}, // result: signed / failed / skipped
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "docsig",
				Name:      "signature_duration_seconds",
				Help:      "Time spent computing a document signature",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"category"},
		),
	}
}

// Register registers the collectors. Must be called once from main.
func (s *Signature) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{s.total, s.duration} {
		if err := reg.Register(c); err != nil {
			return err //nolint:wrapcheck // registration errors are self-describing
		}
	}
	return nil
}

// ObserveSignature implements signature.Recorder.
func (s *Signature) ObserveSignature(c category.Category, result signature.Result, elapsed time.Duration) {
	label := c.String()
	if label == "" {
		label = noCategory
	}
	s.total.WithLabelValues(label, string(result)).Inc()
	if result != signature.ResultSkipped {
		s.duration.WithLabelValues(label).Observe(elapsed.Seconds())
	}
}
