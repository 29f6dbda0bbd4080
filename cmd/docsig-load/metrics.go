package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// loaderMetrics tracks load progress and batch latency.
type loaderMetrics struct {
	docsProcessed  prometheus.Counter
	docsFailed     *prometheus.CounterVec
	docsUnsigned   prometheus.Counter
	batchesTotal   prometheus.Counter
	batchDuration  prometheus.Histogram
	cursorPosition prometheus.Gauge
}

func newLoaderMetrics(reg prometheus.Registerer) *loaderMetrics {
	m := &loaderMetrics{
		docsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsig_loader_documents_processed_total",
			Help: "Documents stored by the API.",
		}),
		docsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docsig_loader_documents_failed_total",
			Help: "Documents that were not stored, by reason.",
		}, []string{"reason"}),
		docsUnsigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsig_loader_documents_unsigned_total",
			Help: "Stored documents that came back without a signature.",
		}),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsig_loader_batches_total",
			Help: "Batch requests sent.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docsig_loader_batch_duration_seconds",
			Help:    "Batch request latency.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		cursorPosition: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docsig_loader_cursor_position",
			Help: "Documents handled so far, including earlier runs.",
		}),
	}
	reg.MustRegister(
		m.docsProcessed, m.docsFailed, m.docsUnsigned,
		m.batchesTotal, m.batchDuration, m.cursorPosition,
	)
	return m
}

func serveMetrics(port string, gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving loader metrics", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
