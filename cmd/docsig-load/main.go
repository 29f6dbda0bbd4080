// Command docsig-load bulk loads documents from parquet and JSONL files into a
// docsig API server. It resumes from a cursor file and exposes progress metrics.
//
// Usage:
//
//	docsig-load -data-dir /data -api http://localhost:8080 -workers 8
//
// Env vars:
//
//	DOCSIG_API_KEY  bearer token for the API (optional)
//	ENV             logger profile (prod, local)
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsig/internal/config"
	logpkg "github.com/kailas-cloud/docsig/internal/logger"
)

type loadConfig struct {
	dataDir        string
	apiURL         string
	apiKey         string
	maxRows        int
	workers        int
	batchSize      int
	metricsPort    string
	cursorInterval int
	reset          bool
	logLevel       string
}

func main() {
	_ = godotenv.Load()
	cfg := parseFlags()

	logger, err := logpkg.NewLogger(config.GetEnv(), cfg.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		cancel()
		logger.Fatal("Load failed", zap.Error(err))
	}
}

func parseFlags() loadConfig {
	cfg := loadConfig{}
	flag.StringVar(&cfg.dataDir, "data-dir", "/data", "directory with *.parquet / *.jsonl files and the cursor")
	flag.StringVar(&cfg.apiURL, "api", "http://localhost:8080", "docsig API base URL")
	flag.IntVar(&cfg.maxRows, "max-rows", 0, "max documents to load (0=unlimited)")
	flag.IntVar(&cfg.workers, "workers", 8, "number of parallel batch workers")
	flag.IntVar(&cfg.batchSize, "batch-size", 100, "documents per batch request")
	flag.StringVar(&cfg.metricsPort, "metrics-port", "9090", "Prometheus metrics port (empty disables)")
	flag.IntVar(&cfg.cursorInterval, "cursor-interval", 10000, "save cursor every N documents")
	flag.BoolVar(&cfg.reset, "reset", false, "reset cursor and start from scratch")
	flag.StringVar(&cfg.logLevel, "log-level", "", "log level override")
	flag.Parse()
	cfg.apiKey = os.Getenv("DOCSIG_API_KEY")
	return cfg
}

func run(ctx context.Context, cfg loadConfig, logger *zap.Logger) error {
	start := time.Now()

	reg := prometheus.NewRegistry()
	metrics := newLoaderMetrics(reg)
	if cfg.metricsPort != "" {
		metricsSrv := serveMetrics(cfg.metricsPort, reg, logger)
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = metricsSrv.Shutdown(shutCtx)
		}()
	}

	cursor, err := newCursorTracker(cfg.dataDir, cfg.cursorInterval, logger)
	if err != nil {
		return fmt.Errorf("cursor: %w", err)
	}
	if cfg.reset {
		cursor.Reset()
		logger.Info("Cursor reset, starting from scratch")
	}
	if cursor.Get().Stage == stageDone {
		logger.Info("Cursor marks the load as done, use -reset to load again")
		return nil
	}

	reader, err := newFileReader(cfg.dataDir, logger)
	if err != nil {
		return fmt.Errorf("init reader: %w", err)
	}

	client := newAPIClient(cfg.apiURL, cfg.apiKey, &http.Client{Timeout: 60 * time.Second})
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("api not reachable: %w", err)
	}

	cursor.SetStage(stageDocuments)
	ing := &ingester{
		client:    client,
		workers:   cfg.workers,
		batchSize: cfg.batchSize,
		metrics:   metrics,
		cursor:    cursor,
		logger:    logger,
	}
	result, err := ing.Run(ctx, reader, cfg.maxRows)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if ctx.Err() == nil {
		cursor.Done()
	}

	logger.Info("Load finished",
		zap.Int64("processed", result.Processed),
		zap.Int64("failed", result.Failed),
		zap.Int64("unsigned", result.Unsigned),
		zap.Duration("ingest_duration", result.Duration),
		zap.Duration("total_duration", time.Since(start)),
	)
	return nil
}
