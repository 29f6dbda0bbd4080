package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsig/internal/config"
	dbRedis "github.com/kailas-cloud/docsig/internal/db/redis"
	logpkg "github.com/kailas-cloud/docsig/internal/logger"
	"github.com/kailas-cloud/docsig/internal/metrics"
	documentrepo "github.com/kailas-cloud/docsig/internal/repository/document"
	chiTransport "github.com/kailas-cloud/docsig/internal/transport/chi"
	healthuc "github.com/kailas-cloud/docsig/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docsig/internal/usecase/ingest"
	"github.com/kailas-cloud/docsig/internal/usecase/signature"
	"github.com/kailas-cloud/docsig/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docsig API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("signature_enabled", cfg.Signature.IsEnabled()),
	)

	// Signature registry first: a bad signature config must stop startup
	// before anything touches the database.
	settings := signatureSettings(cfg.Signature)
	registry, err := signature.NewRegistry(settings, algorithmResolver(cfg.Signature.TextProfile), logger)
	if err != nil {
		logger.Fatal("Invalid signature configuration", zap.Error(err))
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	sigMetrics := metrics.NewSignature()
	httpMetrics := metrics.NewHTTP()
	for _, reg := range []interface {
		Register(prometheus.Registerer) error
	}{sigMetrics, httpMetrics} {
		if err := reg.Register(prometheus.DefaultRegisterer); err != nil {
			logger.Fatal("Failed to register metrics", zap.Error(err))
		}
	}

	router := signature.NewRouter(settings, registry, logger).WithRecorder(sigMetrics)
	docRepo := documentrepo.New(store, cfg.Storage.KeyPrefix, settings.SignatureField)
	ingestSvc := ingestuc.New(router, docRepo).
		WithConcurrency(cfg.Ingest.Concurrency).
		WithMaxBatchSize(cfg.Ingest.MaxBatchSize)
	healthSvc := healthuc.New(store, router)

	server := chiTransport.NewServer(ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(httpMetrics.Middleware)
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
