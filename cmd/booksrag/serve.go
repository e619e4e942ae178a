package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/booksrag/internal/config"
	"github.com/kailas-cloud/booksrag/internal/db"
	"github.com/kailas-cloud/booksrag/internal/db/relational"
	"github.com/kailas-cloud/booksrag/internal/metrics"
	chiTransport "github.com/kailas-cloud/booksrag/internal/transport/chi"
	"github.com/kailas-cloud/booksrag/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server (default)",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting booksrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", envName),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("relational_driver", cfg.Relational.Driver),
		zap.String("vector_driver", cfg.Vector.Driver),
		zap.String("ingest_driver", cfg.Ingest.Driver),
	)

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	// Wait for the relational store; the vector store is probed lazily by /health and /debug/state.
	readiness := time.Duration(cfg.Relational.ReadinessTimeout) * time.Second
	if err := db.WaitForReady(ctx, relational.Pinger{DB: a.sqlDB}, readiness); err != nil {
		return fmt.Errorf("relational store not ready: %w", err)
	}
	logger.Info("Connected to relational store")

	if err := a.pool.Start(); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	defer a.pool.Stop()
	logger.Info("Worker pool started", zap.Int("size", a.pool.Size()))

	logger.Info("Resolved vector collection", zap.String("collection", a.resolver.Resolve()))

	// Register service metrics explicitly (no init())
	metrics.RegisterServiceMetrics()

	server := chiTransport.NewServer(chiTransport.Services{
		Query:      a.query,
		Ingest:     a.ingest,
		Health:     a.health,
		Books:      a.books,
		Collection: a.resolver,
	}, chiTransport.Options{
		MaxUploadBytes:         int64(cfg.HTTP.MaxUploadMB) << 20,
		HideCollaboratorErrors: cfg.HTTP.HideCollaboratorErrors,
		EnvKeys:                config.QueryEnvKeys,
		Debug: chiTransport.DebugInfo{
			PGUser:         cfg.Relational.User,
			PGDatabase:     cfg.Relational.Database,
			PGPort:         cfg.Relational.Port,
			QdrantHost:     cfg.Vector.Host,
			QdrantPort:     cfg.Vector.Port,
			SeedCollection: cfg.Collection.Seed,
		},
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chiTransport.NewRouter(server, cfg.HTTP.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
