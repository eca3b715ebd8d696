// Package main provides the HTTP server for episearch.
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

	"github.com/raphi011/episearch/internal/config"
	"github.com/raphi011/episearch/internal/index"
	"github.com/raphi011/episearch/internal/llm"
	"github.com/raphi011/episearch/internal/metrics"
	"github.com/raphi011/episearch/internal/server"
	"github.com/raphi011/episearch/internal/service"
	"github.com/raphi011/episearch/internal/store"
)

const version = "0.1.0"

func main() {
	ingestPath := flag.String("ingest", "", "ingest a raw corpus file on startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("episearch-server starting",
		"version", version,
		"port", cfg.ServerPort,
		"data_dir", cfg.DataDir,
		"embed_provider", cfg.EmbedProvider,
		"embed_model", cfg.EmbedModel,
		"dimension", cfg.EmbedDimension,
	)

	st, err := store.New(cfg.DataDir, cfg.EmbedDimension, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	embedder, err := llm.New(ctx, cfg)
	cancel()
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()
	idx := &index.Ref{}
	ingestSvc := service.NewIngestService(st, embedder, idx, collector, logger)

	// Bring the index up over whatever the store already holds.
	if err := ingestSvc.RebuildIndex(); err != nil {
		logger.Error("failed to build index", "error", err)
		os.Exit(1)
	}
	logger.Info("index ready", "indexed", idx.Load().Len())

	if *ingestPath != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		report, err := ingestSvc.IngestFile(ctx, *ingestPath, nil)
		cancel()
		if err != nil {
			logger.Error("startup ingestion failed", "path", *ingestPath, "error", err)
			os.Exit(1)
		}
		logger.Info("startup ingestion complete",
			"written", report.DocumentsWritten, "rejected", report.DocumentsRejected)
	}

	srv := server.New(
		service.NewSearchService(st, embedder, idx, collector, cfg.DefaultK, logger),
		ingestSvc,
		service.NewStatusService(st, embedder, idx, logger),
		service.NewJobManager(logger),
		st,
		collector,
		logger,
	)

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // Long for embedding-backed searches
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s/api/search", cfg.ServerPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
