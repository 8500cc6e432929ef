package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/gistemp-grid/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/gistemp-grid/internal/adapter/kafka"
	"github.com/couchcryptid/gistemp-grid/internal/config"
	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/observability"
	"github.com/couchcryptid/gistemp-grid/internal/pipeline"
	"github.com/couchcryptid/gistemp-grid/internal/station"
	"github.com/couchcryptid/gistemp-grid/internal/weight"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	g, err := grid.New(cfg.GridConfig())
	if err != nil {
		logger.Error("failed to build grid", "error", err)
		os.Exit(1)
	}
	logger.Info("grid built", "scheme", g.Scheme(), "subdivisions", g.Subdivisions(), "cells", g.Len())

	engine, err := weight.New(cfg.WeightConfig(), logger)
	if err != nil {
		logger.Error("failed to create weight engine", "error", err)
		os.Exit(1)
	}

	rules, err := loadOmitRules(cfg.StationOmitRulesFile)
	if err != nil {
		logger.Error("failed to load omit rules", "error", err, "path", cfg.StationOmitRulesFile)
		os.Exit(1)
	}
	if rules != nil {
		logger.Info("station omit rules loaded", "rules", rules.Len(), "stations", len(rules))
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(rules, logger)

	p := pipeline.New(reader, transformer, writer, engine, g, station.NewRegistry(), logger, metrics, pipeline.Options{
		BatchSize:      cfg.BatchSize,
		Encoding:       cfg.SinkEncoding,
		RegridInterval: cfg.RegridInterval,
	})

	cache := httpadapter.NewCellCache(cfg.CellCacheSize, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, g, p, cache, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start gridding pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// loadOmitRules reads the omit-rules file. An empty path disables filtering.
func loadOmitRules(path string) (station.OmitRules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return station.ParseOmitRules(string(data))
}
