// Package main provides the HTTP API server for kagglementor.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/kagglementor/internal/config"
	"github.com/raphaelgruber/kagglementor/internal/creds"
	"github.com/raphaelgruber/kagglementor/internal/db"
	"github.com/raphaelgruber/kagglementor/internal/kaggle"
	"github.com/raphaelgruber/kagglementor/internal/llm"
	"github.com/raphaelgruber/kagglementor/internal/metrics"
	"github.com/raphaelgruber/kagglementor/internal/server"
	"github.com/raphaelgruber/kagglementor/internal/service"
	"github.com/raphaelgruber/kagglementor/internal/tagger"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	configFile := flag.String("config", "", "optional YAML config file overlaying the environment")
	flag.Parse()

	cfg, err := config.LoadWithOverlay(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	slog.SetDefault(logger)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()

	slog.Info("starting kagglementor-server",
		"port", cfg.ServerPort,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
	)

	mc := metrics.NewCollector()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger, mc)
	if err != nil {
		cancel()
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("MENTOR_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			cancel()
			slog.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}
	if err := dbClient.InitSchema(ctx); err != nil {
		cancel()
		slog.Error("failed to initialise schema", "error", err)
		os.Exit(1)
	}
	cancel()
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	model, err := llm.NewModel(cfg, mc)
	if err != nil {
		slog.Error("failed to create LLM model", "error", err)
		os.Exit(1)
	}

	kaggleClient := kaggle.New(cfg.KaggleBaseURL, mc)
	credResolver := creds.NewResolver(dbClient)
	cellTagger := tagger.New(model)

	ingest := service.NewIngestService(
		dbClient, kaggleClient, credResolver, cellTagger, model,
		cfg.IngestTimeout, cfg.IngestConcurrency,
	)
	janitor := service.NewJanitor(dbClient, cfg.JanitorThreshold, cfg.JanitorInterval)
	competitions := service.NewCompetitionService(
		dbClient, kaggleClient, credResolver, ingest, janitor, cfg.CompetitionCacheTTL,
	)
	contextFiles := service.NewContextFileService(kaggleClient, credResolver)
	chat := service.NewChatService(model)

	srv := server.NewServer(competitions, ingest, contextFiles, chat, dbClient, mc, logger, server.Config{
		Port: cfg.ServerPort,
	})

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go janitor.Run(janitorCtx)

	go func() {
		slog.Info("API available", "url", "http://localhost:"+cfg.ServerPort+"/api")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	stopJanitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
