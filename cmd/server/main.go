package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/rticorpus/internal/api"
	"github.com/dgallion1/rticorpus/internal/config"
	"github.com/dgallion1/rticorpus/internal/embed"
	"github.com/dgallion1/rticorpus/internal/fetch"
	"github.com/dgallion1/rticorpus/internal/pipeline"
	"github.com/dgallion1/rticorpus/internal/schema"
	"github.com/dgallion1/rticorpus/internal/store"
	"github.com/dgallion1/rticorpus/internal/structurer"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	vocab, anchors, err := config.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		log.Error("load vocabulary", "path", cfg.VocabularyFile, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	db, err := store.Open(ctx, cfg.DBPath, log)
	if err != nil {
		log.Error("open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	client := fetch.NewClient(cfg.Fetch(), log)
	stats := embed.NewStats(time.Hour)

	deps := api.Deps{
		Structurer: structurer.New(vocab, log),
		Parser:     schema.NewParser(anchors),
		EmbedStats: stats,
		Records:    db,
		Cases:      db,
	}
	var gemini *embed.Gemini
	if cfg.GeminiAPIKey != "" {
		gemini, err = embed.NewGemini(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, log)
		if err != nil {
			log.Error("create embedder", "error", err)
			os.Exit(1)
		}
		deps.Embedder = gemini
	} else {
		log.Warn("RTI_GEMINI_API_KEY not set, /api/embed disabled")
	}

	// Initialize pipeline.
	worker := pipeline.NewWorker(client, deps.Structurer, deps.Parser, db, log)
	orch := pipeline.NewOrchestrator(pipeline.Options{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, worker, log)
	orch.Start(ctx)
	deps.Orchestrator = orch

	// Initialize HTTP server.
	srv := api.NewServer(deps, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		client.Close()
		if gemini != nil {
			gemini.Close()
		}
		db.Close()
	}()

	log.Info("starting rticorpus", "port", cfg.Port, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
