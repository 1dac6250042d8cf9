package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"log/slog"

	"github.com/frothops/testgen/internal/api"
	"github.com/frothops/testgen/internal/audit"
	"github.com/frothops/testgen/internal/cache"
	"github.com/frothops/testgen/internal/config"
	"github.com/frothops/testgen/internal/generator"
	"github.com/frothops/testgen/internal/logging"
	"github.com/frothops/testgen/internal/metrics"
	"github.com/frothops/testgen/internal/provider"
	"github.com/frothops/testgen/internal/quota"
	"github.com/frothops/testgen/internal/scheduler"
	"github.com/frothops/testgen/internal/semantic"
	"github.com/frothops/testgen/internal/server"
)

func main() {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting testgen")

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		logger.Error("failed to create data directory", "dir", cfg.Data.Dir, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	quotas, err := quota.NewTracker(cfg.Data.Dir, cfg.Quota, logger)
	if err != nil {
		logger.Error("failed to initialize quota tracker", "error", err)
		os.Exit(1)
	}

	// Cache backend: local file by default, Redis when configured.
	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		redisStore, err := cache.NewRedisStore(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB, logger)
		if err != nil {
			logger.Error("failed to connect to redis cache", "addr", cfg.Cache.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
		logger.Info("using redis cache", "addr", cfg.Cache.RedisAddr)
	default:
		fileStore, err := cache.NewFileStore(cfg.Data.Dir, logger)
		if err != nil {
			logger.Error("failed to open cache store", "error", err)
			os.Exit(1)
		}
		store = fileStore
	}

	// Audit trail: local JSONL by default, Postgres when configured.
	var recorder audit.Recorder
	if cfg.Audit.DatabaseURL != "" {
		pgRecorder, err := audit.NewPostgresRecorder(ctx, cfg.Audit.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to audit database", "error", err)
			os.Exit(1)
		}
		defer pgRecorder.Close()
		recorder = pgRecorder
		logger.Info("using postgres audit trail")
	} else {
		recorder = audit.NewFileRecorder(cfg.Data.Dir, logger)
	}

	// The semantic index needs embeddings, which need an OpenAI key.
	var index *semantic.Index
	if cfg.OpenAI.APIKey != "" {
		embedder := semantic.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel)
		index, err = semantic.NewIndex(cfg.Data.Dir, embedder, semantic.DefaultThreshold, logger)
		if err != nil {
			logger.Error("failed to open semantic index", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("no OpenAI API key, semantic similarity disabled")
	}

	var backend provider.CompletionProvider
	model := cfg.OpenAI.Model
	switch {
	case cfg.Provider() == config.ProviderAnthropic && cfg.Anthropic.APIKey != "":
		backend = provider.NewAnthropicProvider(cfg.Anthropic.APIKey, logger)
		model = cfg.Anthropic.Model
		logger.Info("using anthropic provider", "model", model)
	case cfg.OpenAI.APIKey != "":
		backend = provider.NewOpenAIProvider(cfg.OpenAI.APIKey, logger)
		logger.Info("using openai provider", "model", model)
	default:
		backend = provider.NewMockProvider()
		logger.Warn("no provider API key configured, using mock provider")
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}

	gen := generator.New(logger, quotas, store, index, recorder, backend, collector, generator.Options{
		Model:       model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	})

	if cfg.Cache.CleanupInterval > 0 {
		janitor := scheduler.NewCleanupScheduler(gen, cfg.Cache.CleanupInterval, cfg.Cache.MaxAgeDays, logger)
		janitorCtx, cancelJanitor := context.WithCancel(ctx)
		defer cancelJanitor()
		go janitor.Start(janitorCtx)
	}

	mux := http.NewServeMux()
	api.SetupRoutes(mux, gen, logger)
	mux.Handle("/metrics", collector.Handler())

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
