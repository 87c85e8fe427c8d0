package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mnemo-ai/mnemo/internal/annotate"
	"github.com/mnemo-ai/mnemo/internal/api"
	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/provider"
	"github.com/mnemo-ai/mnemo/internal/retry"
	"github.com/mnemo-ai/mnemo/internal/service"
	"github.com/mnemo-ai/mnemo/internal/store"
)

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if level, err := zapcore.ParseLevel(config.LogLevel()); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

func retryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = config.RetryMaxAttempts()
	p.AttemptTimeout = config.RetryAttemptTimeout()
	p.InitialBackoff = config.RetryInitialBackoff()
	return p
}

func main() {
	config.Load()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	policy := retryPolicy()

	llmBackend, err := provider.NewBackend(config.LLMProvider(), config.LLMAPIKey())
	if err != nil {
		logger.Fatal("llm backend", zap.Error(err))
	}
	embedBackend, err := provider.NewBackend(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Fatal("embedding backend", zap.Error(err))
	}
	rerankBackend, err := provider.NewBackend(config.RerankProvider(), config.RerankAPIKey())
	if err != nil {
		logger.Fatal("rerank backend", zap.Error(err))
	}

	annotator := annotate.NewLLMAnnotator(
		provider.NewLanguageModel(llmBackend, config.LLMModel(), policy),
	)
	embedder := provider.NewEmbeddingModel(embedBackend, config.EmbeddingModel(), policy, config.EmbedMaxParallels())
	reranker := provider.NewRerankingModel(rerankBackend, config.RerankModel(), policy)

	var (
		vs   store.VectorStore
		ping func(ctx context.Context) error
	)
	switch backend := config.VectorStore(); backend {
	case "pgvector":
		dbURL := config.DatabaseURL()
		if dbURL == "" {
			logger.Fatal("DATABASE_URL is required for the pgvector backend")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")

		vs = store.NewPgVectorStore(pool, config.CollectionName(), config.EmbeddingDimensions())
		ping = pool.Ping
	case "chromem":
		vs = store.NewChromemStore(config.CollectionName())
	default:
		logger.Fatal("unknown vector store backend", zap.String("backend", backend))
	}

	if err := vs.CreateCollection(ctx); err != nil {
		logger.Fatal("failed to create collection", zap.Error(err))
	}

	svc := service.NewMemoryService(vs, annotator, embedder, reranker, logger)

	app := api.NewApp(svc, logger, api.Options{
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
		Ping:           ping,
	})

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("store", config.VectorStore()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
