// Package main is the entry point for the answer cache server.
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

	goredis "github.com/redis/go-redis/v9"

	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/cache"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/config"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/embedding"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/generation"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/memory"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/observability"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/orchestrator"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/profile"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/retrieval"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/routing"
	"github.com/gacerioni/redis-context-enabled-semantic-cache-llm/internal/vector"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	bootLogger := observability.NewLogger("info", "json", os.Stdout)

	cfgManager, err := config.NewManager(*configPath, bootLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	logger.Info("starting answer cache server", "version", "0.1.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfgManager.Watch(ctx); err != nil {
		logger.Warn("config hot-reload disabled", "error", err)
	}

	var tracerProvider *observability.TracerProvider
	if cfg.Tracing.Enabled {
		tracerProvider, err = observability.InitTracing(ctx, observability.TracingConfig{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			SampleRate:  cfg.Tracing.SampleRate,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			logger.Error("failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}

	embedder, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		APIKey:            cfg.Embedding.APIKey,
		APIBase:           cfg.Embedding.APIBase,
		Model:             cfg.Embedding.Model,
		Dimension:         cfg.Embedding.Dimension,
		Timeout:           cfg.Embedding.Timeout,
		MemoTTL:           cfg.Embedding.MemoTTL,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if err != nil {
		logger.Error("failed to initialize embedder", "error", err)
		os.Exit(1)
	}
	generator, err := generation.NewOpenAIGenerator(generation.OpenAIConfig{
		APIKey:            cfg.Generation.APIKey,
		APIBase:           cfg.Generation.APIBase,
		CheapModel:        cfg.Generation.CheapModel,
		PremiumModel:      cfg.Generation.PremiumModel,
		Timeout:           cfg.Generation.Timeout,
		RequestsPerSecond: cfg.Generation.RequestsPerSecond,
	})
	if err != nil {
		logger.Error("failed to initialize generator", "error", err)
		os.Exit(1)
	}

	router, err := routing.Build(ctx, embedder, cfg.Routing.Routes)
	if err != nil {
		logger.Error("failed to build semantic router", "error", err)
		os.Exit(1)
	}
	logger.Info("semantic router ready", "routes", router.Routes())

	store := vector.NewRedisStore(redisClient, "vec")
	answerCache, err := cache.New(store, cache.Config{
		HitThreshold:       cfg.Cache.HitThreshold,
		DuplicateThreshold: cfg.Cache.DuplicateThreshold,
		LookupCandidates:   cfg.Cache.LookupCandidates,
		TTL:                cfg.Cache.TTL,
		Namespace:          cfg.Cache.Namespace,
	})
	if err != nil {
		logger.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}

	profiles := profile.NewStore(redisClient, logger)
	shortTerm := memory.NewShortTerm(redisClient, cfg.Memory.ShortTermMaxTurns, cfg.Memory.ShortTermTTL)
	longTerm := memory.NewLongTerm(redisClient, cfg.Memory.LongTermCap)
	var promoter *memory.Promoter
	if cfg.Memory.PromotionEnabled {
		promoter = memory.NewPromoter(memory.HeuristicPolicy{}, longTerm)
	}
	kb := retrieval.NewKBIndex(embedder, store, cfg.Retrieval.Namespace)

	orch := orchestrator.New(
		embedder,
		router,
		answerCache,
		profiles,
		shortTerm,
		longTerm,
		promoter,
		kb,
		generator,
		logger,
		orchestrator.OptionsFromConfig(cfg),
	)

	handler := newHandler(orch, kb, answerCache, redisClient, logger)
	mux := buildMux(cfg, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      buildMiddleware(cfg, logger)(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", "error", err)
		}
	}
	cfgManager.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}
	logger.Info("server stopped")
}
