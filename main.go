package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/pipelineiq/engine/pkg/config"
	"github.com/pipelineiq/engine/pkg/handlers"
	"github.com/pipelineiq/engine/pkg/llm"
	"github.com/pipelineiq/engine/pkg/middleware"
	"github.com/pipelineiq/engine/pkg/parallel"
	"github.com/pipelineiq/engine/pkg/pipeline"
	"github.com/pipelineiq/engine/pkg/schema"
	"github.com/pipelineiq/engine/pkg/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("dialect", string(cfg.Dialect)),
		zap.Int("row_limit", cfg.RowLimit),
		zap.Int("providers", len(cfg.ProviderConfigs())))

	ctx := context.Background()

	warehouse, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		logger.Fatal("failed to open demo warehouse", zap.Error(err))
	}
	defer warehouse.Close()

	if cfg.Store.Seed {
		if err := warehouse.Seed(ctx, cfg.Store.SeedRows); err != nil {
			logger.Fatal("failed to seed demo warehouse", zap.Error(err))
		}
	}

	registry := buildRegistry(ctx, cfg, warehouse, logger)
	logger.Info("schema registry ready", zap.Strings("tables", registry.Tables()))

	generator := parallel.NewGenerator(ctx, cfg.ProviderConfigs(), cfg.LLM.Preferred, logger)
	var regenProvider llm.Provider
	if providers := generator.Providers(); len(providers) > 0 {
		regenProvider = providers[0]
	} else {
		logger.Warn("no LLM providers available; generation disabled, regeneration falls back to substitutions")
	}

	orchestrator := pipeline.New(pipeline.Options{
		Registry: registry,
		Dialect:  cfg.Dialect,
		RowLimit: cfg.RowLimit,
		Provider: regenProvider,
		Logger:   logger,
	})

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(orchestrator, generator, registry, warehouse, cfg.Dialect, logger).RegisterRoutes(mux)

	handler := middleware.Recover(logger)(middleware.RequestLogger(logger)(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("starting pipelineiq-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildRegistry picks the schema source: an explicit YAML feed wins, then
// the live warehouse catalog, then the built-in default.
func buildRegistry(ctx context.Context, cfg *config.Config, warehouse *store.Store, logger *zap.Logger) *schema.Registry {
	if cfg.SchemaFeedPath != "" {
		registry, err := schema.LoadFeed(cfg.SchemaFeedPath)
		if err == nil {
			return registry
		}
		logger.Warn("failed to load schema feed, falling back",
			zap.String("path", cfg.SchemaFeedPath),
			zap.Error(err))
	}

	registry, err := warehouse.Registry(ctx)
	if err == nil && !registry.Empty() {
		return registry
	}
	if err != nil {
		logger.Warn("failed to derive registry from warehouse", zap.Error(err))
	}
	return schema.DefaultCatalog()
}
