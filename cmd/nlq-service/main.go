package main

import (
	"context"
	"log"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/impactlens/nlq-engine/internal/audit"
	"github.com/impactlens/nlq-engine/internal/auth"
	"github.com/impactlens/nlq-engine/internal/cache"
	"github.com/impactlens/nlq-engine/internal/catalog"
	"github.com/impactlens/nlq-engine/internal/config"
	"github.com/impactlens/nlq-engine/internal/executor"
	"github.com/impactlens/nlq-engine/internal/generator"
	"github.com/impactlens/nlq-engine/internal/observability"
	"github.com/impactlens/nlq-engine/internal/semantic"
	"github.com/impactlens/nlq-engine/internal/service"
)

func main() {
	ctx := context.Background()
	logger := observability.NewLogger("nlq-service")

	cfg, err := config.NewDefaultLoader().Load(ctx)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	gin.SetMode(cfg.Server.GinMode)

	// Template catalog is compiled in; a bad builtin template is a
	// build defect and panics at startup.
	cat := catalog.MustBuiltin()
	gen := generator.New(cat)

	// Postgres: audit log and suggestion storage
	db, err := executor.OpenPostgres(cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	// Redis: generation result cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	resultCache := cache.NewResultCache(rdb, cfg.Query.DefaultCacheTTL)

	authManager := auth.NewManager(auth.Config{
		JWTSecret:      cfg.Auth.JWTSecret,
		JWTExpiry:      cfg.Auth.JWTExpiry,
		BcryptCost:     cfg.Auth.APIKeyCost,
		RateLimit:      cfg.Auth.RateLimit,
		AllowAnonymous: cfg.Auth.AllowAnonymous,
	})

	healthChecker := observability.NewHealthChecker()
	healthChecker.Register("database", observability.DatabaseHealthCheck(db.PingContext))
	healthChecker.Register("redis", observability.RedisHealthCheck(resultCache.Ping))
	healthChecker.Register("memory", observability.MemoryHealthCheck(func() (uint64, uint64) {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		return stats.Alloc, stats.Sys
	}))

	opts := []service.Option{
		service.WithResultCache(resultCache),
		service.WithAuditStore(audit.NewStore(db)),
		service.WithHealthChecker(healthChecker),
		service.WithExecutor("postgres", executor.NewBreakerExecutor(
			executor.NewPostgresExecutor(db, cfg.Query.Timeout),
			executor.DefaultBreakerConfig,
		)),
	}

	if cfg.Query.SuggestionEnabled {
		opts = append(opts, service.WithSuggestionStore(semantic.NewSuggestionStore(db)))
	}

	if cfg.Query.EnableCHQL {
		chExec, err := executor.NewClickHouseExecutor(executor.ClickHouseOptions{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
			Timeout:  cfg.ClickHouse.Timeout,
		})
		if err != nil {
			logger.Warn(ctx, "ClickHouse unavailable, analytics execution disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			healthChecker.Register("clickhouse", observability.ClickHouseHealthCheck(chExec.Ping))
			opts = append(opts, service.WithExecutor("clickhouse", executor.NewBreakerExecutor(
				chExec, executor.DefaultBreakerConfig,
			)))
		}
	}

	svc := service.New(cat, gen, opts...)

	router := svc.SetupRoutes(authManager)

	logger.Info(ctx, "NLQ engine starting", map[string]interface{}{
		"port":      cfg.Server.Port,
		"templates": cat.Len(),
		"version":   "1.0.0",
	})

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Error(ctx, "Failed to start server", err, nil)
		log.Fatal("Failed to start server:", err)
	}
}
