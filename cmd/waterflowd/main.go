package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"waterflow/internal/handlers"
	"waterflow/internal/repository"
	"waterflow/internal/service"
	"waterflow/migrations"
	"waterflow/pkg/audit"
	"waterflow/pkg/cache"
	"waterflow/pkg/config"
	"waterflow/pkg/database"
	"waterflow/pkg/logger"
	"waterflow/pkg/metrics"
	"waterflow/pkg/passhash"
	"waterflow/pkg/ratelimit"
	"waterflow/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализация телеметрии
	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("Failed to init telemetry", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Log.Warn("Failed to shutdown telemetry", "error", err)
				}
			}()
			logger.Log.Info("Telemetry initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)

	// Аудит лог (опционально)
	if cfg.Audit.Enabled {
		auditLogger, err := audit.New(audit.FromConfig(&cfg.Audit))
		if err != nil {
			logger.Fatal("failed to init audit logger", "error", err)
		}
		defer auditLogger.Close()
		audit.SetGlobal(auditLogger)
		logger.Info("Audit log enabled", "backend", cfg.Audit.Backend)
	}

	// История расчётов в PostgreSQL (опционально)
	var runs repository.RunRepository
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(
				ctx,
				db.Pool(),
				&cfg.Database,
				migrations.PostgresMigrations,
				"postgres",
			); err != nil {
				logger.Fatal("failed to run migrations", "error", err)
			}
		}

		runs = repository.NewPostgresRunRepository(db)
		logger.Info("Run history enabled",
			"host", cfg.Database.Host,
			"database", cfg.Database.Database,
		)
	}

	// Кэш результатов расчёта (опционально)
	var solveCache *cache.SolveCache
	if cfg.Cache.Enabled {
		backend, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Fatal("failed to init cache", "error", err)
		}
		solveCache = cache.NewSolveCache(backend, cfg.Cache.DefaultTTL)
		logger.Info("Solve cache enabled", "driver", cfg.Cache.Driver, "ttl", cfg.Cache.DefaultTTL)
	}

	svc := service.NewFlowService(cfg.App.Version, solveCache, runs)

	// Внешние зависимости роутера
	opts := handlers.RouterOptions{}
	if cfg.Auth.Enabled {
		opts.JWTManager = passhash.NewJWTManager(passhash.FromConfig(&cfg.Auth))
	}
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.New(&ratelimit.Config{
			Requests:        cfg.RateLimit.Requests,
			Window:          cfg.RateLimit.Window,
			Backend:         cfg.RateLimit.Backend,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
			RedisAddr:       cfg.RateLimit.RedisAddr,
		})
		if err != nil {
			logger.Fatal("failed to init rate limiter", "error", err)
		}
		defer limiter.Close()
		opts.Limiter = limiter
	}

	router := handlers.NewHandler(svc, cfg).SetupRouter(opts)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting waterflow engine",
			"port", cfg.HTTP.Port,
			"environment", cfg.App.Environment,
			"version", cfg.App.Version,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Fatal("server failed", "error", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
