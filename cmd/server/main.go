package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	connectorapp "github.com/syncbridge/backend/internal/application/connector"
	mappingapp "github.com/syncbridge/backend/internal/application/mapping"
	syncapp "github.com/syncbridge/backend/internal/application/sync"
	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
	"github.com/syncbridge/backend/internal/infrastructure/config"
	"github.com/syncbridge/backend/internal/infrastructure/connectors"
	"github.com/syncbridge/backend/internal/infrastructure/locker"
	"github.com/syncbridge/backend/internal/infrastructure/logger"
	"github.com/syncbridge/backend/internal/infrastructure/persistence"
	"github.com/syncbridge/backend/internal/infrastructure/persistence/models"
	"github.com/syncbridge/backend/internal/infrastructure/scheduler"
	"github.com/syncbridge/backend/internal/interfaces/http/handler"
	"github.com/syncbridge/backend/internal/interfaces/http/middleware"
	"github.com/syncbridge/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting SyncBridge",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := models.AutoMigrate(db.DB); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Initialize repositories
	connectorRepo := persistence.NewGormConnectorRepository(db.DB)
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	jobRepo := persistence.NewGormSyncJobRepository(db.DB)
	runRepo := persistence.NewGormSyncRunRepository(db.DB)

	// Run locking: Redis when reachable, otherwise a process-local lock.
	// A single-instance deployment is correct either way; multi-instance
	// deployments need Redis for cross-process overlap protection.
	var runLocker syncdomain.RunLocker
	redisLocker, err := locker.NewRedisRunLocker(locker.RedisConfig{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-process run locking", zap.Error(err))
		runLocker = locker.NewInMemoryRunLocker()
	} else {
		defer func() {
			if err := redisLocker.Close(); err != nil {
				log.Error("Error closing redis locker", zap.Error(err))
			}
		}()
		runLocker = redisLocker
		log.Info("Redis run locking enabled", zap.String("addr", cfg.Redis.Addr()))
	}

	// Connector adapters for every catalog vendor
	adapterRegistry := connectors.NewDefaultRegistry()

	// Initialize application services
	registryService := connectorapp.NewRegistryService(connectorRepo, log)
	mappingService := mappingapp.NewService(mappingRepo, connectorRepo, log)
	syncService := syncapp.NewService(jobRepo, runRepo, mappingRepo, connectorRepo, adapterRegistry, runLocker, log)
	syncService.SetRunLockTTL(cfg.Sync.RunLockTTL)

	// Initialize and start the job poller (if enabled)
	if cfg.Scheduler.Enabled {
		jobScheduler, err := scheduler.NewScheduler(scheduler.Config{
			Enabled:           cfg.Scheduler.Enabled,
			PollInterval:      cfg.Scheduler.PollInterval,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
		}, syncService, syncService, log)
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := jobScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()
		log.Info("Job scheduler started",
			zap.Duration("poll_interval", cfg.Scheduler.PollInterval),
			zap.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
		)
	}

	// Initialize HTTP handlers
	registryHandler := handler.NewRegistryHandler(registryService)
	mappingHandler := handler.NewMappingHandler(mappingService)
	syncHandler := handler.NewSyncHandler(syncService)
	syncHandler.SetDefaultRunLimit(cfg.Sync.RunHistoryLimit)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Custom binding validations
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Engine-wide middleware: request IDs, panic recovery, request logging,
	// CORS. Org scoping applies to API routes only so /health stays open.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.AccessLog(log))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	router.NewRouter(engine, router.WithAPIMiddleware(middleware.OrgContext())).
		Register(registryHandler).
		Register(mappingHandler).
		Register(syncHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
