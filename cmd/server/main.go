package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/task-analyzer/api/openapi"
	"github.com/benvon/task-analyzer/internal/config"
	"github.com/benvon/task-analyzer/internal/handlers"
	"github.com/benvon/task-analyzer/internal/logger"
	"github.com/benvon/task-analyzer/internal/middleware"
	"github.com/benvon/task-analyzer/internal/queue"
	"github.com/benvon/task-analyzer/internal/services/analysis"
	"github.com/benvon/task-analyzer/internal/settings"
	"github.com/benvon/task-analyzer/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("settings_file", cfg.SettingsFile),
		zap.Int("max_tasks", cfg.MaxTasks),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	tracingEnabled := false
	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(context.Background(), "server", cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracingEnabled = true
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	settingsStore, err := settings.Open(cfg.SettingsFile, fallbackSettings(cfg), zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_load_settings", zap.Error(err))
	}
	if cfg.SettingsFile != "" {
		watcher, err := settings.NewWatcher(settingsStore, zapLogger, settings.DefaultDebounce)
		if err != nil {
			zapLogger.Fatal("failed_to_create_settings_watcher", zap.Error(err))
		}
		if err := watcher.Start(); err != nil {
			zapLogger.Fatal("failed_to_watch_settings", zap.Error(err))
		}
		defer watcher.Stop()
	}

	healthChecker := handlers.NewHealthChecker()

	// Redis backs the rate limiter when configured; otherwise limits are per process
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = middleware.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		healthChecker.AddCheck("redis", handlers.RedisCheck(redisClient))
		zapLogger.Info("connected_to_redis")
	}
	limiterStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}

	var jobQueue queue.JobQueue
	var rabbit *queue.RabbitMQQueue
	if cfg.RabbitMQURL != "" {
		rabbit = connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		defer func() {
			if err := rabbit.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		jobQueue = queue.NewBreakerQueue(rabbit, queue.BreakerSettings{
			FailureThreshold: uint32(cfg.BreakerFailureThreshold),
			Timeout:          cfg.BreakerTimeout,
		}, zapLogger)
		healthChecker.AddCheck("rabbitmq", rabbit.HealthCheck)
	} else {
		zapLogger.Info("rabbitmq_not_configured_async_analysis_disabled")
	}

	service := analysis.New(settingsStore,
		analysis.WithMaxTasks(cfg.MaxTasks),
		analysis.WithLogger(zapLogger),
	)
	analysisHandler := handlers.NewAnalysisHandler(service, jobQueue, zapLogger).
		WithJobMaxRetries(cfg.JobMaxRetries)

	r := mux.NewRouter()

	// Middleware runs in registration order, outermost first
	if tracingEnabled {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.RequestID)
	corsReloader := middleware.NewCORSReloader(settingsStore, cfg.FrontendURL, zapLogger)
	r.Use(corsReloader.Middleware())
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Rate limit applies to the task endpoints only
	rateLimitReloader := middleware.NewRateLimitReloader(limiterStore, settingsStore, cfg.DefaultRateLimit, zapLogger)

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/health", healthChecker.LegacyHealth).Methods("GET")
	r.HandleFunc("/version", handlers.Version(version)).Methods("GET")

	handlers.NewOpenAPIHandler(openapi.Document).RegisterRoutes(r)

	tasksRouter := r.PathPrefix("/api/v1/tasks").Subrouter()
	tasksRouter.Use(rateLimitReloader.Middleware())
	analysisHandler.RegisterRoutes(tasksRouter)

	// Preflight requests; the CORS middleware has already answered with headers
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if rabbit != nil {
		dlqGC := queue.NewGarbageCollector(rabbit, queue.DefaultGCInterval, queue.DefaultDLQRetention, zapLogger)
		go func() {
			if err := dlqGC.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", queue.DefaultGCInterval),
			zap.Duration("retention", queue.DefaultDLQRetention),
		)
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// fallbackSettings are used when no settings file is configured
func fallbackSettings(cfg *config.Config) settings.Settings {
	s := settings.Default()
	s.RateLimit.Rate = cfg.DefaultRateLimit
	if cfg.Timezone != "" {
		s.Timezone = cfg.Timezone
	}
	return s
}

// connectRabbitMQ retries with exponential backoff to ride out broker startup
func connectRabbitMQ(url string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}
