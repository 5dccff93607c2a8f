package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/task-analyzer/internal/config"
	"github.com/benvon/task-analyzer/internal/logger"
	"github.com/benvon/task-analyzer/internal/queue"
	"github.com/benvon/task-analyzer/internal/services/analysis"
	"github.com/benvon/task-analyzer/internal/settings"
	"github.com/benvon/task-analyzer/internal/telemetry"
	"github.com/benvon/task-analyzer/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireRabbitMQ(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
		zap.String("settings_file", cfg.SettingsFile),
	)

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(context.Background(), "worker", cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	fallback := settings.Default()
	if cfg.Timezone != "" {
		fallback.Timezone = cfg.Timezone
	}
	settingsStore, err := settings.Open(cfg.SettingsFile, fallback, zapLogger)
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

	rabbit, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := rabbit.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	jobQueue := queue.NewBreakerQueue(rabbit, queue.BreakerSettings{
		FailureThreshold: uint32(cfg.BreakerFailureThreshold),
		Timeout:          cfg.BreakerTimeout,
	}, zapLogger)

	service := analysis.New(settingsStore,
		analysis.WithMaxTasks(cfg.MaxTasks),
		analysis.WithLogger(zapLogger),
	)
	worker := workers.NewAnalysisWorker(service, jobQueue, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := worker.Run(ctx, cfg.RabbitMQPrefetch); err != nil {
			zapLogger.Error("worker_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("worker_started")

	select {
	case <-sigChan:
		zapLogger.Info("worker_shutting_down")
	case <-done:
		zapLogger.Warn("worker_consumer_ended")
	}

	cancel()
	<-done
	zapLogger.Info("worker_stopped")
}
