package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/botforge/botforge/internal/config"
	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/logger"
	"github.com/botforge/botforge/internal/queue"
	"github.com/botforge/botforge/internal/remote/directory"
	"github.com/botforge/botforge/internal/services/ai"
	"github.com/botforge/botforge/internal/sync"
	"github.com/botforge/botforge/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_model", cfg.AIModel),
	)

	// Local store
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		zapLogger.Fatal("failed_to_open_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database", zap.Error(err))
		}
	}()
	zapLogger.Info("opened_local_database", zap.String("path", cfg.DatabasePath))

	// Remote directory
	dir, err := directory.NewPostgres(cfg.DirectoryURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_directory", zap.Error(err))
	}
	defer func() {
		if err := dir.Close(); err != nil {
			zapLogger.Warn("failed_to_close_directory_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_directory")

	// Job queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	// AI provider is optional; without it image jobs dead-letter
	var provider ai.Provider
	if cfg.OpenAIKey != "" {
		provider = ai.NewOpenAIProviderWithLogger(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
		zapLogger.Info("initialized_ai_provider", zap.String("model", cfg.AIModel))
	} else {
		zapLogger.Warn("openai_key_not_configured_image_jobs_will_fail")
	}

	// Repositories and the sync pipeline
	botRepo := database.NewBotRepository(db)
	prefStore := database.NewPreferenceStore(db)
	imageRepo := database.NewImageRepository(db)
	syncer := sync.NewSyncer(dir, botRepo, prefStore, zapLogger)

	processor := workers.NewJobProcessor(syncer, provider, imageRepo, jobQueue, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}
	zapLogger.Info("worker_started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}
				if err := processor.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	<-sigChan
	zapLogger.Info("shutdown_signal_received")
	cancel()
	zapLogger.Info("worker_stopped")
}
