package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/botforge/botforge/internal/config"
	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/handlers"
	"github.com/botforge/botforge/internal/logger"
	"github.com/botforge/botforge/internal/middleware"
	"github.com/botforge/botforge/internal/queue"
	"github.com/botforge/botforge/internal/remote/directory"
	"github.com/botforge/botforge/internal/remote/ledger"
	"github.com/botforge/botforge/internal/services/ai"
	"github.com/botforge/botforge/internal/services/oidc"
	"github.com/botforge/botforge/internal/services/share"
	"github.com/botforge/botforge/internal/telemetry"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
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
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry tracing is opt-in
	var tracerEnabled bool
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "botforge-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerEnabled = true
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tp.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

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

	// Remote directory (Postgres)
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

	// Vote ledger (MongoDB), optional
	var voteLedger *ledger.Ledger
	if cfg.MongoURL != "" {
		mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoClient, err := ledger.Connect(mongoCtx, cfg.MongoURL)
		mongoCancel()
		if err != nil {
			zapLogger.Warn("failed_to_connect_to_ledger_votes_disabled", zap.Error(err))
		} else {
			defer func() {
				if err := mongoClient.Disconnect(context.Background()); err != nil {
					zapLogger.Warn("failed_to_close_ledger_connection", zap.Error(err))
				}
			}()
			voteLedger = ledger.NewMongo(mongoClient, cfg.MongoDatabase, zapLogger)
			zapLogger.Info("connected_to_ledger", zap.String("database", cfg.MongoDatabase))
		}
	} else {
		zapLogger.Info("ledger_not_configured_votes_disabled")
	}

	// Redis for rate limiting
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// RabbitMQ job queue, with retries to ride out broker startup
	jobQueue, err := connectQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Repositories
	botRepo := database.NewBotRepository(db)
	personaRepo := database.NewPersonaRepository(db)
	chatRepo := database.NewChatRepository(db)
	imageRepo := database.NewImageRepository(db)
	prefStore := database.NewPreferenceStore(db)

	// Services
	shareService := share.NewService(dir, botRepo, prefStore, zapLogger)
	verifier := oidc.NewVerifier(oidc.NewJWKSManager(), cfg.JWTIssuer)

	var chatService *ai.ChatService
	if cfg.OpenAIKey != "" {
		provider := ai.NewOpenAIProviderWithLogger(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
		chatService = ai.NewChatService(provider, cfg.AIModel)
	} else {
		zapLogger.Warn("openai_key_not_configured_ai_features_disabled")
	}

	// Handlers
	healthChecker := handlers.NewHealthChecker(db, jobQueue)
	personaHandler := handlers.NewPersonaHandler(personaRepo, shareService)
	chatHandler := handlers.NewChatHandler(chatRepo, personaRepo, chatService)
	botHandler := handlers.NewBotHandler(botRepo, personaRepo, shareService, voteLedger, jobQueue)
	imageHandler := handlers.NewImageHandler(imageRepo, jobQueue)
	preferenceHandler := handlers.NewPreferenceHandler(prefStore)

	// Router and middleware. gorilla/mux runs middleware in registration
	// order, so the outermost concerns go first.
	r := mux.NewRouter()
	if tracerEnabled {
		r.Use(otelmux.Middleware("botforge-api"))
	}
	r.Use(middleware.SecurityHeaders(false))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(redisClient, "")
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")

	// API v1 routes, bearer-token protected and rate limited
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.Auth(verifier, cfg.JWKSURL))
	apiRouter.Use(rateLimitMW)

	personaHandler.RegisterRoutes(apiRouter.PathPrefix("/personas").Subrouter())
	chatHandler.RegisterRoutes(apiRouter.PathPrefix("/chats").Subrouter())
	botHandler.RegisterRoutes(apiRouter.PathPrefix("/bots").Subrouter())
	imageHandler.RegisterRoutes(apiRouter.PathPrefix("/images").Subrouter())
	preferenceHandler.RegisterRoutes(apiRouter.PathPrefix("/preferences").Subrouter())

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

	// DLQ garbage collector: hourly pass, 24h retention
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour)
		go func() {
			if err := dlqGC.Start(bgCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector")
	}

	// Periodic directory sync trigger
	if interval, err := time.ParseDuration(cfg.SyncInterval); err != nil {
		zapLogger.Warn("invalid_sync_interval_periodic_sync_disabled", zap.String("value", cfg.SyncInterval))
	} else if interval > 0 {
		go runSyncTicker(bgCtx, jobQueue, interval, zapLogger)
		zapLogger.Info("started_periodic_sync_trigger", zap.Duration("interval", interval))
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}
	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with exponential backoff so the server can
// start while the broker is still coming up
func connectQueue(url string, zapLogger *zap.Logger) (queue.JobQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(url)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue, nil
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
	return nil, lastErr
}

// runSyncTicker enqueues a directory sync job on a fixed interval. One job
// fires immediately so a fresh install gets the directory without waiting.
func runSyncTicker(ctx context.Context, jobs queue.JobQueue, interval time.Duration, zapLogger *zap.Logger) {
	enqueue := func() {
		job := queue.NewJob(queue.JobTypeDirectorySync, nil)
		if err := jobs.Enqueue(ctx, job); err != nil {
			zapLogger.Error("failed_to_enqueue_sync_job", zap.Error(err))
			return
		}
		zapLogger.Debug("enqueued_sync_job", zap.String("job_id", job.ID.String()))
	}

	enqueue()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueue()
		}
	}
}
