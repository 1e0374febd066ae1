package main

// @title           Facesink API
// @version         1.0
// @description     Face document ingestion pipeline. Accepts JSON face documents, deduplicates faces against the registry, and loads new rows into the tabular store.

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token or API key. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lunavision/facesink/internal/adapters/driven/auth"
	"github.com/lunavision/facesink/internal/adapters/driven/postgres"
	postgresqueue "github.com/lunavision/facesink/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/lunavision/facesink/internal/adapters/driven/queue/redis"
	redisadapter "github.com/lunavision/facesink/internal/adapters/driven/redis"
	s3store "github.com/lunavision/facesink/internal/adapters/driven/s3"
	"github.com/lunavision/facesink/internal/adapters/driven/smtp"
	"github.com/lunavision/facesink/internal/adapters/driving/http"
	"github.com/lunavision/facesink/internal/config"
	"github.com/lunavision/facesink/internal/core/ports/driven"
	"github.com/lunavision/facesink/internal/core/services"
	"github.com/lunavision/facesink/internal/worker"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mode := cfg.App.Mode
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("facesink starting", "version", version, "mode", mode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received, stopping")
		cancel()
	}()

	// ===== PostgreSQL =====
	dbConfig := postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleSec) * time.Second,
	}
	db, err := postgres.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Schema init is idempotent
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	logger.Info("postgres connected, schema initialized")

	// ===== Redis (optional) =====
	var redisClient *goredis.Client
	if cfg.Redis.URL != "" {
		opts, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = goredis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		logger.Info("redis connected")
	}

	// ===== Artifact store =====
	store, err := s3store.Connect(ctx, s3store.Config{
		Bucket:       cfg.Storage.Bucket,
		Prefix:       cfg.Storage.Prefix,
		Region:       cfg.Storage.Region,
		Endpoint:     cfg.Storage.Endpoint,
		UsePathStyle: cfg.Storage.UsePathStyle,
	})
	if err != nil {
		log.Fatalf("Failed to connect to artifact store: %v", err)
	}

	// ===== Driven adapters =====
	authAdapter := auth.NewAdapter(cfg.Auth.JWTSecret, cfg.Auth.APIKeyHashes)
	faceTable := postgres.NewFaceTable(db)
	personDirectory := postgres.NewPersonDirectory(db)
	runStore := postgres.NewRunStore(db)
	schedulerStore := postgres.NewSchedulerStore(db)

	// ===== Task queue (Redis if available, otherwise PostgreSQL) =====
	var taskQueue driven.TaskQueue
	if redisClient != nil {
		taskQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
		logger.Info("using redis task queue")
	} else {
		taskQueue = postgresqueue.NewQueue(db.DB)
		logger.Info("using postgres task queue")
	}
	defer taskQueue.Close()

	// ===== Distributed lock (Redis if available, otherwise advisory locks) =====
	var distributedLock driven.DistributedLock
	if redisClient != nil {
		distributedLock = redisadapter.NewLock(redisClient)
		logger.Info("using redis distributed lock")
	} else {
		distributedLock = postgres.NewAdvisoryLock(db)
		logger.Info("using postgres advisory lock")
	}

	// ===== Notifier =====
	var notifier driven.Notifier
	if cfg.SMTP.Host != "" {
		notifier, err = smtp.NewNotifier(smtp.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Subject:  cfg.SMTP.Subject,
		})
		if err != nil {
			log.Fatalf("Failed to create notifier: %v", err)
		}
	} else {
		logger.Warn("smtp not configured, notifications disabled")
	}

	// ===== Core services =====
	pipeline := services.NewIngestPipeline(services.IngestPipelineConfig{
		Store:              store,
		Table:              faceTable,
		RunStore:           runStore,
		Lock:               distributedLock,
		Logger:             logger,
		VisibilityAttempts: cfg.Pipeline.VisibilityAttempts,
		VisibilityInterval: cfg.VisibilityInterval(),
		LockTTL:            cfg.LockTTL(),
	})

	uploadService := services.NewUploadService(store, taskQueue, runStore, logger)
	notifyService := services.NewMatchNotifier(notifier, personDirectory, logger)

	// ===== Scheduler =====
	var scheduler *services.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = services.NewScheduler(services.SchedulerConfig{
			Store:        schedulerStore,
			TaskQueue:    taskQueue,
			Lock:         distributedLock,
			Logger:       logger,
			LockRequired: cfg.Scheduler.LockRequired,
		})
		if err := scheduler.EnsureDefaults(ctx, cfg.SweepInterval()); err != nil {
			log.Fatalf("Failed to persist default schedules: %v", err)
		}
		logger.Info("scheduler enabled", "sweep_interval", cfg.SweepInterval())
	} else {
		logger.Info("scheduler disabled")
	}

	switch mode {
	case "api":
		runAPI(cfg, uploadService, notifyService, authAdapter, taskQueue, db, store, logger)

	case "worker":
		runWorkerMode(ctx, cfg, taskQueue, pipeline, scheduler, logger)

	case "all":
		go runWorkerMode(ctx, cfg, taskQueue, pipeline, scheduler, logger)
		runAPI(cfg, uploadService, notifyService, authAdapter, taskQueue, db, store, logger)

	default:
		log.Fatalf("Unknown mode: %s (use: api, worker, or all)", mode)
	}
}

func runAPI(
	cfg *config.Config,
	uploadService *services.UploadService,
	notifyService *services.MatchNotifier,
	authAdapter driven.AuthAdapter,
	taskQueue driven.TaskQueue,
	db http.Pinger,
	store http.Pinger,
	logger *slog.Logger,
) {
	server := http.NewServer(
		http.Config{
			Host:           cfg.App.Host,
			Port:           cfg.App.Port,
			Version:        version,
			MaxUploadBytes: cfg.App.MaxUploadBytes,
		},
		uploadService,
		notifyService,
		authAdapter,
		taskQueue,
		db,
		store,
		logger,
	)

	logger.Info("api server starting", "port", cfg.App.Port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runWorkerMode starts the worker and scheduler. It processes queued
// ingest and sweep tasks until the context is cancelled.
func runWorkerMode(
	ctx context.Context,
	cfg *config.Config,
	taskQueue driven.TaskQueue,
	pipeline *services.IngestPipeline,
	scheduler *services.Scheduler,
	logger *slog.Logger,
) {
	w := worker.New(worker.Config{
		TaskQueue:      taskQueue,
		Pipeline:       pipeline,
		Scheduler:      scheduler,
		Logger:         logger,
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	logger.Info("worker started, processing tasks")

	<-ctx.Done()

	logger.Info("stopping worker")
	w.Stop()
	logger.Info("worker stopped")
}
