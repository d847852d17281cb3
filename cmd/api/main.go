package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PayStell/paystell-webhooks/config"
	httpHandler "github.com/PayStell/paystell-webhooks/internal/adapter/http/handler"
	pgStorage "github.com/PayStell/paystell-webhooks/internal/adapter/storage/postgres"
	redisStorage "github.com/PayStell/paystell-webhooks/internal/adapter/storage/redis"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"
	"github.com/PayStell/paystell-webhooks/internal/scheduler"
	"github.com/PayStell/paystell-webhooks/internal/service"
	"github.com/PayStell/paystell-webhooks/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting PayStell Webhook Service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Run schema migrations
	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(cfg.Database.DSN(), log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	subRepo := pgStorage.NewSubscriptionRepo(pool)
	jobRepo := pgStorage.NewDeliveryJobRepo(pool)
	logRepo := pgStorage.NewDeliveryLogRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	jobLock := redisStorage.NewJobLock(rdb)

	// Initialize core services
	sigSvc := service.NewSignatureService()
	normalizer := service.NewPayloadNormalizer()
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize business services
	deliverySvc := service.NewDeliveryService(
		jobRepo,
		logRepo,
		sigSvc,
		jobLock,
		&http.Client{Timeout: cfg.Delivery.AttemptTimeout},
		service.DeliveryConfig{
			AttemptTimeout: cfg.Delivery.AttemptTimeout,
			LockTTL:        cfg.Delivery.LockTTL,
			MaxBodyCapture: cfg.Delivery.MaxBodyCapture,
		},
		log,
	)
	subSvc := service.NewSubscriptionService(subRepo, merchantRepo, transactor, auditSvc, log)
	gatewaySvc := service.NewGatewayService(merchantRepo, subRepo, deliverySvc, sigSvc, normalizer, auditSvc, log)

	// Start the retry scheduler
	sched := scheduler.New(jobRepo, deliverySvc, scheduler.Config{
		PollInterval: cfg.Scheduler.PollInterval,
		BatchSize:    cfg.Scheduler.BatchSize,
		Workers:      cfg.Scheduler.Workers,
		ClaimLease:   cfg.Scheduler.ClaimLease,
	}, log)
	schedCtx, stopScheduler := context.WithCancel(ctx)
	go sched.Run(schedCtx)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SubscriptionSvc: subSvc,
		GatewaySvc:      gatewaySvc,
		TokenSvc:        tokenSvc,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Stop claiming new jobs before draining HTTP connections. In-flight
	// delivery attempts are covered by the claim lease: if one is cut
	// short, another instance picks the job up after the lease expires.
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
