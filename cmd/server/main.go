package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/adapter/cache"
	handler "github.com/wekeepgrowing/payment-processing/internal/adapter/handler/http"
	"github.com/wekeepgrowing/payment-processing/internal/adapter/repository"
	"github.com/wekeepgrowing/payment-processing/internal/config"
	"github.com/wekeepgrowing/payment-processing/internal/infrastructure/database"
	"github.com/wekeepgrowing/payment-processing/internal/infrastructure/gateway/authorizenet"
	infrahttp "github.com/wekeepgrowing/payment-processing/internal/infrastructure/http"
	"github.com/wekeepgrowing/payment-processing/internal/infrastructure/messaging"
	"github.com/wekeepgrowing/payment-processing/internal/logger"
	"github.com/wekeepgrowing/payment-processing/internal/observability/metrics"
	"github.com/wekeepgrowing/payment-processing/internal/usecase"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		Development: cfg.Log.Development,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting payment service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("version", cfg.Service.Version))

	db, err := database.NewConnection(cfg.Database, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	q := messaging.NewKafkaQueue(cfg.Queue, log)
	defer q.Close()

	m := metrics.New()
	gw := authorizenet.NewClient(cfg.Gateway, log)

	txRepo := repository.NewTransactionRepository(db, log)
	subRepo := repository.NewSubscriptionRepository(db, log)
	idemRepo := repository.NewIdempotencyRepository(db, log)
	eventRepo := repository.NewWebhookEventRepository(db, log)
	auditRepo := repository.NewAuditLogRepository(db, log)
	cacheRepo := cache.NewRedisCache(redisClient, log)

	retryPolicy := usecase.RetryPolicy{
		MaxAttempts:    cfg.Gateway.MaxAttempts,
		InitialBackoff: cfg.Gateway.InitialBackoff,
	}
	auditService := usecase.NewAuditService(auditRepo, log)
	idempotencyService := usecase.NewIdempotencyService(idemRepo, cfg.Idempotency.TTL, log)
	paymentService := usecase.NewPaymentService(
		txRepo, gw, retryPolicy, auditService, cacheRepo, cfg.Redis.CacheTTL, m, log)
	subscriptionService := usecase.NewSubscriptionService(
		subRepo, gw, retryPolicy, auditService, m, log)
	processor := usecase.NewWebhookProcessor(eventRepo, txRepo, subRepo, m, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < cfg.Queue.Consumers; i++ {
		go func(worker int) {
			if err := processor.Run(ctx, q); err != nil {
				log.Error("webhook consumer stopped",
					zap.Int("worker", worker),
					zap.Error(err))
			}
		}(i)
	}
	go idempotencyService.RunSweeper(ctx, cfg.Idempotency.SweepInterval)

	server := infrahttp.NewServer(cfg.Server, cfg.JWT, infrahttp.Handlers{
		Payment:      handler.NewPaymentHandler(paymentService, idempotencyService, log),
		Subscription: handler.NewSubscriptionHandler(subscriptionService, idempotencyService, log),
		Webhook:      handler.NewWebhookHandler(eventRepo, gw, q, log),
	}, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Info("http server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
}
