package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"habitreminder/internal/config"
	"habitreminder/internal/httpserver"
	"habitreminder/internal/mqhandler"
	"habitreminder/internal/notification"
	"habitreminder/internal/telegram"
	"habitreminder/pkg/logger"
	"habitreminder/pkg/mq"
	redisclient "habitreminder/pkg/redis"
	"habitreminder/pkg/util"
)

const queueName = "reminder.due.q"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	if cfg.Telegram.Token == "" {
		log.Fatal("telegram.token is empty, set TELEGRAM_TOKEN")
	}

	log.Info("Starting worker service...")

	// Init Redis
	rdb, err := redisclient.NewRedisClient(cfg.Redis, log)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}

	deduper := util.NewDeduper(rdb, cfg.Delivery.DedupTTL, log)
	retryCounter := util.NewRetryCounter(rdb, cfg.Delivery.RetryTTL)

	// Init Telegram channel
	client := telegram.NewClient(telegram.Config{
		BaseURL: cfg.Telegram.URL,
		Token:   cfg.Telegram.Token,
		Timeout: cfg.Telegram.Timeout,
	}, telegram.NewBreaker(log), log)
	dispatcher := notification.NewDispatcher(client, log)

	// DLQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}

	reminderHandler := mqhandler.NewReminderDueHandler(dispatcher, deduper, retryCounter, publisher, cfg.Delivery.RetryMax, log)

	log.Info("Initializing reminder consumer",
		zap.String("queue", queueName),
		zap.String("routing_key", mq.RoutingKeyReminderDue),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, queueName, mq.RoutingKeyReminderDue, cfg.Delivery.Prefetch, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	consumer.SetHandler(reminderHandler.Handle)

	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Reminder consumer failed", zap.Error(err))
		}
	}()

	ops := httpserver.NewOpsRouter(log, map[string]httpserver.ReadyFunc{
		"mq_consumer":  consumer.IsConnected,
		"mq_publisher": publisher.IsConnected,
		"redis": func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return rdb.Ping(ctx).Err() == nil
		},
	})
	srv := &http.Server{Addr: cfg.Delivery.OpsAddr, Handler: ops.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Ops server failed", zap.Error(err))
		}
	}()

	log.Info("worker is ready to process messages")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker gracefully...")
	consumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Ops server shutdown error", zap.Error(err))
	}

	consumer.Close()
	publisher.Close()
	_ = rdb.Close()
	log.Info("worker shutdown complete")
}
