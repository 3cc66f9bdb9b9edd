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
	"habitreminder/internal/repository"
	"habitreminder/internal/scheduler"
	"habitreminder/migrations"
	"habitreminder/pkg/db"
	"habitreminder/pkg/logger"
	"habitreminder/pkg/mq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	loc, _ := cfg.Scheduler.Location()

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = db.Migrate(migrateCtx, dbConn, migrations.FS, log)
	cancel()
	if err != nil {
		log.Fatal("DB migration failed", zap.Error(err))
	}

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}

	runner := scheduler.NewRunner(
		repository.NewJobRepository(dbConn),
		scheduler.NewPublisherTrigger(publisher),
		loc,
		log,
	)

	ops := httpserver.NewOpsRouter(log, map[string]httpserver.ReadyFunc{
		"mq": publisher.IsConnected,
	})
	srv := &http.Server{Addr: cfg.Scheduler.OpsAddr, Handler: ops.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Ops server failed", zap.Error(err))
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx, cfg.Scheduler.SyncInterval)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-done:
		if err != nil {
			log.Fatal("Scheduler failed", zap.Error(err))
		}
	}

	log.Info("Shutting down scheduler gracefully...")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	runner.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Ops server shutdown error", zap.Error(err))
	}

	publisher.Close()
	dbConn.Close()
	log.Info("scheduler shutdown complete")
}
