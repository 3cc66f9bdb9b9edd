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
	"habitreminder/internal/handler"
	"habitreminder/internal/httpserver"
	"habitreminder/internal/repository"
	"habitreminder/internal/scheduler"
	"habitreminder/internal/service/auth"
	"habitreminder/internal/service/habit"
	"habitreminder/migrations"
	"habitreminder/pkg/db"
	"habitreminder/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	if cfg.JWT.Secret == "" {
		log.Fatal("jwt.secret is empty, set JWT_SECRET")
	}
	loc, _ := cfg.Scheduler.Location()

	// Init DB
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

	// Init Repositories
	userRepo := repository.NewUserRepository(dbConn)
	habitRepo := repository.NewHabitRepository(dbConn)
	jobRepo := repository.NewJobRepository(dbConn)

	// Init Services
	reminders := scheduler.NewAdapter(jobRepo, loc, log)
	authService := auth.NewService(userRepo, auth.TokenConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}, log)
	habitService := habit.NewService(habitRepo, userRepo, reminders, habit.HookPolicy(cfg.Scheduler.HookPolicy), log)

	// Init Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	habitHandler := handler.NewHabitHandler(habitService, log)

	router := httpserver.NewRouter(authHandler, habitHandler, authService, dbConn, log)
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router.Handler(),
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down api gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	dbConn.Close()
	log.Info("api shutdown complete")
}
