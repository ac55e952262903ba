package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"familytree/internal/api"
	"familytree/internal/config"
	"familytree/internal/repository"
	"familytree/internal/service/auth"
	"familytree/internal/service/event"
	"familytree/internal/service/family"
	"familytree/internal/service/timeline"
	"familytree/pkg/db"
	"familytree/pkg/logger"
	"familytree/pkg/mq"
	redisclient "familytree/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	// Schema migrations
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := db.Migrate(cfg.DB, migrationsPath, log); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	// RabbitMQ
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	userRepo := repository.NewUserRepository(dbConn)
	memberRepo := repository.NewMemberRepository(dbConn, log)
	eventRepo := repository.NewEventRepository(dbConn, log)
	timelineRepo := repository.NewTimelineRepository(dbConn, log)

	// Timeline projection pipeline
	projector := timeline.NewProjector(timelineRepo, publisher, log)
	sweeper := timeline.NewSweeper(eventRepo, projector, publisher, log)
	sweeper.SetLimit(cfg.Timeline.SweepLimit)
	cache := timeline.NewCache(rdb, cfg.Timeline.CacheTTL, log)

	// Services
	authService := auth.NewService(userRepo, cfg.JWT.Secret, log)
	familyService := family.NewService(memberRepo, publisher, cache, log)
	eventService := event.NewService(eventRepo, memberRepo, projector, sweeper, publisher, cache, log)
	timelineService := timeline.NewService(timelineRepo, memberRepo, sweeper, cache, log)

	// Handlers
	authHandler := api.NewAuthHandler(authService, log)
	memberHandler := api.NewMemberHandler(familyService, log)
	eventHandler := api.NewEventHandler(eventService, log)
	timelineHandler := api.NewTimelineHandler(timelineService, log)

	router := api.NewRouter(authHandler, memberHandler, eventHandler, timelineHandler, cfg.JWT.Secret, dbConn, log)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("Shutdown complete")
}
