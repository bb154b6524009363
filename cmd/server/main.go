package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/splitpay/order-split-service/internal/config"
	"github.com/splitpay/order-split-service/internal/database"
	"github.com/splitpay/order-split-service/internal/engine"
	"github.com/splitpay/order-split-service/internal/handler"
	"github.com/splitpay/order-split-service/internal/middleware"
	"github.com/splitpay/order-split-service/internal/repository"
	"github.com/splitpay/order-split-service/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := database.RunMigrations(cfg.DatabaseURL()); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		if err := database.SeedData(context.Background(), pool); err != nil {
			log.Fatal().Err(err).Msg("failed to seed data")
		}
	}

	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(gin.Recovery())

	healthHandler := handler.NewHealthHandler(pool)
	router.GET("/health", healthHandler.Health)

	setupRoutes(router, pool)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func setupRoutes(router *gin.Engine, pool *pgxpool.Pool) {
	splitRepo := repository.NewSplitRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	directoryRepo := repository.NewDirectoryRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	splitEngine := engine.New(directoryRepo)
	splitService := service.NewSplitService(settingsRepo, splitEngine, splitRepo, noteRepo)
	reconciliationService := service.NewReconciliationService(splitRepo, noteRepo)

	splitHandler := handler.NewSplitHandler(splitService)
	webhookHandler := handler.NewWebhookHandler(reconciliationService)

	router.POST("/webhooks/processor", webhookHandler.HandleEvent)

	api := router.Group("/api/v1")
	{
		api.POST("/orders/:order_id/split", splitHandler.Apply)
		api.GET("/orders/:order_id/split", splitHandler.Get)
		api.GET("/orders/:order_id/split/history", splitHandler.History)
		api.GET("/orders/:order_id/split/overview", splitHandler.Overview)
		api.PUT("/orders/:order_id/split/payment", splitHandler.BindPayment)
	}
}
