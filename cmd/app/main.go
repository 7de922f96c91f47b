package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/vibex365/luna-heart-guide-sub005/docs"

	"github.com/vibex365/luna-heart-guide-sub005/internal/billing"
	"github.com/vibex365/luna-heart-guide-sub005/internal/config"
	"github.com/vibex365/luna-heart-guide-sub005/internal/db"
	"github.com/vibex365/luna-heart-guide-sub005/internal/logger"
	"github.com/vibex365/luna-heart-guide-sub005/internal/notify"
	"github.com/vibex365/luna-heart-guide-sub005/internal/server"
	"github.com/vibex365/luna-heart-guide-sub005/internal/session"
	"github.com/vibex365/luna-heart-guide-sub005/internal/wallet"

	"github.com/redis/go-redis/v9"
)

// @title Luna API
// @version 1.0
// @description API for the Luna voice companion: prepaid minutes, voice sessions and purchases.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {

	logger.Init()
	logger.Info("Starting Luna application")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	notifyService := notify.New(
		rdb,
		cfg.EmailFrom,
		cfg.EmailFromName,
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
	)
	logger.Info("Notification service initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notifyService.Start(ctx)

	sessionRepo := session.NewRepository(database)
	walletRepo := wallet.NewRepository(database)
	reconciler := billing.NewReconciler(sessionRepo, walletRepo)
	sweeper := session.NewSweeper(
		sessionRepo,
		reconciler,
		time.Duration(cfg.SweepAfterMinutes)*time.Minute,
		cfg.MaxSessionSeconds,
	)
	go sweeper.Run(ctx)
	logger.Info("Session sweeper started")

	srv := server.New(database, cfg, notifyService)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
