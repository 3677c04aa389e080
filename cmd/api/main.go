// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}

	logger.WithFields(logrus.Fields{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting server")

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	if err := db.Health(); err != nil {
		logger.Fatalf("Database health check failed: %v", err)
	}

	migration := postgres.NewMigration(db.GetDB())

	if err := migration.RunAutoMigrations(); err != nil {
		logger.Fatalf("Database migration failed: %v", err)
	}

	if err := migration.CreateIndexes(); err != nil {
		logger.Warnf("Index creation failed: %v", err)
	}

	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			logger.Warnf("Data seeding failed: %v", err)
		}
		migration.GetTableInfo()
	}

	server := http.NewServer(cfg, db.GetDB(), redisClient)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Errorf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	logger.Info("Server shutdown completed")
}
