package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/api"
	"github.com/pregnancy-episode-engine/internal/config"
	"github.com/pregnancy-episode-engine/internal/database"
	"github.com/pregnancy-episode-engine/internal/domain"
	"github.com/pregnancy-episode-engine/internal/repository"
)

func main() {
	manager, err := config.NewManager()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := manager.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	cfg := manager.GetConfig()

	logger := config.NewLogger(cfg.Logging)

	if cfg.Store.Driver == "none" {
		logger.Fatal("The results server requires store.driver to be sqlite or postgres")
	}

	if cfg.Store.Driver == "postgres" {
		if err := runMigrations(cfg.Store, logger); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open results store")
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(cfg.Server, store, logger)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
	logger.Info("Results server shut down")
}

func runMigrations(cfg domain.StoreConfig, logger *logrus.Logger) error {
	migrator, err := database.NewMigrator(cfg.PostgresURL, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

func openStore(cfg domain.StoreConfig) (repository.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return repository.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return repository.NewPostgresStoreFromURL(cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
