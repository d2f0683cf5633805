package main

import (
	"context"
	"os"
	"time"

	appconfig "github.com/wolfman30/smart-schedule/internal/config"
	"github.com/wolfman30/smart-schedule/internal/app/bootstrap"
	"github.com/wolfman30/smart-schedule/internal/schedule"
	"github.com/wolfman30/smart-schedule/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	services, err := schedule.Seed(ctx, schedule.NewPostgresRepository(pool), schedule.DefaultCatalog())
	if err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	for _, svc := range services {
		logger.Info("service ready", "id", svc.ID, "name", svc.Name, "price", svc.Price())
	}
	logger.Info("seed completed", "services", len(services))
}
