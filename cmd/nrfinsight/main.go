package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/deusflow/nrfinsight/internal/app"
	"github.com/deusflow/nrfinsight/internal/config"
	"github.com/deusflow/nrfinsight/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Init(false, "text").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Debug, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}
