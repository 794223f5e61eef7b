package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"go-htmlcsstoimage/config"
	"go-htmlcsstoimage/server"
)

var logger *zap.Logger

func init() {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
}

func main() {
	defer logger.Sync()

	disableRateLimit := flag.Bool("disable-rate-limit", false, "Disable rate limiting for performance testing")
	envFile := flag.String("env-file", ".env", "Path to a .env file with HCTI_* settings")
	flag.Parse()

	cfg, err := loadConfig(*envFile, *disableRateLimit)
	if err != nil {
		logger.Fatal("Configuration error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting signing gateway...", zap.Int("port", cfg.ServerPort), zap.String("host", cfg.Host))
	if err := server.Run(ctx, logger, cfg); err != nil {
		logger.Fatal("Application error", zap.Error(err))
	}
	logger.Info("Signing gateway stopped.")
}

func loadConfig(envFile string, disableRateLimit bool) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if disableRateLimit {
		cfg.DisableRateLimit = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
