package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"beststore/config"
	"beststore/db"
	"beststore/events"
	"beststore/logger"
	"beststore/repository"
	"beststore/routes"
	"beststore/services"
	"beststore/storage"

	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	l, err := logger.Init(cfg.Logger)
	if err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	defer func() { _ = l.Sync() }()

	// Initialize database
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		zap.L().Fatal("database init failed", zap.Error(err))
	}

	// Create images directory if it doesn't exist
	if _, err := os.Stat(cfg.Storage.Dir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.Storage.Dir, 0755); err != nil {
			zap.L().Fatal("failed to create images directory", zap.String("dir", cfg.Storage.Dir), zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub()
	go hub.Run(ctx)

	service := services.NewProductService(
		repository.NewProductRepository(gdb),
		storage.NewDiskAssetStore(cfg.Storage.Dir),
		hub,
	)

	app := routes.NewApp(routes.Options{
		Service:     service,
		Hub:         hub,
		ImagesDir:   cfg.Storage.Dir,
		BodyLimitMB: cfg.Server.BodyLimitMB,
		AccessLog:   true,
	})

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down")
		if err := app.Shutdown(); err != nil {
			zap.L().Error("shutdown failed", zap.Error(err))
		}
	}()

	// Start server
	zap.L().Info("listening", zap.String("addr", cfg.Server.Addr))
	if err := app.Listen(cfg.Server.Addr); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}
