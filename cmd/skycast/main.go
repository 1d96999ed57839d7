package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"skycast/internal/config"
	"skycast/internal/refresh"
	"skycast/internal/skycast"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	svc := skycast.New(cfg)

	refresher := refresh.New(svc, cfg.RefreshInterval, svc.Logger)
	if err := refresher.Start(); err != nil {
		log.Fatalf("failed to start refresher: %v", err)
	}
	defer refresher.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
