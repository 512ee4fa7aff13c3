package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcbrumagin/yamf-sub000/internal/config"
	"github.com/mcbrumagin/yamf-sub000/internal/gateway"
	"github.com/mcbrumagin/yamf-sub000/internal/telemetry"
)

func main() {
	cfg, err := config.Load("YAMF_GATEWAY_LISTEN_ADDR", ":8080")
	if err != nil {
		os.Exit(1)
	}
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = "http://localhost" + cfg.ListenAddr
	}

	log := telemetry.NewLogger(cfg.Environment, "gateway")
	log.Info("config loaded",
		"environment", cfg.Environment,
		"listen_addr", cfg.ListenAddr,
		"registry_url", cfg.RegistryURL,
		"self_url", cfg.ServiceURL,
	)

	gw := gateway.New(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("received shutdown signal")
		cancel()
	}()

	if err := gw.Run(ctx); err != nil {
		log.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}
