package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcbrumagin/yamf-sub000/internal/config"
	"github.com/mcbrumagin/yamf-sub000/internal/registry"
	"github.com/mcbrumagin/yamf-sub000/internal/telemetry"
)

func main() {
	cfg, err := config.Load("YAMF_REGISTRY_LISTEN_ADDR", ":4000")
	if err != nil {
		os.Exit(1)
	}

	log := telemetry.NewLogger(cfg.Environment, "registry")
	log.Info("config loaded",
		"environment", cfg.Environment,
		"listen_addr", cfg.ListenAddr,
		"gateway_url", cfg.GatewayURL,
		"start_port", cfg.StartPort,
		"manifest_path", cfg.ManifestPath,
	)

	reg := registry.New(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("received shutdown signal")
		cancel()
	}()

	if err := reg.Run(ctx); err != nil {
		log.Error("registry stopped", "error", err)
		os.Exit(1)
	}
}
