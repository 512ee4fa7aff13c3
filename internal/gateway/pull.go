package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mcbrumagin/yamf-sub000/internal/registry"
	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

const pullTimeout = 10 * time.Second

// Pull performs one registry-pull against the configured Registry and
// atomically replaces the local view. It never trusts a pushed body for
// state content — only its own pull's response counts (§4.2, §9).
func (g *Gateway) Pull(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, pullTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dctx, http.MethodPost, g.cfg.RegistryURL, nil)
	if err != nil {
		g.metrics.pullErrors.Inc()
		return fmt.Errorf("gateway: building registry-pull request: %w", err)
	}
	req.Header.Set(wire.HeaderCommand, string(wire.CmdRegistryPull))
	if g.cfg.RegistryToken != "" {
		req.Header.Set(wire.HeaderRegistryToken, g.cfg.RegistryToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.metrics.pullErrors.Inc()
		return fmt.Errorf("gateway: registry-pull: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		g.metrics.pullErrors.Inc()
		return wire.Unavailable("registry-pull failed: status %d", resp.StatusCode)
	}

	var snap registry.PullSnapshot
	if err := wire.DecodeJSON(resp.Body, &snap); err != nil {
		g.metrics.pullErrors.Inc()
		return fmt.Errorf("gateway: decoding registry-pull response: %w", err)
	}

	g.view.Store(viewFromPull(snap, nowRFC3339()))
	g.log.Info("registry-pull applied", "services", len(snap.Services), "routes", len(snap.Routes)+len(snap.ControllerRoutes))
	return nil
}

// Register self-registers the Gateway with the Registry as a pull-only,
// public, preregistered service, then performs the initial warming pull
// (§4.2's Initialization).
func (g *Gateway) Register(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.RegistryURL, nil)
	if err != nil {
		return fmt.Errorf("gateway: building service-register request: %w", err)
	}
	req.Header.Set(wire.HeaderCommand, string(wire.CmdServiceRegister))
	req.Header.Set(wire.HeaderServiceName, gatewayServiceName)
	req.Header.Set(wire.HeaderServiceLocation, g.cfg.ServiceURL)
	if g.cfg.RegistryToken != "" {
		req.Header.Set(wire.HeaderRegistryToken, g.cfg.RegistryToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: registering with registry: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return wire.Unavailable("gateway self-registration failed: status %d", resp.StatusCode)
	}

	return g.Pull(ctx)
}

const gatewayServiceName = "yamf-gateway"

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }
