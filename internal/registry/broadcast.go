package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// broadcastTimeout bounds each individual cache-update/registry-updated
// delivery so one dead recipient can't hold a fan-out open indefinitely.
const broadcastTimeout = 5 * time.Second

// BroadcastCacheUpdate fires a cache-update to every registered location
// except except. It is fire-and-forget: callers invoke it with `go`, never
// await it, per §4.1/§9's "never block a register response on broadcast
// completion". Delivery failures are logged and otherwise discarded.
func (r *Registry) BroadcastCacheUpdate(services ServicesSnapshot, addresses AddressesSnapshot, except string) {
	targets := r.state.OtherLocations(except)
	if len(targets) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]any{"services": services, "addresses": addresses})
	if err != nil {
		r.log.Error("broadcast: marshaling cache-update payload", "error", err)
		return
	}

	var g errgroup.Group
	for _, loc := range targets {
		loc := loc
		g.Go(func() error {
			return r.deliver(loc, wire.CmdCacheUpdate, payload)
		})
	}
	if err := g.Wait(); err != nil {
		r.metrics.broadcastErr.WithLabelValues("cache-update").Inc()
		r.log.Warn("broadcast: one or more cache-update deliveries failed", "error", err)
	}
}

// NotifyGateway sends a one-bit registry-updated trigger to the configured
// Gateway. The Gateway never trusts pushed state content (§4.2, §9) — this
// message carries no body, it only tells the Gateway to pull.
func (r *Registry) NotifyGateway() {
	if r.cfg.GatewayURL == "" {
		return
	}
	if err := r.deliver(r.cfg.GatewayURL, wire.CmdRegistryUpdated, nil); err != nil {
		r.metrics.broadcastErr.WithLabelValues("registry-updated").Inc()
		r.log.Warn("broadcast: registry-updated delivery to gateway failed", "error", err)
	}
}

func (r *Registry) deliver(location string, cmd wire.Command, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
	defer cancel()

	var body *bytes.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := httpRequest(ctx, location, cmd, body)
	if err != nil {
		return err
	}
	if cmd == wire.CmdRegistryUpdated && r.cfg.RegistryToken != "" {
		req.Header.Set(wire.HeaderRegistryToken, r.cfg.RegistryToken)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
