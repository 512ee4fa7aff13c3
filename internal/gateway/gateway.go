package gateway

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcbrumagin/yamf-sub000/internal/config"
	"github.com/mcbrumagin/yamf-sub000/internal/telemetry"
	"github.com/mcbrumagin/yamf-sub000/internal/transport"
	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// Gateway is the public HTTP edge: it owns no authoritative state, only a
// cached view of the Registry's services/routes, refreshed by pull (§4.2).
type Gateway struct {
	view atomic.Pointer[view]

	cfg    *config.Config
	client *http.Client
	log    *slog.Logger

	metrics *gatewayMetrics
}

type gatewayMetrics struct {
	commands   *prometheus.CounterVec
	proxyHits  *prometheus.CounterVec
	pullErrors prometheus.Counter
	handler    http.Handler
}

// New creates a Gateway process with an empty local view; call Register and
// then Pull (as Run does) to perform the initial registry-pull.
func New(cfg *config.Config, log *slog.Logger) *Gateway {
	m := telemetry.NewMetrics("yamf_gateway")
	gm := &gatewayMetrics{
		commands:   m.Counter("yamf_gateway_commands_total", "commands handled, by command and outcome", "command", "outcome"),
		proxyHits:  m.Counter("yamf_gateway_proxy_total", "proxied requests, by outcome", "outcome"),
		pullErrors: m.Counter("yamf_gateway_pull_errors_total", "registry-pull failures").WithLabelValues(),
		handler:    m.Handler(),
	}
	g := &Gateway{
		cfg:     cfg,
		client:  transport.NewClient(),
		log:     log,
		metrics: gm,
	}
	g.view.Store(emptyView())
	return g
}

func (g *Gateway) currentView() *view {
	return g.view.Load()
}

// selectLocation picks a location for service uniformly at random from the
// current view (§4.2's "a selected location of the target service").
func (g *Gateway) selectLocation(service string) (string, error) {
	locs := g.currentView().locationsFor(service)
	if len(locs) == 0 {
		return "", wire.NotFound("no-such-service: %q", service)
	}
	return locs[rand.IntN(len(locs))], nil
}
