package registry

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcbrumagin/yamf-sub000/internal/config"
	"github.com/mcbrumagin/yamf-sub000/internal/telemetry"
	"github.com/mcbrumagin/yamf-sub000/internal/transport"
)

// Registry ties together the authoritative State with the HTTP surface,
// outbound client, config, and metrics needed to run it as a process.
type Registry struct {
	state  *State
	cfg    *config.Config
	client *http.Client
	log    *slog.Logger

	metrics *registryMetrics
}

type registryMetrics struct {
	commands     *prometheus.CounterVec
	servicesUp   *prometheus.GaugeVec
	broadcastErr *prometheus.CounterVec
	handler      http.Handler
}

// New creates a Registry process. cfg.StartPort seeds port allocation.
func New(cfg *config.Config, log *slog.Logger) *Registry {
	m := telemetry.NewMetrics("yamf_registry")
	rm := &registryMetrics{
		commands:     m.Counter("yamf_registry_commands_total", "commands handled, by command and outcome", "command", "outcome"),
		servicesUp:   m.Gauge("yamf_registry_services", "currently registered services"),
		broadcastErr: m.Counter("yamf_registry_broadcast_errors_total", "broadcast delivery failures, by kind", "kind"),
		handler:      m.Handler(),
	}
	return &Registry{
		state:   NewState(cfg.StartPort),
		cfg:     cfg,
		client:  transport.NewClient(),
		log:     log,
		metrics: rm,
	}
}

// State exposes the underlying state for tests and the manifest loader.
func (r *Registry) State() *State { return r.state }

// Pull returns the full state snapshot served by registry-pull.
func (r *Registry) Pull() PullSnapshot {
	return r.state.FullSnapshot()
}
