package registry

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// Router builds the Registry's single HTTP entry point plus a handful of
// operator-facing convenience routes that don't speak the header protocol.
func (r *Registry) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestID)
	router.Use(r.accessLog)

	router.Get("/healthz", r.handleHealthz)
	router.Handle("/metrics", r.metrics.handler)
	router.Post("/yamf", r.handleCommand)
	// A bare GET/POST to "/" is treated identically to /yamf, matching the
	// source's single-endpoint design where the command header, not the
	// path, selects behavior.
	router.Handle("/", http.HandlerFunc(r.handleCommand))

	return router
}

func (r *Registry) handleHealthz(w http.ResponseWriter, req *http.Request) {
	_ = wire.JSON(map[string]any{"status": "ready", "timestamp": nowRFC3339()}).WriteTo(w, http.StatusOK)
}

func (r *Registry) handleCommand(w http.ResponseWriter, req *http.Request) {
	cmd := wire.Command(req.Header.Get(wire.HeaderCommand))
	if cmd == "" {
		cmd = wire.CmdHealth
	}

	if err := r.requireToken(cmd, req); err != nil {
		r.metrics.commands.WithLabelValues(string(cmd), "denied").Inc()
		wire.WriteError(w, err, r.cfg.IsProduction())
		return
	}

	handler, ok := r.commandHandlers()[cmd]
	if !ok {
		r.metrics.commands.WithLabelValues(string(cmd), "unknown").Inc()
		wire.WriteError(w, wire.Validation("unknown command %q", cmd), r.cfg.IsProduction())
		return
	}

	if err := handler(w, req); err != nil {
		r.metrics.commands.WithLabelValues(string(cmd), "error").Inc()
		wire.WriteError(w, err, r.cfg.IsProduction())
		return
	}
	r.metrics.commands.WithLabelValues(string(cmd), "ok").Inc()
}

type commandHandler func(w http.ResponseWriter, req *http.Request) error

func (r *Registry) commandHandlers() map[wire.Command]commandHandler {
	return map[wire.Command]commandHandler{
		wire.CmdHealth:            r.handleHealth,
		wire.CmdServiceSetup:      r.handleServiceSetup,
		wire.CmdServiceRegister:   r.handleServiceRegister,
		wire.CmdServiceUnregister: r.handleServiceUnregister,
		wire.CmdServiceLookup:     r.handleServiceLookup,
		wire.CmdServiceCall:       r.handleServiceCall,
		wire.CmdRouteRegister:     r.handleRouteRegister,
		wire.CmdPubsubPublish:     r.handlePubsubPublish,
		wire.CmdPubsubSubscribe:   r.handlePubsubSubscribe,
		wire.CmdPubsubUnsubscribe: r.handlePubsubUnsubscribe,
		wire.CmdRegistryPull:      r.handleRegistryPull,
		wire.CmdCacheUpdate:       r.handleCacheUpdateNoop,
	}
}
