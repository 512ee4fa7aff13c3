package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mcbrumagin/yamf-sub000/internal/transport"
	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// Router builds the Gateway's HTTP surface: a command-header dispatch for
// the fabric's own control messages, falling through to the routes-table
// proxy for everything else (§4.2).
func (g *Gateway) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestID)
	router.Use(g.accessLog)

	router.Handle("/metrics", g.metrics.handler)
	router.Handle("/*", http.HandlerFunc(g.handleRequest))

	return router
}

// gatewayCommands are the header-based verbs the Gateway dispatches itself,
// rather than resolving through the routes table (§4.2 step 1).
var gatewayCommands = map[wire.Command]bool{
	wire.CmdHealth:          true,
	wire.CmdGatewayPull:     true,
	wire.CmdRegistryUpdated: true,
	wire.CmdAuthLogin:       true,
	wire.CmdAuthRefresh:     true,
}

func (g *Gateway) handleRequest(w http.ResponseWriter, req *http.Request) {
	cmd := wire.Command(req.Header.Get(wire.HeaderCommand))
	if cmd != "" && gatewayCommands[cmd] {
		g.dispatchCommand(w, req, cmd)
		return
	}
	g.proxyRoute(w, req)
}

func (g *Gateway) dispatchCommand(w http.ResponseWriter, req *http.Request, cmd wire.Command) {
	var err error
	switch cmd {
	case wire.CmdHealth:
		err = wire.JSON(map[string]any{"status": "ready", "timestamp": nowRFC3339()}).WriteTo(w, http.StatusOK)
	case wire.CmdGatewayPull:
		err = g.handleGatewayPull(w, req)
	case wire.CmdRegistryUpdated:
		err = g.handleRegistryUpdated(w, req)
	case wire.CmdAuthLogin, wire.CmdAuthRefresh:
		// Auth commands are recognized but not forwarded anywhere: the
		// Gateway answers them with 404 and does not implement auth itself.
		err = wire.NotFound("auth delegation is not configured on this gateway")
	default:
		err = wire.Validation("unhandled gateway command %q", cmd)
	}
	if err != nil {
		g.metrics.commands.WithLabelValues(string(cmd), "error").Inc()
		wire.WriteError(w, err, g.cfg.IsProduction())
		return
	}
	g.metrics.commands.WithLabelValues(string(cmd), "ok").Inc()
}

// handleGatewayPull returns the Gateway's local view for test inspection.
// Dev/test only; gated by environment (§4.2).
func (g *Gateway) handleGatewayPull(w http.ResponseWriter, req *http.Request) error {
	if !g.cfg.DevEndpointsEnabled() {
		return wire.NotFound("gateway-pull is disabled in this environment")
	}
	if err := g.requireToken(req); err != nil {
		return err
	}
	v := g.currentView()
	return wire.JSON(map[string]any{
		"services":         v.services,
		"addresses":        v.addresses,
		"routes":           v.routes,
		"controllerRoutes": v.controllerRoutes,
		"pulledAt":         v.pulledAt,
	}).WriteTo(w, http.StatusOK)
}

// handleRegistryUpdated is the Registry's one-bit trigger: it carries no
// state of its own, it only tells the Gateway to pull (§4.2, §9).
func (g *Gateway) handleRegistryUpdated(w http.ResponseWriter, req *http.Request) error {
	if err := g.requireToken(req); err != nil {
		return err
	}
	if err := g.Pull(req.Context()); err != nil {
		return wire.Unavailable("registry-pull failed: %v", err)
	}
	v := g.currentView()
	return wire.JSON(map[string]any{
		"status":        "ok",
		"servicesCount": len(v.services),
		"routesCount":   len(v.routes) + len(v.controllerRoutes),
		"timestamp":     nowRFC3339(),
	}).WriteTo(w, http.StatusOK)
}

// proxyRoute resolves req.URL.Path against the local routes/controllerRoutes
// tables and streams the request to a selected location, or answers 404
// (§4.2 steps 2-3).
func (g *Gateway) proxyRoute(w http.ResponseWriter, req *http.Request) {
	v := g.currentView()
	service, ok := v.resolve(req.URL.Path)
	if !ok {
		g.metrics.proxyHits.WithLabelValues("no-route").Inc()
		wire.WriteError(w, wire.NotFound("no route for %q", req.URL.Path), g.cfg.IsProduction())
		return
	}

	location, err := g.selectLocation(service)
	if err != nil {
		g.metrics.proxyHits.WithLabelValues("no-location").Inc()
		wire.WriteError(w, err, g.cfg.IsProduction())
		return
	}

	g.metrics.proxyHits.WithLabelValues("proxied").Inc()
	transport.Proxy(w, req, g.client, req.Method, location+req.URL.Path, "yamf-gateway", g.log)
}

func (g *Gateway) requireToken(req *http.Request) error {
	if g.cfg.RegistryToken == "" {
		// No token configured anywhere (only possible outside
		// production/staging, per Config.RequireToken) — nothing to check
		// a presented token against, so the request is let through.
		return nil
	}
	got := req.Header.Get(wire.HeaderRegistryToken)
	if got == "" || got != g.cfg.RegistryToken {
		return wire.Auth(http.StatusForbidden, "registry token required")
	}
	return nil
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("X-Request-Id", uuid.NewString())
		next.ServeHTTP(w, req)
	})
}

func (g *Gateway) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)
		g.log.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"command", req.Header.Get(wire.HeaderCommand),
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
