package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// BeforeHook is the single RPC preprocessor a service may install with
// Service.Before (§4.3's "before() hook"). Returning (payload, nil) lets the
// chain continue with the (possibly transformed) payload; returning
// (Next, nil) stops the chain, signaling the runtime to send no response.
type BeforeHook func(payload any, req *http.Request, w http.ResponseWriter) (any, error)

// Service is a running handle to a registered Service Runtime process: its
// location, local cache, outbound Context, and lifecycle controls (§4.3
// step 6).
type Service struct {
	name        string
	location    string
	home        string
	registryURL string
	authToken   string

	client *http.Client
	log    *slog.Logger

	cache   *cache
	pubsub  *pubsubManager
	handler Handler
	before  atomic.Pointer[BeforeHook]

	server  *http.Server
	metrics *serviceMetrics
}

type serviceMetrics struct {
	requests *prometheus.CounterVec
	handler  http.Handler
}

// Name returns the service's registered name.
func (s *Service) Name() string { return s.name }

// Location returns the location URL (scheme://host:port) this service is
// bound to and registered under.
func (s *Service) Location() string { return s.location }

// Context returns the outbound-call handle bound to this service.
func (s *Service) Context() *Context { return &Context{svc: s} }

// Before installs the single RPC preprocessor hook. A later call replaces
// the previous one entirely (§4.3: "Multiple before() calls replace the
// previous hook").
func (s *Service) Before(hook BeforeHook) {
	s.before.Store(&hook)
}

// Terminate unsubscribes from every subscribed channel, unregisters from
// the Registry, and stops the HTTP server, draining in-flight requests
// (§4.3's "Graceful termination").
func (s *Service) Terminate(ctx context.Context) error {
	if s.pubsub != nil {
		s.pubsub.unsubscribeAll(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.registryURL, nil)
	if err == nil {
		req.Header.Set(wire.HeaderCommand, string(wire.CmdServiceUnregister))
		req.Header.Set(wire.HeaderServiceName, s.name)
		req.Header.Set(wire.HeaderServiceLocation, s.location)
		if resp, err := s.client.Do(req); err == nil {
			resp.Body.Close()
		} else {
			s.log.Warn("terminate: service-unregister failed", "service", s.name, "error", err)
		}
	}

	return s.server.Shutdown(ctx)
}

// ServeHTTP classifies and dispatches one request by its command header
// (§4.3's "Request classification").
func (s *Service) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	cmd := wire.Command(req.Header.Get(wire.HeaderCommand))
	label := string(cmd)
	if label == "" {
		label = string(wire.CmdServiceCall)
	}
	s.metrics.requests.WithLabelValues(label).Inc()

	switch cmd {
	case wire.CmdHealth:
		_ = wire.JSON(map[string]any{"status": "ready"}).WriteTo(w, http.StatusOK)
	case wire.CmdCacheUpdate:
		s.handleCacheUpdate(w, req)
	case wire.CmdPubsubPublish:
		s.handlePubsubPublish(w, req)
	case "", wire.CmdServiceCall:
		s.handleApplicationCall(w, req)
	default:
		wire.WriteError(w, wire.Validation("unsupported command %q", cmd), false)
	}
}

func (s *Service) handleCacheUpdate(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Services  map[string][]string `json:"services"`
		Addresses map[string]string   `json:"addresses"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		wire.WriteError(w, wire.Validation("invalid cache-update body: %v", err), false)
		return
	}
	s.cache.replace(body.Services)
	_ = wire.Empty().WriteTo(w, http.StatusOK)
}

func (s *Service) handleApplicationCall(w http.ResponseWriter, req *http.Request) {
	var payload any
	if req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil && err.Error() != "EOF" {
			wire.WriteError(w, wire.Validation("invalid request body: %v", err), false)
			return
		}
	}

	if hook := s.before.Load(); hook != nil {
		transformed, err := (*hook)(payload, req, w)
		if err != nil {
			wire.WriteError(w, err, false)
			return
		}
		if transformed == Next {
			return
		}
		payload = transformed
	}

	result, err := s.handler(payload, req, w)
	if err != nil {
		wire.WriteError(w, err, false)
		return
	}
	if result == Next {
		return
	}
	_ = wire.FromResult(result).WriteTo(w, http.StatusOK)
}
