package registry

import (
	"encoding/json"
	"net/http"

	"github.com/mcbrumagin/yamf-sub000/internal/transport"
	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

func (r *Registry) handleHealth(w http.ResponseWriter, req *http.Request) error {
	return wire.JSON(map[string]any{"status": "ready", "timestamp": nowRFC3339()}).WriteTo(w, http.StatusOK)
}

// handleServiceSetup allocates the next port for the requesting home
// (§4.1's port allocation algorithm).
func (r *Registry) handleServiceSetup(w http.ResponseWriter, req *http.Request) error {
	name := req.Header.Get(wire.HeaderServiceName)
	home := req.Header.Get(wire.HeaderServiceHome)
	if !ValidName(name) {
		return wire.Validation("invalid or missing service name")
	}
	if home == "" {
		return wire.Validation("missing service home")
	}
	location := r.state.AllocatePort(home)
	return wire.Text(location).WriteTo(w, http.StatusOK)
}

// handleServiceRegister inserts the caller into services/addresses, updates
// serviceAuth, and fires the cache-update and registry-updated broadcasts
// fire-and-forget.
func (r *Registry) handleServiceRegister(w http.ResponseWriter, req *http.Request) error {
	name := req.Header.Get(wire.HeaderServiceName)
	location := req.Header.Get(wire.HeaderServiceLocation)
	authService := req.Header.Get(wire.HeaderUseAuthService)
	if !ValidName(name) {
		return wire.Validation("invalid or missing service name")
	}
	if location == "" {
		return wire.Validation("missing service location")
	}

	meta := ServiceMetadata{Type: "service"}
	if name == gatewayServiceName {
		meta = ServiceMetadata{PullOnly: true, Public: true, Preregistered: true, Type: "gateway"}
	}

	services, addresses := r.state.RegisterService(name, location, authService, meta)
	r.metrics.servicesUp.WithLabelValues().Set(float64(len(services)))

	go r.BroadcastCacheUpdate(services, addresses, location)
	go r.NotifyGateway()

	return wire.JSON(map[string]any{"services": services, "addresses": addresses}).WriteTo(w, http.StatusOK)
}

const gatewayServiceName = "yamf-gateway"

func (r *Registry) handleServiceUnregister(w http.ResponseWriter, req *http.Request) error {
	name := req.Header.Get(wire.HeaderServiceName)
	location := req.Header.Get(wire.HeaderServiceLocation)
	if !ValidName(name) {
		return wire.Validation("invalid or missing service name")
	}
	if err := r.state.UnregisterService(name, location); err != nil {
		return err
	}

	services, addresses := r.state.Snapshot()
	r.metrics.servicesUp.WithLabelValues().Set(float64(len(services)))
	go r.BroadcastCacheUpdate(services, addresses, location)
	go r.NotifyGateway()

	return wire.Empty().WriteTo(w, http.StatusOK)
}

func (r *Registry) handleServiceLookup(w http.ResponseWriter, req *http.Request) error {
	name := req.Header.Get(wire.HeaderServiceName)
	if name == wire.LookupAll || name == "" {
		services, _ := r.state.Snapshot()
		return wire.JSON(services).WriteTo(w, http.StatusOK)
	}
	location, err := r.state.SelectLocation(name, Random)
	if err != nil {
		return err
	}
	return wire.Text(location).WriteTo(w, http.StatusOK)
}

// handleServiceCall verifies auth (if required), selects a target location
// round-robin, and stream-proxies the request to it (§4.1).
func (r *Registry) handleServiceCall(w http.ResponseWriter, req *http.Request) error {
	name := req.Header.Get(wire.HeaderServiceName)
	if !ValidName(name) {
		return wire.Validation("invalid or missing service name")
	}

	token := req.Header.Get(wire.HeaderAuthToken)
	if err := r.VerifyAuth(req.Context(), name, token); err != nil {
		return err
	}

	location, err := r.state.SelectLocation(name, RoundRobin)
	if err != nil {
		return err
	}

	transport.Proxy(w, req, r.client, http.MethodPost, location, "yamf-registry", r.log)
	return nil
}

func (r *Registry) handleRouteRegister(w http.ResponseWriter, req *http.Request) error {
	service := req.Header.Get(wire.HeaderServiceName)
	path := req.Header.Get(wire.HeaderRoutePath)
	dataType := req.Header.Get(wire.HeaderRouteDataType)
	routeType := req.Header.Get(wire.HeaderRouteType)
	if !ValidName(service) {
		return wire.Validation("invalid or missing service name")
	}
	if path == "" {
		return wire.Validation("missing route path")
	}

	r.state.RegisterRoute(path, service, dataType, routeType)
	go r.NotifyGateway()

	return wire.JSON(map[string]any{"status": "ok"}).WriteTo(w, http.StatusOK)
}

func (r *Registry) handlePubsubPublish(w http.ResponseWriter, req *http.Request) error {
	channel := req.Header.Get(wire.HeaderPubsubChannel)
	if channel == "" {
		return wire.Validation("missing pubsub channel")
	}
	var raw json.RawMessage
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&raw)
	}
	result := r.Publish(req.Context(), channel, raw)
	return wire.JSON(result).WriteTo(w, http.StatusOK)
}

func (r *Registry) handlePubsubSubscribe(w http.ResponseWriter, req *http.Request) error {
	channel := req.Header.Get(wire.HeaderPubsubChannel)
	location := req.Header.Get(wire.HeaderServiceLocation)
	if channel == "" || location == "" {
		return wire.Validation("missing pubsub channel or service location")
	}
	r.state.Subscribe(channel, location)
	return wire.JSON(map[string]any{"status": "ok"}).WriteTo(w, http.StatusOK)
}

func (r *Registry) handlePubsubUnsubscribe(w http.ResponseWriter, req *http.Request) error {
	channel := req.Header.Get(wire.HeaderPubsubChannel)
	location := req.Header.Get(wire.HeaderServiceLocation)
	if channel == "" || location == "" {
		return wire.Validation("missing pubsub channel or service location")
	}
	r.state.Unsubscribe(channel, location)
	return wire.JSON(map[string]any{"status": "ok"}).WriteTo(w, http.StatusOK)
}

func (r *Registry) handleRegistryPull(w http.ResponseWriter, req *http.Request) error {
	return wire.JSON(r.Pull()).WriteTo(w, http.StatusOK)
}

// handleCacheUpdateNoop exists only so a cache-update sent to the Registry
// by mistake gets a clean 200 instead of an "unknown command" error. The
// Registry is the sender of cache-update, never its intended recipient.
func (r *Registry) handleCacheUpdateNoop(w http.ResponseWriter, req *http.Request) error {
	return wire.Empty().WriteTo(w, http.StatusOK)
}
