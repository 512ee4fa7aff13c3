package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcbrumagin/yamf-sub000/internal/registry"
	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

func TestHandleRequestHealthCommand(t *testing.T) {
	g := newTestGateway(t)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(wire.HeaderCommand, string(wire.CmdHealth))

	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestHandleGatewayPullDisabledInProduction(t *testing.T) {
	g := newTestGateway(t)
	g.cfg.Environment = "production"
	g.cfg.RegistryToken = "secret"

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(wire.HeaderCommand, string(wire.CmdGatewayPull))
	req.Header.Set(wire.HeaderRegistryToken, "secret")

	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGatewayPullReturnsCurrentView(t *testing.T) {
	g := newTestGateway(t)
	g.view.Store(viewFromPull(registry.PullSnapshot{
		Services: registry.ServicesSnapshot{"add": {"http://localhost:1"}},
	}, "now"))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(wire.HeaderCommand, string(wire.CmdGatewayPull))

	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http://localhost:1")
}

func TestHandleGatewayPullRejectsWrongToken(t *testing.T) {
	g := newTestGateway(t)
	g.cfg.RegistryToken = "secret"

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(wire.HeaderCommand, string(wire.CmdGatewayPull))
	req.Header.Set(wire.HeaderRegistryToken, "wrong")

	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleRegistryUpdatedTriggersPull(t *testing.T) {
	registryServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_ = wire.JSON(registry.PullSnapshot{
			Services: registry.ServicesSnapshot{"add": {"http://localhost:1"}},
		}).WriteTo(w, http.StatusOK)
	}))
	defer registryServer.Close()

	g := newTestGateway(t)
	g.cfg.RegistryURL = registryServer.URL

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(wire.HeaderCommand, string(wire.CmdRegistryUpdated))

	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"servicesCount":1`)
	assert.Equal(t, []string{"http://localhost:1"}, g.currentView().locationsFor("add"))
}

func TestProxyRouteNoRouteReturns404(t *testing.T) {
	g := newTestGateway(t)
	req := httptest.NewRequest(http.MethodGet, "/unmatched", nil)

	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProxyRouteNoLocationReturns404(t *testing.T) {
	g := newTestGateway(t)
	g.view.Store(viewFromPull(registry.PullSnapshot{
		Routes: map[string]registry.Route{"/api/echo": {Service: "echo"}},
	}, "now"))

	req := httptest.NewRequest(http.MethodGet, "/api/echo", nil)
	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProxyRouteProxiesToResolvedLocation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/echo", req.URL.Path)
		_, _ = w.Write([]byte("echoed"))
	}))
	defer upstream.Close()

	g := newTestGateway(t)
	g.view.Store(viewFromPull(registry.PullSnapshot{
		Routes:   map[string]registry.Route{"/api/echo": {Service: "echo"}},
		Services: registry.ServicesSnapshot{"echo": {upstream.URL}},
	}, "now"))

	req := httptest.NewRequest(http.MethodGet, "/api/echo", nil)
	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "echoed", rec.Body.String())
}
