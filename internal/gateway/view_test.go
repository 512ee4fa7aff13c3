package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcbrumagin/yamf-sub000/internal/registry"
)

func TestEmptyViewResolvesNothing(t *testing.T) {
	v := emptyView()
	_, ok := v.resolve("/api/echo")
	assert.False(t, ok)
	assert.Empty(t, v.locationsFor("add"))
}

func TestViewFromPull(t *testing.T) {
	snap := registry.PullSnapshot{
		Services:         registry.ServicesSnapshot{"add": {"http://localhost:1"}},
		Addresses:        registry.AddressesSnapshot{"http://localhost:1": "add"},
		Routes:           map[string]registry.Route{"/api/echo": {Service: "echo", DataType: "json"}},
		ControllerRoutes: map[string]string{"/api/users/": "users"},
	}
	v := viewFromPull(snap, "2026-08-01T00:00:00Z")

	assert.Equal(t, []string{"http://localhost:1"}, v.locationsFor("add"))
	svc, ok := v.resolve("/api/echo")
	assert.True(t, ok)
	assert.Equal(t, "echo", svc)

	svc, ok = v.resolve("/api/users/42")
	assert.True(t, ok)
	assert.Equal(t, "users", svc)
	assert.Equal(t, "2026-08-01T00:00:00Z", v.pulledAt)
}
