package gateway

import "github.com/mcbrumagin/yamf-sub000/internal/registry"

// view is the Gateway's immutable local copy of registry state, rebuilt
// wholesale on every registry-pull and swapped in with a single atomic
// Store (§4.2: "atomically replace the local view"). Readers never take a
// lock.
type view struct {
	services         registry.ServicesSnapshot
	addresses        registry.AddressesSnapshot
	routes           map[string]registry.Route
	controllerRoutes map[string]string
	pulledAt         string
}

func emptyView() *view {
	return &view{
		services:         registry.ServicesSnapshot{},
		addresses:        registry.AddressesSnapshot{},
		routes:           map[string]registry.Route{},
		controllerRoutes: map[string]string{},
	}
}

func viewFromPull(snap registry.PullSnapshot, pulledAt string) *view {
	return &view{
		services:         snap.Services,
		addresses:        snap.Addresses,
		routes:           snap.Routes,
		controllerRoutes: snap.ControllerRoutes,
		pulledAt:         pulledAt,
	}
}

func (v *view) resolve(path string) (string, bool) {
	return registry.Resolve(v.routes, v.controllerRoutes, path)
}

func (v *view) locationsFor(service string) []string {
	return v.services[service]
}
