package registry

import "strings"

// ControllerPrefix decides whether path designates a controller (prefix)
// route or an exact route, and if it's a controller route, returns the
// prefix to key it under (terminating in "/", with any trailing wildcard
// marker stripped) (§3, §4.1).
//
// A path is a controller route if routeType equals wire.RouteTypeController,
// or if it ends in the wildcard marker "*" regardless of routeType.
func ControllerPrefix(path, routeType string) (prefix string, isController bool) {
	if strings.HasSuffix(path, "*") {
		trimmed := strings.TrimSuffix(path, "*")
		if !strings.HasSuffix(trimmed, "/") {
			trimmed += "/"
		}
		return trimmed, true
	}
	if routeType == "controller" {
		if !strings.HasSuffix(path, "/") {
			path += "/"
		}
		return path, true
	}
	return path, false
}

// Resolve looks up path in routes (exact match) then controllerRoutes
// (longest-prefix match), matching the Gateway's and Registry's shared
// routing algorithm.
func Resolve(routes map[string]Route, controllerRoutes map[string]string, path string) (service string, ok bool) {
	if r, found := routes[path]; found {
		return r.Service, true
	}

	var bestPrefix string
	var bestService string
	found := false
	for prefix, svc := range controllerRoutes {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(bestPrefix) {
			bestPrefix = prefix
			bestService = svc
			found = true
		}
	}
	return bestService, found
}
