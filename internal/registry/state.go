// Package registry implements the Registry: the single authoritative,
// in-memory directory of services, routes, subscriptions, and auth mappings
// for a YAMF fabric (SPEC_FULL.md §3, §4.1).
package registry

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// Route is an exact-match routing table entry.
type Route struct {
	Service  string
	DataType string
}

// ServiceMetadata is per-service bookkeeping that isn't part of the
// location/route/subscription tables proper (§3).
type ServiceMetadata struct {
	PullOnly      bool
	Public        bool
	Preregistered bool
	Type          string
	RegisteredAt  time.Time
}

// State is the single owner of all Registry-authoritative maps. Every map
// is guarded by mu, except rrCounters, which rrMu guards; no caller outside
// this package ever sees a map
// reference, only copies taken under the lock, per SPEC_FULL.md's "single
// owner behind one mutex" design note.
type State struct {
	mu sync.RWMutex

	services         map[string]map[string]struct{} // service name -> locations
	addresses        map[string]string              // location -> service name
	routes           map[string]Route               // exact path -> route
	controllerRoutes map[string]string               // prefix (ending in "/") -> service
	domainPorts      map[string]int                  // home -> next port
	subscriptions    map[string]map[string]struct{} // channel -> locations
	serviceAuth      map[string]string               // service -> auth-service name
	serviceMetadata  map[string]ServiceMetadata

	rrMu       sync.Mutex
	rrCounters map[string]*uint64

	startPort int
}

// NewState creates an empty Registry state. startPort is the first port
// handed out to any home that has never requested one before.
func NewState(startPort int) *State {
	return &State{
		services:         make(map[string]map[string]struct{}),
		addresses:        make(map[string]string),
		routes:           make(map[string]Route),
		controllerRoutes: make(map[string]string),
		domainPorts:      make(map[string]int),
		subscriptions:    make(map[string]map[string]struct{}),
		serviceAuth:      make(map[string]string),
		serviceMetadata:  make(map[string]ServiceMetadata),
		rrCounters:       make(map[string]*uint64),
		startPort:        startPort,
	}
}

// AllocatePort implements service-setup's port allocation algorithm (§4.1):
// nextPort = domainPorts.get(home) ?? startPort; domainPorts.set(home,
// nextPort+1); return home + ":" + nextPort.
func (s *State) AllocatePort(home string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.domainPorts[home]
	if !ok {
		next = s.startPort
	}
	s.domainPorts[home] = next + 1
	return fmt.Sprintf("%s:%d", home, next)
}

// RegisterService inserts location under name, updates addresses, records
// auth/metadata, and returns a snapshot of the full services/addresses maps
// for the caller (§4.1's service-register result).
func (s *State) RegisterService(name, location, authService string, meta ServiceMetadata) (ServicesSnapshot, AddressesSnapshot) {
	s.mu.Lock()
	if s.services[name] == nil {
		s.services[name] = make(map[string]struct{})
	}
	s.services[name][location] = struct{}{}
	s.addresses[location] = name
	if authService != "" {
		s.serviceAuth[name] = authService
	}
	if meta.RegisteredAt.IsZero() {
		meta.RegisteredAt = time.Now()
	}
	s.serviceMetadata[name] = meta
	servicesCopy, addrCopy := s.snapshotLocked()
	s.mu.Unlock()
	return servicesCopy, addrCopy
}

// UnregisterService removes location from name's location set, removing the
// service entirely if that was its last location (§3 invariant), and drops
// any subscriptions held by that location.
func (s *State) UnregisterService(name, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locs, ok := s.services[name]
	if !ok {
		return wire.NotFound("no-such-service: %q", name)
	}
	if _, ok := locs[location]; !ok {
		return wire.NotFound("location %q not registered for service %q", location, name)
	}
	delete(locs, location)
	delete(s.addresses, location)
	if len(locs) == 0 {
		delete(s.services, name)
		delete(s.serviceAuth, name)
		delete(s.serviceMetadata, name)
	}
	for channel, locSet := range s.subscriptions {
		delete(locSet, location)
		if len(locSet) == 0 {
			delete(s.subscriptions, channel)
		}
	}
	return nil
}

// ServicesSnapshot is service name -> sorted-free slice of locations.
type ServicesSnapshot map[string][]string

// AddressesSnapshot is location -> service name.
type AddressesSnapshot map[string]string

func (s *State) snapshotLocked() (ServicesSnapshot, AddressesSnapshot) {
	services := make(ServicesSnapshot, len(s.services))
	for name, locs := range s.services {
		list := make([]string, 0, len(locs))
		for l := range locs {
			list = append(list, l)
		}
		services[name] = list
	}
	addresses := make(AddressesSnapshot, len(s.addresses))
	for loc, name := range s.addresses {
		addresses[loc] = name
	}
	return services, addresses
}

// Snapshot returns a point-in-time copy of the services and addresses maps.
func (s *State) Snapshot() (ServicesSnapshot, AddressesSnapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Locations returns the current location set for name, or nil if the
// service is unknown. The returned slice is a fresh copy.
func (s *State) Locations(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	locs, ok := s.services[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(locs))
	for l := range locs {
		out = append(out, l)
	}
	return out
}

// OtherLocations returns every registered location except except, used to
// compute the cache-update broadcast fan-out set (§4.1).
func (s *State) OtherLocations(except string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.addresses))
	for loc := range s.addresses {
		if loc != except {
			out = append(out, loc)
		}
	}
	return out
}

// AuthServiceFor returns the auth-service name guarding target, if any.
func (s *State) AuthServiceFor(target string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.serviceAuth[target]
	return name, ok && name != ""
}

// RegisterRoute inserts path into the exact routes table, or into
// controllerRoutes (keyed by the prefix with any trailing wildcard
// stripped) when path designates a prefix route (§4.1).
func (s *State) RegisterRoute(path, service, dataType, routeType string) {
	prefix, isController := ControllerPrefix(path, routeType)

	s.mu.Lock()
	defer s.mu.Unlock()
	if isController {
		s.controllerRoutes[prefix] = service
		return
	}
	s.routes[path] = Route{Service: service, DataType: dataType}
}

// Routes returns a copy of the exact-match routing table.
func (s *State) Routes() map[string]Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Route, len(s.routes))
	for k, v := range s.routes {
		out[k] = v
	}
	return out
}

// ControllerRoutes returns a copy of the prefix routing table.
func (s *State) ControllerRoutes() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.controllerRoutes))
	for k, v := range s.controllerRoutes {
		out[k] = v
	}
	return out
}

// Subscribe adds location as a subscriber of channel.
func (s *State) Subscribe(channel, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscriptions[channel] == nil {
		s.subscriptions[channel] = make(map[string]struct{})
	}
	s.subscriptions[channel][location] = struct{}{}
}

// Unsubscribe removes location from channel, deleting the channel entirely
// once it has no subscribers left.
func (s *State) Unsubscribe(channel, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locs, ok := s.subscriptions[channel]
	if !ok {
		return
	}
	delete(locs, location)
	if len(locs) == 0 {
		delete(s.subscriptions, channel)
	}
}

// Subscribers returns the current subscriber locations for channel.
func (s *State) Subscribers(channel string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	locs, ok := s.subscriptions[channel]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(locs))
	for l := range locs {
		out = append(out, l)
	}
	return out
}

// PullSnapshot is the full state the Gateway pulls on registry-pull: enough
// to rebuild its local view from scratch (§4.2's pull-only sync model).
type PullSnapshot struct {
	Services         ServicesSnapshot `json:"services"`
	Addresses        AddressesSnapshot `json:"addresses"`
	Routes           map[string]Route `json:"routes"`
	ControllerRoutes map[string]string `json:"controllerRoutes"`
}

// FullSnapshot returns a point-in-time copy of everything a puller needs.
func (s *State) FullSnapshot() PullSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	services, addresses := s.snapshotLocked()
	routes := make(map[string]Route, len(s.routes))
	for k, v := range s.routes {
		routes[k] = v
	}
	controllerRoutes := make(map[string]string, len(s.controllerRoutes))
	for k, v := range s.controllerRoutes {
		controllerRoutes[k] = v
	}
	return PullSnapshot{
		Services:         services,
		Addresses:        addresses,
		Routes:           routes,
		ControllerRoutes: controllerRoutes,
	}
}

// Metadata returns a service's recorded metadata.
func (s *State) Metadata(name string) (ServiceMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.serviceMetadata[name]
	return m, ok
}

// counterFor returns (creating if necessary) the round-robin counter for
// name, seeded once to a uniformly random starting point so a fresh
// subscriber's first batch of lookups doesn't always begin at locations[0]
// (§4.1).
func (s *State) counterFor(name string, locCount int) *uint64 {
	s.rrMu.Lock()
	defer s.rrMu.Unlock()
	c, ok := s.rrCounters[name]
	if !ok {
		seed := uint64(0)
		if locCount > 0 {
			seed = uint64(rand.IntN(locCount))
		}
		c = &seed
		s.rrCounters[name] = c
	}
	return c
}
