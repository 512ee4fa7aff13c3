package registry

import (
	"math/rand/v2"
	"sort"
	"sync/atomic"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// Strategy selects which load-balancing algorithm SelectLocation uses.
type Strategy string

const (
	// Random chooses uniformly at random over the location set.
	Random Strategy = "random"
	// RoundRobin advances a per-service monotonic counter by one on every
	// selection, wrapping modulo the current location count.
	RoundRobin Strategy = "round-robin"
)

// SelectLocation picks one location for name under strategy. Returns
// wire.NotFound if the service has no locations (§4.1's "tie-break for
// empty set").
func (s *State) SelectLocation(name string, strategy Strategy) (string, error) {
	locs := s.Locations(name)
	if len(locs) == 0 {
		return "", wire.NotFound("no-such-service: %q", name)
	}

	switch strategy {
	case RoundRobin:
		// Locations() ranges a Go map, so its order is randomized per call;
		// round-robin needs a stable ordering to index by the counter, or
		// selection degrades to uniform-random (spec §8 seed scenario 3).
		sort.Strings(locs)
		counter := s.counterFor(name, len(locs))
		idx := atomic.AddUint64(counter, 1) % uint64(len(locs))
		return locs[idx], nil
	default:
		return locs[rand.IntN(len(locs))], nil
	}
}
