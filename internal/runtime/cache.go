package runtime

import (
	"math/rand/v2"
	"sync"
)

// cache is a service's local copy of the registry's services map, seeded by
// the service-register response and kept current by cache-update messages
// (§4.3's "update local cache entry; do not invoke application handler").
type cache struct {
	mu       sync.RWMutex
	services map[string][]string
}

func newCache() *cache {
	return &cache{services: make(map[string][]string)}
}

func (c *cache) replace(services map[string][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services = services
}

// locationsFor returns the cached location list for name, or nil if name is
// not present locally — a miss, not an error; callers fall back to the
// Registry.
func (c *cache) locationsFor(name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.services[name]
}

// selectLocation picks a location for name uniformly at random from the
// local cache (§4.3's "select a location locally (random)").
func (c *cache) selectLocation(name string) (string, bool) {
	locs := c.locationsFor(name)
	if len(locs) == 0 {
		return "", false
	}
	return locs[rand.IntN(len(locs))], true
}
