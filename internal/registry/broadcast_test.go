package registry

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

func TestBroadcastCacheUpdateSkipsExceptAndDeliversToOthers(t *testing.T) {
	var mu sync.Mutex
	var received []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		received = append(received, req.Header.Get(wire.HeaderCommand))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	r := newTestRegistry(t)
	r.state.RegisterService("svc", upstream.URL, "", ServiceMetadata{})
	r.state.RegisterService("other", "http://localhost:9999", "", ServiceMetadata{})

	services, addresses := r.state.Snapshot()
	r.BroadcastCacheUpdate(services, addresses, "http://localhost:9999")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, received, string(wire.CmdCacheUpdate))
}

func TestBroadcastCacheUpdateNoTargetsIsNoop(t *testing.T) {
	r := newTestRegistry(t)
	r.BroadcastCacheUpdate(ServicesSnapshot{}, AddressesSnapshot{}, "")
}

func TestNotifyGatewayNoURLConfiguredIsNoop(t *testing.T) {
	r := newTestRegistry(t)
	r.NotifyGateway()
}
