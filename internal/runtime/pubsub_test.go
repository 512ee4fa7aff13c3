package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

func TestPubsubManagerSubscribeOnlyCallsRegistryForFirstSubscriber(t *testing.T) {
	var subscribeCalls int
	registryServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get(wire.HeaderCommand) == string(wire.CmdPubsubSubscribe) {
			subscribeCalls++
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer registryServer.Close()

	svc := newTestService(t, registryServer.URL)
	_, err := svc.pubsub.Subscribe(context.Background(), "events", func(json.RawMessage) (any, error) { return nil, nil })
	require.NoError(t, err)
	_, err = svc.pubsub.Subscribe(context.Background(), "events", func(json.RawMessage) (any, error) { return nil, nil })
	require.NoError(t, err)

	assert.Equal(t, 1, subscribeCalls)
	assert.Len(t, svc.pubsub.handlers("events"), 2)
}

func TestPubsubManagerSubscribeRollsBackOnRegistryFailure(t *testing.T) {
	registryServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer registryServer.Close()

	svc := newTestService(t, registryServer.URL)
	subID, err := svc.pubsub.Subscribe(context.Background(), "events", func(json.RawMessage) (any, error) { return nil, nil })
	assert.Error(t, err)
	assert.Empty(t, subID)
	assert.Empty(t, svc.pubsub.handlers("events"))
}

func TestPubsubManagerUnsubscribeOnlyCallsRegistryForLastSubscriber(t *testing.T) {
	var unsubscribeCalls int
	registryServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get(wire.HeaderCommand) == string(wire.CmdPubsubUnsubscribe) {
			unsubscribeCalls++
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer registryServer.Close()

	svc := newTestService(t, registryServer.URL)
	idA, err := svc.pubsub.Subscribe(context.Background(), "events", func(json.RawMessage) (any, error) { return nil, nil })
	require.NoError(t, err)
	idB, err := svc.pubsub.Subscribe(context.Background(), "events", func(json.RawMessage) (any, error) { return nil, nil })
	require.NoError(t, err)

	require.NoError(t, svc.pubsub.Unsubscribe(context.Background(), "events", idA))
	assert.Equal(t, 0, unsubscribeCalls)

	require.NoError(t, svc.pubsub.Unsubscribe(context.Background(), "events", idB))
	assert.Equal(t, 1, unsubscribeCalls)
}

func TestPubsubManagerUnsubscribeAllClearsEveryChannel(t *testing.T) {
	var unsubscribed []string
	registryServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get(wire.HeaderCommand) == string(wire.CmdPubsubUnsubscribe) {
			unsubscribed = append(unsubscribed, req.Header.Get(wire.HeaderPubsubChannel))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer registryServer.Close()

	svc := newTestService(t, registryServer.URL)
	_, err := svc.pubsub.Subscribe(context.Background(), "a", func(json.RawMessage) (any, error) { return nil, nil })
	require.NoError(t, err)
	_, err = svc.pubsub.Subscribe(context.Background(), "b", func(json.RawMessage) (any, error) { return nil, nil })
	require.NoError(t, err)

	svc.pubsub.unsubscribeAll(context.Background())
	assert.ElementsMatch(t, []string{"a", "b"}, unsubscribed)
	assert.Empty(t, svc.pubsub.handlers("a"))
	assert.Empty(t, svc.pubsub.handlers("b"))
}

func TestPubsubManagerDispatchIsolatesFailingHandler(t *testing.T) {
	svc := newTestService(t, "http://unused")
	p := svc.pubsub

	p.mu.Lock()
	p.channels["events"] = map[string]SubscriptionHandler{
		"ok": func(json.RawMessage) (any, error) { return "fine", nil },
		"bad": func(json.RawMessage) (any, error) {
			return nil, errors.New("boom")
		},
	}
	p.mu.Unlock()

	result := p.dispatch("events", json.RawMessage(`"hello"`))
	assert.Len(t, result.Results, 1)
	assert.Equal(t, `"fine"`, result.Results[0])
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad", result.Errors[0].Location)
	assert.Contains(t, result.Errors[0].Error, "boom")
}

func TestPubsubManagerDispatchNoSubscribersReturnsEmpty(t *testing.T) {
	svc := newTestService(t, "http://unused")
	result := svc.pubsub.dispatch("ghost", json.RawMessage(`null`))
	assert.Empty(t, result.Results)
	assert.Empty(t, result.Errors)
}

func TestHandlePubsubPublishDispatchesToLocalHandlers(t *testing.T) {
	svc := newTestService(t, "http://unused")
	svc.metrics = &serviceMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "requests_total"}, []string{"command"}),
	}
	_, err := svc.pubsub.Subscribe(context.Background(), "events", func(json.RawMessage) (any, error) {
		return "handled", nil
	})
	require.NoError(t, err)

	body := `{"channel":"events","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(body))
	req.Header.Set(wire.HeaderCommand, string(wire.CmdPubsubPublish))
	req.Header.Set(wire.HeaderPubsubChannel, "events")

	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "handled")
}
