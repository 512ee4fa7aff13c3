package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// Context is the handle an application handler uses to reach the rest of
// the fabric: call another service, publish an event (§4.3's
// "Outbound calls"/"Outbound publish").
type Context struct {
	svc *Service
}

// Call invokes name with payload and decodes its JSON response into a
// generic value. If name is present in the local cache, the call goes
// directly to a randomly selected cached location; otherwise it is routed
// through the Registry, which performs lookup and load-balancing itself
// (§4.3 steps 1-3).
func (c *Context) Call(ctx context.Context, name string, payload any) (any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wire.Internal(err, "marshaling call payload for %q", name)
	}

	target := c.svc.registryURL
	if loc, ok := c.svc.cache.selectLocation(name); ok {
		target = loc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, wire.Internal(err, "building call request to %q", name)
	}
	req.Header.Set(wire.HeaderCommand, string(wire.CmdServiceCall))
	req.Header.Set(wire.HeaderServiceName, name)
	req.Header.Set("Content-Type", "application/json")
	if c.svc.authToken != "" {
		req.Header.Set(wire.HeaderAuthToken, c.svc.authToken)
	}

	resp, err := c.svc.client.Do(req)
	if err != nil {
		return nil, wire.Unavailable("%s: calling %q: %v", c.svc.name, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, wire.NotFound("%s: no-such-service: %q", c.svc.name, name)
	}
	if resp.StatusCode >= 400 {
		var errBody struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
			Kind    string `json:"kind"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, wire.ParseErrorBody(resp.StatusCode, errBody.Message, errBody.Kind, c.svc.name, name)
	}

	if resp.ContentLength == 0 {
		return nil, nil
	}
	var out any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil
	}
	return out, nil
}

// Publish sends message to channel via the Registry's pubsub-publish fan-out
// (§4.3's "Outbound publish").
func (c *Context) Publish(ctx context.Context, channel string, message any) (PublishResult, error) {
	var result PublishResult
	payload, err := json.Marshal(message)
	if err != nil {
		return result, wire.Internal(err, "marshaling publish payload for %q", channel)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.svc.registryURL, bytes.NewReader(payload))
	if err != nil {
		return result, wire.Internal(err, "building publish request for %q", channel)
	}
	req.Header.Set(wire.HeaderCommand, string(wire.CmdPubsubPublish))
	req.Header.Set(wire.HeaderPubsubChannel, channel)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.svc.client.Do(req)
	if err != nil {
		return result, wire.Unavailable("%s: publishing to %q: %v", c.svc.name, channel, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, wire.Internal(err, "decoding publish result for %q", channel)
	}
	return result, nil
}

// PublishResult mirrors the Registry's {results, errors} publish aggregate.
type PublishResult struct {
	Results []string       `json:"results"`
	Errors  []PublishError `json:"errors"`
}

// PublishError describes one subscriber's failure to receive a publish.
type PublishError struct {
	Location string `json:"subId"`
	Error    string `json:"error"`
	Status   int    `json:"status"`
}

// Stub binds Context.Call to a fixed service name and decodes its JSON
// result into T, the generic equivalent of a hand-written RPC client method.
type Stub[T any] struct {
	ctx  *Context
	name string
}

// NewStub creates a Stub[T] bound to name against ctx.
func NewStub[T any](ctx *Context, name string) Stub[T] {
	return Stub[T]{ctx: ctx, name: name}
}

// Call invokes the bound service and decodes its result into T.
func (s Stub[T]) Call(ctx context.Context, payload any) (T, error) {
	var zero T
	result, err := s.ctx.Call(ctx, s.name, payload)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return zero, wire.Internal(err, "re-encoding result from %q", s.name)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, wire.Internal(err, "decoding result from %q into %T", s.name, out)
	}
	return out, nil
}
