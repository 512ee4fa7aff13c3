package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// SubscriptionHandler processes one pubsub-publish message delivered to a
// channel this service subscribes to.
type SubscriptionHandler func(message json.RawMessage) (any, error)

// pubsubManager maintains this service's per-channel subscriber map and
// talks to the Registry to subscribe/unsubscribe as handlers come and go
// (§4.3's "Pub/sub manager").
type pubsubManager struct {
	mu       sync.Mutex
	channels map[string]map[string]SubscriptionHandler

	svc *Service
}

func newPubsubManager(svc *Service) *pubsubManager {
	return &pubsubManager{
		channels: make(map[string]map[string]SubscriptionHandler),
		svc:      svc,
	}
}

// Subscribe registers handler under a fresh subId for channel. The first
// subscriber to a channel triggers a pubsub-subscribe call to the Registry.
func (p *pubsubManager) Subscribe(ctx context.Context, channel string, handler SubscriptionHandler) (string, error) {
	subID := uuid.NewString()

	p.mu.Lock()
	isFirst := len(p.channels[channel]) == 0
	if p.channels[channel] == nil {
		p.channels[channel] = make(map[string]SubscriptionHandler)
	}
	p.channels[channel][subID] = handler
	p.mu.Unlock()

	if isFirst {
		if err := p.registryCall(ctx, wire.CmdPubsubSubscribe, channel); err != nil {
			p.mu.Lock()
			delete(p.channels[channel], subID)
			p.mu.Unlock()
			return "", err
		}
	}
	return subID, nil
}

// Unsubscribe removes subID from channel. Removing the last handler for a
// channel triggers a pubsub-unsubscribe call to the Registry.
func (p *pubsubManager) Unsubscribe(ctx context.Context, channel, subID string) error {
	p.mu.Lock()
	handlers, ok := p.channels[channel]
	if ok {
		delete(handlers, subID)
	}
	isEmpty := ok && len(handlers) == 0
	if isEmpty {
		delete(p.channels, channel)
	}
	p.mu.Unlock()

	if isEmpty {
		return p.registryCall(ctx, wire.CmdPubsubUnsubscribe, channel)
	}
	return nil
}

func (p *pubsubManager) unsubscribeAll(ctx context.Context) {
	p.mu.Lock()
	channels := make([]string, 0, len(p.channels))
	for ch := range p.channels {
		channels = append(channels, ch)
	}
	p.channels = make(map[string]map[string]SubscriptionHandler)
	p.mu.Unlock()

	for _, ch := range channels {
		if err := p.registryCall(ctx, wire.CmdPubsubUnsubscribe, ch); err != nil {
			p.svc.log.Warn("terminate: pubsub-unsubscribe failed", "channel", ch, "error", err)
		}
	}
}

func (p *pubsubManager) registryCall(ctx context.Context, cmd wire.Command, channel string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.svc.registryURL, nil)
	if err != nil {
		return wire.Internal(err, "building %s request", cmd)
	}
	req.Header.Set(wire.HeaderCommand, string(cmd))
	req.Header.Set(wire.HeaderPubsubChannel, channel)
	req.Header.Set(wire.HeaderServiceLocation, p.svc.location)

	resp, err := p.svc.client.Do(req)
	if err != nil {
		return wire.Unavailable("%s: %s failed: %v", p.svc.name, cmd, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return wire.Unavailable("%s: %s rejected: status %d", p.svc.name, cmd, resp.StatusCode)
	}
	return nil
}

// handlers returns a snapshot of the current subscriber set for channel.
func (p *pubsubManager) handlers(channel string) map[string]SubscriptionHandler {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]SubscriptionHandler, len(p.channels[channel]))
	for id, h := range p.channels[channel] {
		out[id] = h
	}
	return out
}

// dispatch runs every local handler for channel against message, isolating
// failures the way the Registry isolates subscriber failures (§4.3, §7):
// one handler raising never prevents the others from running.
func (p *pubsubManager) dispatch(channel string, message json.RawMessage) PublishResult {
	handlers := p.handlers(channel)
	result := PublishResult{Results: []string{}, Errors: []PublishError{}}
	if len(handlers) == 0 {
		return result
	}

	var mu sync.Mutex
	var combined *multierror.Error
	var g errgroup.Group
	for subID, handler := range handlers {
		subID, handler := subID, handler
		g.Go(func() error {
			value, err := handler(message)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, PublishError{Location: subID, Error: err.Error(), Status: wire.StatusOf(err)})
				combined = multierror.Append(combined, fmt.Errorf("%s: %w", subID, err))
				return nil
			}
			raw, marshalErr := json.Marshal(value)
			if marshalErr != nil {
				result.Errors = append(result.Errors, PublishError{Location: subID, Error: marshalErr.Error(), Status: http.StatusInternalServerError})
				return nil
			}
			result.Results = append(result.Results, string(raw))
			return nil
		})
	}
	_ = g.Wait()
	if combined.ErrorOrNil() != nil {
		p.svc.log.Warn("pubsub dispatch: some handlers failed", "channel", channel, "error", combined.ErrorOrNil())
	}
	return result
}

// handlePubsubPublish is the Service's command handler for pubsub-publish
// messages delivered by the Registry.
func (s *Service) handlePubsubPublish(w http.ResponseWriter, req *http.Request) {
	channel := req.Header.Get(wire.HeaderPubsubChannel)
	if channel == "" {
		wire.WriteError(w, wire.Validation("missing pubsub channel"), false)
		return
	}
	var body struct {
		Channel string          `json:"channel"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		wire.WriteError(w, wire.Validation("invalid pubsub-publish body: %v", err), false)
		return
	}
	result := s.pubsub.dispatch(channel, body.Message)
	_ = wire.JSON(result).WriteTo(w, http.StatusOK)
}
