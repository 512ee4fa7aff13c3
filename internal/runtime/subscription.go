package runtime

import (
	"context"
	"net/http"

	"github.com/mcbrumagin/yamf-sub000/internal/config"
	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// Subscribe registers handler for channel on this service's pub/sub
// manager, returning a subscription ID usable with Unsubscribe.
func (s *Service) Subscribe(ctx context.Context, channel string, handler SubscriptionHandler) (string, error) {
	return s.pubsub.Subscribe(ctx, channel, handler)
}

// Unsubscribe removes subID from channel.
func (s *Service) Unsubscribe(ctx context.Context, channel, subID string) error {
	return s.pubsub.Unsubscribe(ctx, channel, subID)
}

// CreateSubscriptionService registers a dedicated service whose only job is
// dispatching pub/sub messages to channelHandlers; any non-pubsub-publish
// request it receives is rejected (§4.3's "Subscription-service variant").
func CreateSubscriptionService(ctx context.Context, cfg *config.Config, name string, channelHandlers map[string]SubscriptionHandler) (*Service, error) {
	svc, err := Register(ctx, cfg, name, rejectNonPubsub)
	if err != nil {
		return nil, err
	}
	for channel, handler := range channelHandlers {
		if _, err := svc.Subscribe(ctx, channel, handler); err != nil {
			_ = svc.Terminate(ctx)
			return nil, err
		}
	}
	return svc, nil
}

func rejectNonPubsub(payload any, req *http.Request, w http.ResponseWriter) (any, error) {
	return nil, wire.Validation("this service only accepts pubsub-publish messages")
}
