package runtime

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/mcbrumagin/yamf-sub000/internal/config"
	"github.com/mcbrumagin/yamf-sub000/internal/telemetry"
	"github.com/mcbrumagin/yamf-sub000/internal/transport"
	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// Option customizes a Service before it is registered.
type Option func(*Service)

// WithAuthToken attaches a bearer token this service presents on its
// outbound calls to auth-gated targets.
func WithAuthToken(token string) Option {
	return func(s *Service) { s.authToken = token }
}

// Register runs the full setup sequence: validate name, resolve home, call
// service-setup with retry, bind the allocated port (re-issuing service-setup
// on EADDRINUSE), call service-register to seed the local cache, and start
// serving (§4.3's "Setup sequence").
//
// name may be empty, in which case a generated Anon$<8-hex> name is used.
// The returned Service is already serving; call Terminate to shut it down.
func Register(ctx context.Context, cfg *config.Config, name string, handler Handler, opts ...Option) (*Service, error) {
	if name == "" {
		name = anonymousName()
	}
	if !ValidName(name) {
		return nil, wire.Validation("invalid service name %q", name)
	}

	log := telemetry.NewLogger(cfg.Environment, name)
	client := transport.NewClient()
	home := serviceHome(cfg)

	m := telemetry.NewMetrics("yamf_service_" + sanitizeMetricName(name))
	svc := &Service{
		name:        name,
		home:        home,
		registryURL: cfg.RegistryURL,
		client:      client,
		log:         log,
		cache:       newCache(),
		handler:     handler,
		metrics: &serviceMetrics{
			requests: m.Counter("yamf_service_requests_total", "requests handled, by command", "command"),
			handler:  m.Handler(),
		},
	}
	svc.pubsub = newPubsubManager(svc)
	for _, opt := range opts {
		opt(svc)
	}

	listener, location, err := bindWithRetry(ctx, svc, cfg)
	if err != nil {
		return nil, err
	}
	svc.location = location

	if err := registerWithRegistry(ctx, svc); err != nil {
		listener.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/", svc)
	mux.Handle("/metrics", svc.metrics.handler)
	svc.server = &http.Server{Handler: mux}

	go func() {
		if err := svc.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("service server stopped", "service", name, "error", err)
		}
	}()

	log.Info("service registered", "name", name, "location", location)
	return svc, nil
}

// serviceHome resolves the home (scheme://host, no port) a new service asks
// the Registry to allocate a port under (§4.3 step 2).
func serviceHome(cfg *config.Config) string {
	if cfg.ServiceURL != "" {
		return cfg.ServiceURL
	}
	return "http://localhost"
}

// bindWithRetry calls service-setup to obtain a location, then binds it.
// On EADDRINUSE it re-issues service-setup for a fresh port, bounded by
// cfg.RegistrationRetryLimit (§4.3 step 4).
func bindWithRetry(ctx context.Context, svc *Service, cfg *config.Config) (net.Listener, string, error) {
	limit := cfg.RegistrationRetryLimit
	if limit <= 0 {
		limit = 50
	}

	for attempt := 1; attempt <= limit; attempt++ {
		location, err := callServiceSetup(ctx, svc, cfg)
		if err != nil {
			return nil, "", err
		}

		addr := strings.TrimPrefix(strings.TrimPrefix(location, "https://"), "http://")
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return listener, location, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, "", wire.Internal(err, "binding service listener at %s", addr)
		}
		svc.log.Warn("service-setup: port in use, retrying", "addr", addr, "attempt", attempt)
	}
	return nil, "", wire.Unavailable("could not bind a free port after %d attempts", limit)
}

// callServiceSetup requests a fresh location from the Registry, retrying on
// transient failure with linear backoff (§4.3 step 3).
func callServiceSetup(ctx context.Context, svc *Service, cfg *config.Config) (string, error) {
	limit := cfg.RetryLimit
	if limit <= 0 {
		limit = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 20 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		location, err := doServiceSetup(ctx, svc)
		if err == nil {
			return location, nil
		}
		lastErr = err
		time.Sleep(delay * time.Duration(attempt))
	}
	return "", wire.Unavailable("service-setup: exhausted %d attempts: %v", limit, lastErr)
}

func doServiceSetup(ctx context.Context, svc *Service) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.registryURL, nil)
	if err != nil {
		return "", wire.Internal(err, "building service-setup request")
	}
	req.Header.Set(wire.HeaderCommand, string(wire.CmdServiceSetup))
	req.Header.Set(wire.HeaderServiceName, svc.name)
	req.Header.Set(wire.HeaderServiceHome, svc.home)

	resp, err := svc.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", wire.Unavailable("service-setup failed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wire.Internal(err, "reading service-setup response")
	}
	return string(body), nil
}

// registerWithRegistry calls service-register and seeds the local cache
// from the response (§4.3 step 5).
func registerWithRegistry(ctx context.Context, svc *Service) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.registryURL, nil)
	if err != nil {
		return wire.Internal(err, "building service-register request")
	}
	req.Header.Set(wire.HeaderCommand, string(wire.CmdServiceRegister))
	req.Header.Set(wire.HeaderServiceName, svc.name)
	req.Header.Set(wire.HeaderServiceLocation, svc.location)

	resp, err := svc.client.Do(req)
	if err != nil {
		return wire.Unavailable("service-register: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return wire.Unavailable("service-register failed: status %d", resp.StatusCode)
	}

	var body struct {
		Services  map[string][]string `json:"services"`
		Addresses map[string]string   `json:"addresses"`
	}
	if err := wire.DecodeJSON(resp.Body, &body); err == nil {
		svc.cache.replace(body.Services)
	}
	return nil
}

func sanitizeMetricName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
}
