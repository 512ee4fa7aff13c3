package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mcbrumagin/yamf-sub000/internal/config"
)

// ApplyManifest seeds preregistered services and routes from m into state.
// Re-applying an updated manifest (on hot-reload) simply re-registers every
// entry; it never removes services the manifest previously named but no
// longer does, matching the fabric's general rule that only an explicit
// service-unregister retires a service.
func (r *Registry) ApplyManifest(m *config.Manifest) {
	for _, svc := range m.Services {
		if !ValidName(svc.Name) || svc.Location == "" {
			r.log.Warn("manifest: skipping invalid service entry", "name", svc.Name)
			continue
		}
		meta := ServiceMetadata{
			PullOnly:      svc.PullOnly,
			Public:        svc.Public,
			Preregistered: true,
			Type:          svc.Type,
		}
		r.state.RegisterService(svc.Name, svc.Location, svc.AuthService, meta)
	}
	for _, route := range m.Routes {
		if !ValidName(route.Service) || route.Path == "" {
			r.log.Warn("manifest: skipping invalid route entry", "service", route.Service, "path", route.Path)
			continue
		}
		r.state.RegisterRoute(route.Path, route.Service, route.DataType, route.RouteType)
	}
	r.log.Info("manifest: applied", "services", len(m.Services), "routes", len(m.Routes))
}

// Run starts the Registry's HTTP server and manifest watcher, and blocks
// until ctx is canceled. It refuses to start at all in production or
// staging without a configured registry token (§4.1's startup failure
// semantics).
func (r *Registry) Run(ctx context.Context) error {
	if r.cfg.RequireToken() && r.cfg.RegistryToken == "" {
		return fmt.Errorf("registry: YAMF_REGISTRY_TOKEN is required in environment %q", r.cfg.Environment)
	}

	watcher, err := config.NewManifestWatcher(r.cfg.ManifestPath, r.log)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	go func() {
		if err := watcher.Start(); err != nil {
			r.log.Error("manifest watcher stopped", "error", err)
		}
	}()
	go func() {
		for m := range watcher.Updates() {
			r.ApplyManifest(m)
		}
	}()

	srv := &http.Server{
		Addr:    r.cfg.ListenAddr,
		Handler: r.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		r.log.Info("registry: listening", "addr", r.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("registry: shutdown: %w", err)
		}
		return nil
	case err := <-serveErr:
		return err
	}
}
