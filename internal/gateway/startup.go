package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Run self-registers with the Registry, warms the local view, then serves
// HTTP until ctx is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.Register(ctx); err != nil {
		return fmt.Errorf("gateway: initial registration: %w", err)
	}

	srv := &http.Server{
		Addr:    g.cfg.ListenAddr,
		Handler: g.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		g.log.Info("gateway: listening", "addr", g.cfg.ListenAddr)
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
			return fmt.Errorf("gateway: shutdown: %w", err)
		}
		return nil
	case err := <-serveErr:
		return err
	}
}
