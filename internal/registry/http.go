package registry

import (
	"context"
	"io"
	"net/http"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

// httpRequest builds a POST request to location carrying cmd as the
// command header, the shape every internal fabric call shares.
func httpRequest(ctx context.Context, location string, cmd wire.Command, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, location, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(wire.HeaderCommand, string(cmd))
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
