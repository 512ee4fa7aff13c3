package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

type verifyRequest struct {
	VerifyAccess string `json:"verifyAccess"`
}

type verifyResponse struct {
	Error string `json:"error"`
}

// VerifyAuth checks token against target's designated auth-service, if any
// (§4.1). A nil return means either no auth is required, or the token
// verified successfully.
func (r *Registry) VerifyAuth(ctx context.Context, target, token string) error {
	authService, required := r.state.AuthServiceFor(target)
	if !required {
		return nil
	}
	if token == "" {
		return wire.Auth(http.StatusUnauthorized, "auth token required for service %q", target)
	}

	location, err := r.state.SelectLocation(authService, RoundRobin)
	if err != nil {
		return wire.Unavailable("auth service %q is not registered", authService)
	}

	body, err := json.Marshal(verifyRequest{VerifyAccess: token})
	if err != nil {
		return wire.Internal(err, "marshaling auth verification request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, location, bytes.NewReader(body))
	if err != nil {
		return wire.Internal(err, "building auth verification request")
	}
	req.Header.Set(wire.HeaderCommand, string(wire.CmdServiceCall))
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return wire.Unavailable("auth service %q unreachable: %v", authService, err)
	}
	defer resp.Body.Close()

	var verified verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verified); err != nil {
		// A non-JSON 2xx body is treated as an empty, error-free response.
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		return wire.Internal(fmt.Errorf("status %d", resp.StatusCode), "auth service %q returned an unreadable response", authService)
	}

	if verified.Error != "" {
		return wire.Auth(http.StatusUnauthorized, "auth token rejected: %s", verified.Error)
	}
	if resp.StatusCode >= 500 {
		return wire.Unavailable("auth service %q failed: status %d", authService, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return wire.Auth(http.StatusUnauthorized, "auth token rejected: status %d", resp.StatusCode)
	}
	return nil
}
