package transport

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout is the fabric-wide default outbound HTTP timeout (§5).
const DefaultTimeout = 30 * time.Second

// NewClient returns an *http.Client with the fabric's default timeout. The
// Registry, Gateway and Service Runtime construct their outbound HTTP
// clients through this constructor rather than using
// http.DefaultClient, so no caller can accidentally block forever.
func NewClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// allowedHeaders is the fixed allow-list of headers forwarded to an upstream
// target. Standard HTTP headers, range headers, auth cookies, and the
// fabric's own command/auth headers pass through; everything else (notably
// hop-by-hop headers) is dropped.
var allowedHeaders = map[string]bool{
	"Accept":              true,
	"Accept-Encoding":     true,
	"Accept-Language":     true,
	"Content-Type":        true,
	"Content-Length":      true,
	"Cache-Control":       true,
	"If-Modified-Since":   true,
	"If-None-Match":       true,
	"Range":               true,
	"If-Range":            true,
	"Cookie":              true,
	"Authorization":       true,
	"User-Agent":          true,
	"Host":                true,
	"Referer":             true,
	"Forwarded":           true,
	"X-Forwarded-For":     true,
	"X-Forwarded-Proto":   true,
	"X-Forwarded-Host":    true,
}

// isAllowedHeader additionally admits every header in the fabric's own
// Yamf-* surface, since those are exactly what identifies the command being
// proxied through.
func isAllowedHeader(name string) bool {
	if allowedHeaders[name] {
		return true
	}
	return strings.HasPrefix(name, "Yamf-")
}

// Proxy streams an incoming request to target, then streams the response
// back to w, without buffering either body. It is the single
// implementation of the fabric's proxy semantics, shared by the Registry's
// service-call handler and the Gateway's route proxy (§4.1, §4.2).
//
// by identifies this hop for the Forwarded header, e.g. "yamf-gateway" or
// "yamf-registry".
func Proxy(w http.ResponseWriter, r *http.Request, client *http.Client, method, target, by string, log *slog.Logger) {
	outReq, err := http.NewRequestWithContext(r.Context(), method, target, r.Body)
	if err != nil {
		log.Error("proxy: building outbound request", "target", target, "error", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}

	for name, values := range r.Header {
		if !isAllowedHeader(http.CanonicalHeaderKey(name)) {
			continue
		}
		for _, v := range values {
			outReq.Header.Add(name, v)
		}
	}
	outReq.Header.Set("Forwarded", AppendForwarded(r, by))
	xff, xproto, xhost := AppendXForwarded(r)
	outReq.Header.Set("X-Forwarded-For", xff)
	outReq.Header.Set("X-Forwarded-Proto", xproto)
	outReq.Header.Set("X-Forwarded-Host", xhost)

	resp, err := client.Do(outReq)
	if err != nil {
		// Headers not yet sent to the client: safe to respond with a status.
		log.Warn("proxy: upstream unreachable", "target", target, "error", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	// Headers are sent at this point. Any error from here on must end the
	// response silently rather than attempt to signal failure to the client.
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debug("proxy: streaming response body ended early", "target", target, "error", err)
	}
}
