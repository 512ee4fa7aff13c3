package transport

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ForwardedHop is one hop's worth of RFC 7239 Forwarded parameters.
type ForwardedHop struct {
	For   string
	By    string
	Host  string
	Proto string
}

// String renders the hop in RFC 7239 syntax, quoting values that need it
// (IPv6 literals, anything with a colon) per the grammar's obs-node rule.
func (h ForwardedHop) String() string {
	var parts []string
	if h.For != "" {
		parts = append(parts, "for="+quoteIfNeeded(h.For))
	}
	if h.By != "" {
		parts = append(parts, "by="+quoteIfNeeded(h.By))
	}
	if h.Host != "" {
		parts = append(parts, "host="+quoteIfNeeded(h.Host))
	}
	if h.Proto != "" {
		parts = append(parts, "proto="+quoteIfNeeded(h.Proto))
	}
	return strings.Join(parts, ";")
}

func quoteIfNeeded(v string) string {
	if strings.ContainsAny(v, ":[]") {
		return `"` + v + `"`
	}
	return v
}

// ParseForwarded splits an existing Forwarded header value into its
// comma-separated hops, left (oldest) to right (most recent), without
// attempting to parse each hop's internal parameters — downstream code only
// ever needs to append a new hop, never rewrite an old one. The split is on
// every comma, quoted or not; each hop string keeps its own quoting, and a
// quoted IPv6 literal contains no comma, so such hops split intact.
func ParseForwarded(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	raw := strings.Split(header, ",")
	hops := make([]string, 0, len(raw))
	for _, h := range raw {
		h = strings.TrimSpace(h)
		if h != "" {
			hops = append(hops, h)
		}
	}
	return hops
}

// AppendForwarded appends this hop to any existing Forwarded header value
// found on r, and returns the full header value to set on the outbound
// request. This never mutates a prior hop — only appends — per the fabric's
// append-on-hop rule.
func AppendForwarded(r *http.Request, by string) string {
	hops := ParseForwarded(r.Header.Get("Forwarded"))

	forHost := clientHost(r)
	hop := ForwardedHop{
		For:   forHost,
		By:    by,
		Host:  originalHost(r),
		Proto: originalProto(r),
	}
	hops = append(hops, hop.String())
	return strings.Join(hops, ", ")
}

// clientHost extracts the sender's address, bracketing IPv6 literals so the
// resulting for= token round-trips through ParseForwarded unambiguously.
func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		return fmt.Sprintf("[%s]", host)
	}
	return host
}

func originalHost(r *http.Request) string {
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		return h
	}
	return r.Host
}

func originalProto(r *http.Request) string {
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		return p
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// AppendXForwarded builds the three legacy X-Forwarded-* header values,
// appending this hop's data to any existing chain (comma-separated), the way
// most reverse proxies maintain them alongside Forwarded for compatibility.
func AppendXForwarded(r *http.Request) (forHost, proto, host string) {
	forHost = appendChain(r.Header.Get("X-Forwarded-For"), clientIP(r))
	proto = appendChain(r.Header.Get("X-Forwarded-Proto"), originalProto(r))
	host = appendChain(r.Header.Get("X-Forwarded-Host"), r.Host)
	return forHost, proto, host
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func appendChain(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + ", " + next
}
