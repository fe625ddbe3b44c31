package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/leadsync/internal/logging"
)

// TrustedRealIP rewrites r.RemoteAddr to the client address reported by a
// trusted proxy. Headers are read only when the connection itself comes from
// one of trusted; otherwise RemoteAddr is left as the socket peer, so the
// rate limiter and request log cannot be fooled by a forged header.
//
// X-Real-IP wins when present. X-Forwarded-For is walked from the right,
// skipping hops inside trusted, and the first untrusted hop is the client.
func TrustedRealIP(trusted []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(trusted) > 0 && inNets(hostIP(r.RemoteAddr), trusted) {
				if ip, raw := forwardedClient(r.Header, trusted); ip != nil {
					r.RemoteAddr = ip.String()
				} else if raw != "" {
					logging.FromContext(r.Context()).Debug("realip: ignoring unparsable forwarding header",
						"peer", r.RemoteAddr,
						"value", raw,
					)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedClient returns the client IP named by the proxy headers. When no
// usable address is found, raw holds the header value that was rejected.
func forwardedClient(h http.Header, trusted []*net.IPNet) (ip net.IP, raw string) {
	if rip := strings.TrimSpace(h.Get("X-Real-IP")); rip != "" {
		return net.ParseIP(rip), rip
	}

	xff := h.Get("X-Forwarded-For")
	if xff == "" {
		return nil, ""
	}
	hops := strings.Split(xff, ",")
	var last net.IP
	for i := len(hops) - 1; i >= 0; i-- {
		hop := net.ParseIP(strings.TrimSpace(hops[i]))
		if hop == nil {
			return nil, xff
		}
		last = hop
		if !inNets(hop, trusted) {
			return hop, ""
		}
	}
	// Every hop is a trusted proxy; the leftmost is the best we have.
	return last, ""
}

// hostIP parses the IP out of a host:port pair or a bare address.
func hostIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

func inNets(ip net.IP, nets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
