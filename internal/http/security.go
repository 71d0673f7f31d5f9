package http

import (
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// securityMetrics counts security events seen by the middleware. Fields are
// updated atomically.
type securityMetrics struct {
	rateLimitHits      int64
	invalidIPAttempts  int64
	suspiciousRequests int64
}

// trustedProxyNets are the networks allowed to set forwarding headers.
// Requests arriving from anywhere else are treated as direct clients and
// their X-Forwarded-For / X-Real-IP headers are ignored.
var trustedProxyNets = mustParseCIDRs(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid trusted proxy CIDR " + cidr + ": " + err.Error())
		}
		nets = append(nets, network)
	}
	return nets
}

func fromTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxyNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP resolves the address used for rate limiting. Forwarded headers
// count only when the direct peer is a trusted proxy; a forwarded value that
// does not parse as an IP is counted as an invalid attempt and ignored, so a
// client cannot dodge the limiter by spoofing headers.
func clientIP(r *http.Request, metrics *securityMetrics) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}

	parsed := net.ParseIP(direct)
	if parsed == nil {
		if metrics != nil {
			atomic.AddInt64(&metrics.invalidIPAttempts, 1)
		}
		return direct
	}
	if !fromTrustedProxy(parsed) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
		if metrics != nil {
			atomic.AddInt64(&metrics.invalidIPAttempts, 1)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
		if metrics != nil {
			atomic.AddInt64(&metrics.invalidIPAttempts, 1)
		}
	}

	return direct
}

// probePatterns are URL fragments that never occur in legitimate calls. The
// API is a small fixed set of JSON routes, so path traversal, dotfile
// probing, PHP endpoints, and injection payloads all stand out immediately.
var probePatterns = []string{
	"../", "..\\", ".env", ".git", ".ssh", ".php",
	"etc/passwd", "union select", "eval(", "cmd.exe",
}

// scannerAgents identify vulnerability scanners. Plain HTTP clients like curl
// or python-requests are normal callers of a bearer-token JSON API and are
// not flagged.
var scannerAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "scanner",
}

// detectSuspiciousRequest flags requests that look like probing or injection
// attempts. Flagged requests are logged and counted, never blocked.
func detectSuspiciousRequest(r *http.Request, metrics *securityMetrics) bool {
	suspicious := probeInURL(r) || scannerAgent(r) || unusualMethod(r) || forgedForwardingChain(r)
	if suspicious && metrics != nil {
		atomic.AddInt64(&metrics.suspiciousRequests, 1)
	}
	return suspicious
}

func probeInURL(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range probePatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			return true
		}
	}
	return len(r.URL.String()) > 2048
}

func scannerAgent(r *http.Request) bool {
	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, scanner := range scannerAgents {
		if strings.Contains(agent, scanner) {
			return true
		}
	}
	return false
}

func unusualMethod(r *http.Request) bool {
	switch r.Method {
	case "TRACE", "TRACK", "CONNECT":
		return true
	}
	return false
}

// forgedForwardingChain flags improbably deep proxy chains.
func forgedForwardingChain(r *http.Request) bool {
	xff := r.Header.Get("X-Forwarded-For")
	return xff != "" && strings.Count(xff, ",") > 5
}
