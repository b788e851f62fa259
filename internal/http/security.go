package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Forwarding headers are honoured only when the peer is a loopback or
// private address, where a reverse proxy in front of folio would sit.
var proxyNetworks = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

func fromProxy(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range proxyNetworks {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP is the address the rate limiter keys on: the peer address, or
// the first X-Forwarded-For hop (then X-Real-IP) when the peer is a proxy.
func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !fromProxy(peer) {
		return host
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, forwarded := range []string{first, r.Header.Get("X-Real-IP")} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(forwarded)); err == nil {
			return addr.String()
		}
	}
	return host
}

// setSecurityHeaders locks the dashboard page down to its own origin; the
// charts are served as same-origin images.
func setSecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

// Markers of scanners and path traversal. folio serves a handful of fixed
// routes, so none of these ever appear in legitimate traffic.
var (
	scanMarkers = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", "etc/passwd", "cmd.exe",
		"<script", "javascript:", "eval(", "union select",
	}
	scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "scanner"}
)

// isSuspicious reports requests worth a warning in the log. They are still
// served.
func isSuspicious(r *http.Request) bool {
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return true
	}
	if len(r.URL.String()) > 2048 || strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return true
	}

	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, m := range scanMarkers {
		if strings.Contains(target, m) {
			return true
		}
	}
	agent := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return true
		}
	}
	return false
}
