// Package netpolicy implements optional CIDR-based network restriction for
// quiz launches. The feature is opt-in: an empty range list allows everyone.
package netpolicy

import (
	"net"
	"strings"

	"go.uber.org/zap"
)

// Matcher decides whether a client address falls inside a quiz's allowed
// network ranges. A malformed address or range entry is never fatal: bad
// entries are skipped so one typo cannot lock out all students.
type Matcher struct {
	local net.IP
	log   *zap.Logger
}

// NewMatcher builds a matcher. localAddr, when non-empty, is substituted for
// loopback client addresses so local development traffic can match a
// configured LAN entry. It is a convenience rule, not a security relaxation.
func NewMatcher(localAddr string, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{local: net.ParseIP(localAddr), log: log}
}

// Allowed reports whether remoteAddr matches any of the given ranges.
// An empty range list allows unconditionally.
func (m *Matcher) Allowed(remoteAddr string, ranges []string) bool {
	if len(ranges) == 0 {
		return true
	}

	ip := parseRemoteIP(remoteAddr)
	if ip == nil {
		m.log.Warn("unparseable client address", zap.String("remoteAddr", remoteAddr))
		return false
	}
	if ip.IsLoopback() && m.local != nil {
		ip = m.local
	}

	for _, entry := range ranges {
		cidr := strings.TrimSpace(entry)
		if cidr == "" {
			continue
		}
		if !strings.Contains(cidr, "/") {
			cidr = hostRoute(cidr)
		}
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			m.log.Warn("skipping malformed network range", zap.String("entry", entry), zap.Error(err))
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// hostRoute widens a bare address into a single-host CIDR.
func hostRoute(addr string) string {
	if ip := net.ParseIP(addr); ip != nil && ip.To4() == nil {
		return addr + "/128"
	}
	return addr + "/32"
}

// parseRemoteIP accepts either a bare IP or a host:port pair as produced by
// http.Request.RemoteAddr.
func parseRemoteIP(remoteAddr string) net.IP {
	if ip := net.ParseIP(remoteAddr); ip != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}
