// Package identity turns raw network-address metadata into opaque,
// irreversible identity tokens. Tokens are the sole partition key for rate
// limiting and anonymous vote deduplication; nothing in the system ever maps
// a token back to an address.
package identity

import (
	"net"
	"strings"

	"github.com/NobleVision/MUSIC-sub000/pkg/hash"
)

// UnknownAddress is the sentinel hashed when no address signal is present.
const UnknownAddress = "unknown"

// Resolver derives identity tokens from request metadata.
type Resolver struct {
	salt string
}

func NewResolver(salt string) *Resolver {
	return &Resolver{salt: salt}
}

// FromRequest picks one canonical address from the available signals, in
// precedence order: first forwarded-for entry, then real-ip header, then the
// socket peer address, then the "unknown" sentinel. The result is hashed.
func (r *Resolver) FromRequest(forwardedFor, realIP, peerAddr string) string {
	return r.Resolve(CanonicalAddress(forwardedFor, realIP, peerAddr))
}

// Resolve hashes a canonical address into a fixed-length token. Same address
// always yields the same token; the empty address degrades to the sentinel.
func (r *Resolver) Resolve(addr string) string {
	if addr == "" {
		addr = UnknownAddress
	}
	return hash.HashIP(addr, r.salt)
}

// CanonicalAddress applies the precedence rules and normalizes IPv6-mapped
// IPv4 peers (::ffff:a.b.c.d) to their IPv4 form.
func CanonicalAddress(forwardedFor, realIP, peerAddr string) string {
	if forwardedFor != "" {
		first := forwardedFor
		if i := strings.IndexByte(first, ','); i >= 0 {
			first = first[:i]
		}
		if addr := normalize(first); addr != "" {
			return addr
		}
	}
	if addr := normalize(realIP); addr != "" {
		return addr
	}
	if addr := normalize(peerAddr); addr != "" {
		return addr
	}
	return UnknownAddress
}

// normalize trims whitespace, strips a port if present, and converts
// IPv6-mapped IPv4 addresses to dotted-quad form.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	// Peer addresses may arrive as host:port.
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	if ip := net.ParseIP(s); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
		return ip.String()
	}
	return s
}
