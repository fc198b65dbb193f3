package identity

import (
	"fmt"
	"testing"
)

func TestCanonicalAddress_Precedence(t *testing.T) {
	tests := []struct {
		name         string
		forwardedFor string
		realIP       string
		peerAddr     string
		want         string
	}{
		{"forwarded-for wins", "203.0.113.7, 10.0.0.1", "198.51.100.2", "192.0.2.1:4312", "203.0.113.7"},
		{"real-ip when no forwarded-for", "", "198.51.100.2", "192.0.2.1:4312", "198.51.100.2"},
		{"peer addr fallback", "", "", "192.0.2.1:4312", "192.0.2.1"},
		{"peer addr without port", "", "", "192.0.2.1", "192.0.2.1"},
		{"sentinel when nothing present", "", "", "", UnknownAddress},
		{"forwarded-for single entry", "203.0.113.7", "", "", "203.0.113.7"},
		{"forwarded-for with spaces", " 203.0.113.7 , 10.0.0.1", "", "", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalAddress(tt.forwardedFor, tt.realIP, tt.peerAddr)
			if got != tt.want {
				t.Errorf("CanonicalAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalAddress_IPv6MappedIPv4(t *testing.T) {
	got := CanonicalAddress("", "", "::ffff:192.0.2.44")
	if got != "192.0.2.44" {
		t.Errorf("IPv6-mapped peer = %q, want 192.0.2.44", got)
	}

	// Plain IPv6 stays IPv6
	got = CanonicalAddress("", "", "[2001:db8::1]:443")
	if got != "2001:db8::1" {
		t.Errorf("IPv6 peer = %q, want 2001:db8::1", got)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	r := NewResolver("test-salt")

	for _, addr := range []string{"192.0.2.1", "2001:db8::1", "10.0.0.1"} {
		a := r.Resolve(addr)
		b := r.Resolve(addr)
		if a != b {
			t.Errorf("Resolve(%q) not deterministic: %s != %s", addr, a, b)
		}
		if a == addr {
			t.Errorf("Resolve(%q) returned the input unchanged", addr)
		}
		if len(a) != 64 {
			t.Errorf("Resolve(%q) length = %d, want 64", addr, len(a))
		}
	}
}

func TestResolve_DistinctAddresses(t *testing.T) {
	r := NewResolver("test-salt")

	// Property check over many random-ish pairs: distinct addresses must
	// (with overwhelming probability) map to distinct tokens.
	seen := make(map[string]string)
	for i := 0; i < 256; i++ {
		addr := fmt.Sprintf("10.%d.%d.%d", i%4, (i/4)%16, i)
		token := r.Resolve(addr)
		if prev, ok := seen[token]; ok {
			t.Fatalf("collision: %q and %q both map to %s", prev, addr, token)
		}
		seen[token] = addr
	}
}

func TestResolve_EmptyDegradesToSentinel(t *testing.T) {
	r := NewResolver("test-salt")
	if r.Resolve("") != r.Resolve(UnknownAddress) {
		t.Error("empty address should hash the unknown sentinel")
	}
}

func TestFromRequest_MatchesResolve(t *testing.T) {
	r := NewResolver("test-salt")
	got := r.FromRequest("203.0.113.7, 10.0.0.1", "", "192.0.2.1:1234")
	want := r.Resolve("203.0.113.7")
	if got != want {
		t.Errorf("FromRequest = %s, want %s", got, want)
	}
}
