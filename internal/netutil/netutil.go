// Package netutil provides address-family aware networking helpers shared
// by the routing, geoip and leak checkers.
package netutil

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Family identifies an IP protocol version.
type Family string

const (
	FamilyV4 Family = "ipv4"
	FamilyV6 Family = "ipv6"
)

// Network returns the Go dial network string pinned to this family.
func (f Family) Network() string {
	if f == FamilyV6 {
		return "tcp6"
	}
	return "tcp4"
}

// String implements fmt.Stringer.
func (f Family) String() string { return string(f) }

// ClientForFamily returns an HTTP client whose dialer is pinned to the
// given address family, so a request observably exits through that
// protocol's path. timeout bounds the whole request.
func ClientForFamily(family Family, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 15 * time.Second,
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, family.Network(), addr)
		},
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Client returns an HTTP client without family pinning.
func Client(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
