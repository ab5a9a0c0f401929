package geoip

import (
	"context"
	"fmt"

	"github.com/user/vpn-watchdog/internal/netutil"
)

// ipOnlyProvider detects the public address via protocol-specific ipify
// endpoints. Fast, no geolocation data.
type ipOnlyProvider struct {
	opts Options
}

func newIPOnly(opts Options) *ipOnlyProvider {
	return &ipOnlyProvider{opts: opts}
}

func (p *ipOnlyProvider) Name() string { return "ipify (address only)" }

func (p *ipOnlyProvider) Supports(netutil.Family) bool { return true }

func (p *ipOnlyProvider) Fetch(ctx context.Context, family netutil.Family, prev *Cached) (*Result, error) {
	ip, err := p.address(ctx, family)
	if err != nil {
		return nil, err
	}
	return &Result{IP: ip, Country: "??", ISP: "Unknown"}, nil
}

func (p *ipOnlyProvider) address(ctx context.Context, family netutil.Family) (string, error) {
	url := "https://api.ipify.org?format=json"
	if family == netutil.FamilyV6 {
		url = "https://api6.ipify.org?format=json"
	}

	client := netutil.ClientForFamily(family, p.opts.Timeout)

	var parsed struct {
		IP string `json:"ip"`
	}
	if err := getJSON(ctx, client, url, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoAddress, err)
	}
	if parsed.IP == "" {
		return "", fmt.Errorf("%w: empty ip field", ErrNoAddress)
	}
	return parsed.IP, nil
}
