package geoip

import (
	"context"
	"fmt"

	"github.com/user/vpn-watchdog/internal/netutil"
)

// addresser detects the bare public address for a family.
type addresser interface {
	address(ctx context.Context, family netutil.Family) (string, error)
}

// geoLookup resolves geo details for a known address.
type geoLookup interface {
	Name() string
	lookup(ctx context.Context, family netutil.Family, targetIP string) (*Result, error)
}

// smartProvider is the composite default: a fast IP-only detection,
// cached geo fields while the address is stable, and an ordered fallback
// chain of geolocation services when it moves.
type smartProvider struct {
	opts   Options
	iponly addresser
	chain  []geoLookup
}

func newSmart(opts Options) *smartProvider {
	return &smartProvider{
		opts:   opts,
		iponly: newIPOnly(opts),
		chain: []geoLookup{
			newIPWhois(opts),
			newIPAPI(opts),
		},
	}
}

func (p *smartProvider) Name() string { return "smart" }

func (p *smartProvider) Supports(netutil.Family) bool { return true }

func (p *smartProvider) Fetch(ctx context.Context, family netutil.Family, prev *Cached) (*Result, error) {
	ip, err := p.iponly.address(ctx, family)
	if err != nil {
		// Most likely no connectivity for this family; the caller decides.
		return nil, err
	}

	// Unchanged address with clean previous data: reuse the geo fields
	// and skip the rate-limited geolocation services entirely.
	if prev != nil && !prev.HadError && prev.IP == ip {
		return &Result{IP: ip, Country: prev.Country, ISP: prev.ISP}, nil
	}

	var lastErr error
	for _, g := range p.chain {
		res, err := g.lookup(ctx, family, ip)
		if err != nil {
			lastErr = err
			p.opts.Log.Debugf("geo lookup via %s failed: %v", g.Name(), err)
			continue
		}
		return res, nil
	}

	// The address is known even though every geo service failed; report
	// partial success with an advisory instead of a hard failure.
	return &Result{
		IP:       ip,
		Country:  "??",
		ISP:      "Unknown",
		Advisory: fmt.Sprintf("geolocation unavailable: %v", lastErr),
	}, nil
}
