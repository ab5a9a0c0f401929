package geoip

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/vpn-watchdog/internal/netutil"
)

// customProvider is driven entirely by a user-supplied URL and three
// JSON field names. A "{ip}" token in the URL is replaced by the target
// address when one is known.
type customProvider struct {
	opts Options
}

func newCustom(opts Options) *customProvider {
	if opts.KeyIP == "" {
		opts.KeyIP = "ip"
	}
	if opts.KeyCountry == "" {
		opts.KeyCountry = "country"
	}
	if opts.KeyISP == "" {
		opts.KeyISP = "isp"
	}
	return &customProvider{opts: opts}
}

func (p *customProvider) Name() string { return "custom API" }

// Supports reports IPv6 capability only when a dedicated v6 URL is
// configured; there is no way to know whether an arbitrary user URL is
// reachable over v6.
func (p *customProvider) Supports(family netutil.Family) bool {
	if family == netutil.FamilyV6 {
		return p.opts.CustomURLv6 != ""
	}
	return true
}

func (p *customProvider) Fetch(ctx context.Context, family netutil.Family, prev *Cached) (*Result, error) {
	return p.lookup(ctx, family, "")
}

func (p *customProvider) lookup(ctx context.Context, family netutil.Family, targetIP string) (*Result, error) {
	url := p.opts.CustomURL
	if family == netutil.FamilyV6 && p.opts.CustomURLv6 != "" {
		url = p.opts.CustomURLv6
	}
	if url == "" {
		return nil, fmt.Errorf("no custom URL configured")
	}
	if targetIP != "" && strings.Contains(url, "{ip}") {
		url = strings.ReplaceAll(url, "{ip}", targetIP)
	}

	var data map[string]any
	if err := getJSON(ctx, netutil.ClientForFamily(family, p.opts.Timeout), url, &data); err != nil {
		return nil, err
	}

	ip := stringField(data, p.opts.KeyIP)
	if ip == "" {
		return nil, fmt.Errorf("%w: no value under key %q", ErrNoAddress, p.opts.KeyIP)
	}

	country := stringField(data, p.opts.KeyCountry)
	if country == "" {
		country = "??"
	}
	isp := stringField(data, p.opts.KeyISP)
	if isp == "" {
		isp = "Unknown"
	}

	return &Result{IP: ip, Country: country, ISP: isp}, nil
}

func stringField(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
