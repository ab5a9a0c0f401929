package geoip

import (
	"context"
	"fmt"
	"net/http"

	"github.com/user/vpn-watchdog/internal/netutil"
)

// ipWhoisProvider queries ipwho.is. Free tier, plain HTTP only.
type ipWhoisProvider struct {
	opts Options
}

func newIPWhois(opts Options) *ipWhoisProvider {
	return &ipWhoisProvider{opts: opts}
}

func (p *ipWhoisProvider) Name() string { return "ipwho.is" }

func (p *ipWhoisProvider) Supports(netutil.Family) bool { return true }

func (p *ipWhoisProvider) Fetch(ctx context.Context, family netutil.Family, prev *Cached) (*Result, error) {
	return p.lookup(ctx, family, "")
}

// lookup fetches details for targetIP, or for the caller's own address
// when targetIP is empty (then the client is pinned to the family so the
// service sees the right protocol).
func (p *ipWhoisProvider) lookup(ctx context.Context, family netutil.Family, targetIP string) (*Result, error) {
	var (
		url    string
		client *http.Client
	)
	if targetIP != "" {
		url = "http://ipwho.is/" + targetIP + "?output=json"
		client = netutil.Client(p.opts.Timeout)
	} else {
		url = "http://ipwho.is/?output=json"
		client = netutil.ClientForFamily(family, p.opts.Timeout)
	}

	var data struct {
		IP          string `json:"ip"`
		Success     *bool  `json:"success"`
		Message     string `json:"message"`
		CountryCode string `json:"country_code"`
		ISP         string `json:"isp"`
		Connection  struct {
			ISP string `json:"isp"`
		} `json:"connection"`
	}
	if err := getJSON(ctx, client, url, &data); err != nil {
		return nil, err
	}
	if data.Success != nil && !*data.Success {
		return nil, fmt.Errorf("ipwho.is: %s", orUnknown(data.Message, "API error"))
	}
	if data.IP == "" {
		return nil, ErrNoAddress
	}

	isp := data.Connection.ISP
	if isp == "" {
		isp = data.ISP
	}
	return &Result{IP: data.IP, Country: data.CountryCode, ISP: isp}, nil
}

func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
