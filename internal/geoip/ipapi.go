package geoip

import (
	"context"
	"fmt"
	"net/http"

	"github.com/user/vpn-watchdog/internal/netutil"
)

// ipAPIProvider queries ip-api.com. Free tier, plain HTTP only.
type ipAPIProvider struct {
	opts Options
}

func newIPAPI(opts Options) *ipAPIProvider {
	return &ipAPIProvider{opts: opts}
}

func (p *ipAPIProvider) Name() string { return "ip-api.com" }

func (p *ipAPIProvider) Supports(netutil.Family) bool { return true }

func (p *ipAPIProvider) Fetch(ctx context.Context, family netutil.Family, prev *Cached) (*Result, error) {
	return p.lookup(ctx, family, "")
}

func (p *ipAPIProvider) lookup(ctx context.Context, family netutil.Family, targetIP string) (*Result, error) {
	const fields = "?fields=status,message,query,countryCode,isp"

	var (
		url    string
		client *http.Client
	)
	if targetIP != "" {
		url = "http://ip-api.com/json/" + targetIP + fields
		client = netutil.Client(p.opts.Timeout)
	} else {
		url = "http://ip-api.com/json/" + fields
		client = netutil.ClientForFamily(family, p.opts.Timeout)
	}

	var data struct {
		Status      string `json:"status"`
		Message     string `json:"message"`
		Query       string `json:"query"`
		CountryCode string `json:"countryCode"`
		ISP         string `json:"isp"`
	}
	if err := getJSON(ctx, client, url, &data); err != nil {
		return nil, err
	}
	if data.Status == "fail" {
		return nil, fmt.Errorf("ip-api.com: %s", orUnknown(data.Message, "API error"))
	}
	if data.Query == "" {
		return nil, ErrNoAddress
	}

	return &Result{IP: data.Query, Country: data.CountryCode, ISP: data.ISP}, nil
}
