// Package geoip fetches the public IP, country and ISP visible to the
// outside world, through a family of pluggable external services.
package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apex/log"

	"github.com/user/vpn-watchdog/internal/netutil"
)

// ErrNoAddress marks the hard failure case: no public address could be
// detected for the requested family at all.
var ErrNoAddress = errors.New("no public address detected")

// Result is one provider answer for a single address family.
type Result struct {
	IP      string
	Country string
	ISP     string
	// Advisory is set when the address was detected but geolocation
	// failed; the result still counts as a success.
	Advisory string
}

// Cached carries the previous snapshot for a family so the smart
// provider can skip re-querying rate-limited geolocation services when
// the address has not moved.
type Cached struct {
	IP       string
	Country  string
	ISP      string
	HadError bool
}

// Provider fetches public identity details for one address family.
type Provider interface {
	Name() string
	Supports(family netutil.Family) bool
	Fetch(ctx context.Context, family netutil.Family, prev *Cached) (*Result, error)
}

// Options configures provider construction.
type Options struct {
	Log     log.Interface
	Timeout time.Duration

	// Custom provider settings.
	CustomURL   string
	CustomURLv6 string
	KeyIP       string
	KeyCountry  string
	KeyISP      string
}

// New builds the provider selected by the configuration string. Unknown
// selectors fall back to the smart composite.
func New(selector string, opts Options) Provider {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Log == nil {
		opts.Log = log.Log
	}

	switch selector {
	case "iponly":
		return newIPOnly(opts)
	case "ipwhois":
		return newIPWhois(opts)
	case "ipapi":
		return newIPAPI(opts)
	case "custom":
		return newCustom(opts)
	default:
		return newSmart(opts)
	}
}

// getJSON performs a GET and decodes the body into v. Non-2xx responses
// and malformed JSON are returned as errors, never as panics.
func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}
