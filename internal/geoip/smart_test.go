package geoip

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"github.com/user/vpn-watchdog/internal/netutil"
)

func testLog() log.Interface {
	return &log.Logger{Handler: discard.New(), Level: log.DebugLevel}
}

type staticAddr struct {
	ip  string
	err error
}

func (s staticAddr) address(ctx context.Context, family netutil.Family) (string, error) {
	return s.ip, s.err
}

type fakeLookup struct {
	name  string
	res   *Result
	err   error
	calls int
}

func (f *fakeLookup) Name() string { return f.name }

func (f *fakeLookup) lookup(ctx context.Context, family netutil.Family, targetIP string) (*Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.res
	out.IP = targetIP
	return &out, nil
}

func TestSmartReusesCacheWhileAddressStable(t *testing.T) {
	geo := &fakeLookup{name: "geo", res: &Result{Country: "NL", ISP: "Mullvad"}}
	p := &smartProvider{
		opts:   Options{Log: testLog()},
		iponly: staticAddr{ip: "1.2.3.4"},
		chain:  []geoLookup{geo},
	}

	prev := &Cached{IP: "1.2.3.4", Country: "NL", ISP: "Mullvad"}
	res, err := p.Fetch(context.Background(), netutil.FamilyV4, prev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Country != "NL" || res.ISP != "Mullvad" {
		t.Fatalf("cached fields not reused: %+v", res)
	}
	if geo.calls != 0 {
		t.Fatalf("geo service queried %d times despite stable address", geo.calls)
	}
}

func TestSmartRequeriesAfterAddressChange(t *testing.T) {
	geo := &fakeLookup{name: "geo", res: &Result{Country: "CH", ISP: "Proton"}}
	p := &smartProvider{
		opts:   Options{Log: testLog()},
		iponly: staticAddr{ip: "9.9.9.9"},
		chain:  []geoLookup{geo},
	}

	prev := &Cached{IP: "1.2.3.4", Country: "NL", ISP: "Mullvad"}
	res, err := p.Fetch(context.Background(), netutil.FamilyV4, prev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geo.calls != 1 {
		t.Fatalf("expected 1 geo call, got %d", geo.calls)
	}
	if res.IP != "9.9.9.9" || res.Country != "CH" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSmartRequeriesAfterPreviousError(t *testing.T) {
	geo := &fakeLookup{name: "geo", res: &Result{Country: "NL", ISP: "Mullvad"}}
	p := &smartProvider{
		opts:   Options{Log: testLog()},
		iponly: staticAddr{ip: "1.2.3.4"},
		chain:  []geoLookup{geo},
	}

	// Same address, but the last run carried an advisory: do not trust
	// the cached fields, try the services again.
	prev := &Cached{IP: "1.2.3.4", Country: "??", ISP: "Unknown", HadError: true}
	if _, err := p.Fetch(context.Background(), netutil.FamilyV4, prev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geo.calls != 1 {
		t.Fatalf("expected 1 geo call, got %d", geo.calls)
	}
}

func TestSmartFallsThroughChain(t *testing.T) {
	first := &fakeLookup{name: "first", err: errors.New("rate limited")}
	second := &fakeLookup{name: "second", res: &Result{Country: "SE", ISP: "OVPN"}}
	p := &smartProvider{
		opts:   Options{Log: testLog()},
		iponly: staticAddr{ip: "1.2.3.4"},
		chain:  []geoLookup{first, second},
	}

	res, err := p.Fetch(context.Background(), netutil.FamilyV4, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("chain not walked in order: first=%d second=%d", first.calls, second.calls)
	}
	if res.Country != "SE" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSmartPartialSuccessWhenAllGeoFail(t *testing.T) {
	first := &fakeLookup{name: "first", err: errors.New("down")}
	second := &fakeLookup{name: "second", err: errors.New("also down")}
	p := &smartProvider{
		opts:   Options{Log: testLog()},
		iponly: staticAddr{ip: "1.2.3.4"},
		chain:  []geoLookup{first, second},
	}

	res, err := p.Fetch(context.Background(), netutil.FamilyV4, nil)
	if err != nil {
		t.Fatalf("address is known, expected partial success, got error: %v", err)
	}
	if res.IP != "1.2.3.4" || res.Country != "??" || res.ISP != "Unknown" {
		t.Fatalf("unexpected partial result: %+v", res)
	}
	if !strings.Contains(res.Advisory, "geolocation unavailable") {
		t.Fatalf("missing advisory: %+v", res)
	}
}

func TestSmartPropagatesAddressFailure(t *testing.T) {
	p := &smartProvider{
		opts:   Options{Log: testLog()},
		iponly: staticAddr{err: errors.New("no route to host")},
		chain:  []geoLookup{&fakeLookup{name: "geo", res: &Result{}}},
	}

	if _, err := p.Fetch(context.Background(), netutil.FamilyV6, nil); err == nil {
		t.Fatalf("expected hard failure when the address cannot be detected")
	}
}

func TestNewSelectsProvider(t *testing.T) {
	opts := Options{Log: testLog()}
	cases := map[string]string{
		"iponly":  "ipify (address only)",
		"ipwhois": "ipwho.is",
		"ipapi":   "ip-api.com",
		"custom":  "custom API",
		"smart":   "smart",
		"bogus":   "smart", // unknown selectors fall back to smart
	}
	for selector, want := range cases {
		if got := New(selector, opts).Name(); got != want {
			t.Errorf("New(%q).Name() = %q, want %q", selector, got, want)
		}
	}
}
