package publicip

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/geoip"
	"github.com/user/vpn-watchdog/internal/netutil"
)

func testLog() log.Interface {
	return &log.Logger{Handler: discard.New(), Level: log.DebugLevel}
}

func testConfig(t *testing.T, mutate func(*config.Config)) *config.Manager {
	t.Helper()
	mgr := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err := mgr.Load(); err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	if err := mgr.Update(cfg); err != nil {
		t.Fatalf("update config: %v", err)
	}
	return mgr
}

// fakeProvider serves canned per-family results and counts fetches. An
// optional block channel lets tests hold a fetch open.
type fakeProvider struct {
	mu      sync.Mutex
	fetches int

	v4    *geoip.Result
	v4Err error
	v6    *geoip.Result
	v6Err error

	started chan struct{}
	once    sync.Once
	block   chan struct{}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Supports(family netutil.Family) bool {
	if family == netutil.FamilyV6 {
		return f.v6 != nil || f.v6Err != nil
	}
	return true
}

func (f *fakeProvider) Fetch(ctx context.Context, family netutil.Family, prev *geoip.Cached) (*geoip.Result, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()

	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		<-f.block
	}

	if family == netutil.FamilyV6 {
		return f.v6, f.v6Err
	}
	return f.v4, f.v4Err
}

func (f *fakeProvider) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func newTestChecker(t *testing.T, mutate func(*config.Config), provider geoip.Provider) *Checker {
	t.Helper()
	c := NewChecker(testLog(), testConfig(t, mutate))
	c.newProvider = func(*config.Config) geoip.Provider { return provider }
	return c
}

func TestRunCheckDetectsHomeIdentity(t *testing.T) {
	provider := &fakeProvider{
		v4: &geoip.Result{IP: "1.2.3.4", Country: "DE", ISP: "Deutsche Telekom AG"},
	}
	c := newTestChecker(t, func(cfg *config.Config) {
		cfg.Public.Enabled = true
		cfg.Public.Strategy = config.StrategyCombined
		cfg.Home = config.Home{Country: "DE", ISP: "telekom"}
	}, provider)

	c.runCheck()

	st := c.State()
	if !st.Valid {
		t.Fatalf("a completed run must publish valid data")
	}
	if st.Secure {
		t.Fatalf("home country and ISP both visible must be unsafe")
	}
	if st.Details != "DE - Deutsche Telekom AG" {
		t.Fatalf("unexpected details: %q", st.Details)
	}
	if st.IPv4.LastSuccess.IsZero() {
		t.Fatalf("successful fetch must stamp LastSuccess")
	}
}

func TestRunCheckForeignIdentityIsSafe(t *testing.T) {
	provider := &fakeProvider{
		v4: &geoip.Result{IP: "9.9.9.9", Country: "NL", ISP: "Mullvad AB"},
	}
	c := newTestChecker(t, func(cfg *config.Config) {
		cfg.Public.Enabled = true
		cfg.Public.Strategy = config.StrategyCombined
		cfg.Home = config.Home{Country: "DE", ISP: "telekom"}
	}, provider)

	c.runCheck()

	if st := c.State(); !st.Secure || st.Details != "NL - Mullvad AB" {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestRunCheckFetchFailureIsVacuouslySecure(t *testing.T) {
	provider := &fakeProvider{v4Err: errors.New("connect timeout")}
	c := newTestChecker(t, func(cfg *config.Config) {
		cfg.Public.Enabled = true
		cfg.Home = config.Home{Country: "DE", ISP: "telekom"}
	}, provider)

	c.runCheck()

	st := c.State()
	if !st.Valid {
		t.Fatalf("a failed run still publishes valid data")
	}
	if !st.Secure {
		t.Fatalf("a family with no detected address cannot be flagged unsafe")
	}
	if st.IPv4.Err == "" {
		t.Fatalf("fetch error must be recorded on the snapshot")
	}
}

func TestRunCheckIPMatchFailsOpen(t *testing.T) {
	provider := &fakeProvider{v4: &geoip.Result{IP: "5.6.7.8", Country: "DE", ISP: "Telekom"}}
	c := newTestChecker(t, func(cfg *config.Config) {
		cfg.Public.Enabled = true
		cfg.Public.Strategy = config.StrategyIPMatch
		cfg.Home = config.Home{DynDNS: "home.example.org"}
	}, provider)
	c.lookupIP = func(ctx context.Context, network, host string) ([]net.IP, error) {
		return nil, errors.New("NXDOMAIN")
	}

	c.runCheck()

	if st := c.State(); !st.Secure {
		t.Fatalf("unresolvable dyndns host must not trip the alarm")
	}
}

func TestRunCheckIPMatchLiteralHome(t *testing.T) {
	provider := &fakeProvider{v4: &geoip.Result{IP: "5.6.7.8"}}
	c := newTestChecker(t, func(cfg *config.Config) {
		cfg.Public.Enabled = true
		cfg.Public.Strategy = config.StrategyIPMatch
		cfg.Home = config.Home{DynDNS: "5.6.7.8"}
	}, provider)
	c.lookupIP = func(ctx context.Context, network, host string) ([]net.IP, error) {
		t.Fatalf("literal home address must not hit the resolver")
		return nil, nil
	}

	c.runCheck()

	if st := c.State(); st.Secure {
		t.Fatalf("public IP equal to the home address must be unsafe")
	}
}

func TestTriggerAsyncSingleFlight(t *testing.T) {
	provider := &fakeProvider{
		v4:      &geoip.Result{IP: "9.9.9.9", Country: "NL", ISP: "Mullvad"},
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	c := newTestChecker(t, func(cfg *config.Config) {
		cfg.Public.Enabled = true
	}, provider)

	c.TriggerAsync()
	select {
	case <-provider.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("check never started")
	}

	// The first run is still blocked inside Fetch; these must be no-ops.
	c.TriggerAsync()
	c.TriggerAsync()
	close(provider.block)

	deadline := time.Now().Add(5 * time.Second)
	for !c.HasValidData() {
		if time.Now().After(deadline) {
			t.Fatalf("check never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if n := provider.fetchCount(); n != 1 {
		t.Fatalf("expected exactly 1 fetch, got %d", n)
	}
}
