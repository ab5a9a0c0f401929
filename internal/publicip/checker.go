// Package publicip owns the asynchronous public identity check: which
// IP, country and ISP the outside world currently sees for this host.
package publicip

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/geoip"
	"github.com/user/vpn-watchdog/internal/logger"
	"github.com/user/vpn-watchdog/internal/netutil"
)

// checkTimeout bounds one full async run (both families plus dyndns).
const checkTimeout = 60 * time.Second

// Snapshot is the last known identity for one address family.
type Snapshot struct {
	IP          string
	Country     string
	ISP         string
	Err         string
	LastSuccess time.Time
}

// State is a copy of the checker's published result.
type State struct {
	IPv4    Snapshot
	IPv6    Snapshot
	Secure  bool
	Valid   bool
	Details string
}

// Checker runs the public identity check asynchronously and publishes a
// thread-safe snapshot. At most one check is in flight at a time; the
// in-flight flag shares the mutex with the results.
type Checker struct {
	mu       sync.Mutex
	cfg      *config.Manager
	log      log.Interface
	checking bool
	v4       Snapshot
	v6       Snapshot
	secure   bool
	valid    bool
	details  string

	// Injection points for tests.
	newProvider func(cfg *config.Config) geoip.Provider
	lookupIP    func(ctx context.Context, network, host string) ([]net.IP, error)
}

// NewChecker creates a Checker reading its settings from cfg on each run.
func NewChecker(l log.Interface, cfg *config.Manager) *Checker {
	return &Checker{
		cfg: cfg,
		log: l,
		newProvider: func(c *config.Config) geoip.Provider {
			return geoip.New(c.Public.Provider, geoip.Options{
				Log:         l,
				CustomURL:   c.Public.CustomURL,
				CustomURLv6: c.Public.CustomURLv6,
				KeyIP:       c.Public.CustomKeyIP,
				KeyCountry:  c.Public.CustomKeyCountry,
				KeyISP:      c.Public.CustomKeyISP,
			})
		},
		lookupIP: net.DefaultResolver.LookupIP,
	}
}

// TriggerAsync starts a check in the background. A no-op while a check
// is already running.
func (c *Checker) TriggerAsync() {
	c.mu.Lock()
	if c.checking {
		c.mu.Unlock()
		return
	}
	c.checking = true
	c.mu.Unlock()

	logger.SafeGo(c.log, "publicip.check", c.runCheck)
}

// State returns a copy of the last published result.
func (c *Checker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		IPv4:    c.v4,
		IPv6:    c.v6,
		Secure:  c.secure,
		Valid:   c.valid,
		Details: c.details,
	}
}

// HasValidData reports whether at least one run has completed, i.e. the
// checker holds either results or definitive errors rather than nothing.
func (c *Checker) HasValidData() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

func (c *Checker) runCheck() {
	defer func() {
		c.mu.Lock()
		c.checking = false
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	cfg := c.cfg.Get()
	provider := c.newProvider(cfg)

	for _, family := range []netutil.Family{netutil.FamilyV4, netutil.FamilyV6} {
		if !provider.Supports(family) {
			continue
		}
		c.fetchFamily(ctx, provider, family)
	}

	// ip_match resolves the home host once per run, outside the lock.
	var homeIPs []net.IP
	if cfg.Public.Strategy == config.StrategyIPMatch {
		homeIPs = c.resolveHome(ctx, cfg.Home.DynDNS)
	}

	c.mu.Lock()
	v4OK := evaluateFamily(cfg, c.v4, homeIPs)
	v6OK := evaluateFamily(cfg, c.v6, homeIPs)
	c.secure = v4OK && v6OK
	c.valid = true
	c.details = buildDetails(c.v4, c.v6)
	secure, details := c.secure, c.details
	c.mu.Unlock()

	if secure {
		c.log.Infof("public check: %s -> safe", details)
	} else {
		c.log.Warnf("public check: %s -> unsafe", details)
	}
}

func (c *Checker) fetchFamily(ctx context.Context, provider geoip.Provider, family netutil.Family) {
	c.mu.Lock()
	snap := c.snapshotFor(family)
	var prev *geoip.Cached
	if snap.IP != "" {
		prev = &geoip.Cached{
			IP:       snap.IP,
			Country:  snap.Country,
			ISP:      snap.ISP,
			HadError: snap.Err != "",
		}
	}
	c.mu.Unlock()

	res, err := provider.Fetch(ctx, family, prev)

	c.mu.Lock()
	defer c.mu.Unlock()
	target := c.snapshotPtr(family)
	if err != nil {
		target.Err = err.Error()
		c.log.Debugf("public %s fetch failed: %v", family, err)
		return
	}
	target.IP = res.IP
	target.Country = res.Country
	target.ISP = res.ISP
	target.Err = res.Advisory
	target.LastSuccess = time.Now()
}

func (c *Checker) snapshotFor(family netutil.Family) Snapshot {
	if family == netutil.FamilyV6 {
		return c.v6
	}
	return c.v4
}

func (c *Checker) snapshotPtr(family netutil.Family) *Snapshot {
	if family == netutil.FamilyV6 {
		return &c.v6
	}
	return &c.v4
}

// resolveHome resolves the configured home DynDNS host (or parses it as
// a literal address). A failed resolution yields nil, which the ip_match
// strategy treats as inconclusive-but-safe.
func (c *Checker) resolveHome(ctx context.Context, host string) []net.IP {
	host = trimmed(host)
	if host == "" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}
	}
	ips, err := c.lookupIP(ctx, "ip", host)
	if err != nil {
		c.log.Errorf("dyndns resolution failed for %s: %v", host, err)
		return nil
	}
	return ips
}

func buildDetails(v4, v6 Snapshot) string {
	snap := v4
	if snap.IP == "" {
		snap = v6
	}
	if snap.IP == "" {
		if snap.Err != "" {
			return snap.Err
		}
		return "no public address"
	}
	return fmt.Sprintf("%s - %s", snap.Country, snap.ISP)
}
