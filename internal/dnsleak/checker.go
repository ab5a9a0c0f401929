// Package dnsleak detects whether the resolver actually answering this
// host's DNS queries belongs to the home ISP, using remote leak-test
// services and the unique-subdomain resolution trick.
package dnsleak

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/logger"
	"github.com/user/vpn-watchdog/internal/runner"
)

// checkTimeout bounds one full async probe run.
const checkTimeout = 90 * time.Second

// Server is one DNS resolver observed by the leak-test service.
type Server struct {
	IP      string
	Country string
	ASN     string // usually carries the operator / ISP name
}

// State is a copy of the checker's published result. The server list is
// fully replaced on every run, never merged.
type State struct {
	Servers        []Server
	Count          int
	Secure         bool
	Valid          bool
	LocalResolvers []string
	Err            string
}

// Checker runs the DNS leak probe asynchronously. At most one probe is
// in flight at a time.
type Checker struct {
	mu       sync.Mutex
	cfg      *config.Manager
	log      log.Interface
	run      *runner.Runner
	checking bool
	state    State

	// probe is injectable for tests; defaults to the remote services.
	probe func(ctx context.Context) ([]Server, error)
}

// NewChecker creates a Checker. run is used for resolver enumeration on
// platforms without a readable resolv.conf.
func NewChecker(l log.Interface, cfg *config.Manager, run *runner.Runner) *Checker {
	c := &Checker{
		cfg: cfg,
		log: l,
		run: run,
	}
	c.probe = c.remoteProbe
	return c
}

// TriggerAsync starts a probe in the background. A no-op while one is
// already running.
func (c *Checker) TriggerAsync() {
	c.mu.Lock()
	if c.checking {
		c.mu.Unlock()
		return
	}
	c.checking = true
	c.mu.Unlock()

	logger.SafeGo(c.log, "dnsleak.check", c.runCheck)
}

// State returns a copy of the last published result.
func (c *Checker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.state
	out.Servers = append([]Server(nil), c.state.Servers...)
	out.LocalResolvers = append([]string(nil), c.state.LocalResolvers...)
	return out
}

// HasValidData reports whether at least one probe has completed.
func (c *Checker) HasValidData() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Valid
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

	servers, err := c.probe(ctx)
	locals := localResolvers(ctx, c.run)

	next := State{
		Servers:        servers,
		Count:          len(servers),
		LocalResolvers: locals,
		Valid:          true,
	}
	if err != nil {
		c.log.Errorf("dns leak probe failed: %v", err)
		next.Err = err.Error()
	}
	if len(servers) == 0 && err == nil {
		c.log.Warnf("dns check: no servers detected (timeout or blocked?)")
	}

	next.Secure = evaluate(cfg, servers, c.log)

	c.mu.Lock()
	c.state = next
	c.mu.Unlock()

	verdict := "safe"
	if !next.Secure {
		verdict = "LEAK"
	}
	c.log.Infof("dns check: %d servers detected -> %s", next.Count, verdict)
}

// evaluate flags unsafe if any reporting resolver belongs to the home
// ISP. With the alert enabled but no home ISP configured nothing can be
// proven, so the verdict defaults to safe: inconclusive is not unsafe.
func evaluate(cfg *config.Config, servers []Server, l log.Interface) bool {
	if !cfg.DNS.AlertOnHomeISP {
		return true
	}

	homeISP := strings.ToLower(strings.TrimSpace(cfg.Home.ISP))
	if homeISP == "" {
		l.Warnf("dns guard: alert_on_home_isp enabled but no home ISP configured")
		return true
	}

	for _, srv := range servers {
		if strings.Contains(strings.ToLower(srv.ASN), homeISP) {
			l.Warnf("dns leak: home ISP resolver detected: %s (%s)", srv.IP, srv.ASN)
			return false
		}
	}
	return true
}
