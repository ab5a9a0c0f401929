// Package core aggregates the routing, public identity and DNS leak
// checks into one coherent security verdict.
package core

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/dnsleak"
	"github.com/user/vpn-watchdog/internal/publicip"
	"github.com/user/vpn-watchdog/internal/routing"
	"github.com/user/vpn-watchdog/internal/runner"
)

// panicCooldown is slept after an unexpected tick failure so a single
// bad tick cannot spin the monitor.
const panicCooldown = 5 * time.Second

// routeSource is what the orchestrator needs from the routing detector.
type routeSource interface {
	CurrentRoutes(ctx context.Context, mode routing.Mode) []routing.RouteObservation
	ListInterfaces(ctx context.Context) ([]routing.InterfaceInfo, error)
}

// publicSource is what the orchestrator needs from the identity checker.
type publicSource interface {
	TriggerAsync()
	State() publicip.State
	HasValidData() bool
}

// dnsSource is what the orchestrator needs from the leak detector.
type dnsSource interface {
	TriggerAsync()
	State() dnsleak.State
	HasValidData() bool
}

// StatusListener is invoked with every freshly published status.
type StatusListener func(Status)

// Orchestrator owns the three checks, triggers the asynchronous ones on
// their own cadence without ever blocking on their network I/O, and
// publishes a single atomically rebuilt aggregate per tick.
type Orchestrator struct {
	mu     sync.Mutex
	cfg    *config.Manager
	log    log.Interface
	routes routeSource
	public publicSource
	leak   dnsSource

	paused        bool
	pauseUntil    time.Time
	lastPublicRun time.Time
	lastDNSRun    time.Time
	current       Status
	listener      StatusListener

	now func() time.Time
}

// New builds an Orchestrator with real checkers behind it.
func New(l log.Interface, cfg *config.Manager) *Orchestrator {
	run := runner.New(l, 0)
	return &Orchestrator{
		cfg:     cfg,
		log:     l,
		routes:  routing.NewDetector(l, run),
		public:  publicip.NewChecker(l, cfg),
		leak:    dnsleak.NewChecker(l, cfg, run),
		current: Status{State: StateInitializing},
		now:     time.Now,
	}
}

// SetStatusListener registers a callback fired on every published status.
func (o *Orchestrator) SetStatusListener(fn StatusListener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listener = fn
}

// Status returns the currently published aggregate.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// ListInterfaces exposes the adapters for allow-list configuration.
func (o *Orchestrator) ListInterfaces(ctx context.Context) ([]routing.InterfaceInfo, error) {
	return o.routes.ListInterfaces(ctx)
}

// Pause suspends acting on results for d. The status flips immediately,
// independent of check results; in-flight checks are not aborted.
func (o *Orchestrator) Pause(d time.Duration) {
	o.mu.Lock()
	o.paused = true
	o.pauseUntil = o.now().Add(d)
	st := Status{State: StatePaused, PausedUntil: o.pauseUntil}
	o.current = st
	fn := o.listener
	o.mu.Unlock()

	o.log.Infof("paused until %s", st.PausedUntil.Format(time.RFC3339))
	if fn != nil {
		fn(st)
	}
}

// Resume ends a pause early; the next tick recomputes a fresh verdict.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	o.paused = false
	o.pauseUntil = time.Time{}
	o.mu.Unlock()
	o.log.Infof("monitoring resumed")
}

// ForceRecheck clears the per-check interval bookkeeping so the next
// tick re-triggers every enabled check immediately. Used after settings
// changes.
func (o *Orchestrator) ForceRecheck() {
	o.mu.Lock()
	o.lastPublicRun = time.Time{}
	o.lastDNSRun = time.Time{}
	o.mu.Unlock()
}

// Tick runs one evaluation cycle and publishes the resulting aggregate.
func (o *Orchestrator) Tick(ctx context.Context) Status {
	st := o.compute(ctx)

	o.mu.Lock()
	prev := o.current.State
	o.current = st
	fn := o.listener
	o.mu.Unlock()

	if prev != st.State {
		o.log.Infof("status change: %s -> %s", prev, st.State)
	}
	if fn != nil {
		fn(st)
	}
	return st
}

// Run ticks until ctx is cancelled. Unexpected per-tick failures are
// logged and followed by a cooldown instead of crashing the monitor.
func (o *Orchestrator) Run(ctx context.Context) {
	o.log.Infof("monitor loop started")
	for {
		o.safeTick(ctx)

		interval := time.Duration(o.cfg.Get().CheckInterval) * time.Second
		if interval <= 0 {
			interval = 5 * time.Second
		}

		select {
		case <-ctx.Done():
			o.log.Infof("monitor loop stopped")
			return
		case <-time.After(interval):
		}
	}
}

func (o *Orchestrator) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Errorf("tick failed: %v", r)
			sleepCtx(ctx, panicCooldown)
		}
	}()
	o.Tick(ctx)
}

func (o *Orchestrator) compute(ctx context.Context) Status {
	cfg := o.cfg.Get()
	now := o.now()

	o.mu.Lock()
	if o.paused {
		if now.After(o.pauseUntil) {
			o.paused = false
			o.pauseUntil = time.Time{}
			o.log.Infof("pause expired, monitoring resumed")
		} else {
			until := o.pauseUntil
			o.mu.Unlock()
			return Status{State: StatePaused, PausedUntil: until}
		}
	}
	o.mu.Unlock()

	// Nothing can be judged until the user approves interfaces.
	if cfg.Routing.Enabled && len(cfg.Routing.AllowedInterfaces) == 0 {
		return Status{State: StateInitializing, Details: "No interfaces configured"}
	}

	o.triggerDue(cfg, now)

	var (
		st      Status
		secure  = true
		pending bool
		details []string
	)

	if cfg.Routing.Enabled {
		ok, detail := o.evaluateRouting(ctx, cfg)
		st.RoutingSecure = &ok
		if !ok {
			secure = false
		}
		if detail != "" {
			details = append(details, detail)
		}
	}

	if cfg.Public.Enabled {
		ps := o.public.State()
		if ps.Valid {
			ok := ps.Secure
			st.PublicSecure = &ok
			if !ok {
				secure = false
			}
			st.Country = ps.IPv4.Country
			if st.Country == "" {
				st.Country = ps.IPv6.Country
			}
			if ps.Details != "" {
				details = append(details, ps.Details)
			}
		} else {
			pending = true
		}
	}

	if cfg.DNS.Enabled {
		ds := o.leak.State()
		if ds.Valid {
			ok := ds.Secure
			st.DNSSecure = &ok
			if !ok {
				secure = false
				details = append(details, "DNS leak detected")
			}
		} else {
			pending = true
		}
	}

	switch {
	case !secure:
		st.State = StateUnsafe
	case pending:
		st.State = StateScanning
	default:
		// Also covers the nothing-enabled case: with no check to
		// violate, the verdict is safe.
		st.State = StateSafe
	}
	st.Details = joinDetails(details)
	return st
}

// triggerDue fires the asynchronous checks whose own interval elapsed.
// Fire-and-forget: an already running check ignores the trigger.
func (o *Orchestrator) triggerDue(cfg *config.Config, now time.Time) {
	var firePublic, fireDNS bool

	o.mu.Lock()
	if cfg.Public.Enabled &&
		now.Sub(o.lastPublicRun) >= time.Duration(cfg.Public.Interval)*time.Second {
		o.lastPublicRun = now
		firePublic = true
	}
	if cfg.DNS.Enabled &&
		now.Sub(o.lastDNSRun) >= time.Duration(cfg.DNS.Interval)*time.Second {
		o.lastDNSRun = now
		fireDNS = true
	}
	o.mu.Unlock()

	if firePublic {
		o.public.TriggerAsync()
	}
	if fireDNS {
		o.leak.TriggerAsync()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
