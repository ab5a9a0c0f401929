package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/routing"
)

// State is the externally visible aggregate verdict.
type State string

const (
	StateInitializing State = "initializing"
	StateScanning     State = "scanning"
	StateSafe         State = "safe"
	StateUnsafe       State = "unsafe"
	StatePaused       State = "paused"
)

// Status is the single externally visible contract. It is rebuilt
// atomically on every tick; readers never observe a torn mix of old and
// new per-check fields. A nil per-check pointer means the check was
// disabled or has not produced data yet.
type Status struct {
	State         State
	RoutingSecure *bool
	PublicSecure  *bool
	DNSSecure     *bool
	Details       string
	Country       string
	PausedUntil   time.Time
}

// evaluateRouting applies the allow-list to the currently active default
// routes. Runs synchronously inside the tick; each underlying command is
// individually timeout-bounded so it cannot stall the loop.
func (o *Orchestrator) evaluateRouting(ctx context.Context, cfg *config.Config) (bool, string) {
	allowed := cfg.Routing.AllowedInterfaces
	if len(allowed) == 0 {
		return false, "Not Configured"
	}

	obs := o.routes.CurrentRoutes(ctx, routing.Mode(cfg.Routing.DetectionMode))
	if len(obs) == 0 {
		// A dead network must never be rendered as safe.
		return false, "No Network"
	}

	var active []string
	for _, r := range obs {
		if !nameAllowed(allowed, r.Name) {
			o.log.Warnf("unsafe: traffic for %s goes through %q (not in allow list)", r.Family, r.Name)
			return false, fmt.Sprintf("Leak: %s (%s)", r.Name, r.Family)
		}
		active = append(active, fmt.Sprintf("%s (%s)", r.Name, r.Family))
	}
	return true, strings.Join(active, ", ")
}

func nameAllowed(allowed []string, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimSpace(a)) == name {
			return true
		}
	}
	return false
}

func joinDetails(details []string) string {
	return strings.Join(details, "; ")
}
