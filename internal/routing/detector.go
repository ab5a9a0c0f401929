// Package routing determines which network interfaces carry default
// traffic right now. It never modifies the routing table.
package routing

import (
	"context"
	"net"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/apex/log"

	"github.com/user/vpn-watchdog/internal/netutil"
	"github.com/user/vpn-watchdog/internal/runner"
)

// Mode selects the route discovery strategy.
type Mode string

const (
	ModeAuto        Mode = "auto"
	ModePerformance Mode = "performance"
	ModePrecision   Mode = "precision"
)

// Fixed probe addresses for the precision strategy. Asking the OS which
// interface would carry traffic to a public address follows split-tunnel
// setups correctly, unlike a plain default-route read.
const (
	probeV4 = "1.1.1.1"
	probeV6 = "2606:4700:4700::1111"
)

// RouteObservation is one discovered default route. Ephemeral; recomputed
// on every check.
type RouteObservation struct {
	RawID  string
	Name   string
	Family netutil.Family
}

// InterfaceInfo describes one adapter for the allow-list configuration UI.
type InterfaceInfo struct {
	Name string
	IP   string
	ID   string
}

// Detector discovers the interfaces carrying default traffic.
type Detector struct {
	mu    sync.Mutex
	run   *runner.Runner
	log   log.Interface
	names map[int]string // ifindex -> display name, lazily filled
}

// NewDetector creates a Detector using run for OS command invocations.
func NewDetector(l log.Interface, run *runner.Runner) *Detector {
	return &Detector{
		run:   run,
		log:   l,
		names: make(map[int]string),
	}
}

// CurrentRoutes returns the default routes for every active address
// family. A family without a route is omitted entirely: an IPv6-less
// network is not a leak, it simply does not exist right now.
func (d *Detector) CurrentRoutes(ctx context.Context, mode Mode) []RouteObservation {
	switch d.resolveMode(mode) {
	case ModePerformance:
		return d.tableRoutes(ctx)
	default:
		return d.probeRoutes(ctx)
	}
}

func (d *Detector) resolveMode(mode Mode) Mode {
	if mode == ModePerformance || mode == ModePrecision {
		return mode
	}
	// Spawning powershell for each probe is expensive on Windows, so auto
	// reads the route table there. Elsewhere the per-probe command is
	// cheap and tracks split tunnels better.
	if runtime.GOOS == "windows" {
		return ModePerformance
	}
	return ModePrecision
}

func (d *Detector) probeRoutes(ctx context.Context) []RouteObservation {
	probes := []struct {
		target string
		family netutil.Family
	}{
		{probeV4, netutil.FamilyV4},
		{probeV6, netutil.FamilyV6},
	}

	var routes []RouteObservation
	for _, p := range probes {
		name, err := d.routeInterfaceFor(ctx, p.target, p.family)
		if err != nil || name == "" {
			// No route for this family is a valid state (e.g. no IPv6 stack).
			d.log.Debugf("no %s route to %s: %v", p.family, p.target, err)
			continue
		}
		routes = append(routes, RouteObservation{RawID: name, Name: name, Family: p.family})
	}
	return routes
}

// ListInterfaces returns all adapters with a display name and primary
// address. It also force-refreshes the name cache.
func (d *Detector) ListInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.names = make(map[int]string, len(ifaces))
	for _, iface := range ifaces {
		d.names[iface.Index] = iface.Name
	}
	d.mu.Unlock()

	var out []InterfaceInfo
	for _, iface := range ifaces {
		out = append(out, InterfaceInfo{
			Name: iface.Name,
			IP:   primaryAddress(iface),
			ID:   strconv.Itoa(iface.Index),
		})
	}
	return out, nil
}

// displayName resolves an interface index via the cache, refilling it
// once on a miss so freshly appeared adapters (VPN up/down) resolve.
func (d *Detector) displayName(index int) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if name, ok := d.names[index]; ok {
		return name
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		d.log.Debugf("interface listing failed: %v", err)
		return ""
	}
	d.names = make(map[int]string, len(ifaces))
	for _, iface := range ifaces {
		d.names[iface.Index] = iface.Name
	}
	return d.names[index]
}

func primaryAddress(iface net.Interface) string {
	addrs, err := iface.Addrs()
	if err != nil {
		return "No IP"
	}

	var v6 string
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
		if v6 == "" {
			// Strip the %zone suffix for cleaner display.
			v6 = strings.SplitN(ipnet.IP.String(), "%", 2)[0]
		}
	}
	if v6 != "" {
		return v6
	}
	return "No IP"
}
