//go:build darwin

package routing

import (
	"context"

	"golang.org/x/net/route"
	"golang.org/x/sys/unix"

	"github.com/user/vpn-watchdog/internal/netutil"
)

// routeInterfaceFor asks the OS which interface would carry traffic to
// target (Darwin precision strategy). IPv6 lookups need an explicit flag.
func (d *Detector) routeInterfaceFor(ctx context.Context, target string, family netutil.Family) (string, error) {
	args := []string{"get", target}
	if family == netutil.FamilyV6 {
		args = []string{"get", "-inet6", target}
	}
	out, err := d.run.Output(ctx, "route", args...)
	if err != nil {
		return "", err
	}
	return parseRouteGetInterface(out)
}

// tableRoutes reads the routing information base directly and picks the
// default entry for each family (Darwin performance strategy).
func (d *Detector) tableRoutes(ctx context.Context) []RouteObservation {
	rib, err := route.FetchRIB(unix.AF_UNSPEC, route.RIBTypeRoute, 0)
	if err != nil {
		d.log.Debugf("RIB fetch failed: %v", err)
		return nil
	}
	msgs, err := route.ParseRIB(route.RIBTypeRoute, rib)
	if err != nil {
		d.log.Debugf("RIB parse failed: %v", err)
		return nil
	}

	var (
		routes []RouteObservation
		haveV4 bool
		haveV6 bool
	)
	for _, msg := range msgs {
		rm, ok := msg.(*route.RouteMessage)
		if !ok || rm.Flags&unix.RTF_GATEWAY == 0 {
			continue
		}
		if len(rm.Addrs) <= unix.RTAX_DST || rm.Addrs[unix.RTAX_DST] == nil {
			continue
		}

		var family netutil.Family
		switch dst := rm.Addrs[unix.RTAX_DST].(type) {
		case *route.Inet4Addr:
			if dst.IP != [4]byte{} || haveV4 {
				continue
			}
			family = netutil.FamilyV4
		case *route.Inet6Addr:
			if dst.IP != [16]byte{} || haveV6 {
				continue
			}
			family = netutil.FamilyV6
		default:
			continue
		}

		name := d.displayName(rm.Index)
		if name == "" {
			continue
		}
		routes = append(routes, RouteObservation{RawID: name, Name: name, Family: family})
		if family == netutil.FamilyV4 {
			haveV4 = true
		} else {
			haveV6 = true
		}
	}
	return routes
}
