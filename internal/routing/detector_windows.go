//go:build windows

package routing

import (
	"context"
	"fmt"

	"github.com/user/vpn-watchdog/internal/netutil"
)

// routeInterfaceFor asks Windows which interface would carry traffic to
// target (precision strategy). Find-NetRoute handles IPv6 automatically
// when the remote address is in v6 format.
func (d *Detector) routeInterfaceFor(ctx context.Context, target string, family netutil.Family) (string, error) {
	ps := fmt.Sprintf("Find-NetRoute -RemoteIP \"%s\" | Select-Object InterfaceAlias | ConvertTo-Json", target)
	out, err := d.run.Output(ctx, "powershell", "-NoProfile", "-Command", ps)
	if err != nil {
		return "", err
	}
	return parseFindNetRouteAlias(out)
}

// tableRoutes reads the default routes of both families with a single
// powershell invocation (Windows performance strategy).
func (d *Detector) tableRoutes(ctx context.Context) []RouteObservation {
	ps := "Get-NetRoute -DestinationPrefix '0.0.0.0/0','::/0' -ErrorAction SilentlyContinue | " +
		"Select-Object DestinationPrefix, InterfaceAlias | ConvertTo-Json"
	out, err := d.run.Output(ctx, "powershell", "-NoProfile", "-Command", ps)
	if err != nil {
		d.log.Debugf("route table query failed: %v", err)
		return nil
	}

	routes, err := parseNetRouteEntries(out)
	if err != nil {
		d.log.Debugf("route table parse failed: %v", err)
		return nil
	}

	// Keep one observation per family, route table order wins.
	var (
		out2   []RouteObservation
		haveV4 bool
		haveV6 bool
	)
	for _, r := range routes {
		if r.Family == netutil.FamilyV4 && !haveV4 {
			out2 = append(out2, r)
			haveV4 = true
		}
		if r.Family == netutil.FamilyV6 && !haveV6 {
			out2 = append(out2, r)
			haveV6 = true
		}
	}
	return out2
}
