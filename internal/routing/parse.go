package routing

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/user/vpn-watchdog/internal/netutil"
)

var (
	ipRouteDevRe  = regexp.MustCompile(`dev\s+(\S+)`)
	routeGetIfcRe = regexp.MustCompile(`interface:\s+(\S+)`)
)

// parseIPRouteDev extracts the device from `ip route get` output, e.g.
// "1.1.1.1 via 192.168.1.1 dev eth0 src 192.168.1.5".
func parseIPRouteDev(out string) (string, error) {
	m := ipRouteDevRe.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("no dev field in route output")
	}
	return m[1], nil
}

// parseRouteGetInterface extracts the interface from BSD `route get`
// output, e.g. "  interface: en0".
func parseRouteGetInterface(out string) (string, error) {
	m := routeGetIfcRe.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("no interface field in route output")
	}
	return m[1], nil
}

// parseFindNetRouteAlias extracts InterfaceAlias from Find-NetRoute JSON.
// PowerShell emits a bare object for a single route and an array for
// several; both shapes are accepted.
func parseFindNetRouteAlias(out string) (string, error) {
	type entry struct {
		InterfaceAlias string `json:"InterfaceAlias"`
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("empty route output")
	}

	if strings.HasPrefix(out, "[") {
		var entries []entry
		if err := json.Unmarshal([]byte(out), &entries); err != nil {
			return "", fmt.Errorf("failed to parse route JSON: %w", err)
		}
		if len(entries) == 0 || entries[0].InterfaceAlias == "" {
			return "", fmt.Errorf("no interface alias in route output")
		}
		return entries[0].InterfaceAlias, nil
	}

	var e entry
	if err := json.Unmarshal([]byte(out), &e); err != nil {
		return "", fmt.Errorf("failed to parse route JSON: %w", err)
	}
	if e.InterfaceAlias == "" {
		return "", fmt.Errorf("no interface alias in route output")
	}
	return e.InterfaceAlias, nil
}

// parseNetRouteEntries parses Get-NetRoute JSON into observations, one
// per default-route entry, deriving the family from the prefix.
func parseNetRouteEntries(out string) ([]RouteObservation, error) {
	type entry struct {
		DestinationPrefix string `json:"DestinationPrefix"`
		InterfaceAlias    string `json:"InterfaceAlias"`
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return nil, fmt.Errorf("empty route output")
	}

	var entries []entry
	if strings.HasPrefix(out, "[") {
		if err := json.Unmarshal([]byte(out), &entries); err != nil {
			return nil, fmt.Errorf("failed to parse route JSON: %w", err)
		}
	} else {
		var e entry
		if err := json.Unmarshal([]byte(out), &e); err != nil {
			return nil, fmt.Errorf("failed to parse route JSON: %w", err)
		}
		entries = []entry{e}
	}

	var routes []RouteObservation
	for _, e := range entries {
		if e.InterfaceAlias == "" {
			continue
		}
		family := netutil.FamilyV4
		if strings.Contains(e.DestinationPrefix, ":") {
			family = netutil.FamilyV6
		}
		routes = append(routes, RouteObservation{
			RawID:  e.InterfaceAlias,
			Name:   e.InterfaceAlias,
			Family: family,
		})
	}
	return routes, nil
}
