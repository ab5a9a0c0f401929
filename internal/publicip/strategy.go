package publicip

import (
	"net"
	"strings"

	"github.com/user/vpn-watchdog/internal/config"
)

// evaluateFamily applies the configured leak strategy to one family's
// snapshot. A family without a detected address is vacuously secure: the
// fail-closed rule applies to detected identities, not missing ones.
func evaluateFamily(cfg *config.Config, snap Snapshot, homeIPs []net.IP) bool {
	if snap.IP == "" {
		return true
	}

	switch cfg.Public.Strategy {
	case config.StrategyCountry:
		return !countryMatches(cfg.Home.Country, snap.Country)

	case config.StrategyISP:
		return !ispMatches(cfg.Home.ISP, snap.ISP)

	case config.StrategyCombined:
		// Unsafe only when BOTH signals point home. A single match is
		// treated as inconclusive and stays safe.
		return !(countryMatches(cfg.Home.Country, snap.Country) &&
			ispMatches(cfg.Home.ISP, snap.ISP))

	case config.StrategyIPMatch:
		for _, ip := range homeIPs {
			if ip.String() == snap.IP {
				return false
			}
		}
		return true
	}

	return true
}

func countryMatches(home, current string) bool {
	home = strings.ToUpper(trimmed(home))
	current = strings.ToUpper(trimmed(current))
	return home != "" && current != "" && home == current
}

func ispMatches(home, current string) bool {
	home = strings.ToLower(trimmed(home))
	current = strings.ToLower(trimmed(current))
	return home != "" && current != "" && strings.Contains(current, home)
}

func trimmed(s string) string { return strings.TrimSpace(s) }
