//go:build windows

package dnsleak

import (
	"context"
	"strings"

	"github.com/user/vpn-watchdog/internal/runner"
)

// localResolvers lists the resolvers the system is configured to use.
// Display-only context for the leak report; best effort.
func localResolvers(ctx context.Context, run *runner.Runner) []string {
	out, err := run.Output(ctx, "powershell", "-NoProfile", "-Command",
		"Get-DnsClientServerAddress -AddressFamily IPv4,IPv6 | "+
			"Select-Object -ExpandProperty ServerAddresses")
	if err != nil {
		return nil
	}

	var servers []string
	seen := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		s := strings.TrimSpace(line)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		servers = append(servers, s)
	}
	return servers
}
