//go:build !windows

package dnsleak

import (
	"context"

	"github.com/miekg/dns"

	"github.com/user/vpn-watchdog/internal/runner"
)

// localResolvers lists the resolvers the system is configured to use.
// Display-only context for the leak report; best effort.
func localResolvers(ctx context.Context, run *runner.Runner) []string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil
	}
	return cfg.Servers
}
