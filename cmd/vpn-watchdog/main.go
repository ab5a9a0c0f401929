// VPN Watchdog - verifies that traffic actually leaves through the
// expected VPN path instead of leaking through the physical interface,
// a different public identity, or the home ISP's resolver.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/user/vpn-watchdog/internal/config"
	"github.com/user/vpn-watchdog/internal/logger"
	"github.com/user/vpn-watchdog/internal/version"
)

var (
	flagConfig  string
	flagVerbose bool
	flagNoColor bool
)

func main() {
	root := &cobra.Command{
		Use:           "vpn-watchdog",
		Short:         "Monitor whether your traffic really leaves through the VPN",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "plain log output")

	root.AddCommand(newRunCmd(), newCheckCmd(), newInterfacesCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and wires the logger.
func bootstrap() (*config.Manager, log.Interface, func(), error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}

	mgr := config.NewManager(path)
	if err := mgr.Load(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := mgr.Get().LogLevel
	if flagVerbose {
		level = "debug"
	}
	l, logPath, closeFn, err := logger.Setup(logger.Options{
		Level:   level,
		LogDir:  filepath.Dir(path),
		NoColor: flagNoColor,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	l.Debugf("vpn-watchdog %s, config %s, log %s", version.Version, path, logPath)
	return mgr, l, closeFn, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Version)
		},
	}
}
