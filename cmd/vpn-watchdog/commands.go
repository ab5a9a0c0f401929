package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/vpn-watchdog/internal/core"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitor loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, l, closeFn, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeFn()

			orch := core.New(l, mgr)
			orch.SetStatusListener(func(st core.Status) {
				renderStatus(os.Stdout, st)
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch.Run(ctx)
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run all enabled checks once and print the verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, l, closeFn, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeFn()

			orch := core.New(l, mgr)
			orch.ForceRecheck()

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			// Tick until the async checks have produced data (or the
			// wait budget runs out and scanning is reported as-is).
			st := orch.Tick(ctx)
			for st.State == core.StateScanning && ctx.Err() == nil {
				time.Sleep(time.Second)
				st = orch.Tick(ctx)
			}

			renderStatus(os.Stdout, st)
			if st.State != core.StateSafe {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 45*time.Second, "how long to wait for async checks")
	return cmd
}

func newInterfacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces",
		Short: "List network interfaces for allow-list configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, l, closeFn, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeFn()

			orch := core.New(l, mgr)
			ifaces, err := orch.ListInterfaces(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list interfaces: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tIP\tID")
			for _, i := range ifaces {
				fmt.Fprintf(w, "%s\t%s\t%s\n", i.Name, i.IP, i.ID)
			}
			return w.Flush()
		},
	}
}

func renderStatus(out *os.File, st core.Status) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), st.State)
	if st.Country != "" {
		line += " | " + st.Country
	}
	if st.Details != "" {
		line += " | " + st.Details
	}
	if st.State == core.StatePaused {
		line += " until " + st.PausedUntil.Format("15:04:05")
	}
	fmt.Fprintln(out, line)
}
