package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sshcollectorpro/consolepilot/simulate"
)

func newSimulateCmd(opts *options) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve simulated VyOS and NX-OS consoles until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = opts.cfg.Server.SimulateConfig
			}
			sc, err := simulate.LoadConfig(path)
			if err != nil {
				return err
			}
			mgr, err := simulate.Start(sc)
			if err != nil {
				return err
			}
			defer mgr.Stop()

			for _, ns := range mgr.Namespaces() {
				addr, _ := mgr.Addr(ns)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", ns, sc.Namespace[ns].Protocol, addr)
			}
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "simulator definition (defaults to server.simulate_config)")
	return cmd
}
