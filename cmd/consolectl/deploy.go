package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sshcollectorpro/consolepilot/internal/service"
)

func newDeployCmd(opts *options) *cobra.Command {
	var (
		target   targetFlags
		commands []string
		file     string
		req      service.DeployRequest
	)
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Apply a command block in configuration mode",
		Long:  "Apply a command block in configuration mode. Without --commit the changes are discarded on exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev := service.DeployDevice{DeviceTarget: target.dev, Commands: commands}
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				dev.ConfigDeploy = string(b)
			}
			req.Devices = []service.DeployDevice{dev}

			svc := service.NewDeployService(opts.cfg, nil, nil)
			if err := svc.Start(cmd.Context()); err != nil {
				return err
			}
			defer svc.Stop()

			resp, err := svc.Execute(cmd.Context(), &req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return err
			}
			if r := resp.Results[0]; !r.Success {
				return fmt.Errorf("%s: %s", r.ErrorKind, r.Error)
			}
			return nil
		},
	}
	target.bind(cmd)
	f := cmd.Flags()
	f.StringArrayVarP(&commands, "command", "e", nil, "configuration command (repeatable)")
	f.StringVar(&file, "file", "", "read the command block from a file")
	f.BoolVar(&req.Commit, "commit", false, "commit the changes")
	f.BoolVar(&req.Save, "save", false, "save to the startup configuration after commit")
	f.BoolVar(&req.FetchAfter, "fetch", false, "print the configuration after applying")
	f.StringVar(&req.Format, "format", "", "format for --fetch")
	return cmd
}
