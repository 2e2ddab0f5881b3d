package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sshcollectorpro/consolepilot/addone/interact"
)

func newProfilesCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "profiles [platform...]",
		Short: "Show the registered device profiles with configured overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []interact.ProfileInfo
			if len(args) == 0 {
				all, err := interact.DescribeAll(opts.cfg.Console.OverridesFor)
				if err != nil {
					return err
				}
				infos = all
			}
			for _, name := range args {
				info, err := interact.Describe(name, opts.cfg.Console.OverridesFor(name))
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}

			out := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(infos)
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			default:
				return fmt.Errorf("unknown output %q", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "yaml or json")
	return cmd
}
