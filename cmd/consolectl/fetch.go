package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sshcollectorpro/consolepilot/internal/service"
	"github.com/sshcollectorpro/consolepilot/pkg/console"
)

func newFetchCmd(opts *options) *cobra.Command {
	var (
		target     targetFlags
		format     string
		transcript string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Log in and print the device configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.cfg.Console.TaskTimeout)
			defer cancel()

			var content string
			runner := service.NewRunner(opts.cfg)
			err := runner.Run(ctx, target.dev, "consolectl", opts.cfg.Console.Retries, func(sess *console.Session) error {
				if transcript != "" {
					defer func() {
						_ = os.WriteFile(transcript, sess.Transcript().Bytes(), 0o644)
					}()
				}
				if err := sess.Login(target.dev.UserName, target.dev.Password); err != nil {
					return err
				}
				var err error
				if content, err = sess.GetConfiguration(console.Format(format)); err != nil {
					return err
				}
				return sess.Logout()
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), content)
			return err
		},
	}
	target.bind(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(console.FormatPlain), "plain, commands or json")
	cmd.Flags().StringVar(&transcript, "transcript", "", "write the raw session transcript to this file")
	return cmd
}
