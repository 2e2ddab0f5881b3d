package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/sshcollectorpro/consolepilot/addone/interact/platforms/nxos"
	_ "github.com/sshcollectorpro/consolepilot/addone/interact/platforms/vyos"
	"github.com/sshcollectorpro/consolepilot/internal/config"
	"github.com/sshcollectorpro/consolepilot/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "consolectl:", err)
		os.Exit(1)
	}
}

// options 全局参数
type options struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "consolectl",
		Short:         "Drive VyOS and NX-OS consoles over telnet or SSH",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (defaults only when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newFetchCmd(opts))
	root.AddCommand(newDeployCmd(opts))
	root.AddCommand(newProfilesCmd(opts))
	root.AddCommand(newSimulateCmd(opts))
	return root
}

func (o *options) load() error {
	if err := logger.Init(logger.Config{Level: o.logLevel, Output: "stderr"}); err != nil {
		return err
	}
	if o.configPath == "" {
		o.cfg = config.Default()
		return nil
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}
