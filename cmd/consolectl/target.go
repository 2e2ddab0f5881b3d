package main

import (
	"github.com/spf13/cobra"

	"github.com/sshcollectorpro/consolepilot/internal/service"
)

// targetFlags 单台设备的连接参数
type targetFlags struct {
	dev service.DeviceTarget
}

func (t *targetFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&t.dev.DeviceIP, "host", "127.0.0.1", "console server address")
	f.IntVar(&t.dev.Port, "port", 0, "console port (23 for telnet, 22 for ssh when 0)")
	f.StringVarP(&t.dev.DevicePlatform, "platform", "p", "", "device platform (vyos, nxos)")
	f.StringVar(&t.dev.Protocol, "protocol", "", "telnet or ssh")
	f.StringVarP(&t.dev.UserName, "user", "u", "", "console login user")
	f.StringVar(&t.dev.Password, "password", "", "console login password")
	f.StringVar(&t.dev.SSHUser, "ssh-user", "", "ssh transport user when different from the console user")
	f.StringVar(&t.dev.SSHPassword, "ssh-password", "", "ssh transport password")
	f.StringVar(&t.dev.SSHKeyFile, "ssh-key", "", "ssh private key file")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("user")
}
