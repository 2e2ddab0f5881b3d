package main

// 引入控制台平台插件，触发各平台的 init() 完成注册
import (
	_ "github.com/sshcollectorpro/consolepilot/addone/interact/platforms/nxos"
	_ "github.com/sshcollectorpro/consolepilot/addone/interact/platforms/vyos"
)
