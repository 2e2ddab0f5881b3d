package interact

import (
	"strings"

	"github.com/sshcollectorpro/consolepilot/pkg/console"
)

// InteractDefaults 平台级运行参数
type InteractDefaults struct {
	Timeout    int `json:"timeout" yaml:"timeout"`       // 单台设备任务超时（秒）
	Retries    int `json:"retries" yaml:"retries"`       // 登录失败重试次数
	Concurrent int `json:"concurrent" yaml:"concurrent"` // 同平台设备并发数
}

// CommandTransformInput 输入命令块与元数据
type CommandTransformInput struct {
	Commands []string
	Metadata map[string]interface{}
}

// CommandTransformOutput 转换后的命令
type CommandTransformOutput struct {
	Commands []string
}

// InteractPlugin 控制台平台插件
type InteractPlugin interface {
	// Name 平台名称（如 vyos、nxos）
	Name() string
	// Profile 平台的设备描述（提示符、命令、超时）
	Profile() console.Profile
	// Defaults 平台默认运行参数
	Defaults() InteractDefaults
	// TransformCommands 下发前整理命令块（去掉注释和空行等）
	TransformCommands(in CommandTransformInput) CommandTransformOutput
}

// StripCommands 去掉空行以及以 comment 前缀开头的行，保留其余行原样（仅去除首尾空白）
func StripCommands(commands []string, comment string) []string {
	out := make([]string, 0, len(commands))
	for _, c := range commands {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if comment != "" && strings.HasPrefix(c, comment) {
			continue
		}
		out = append(out, c)
	}
	return out
}
