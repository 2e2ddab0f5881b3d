package vyos

import (
	"regexp"
	"time"

	"github.com/sshcollectorpro/consolepilot/addone/interact"
	"github.com/sshcollectorpro/consolepilot/pkg/console"
)

// Name 平台名称
const Name = "vyos"

var (
	operPrompt   = regexp.MustCompile(`\w+@\w+:.+\$ $`)
	configPrompt = regexp.MustCompile(`\w+@\w+\# $`)
	loginPrompt  = regexp.MustCompile(`\w+ login: $`)
	password     = regexp.MustCompile(`Password:`)
	editMarker   = regexp.MustCompile(`^\[edit\]$`)
)

// Plugin VyOS 控制台插件
type Plugin struct{}

func (p *Plugin) Name() string { return Name }

// Profile VyOS 的提示符与命令
// 提交与保存都在配置模式内完成；Ctrl-D 注销
func (p *Plugin) Profile() console.Profile {
	return console.Profile{
		Name: Name,
		Prompts: []console.PromptRule{
			{Pattern: operPrompt, Mode: console.ModeOperational},
			{Pattern: configPrompt, Mode: console.ModeConfiguration},
			{Pattern: loginPrompt, Mode: console.ModeLoggedOut},
		},
		PasswordPrompt: password,
		DisablePaging:  "set terminal length 0",
		EnterConfig:    "configure",
		ExitConfig:     "exit",
		ExitDiscard:    "exit discard",
		Commit:         "commit",
		Save:           "save",
		SaveInConfig:   true,
		LogoutControl:  console.EndOfTransmission,
		Display: map[console.Format]string{
			console.FormatPlain:    "show",
			console.FormatCommands: "show | commands",
			console.FormatJSON:     "show | json",
		},
		Extraction:     console.ExtractionDelimited,
		LeadingTrim:    3,
		TrailingTrim:   4,
		TrailerMarkers: []*regexp.Regexp{editMarker},
		Timeout:        3 * time.Second,
		MaxTimeouts:    console.DefaultMaxTimeouts,
		Interrupt:      console.Interrupt,
		LineEnding:     "\n",
	}
}

func (p *Plugin) Defaults() interact.InteractDefaults {
	return interact.InteractDefaults{
		Timeout:    180,
		Retries:    1,
		Concurrent: 8,
	}
}

// TransformCommands 去掉空行和 # 注释行
func (p *Plugin) TransformCommands(in interact.CommandTransformInput) interact.CommandTransformOutput {
	return interact.CommandTransformOutput{Commands: interact.StripCommands(in.Commands, "#")}
}

func init() {
	interact.Register(Name, &Plugin{})
}
