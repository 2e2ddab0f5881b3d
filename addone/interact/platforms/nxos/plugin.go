package nxos

import (
	"regexp"
	"time"

	"github.com/sshcollectorpro/consolepilot/addone/interact"
	"github.com/sshcollectorpro/consolepilot/pkg/console"
)

// Name 平台名称
const Name = "nxos"

var (
	poapPrompt   = regexp.MustCompile(`\(yes/skip/no\)\[no\]: `)
	operPrompt   = regexp.MustCompile(`\w+\# $`)
	configPrompt = regexp.MustCompile(`\w+\(.*\)\# $`)
	loginPrompt  = regexp.MustCompile(` login: $`)
	password     = regexp.MustCompile(`Password:`)
)

// Plugin NX-OS 控制台插件
type Plugin struct{}

func (p *Plugin) Name() string { return Name }

// Profile NX-OS 的提示符与命令
// 配置即时生效，没有 commit；保存在退出配置模式后执行
func (p *Plugin) Profile() console.Profile {
	return console.Profile{
		Name: Name,
		Prompts: []console.PromptRule{
			{Pattern: poapPrompt, Mode: console.ModeProvisioning},
			{Pattern: operPrompt, Mode: console.ModeOperational},
			{Pattern: configPrompt, Mode: console.ModeConfiguration},
			{Pattern: loginPrompt, Mode: console.ModeLoggedOut},
		},
		PasswordPrompt:   password,
		DisablePaging:    "terminal length 0",
		EnterConfig:      "configure",
		ExitConfig:       "exit",
		ExitDiscard:      "exit",
		Save:             "copy running-config startup-config",
		LogoutCommand:    "exit",
		ProvisioningSkip: "skip",
		Display: map[console.Format]string{
			console.FormatPlain: "show running-config",
		},
		Extraction:   console.ExtractionDelimited,
		LeadingTrim:  4,
		TrailingTrim: 6,
		HeaderMarkers: []*regexp.Regexp{
			regexp.MustCompile(`^!Command: `),
			regexp.MustCompile(`^!Running configuration last done at: `),
			regexp.MustCompile(`^!Time: `),
		},
		Timeout:     5 * time.Second,
		MaxTimeouts: console.DefaultMaxTimeouts,
		Interrupt:   console.Interrupt,
		LineEnding:  "\n",
	}
}

func (p *Plugin) Defaults() interact.InteractDefaults {
	return interact.InteractDefaults{
		Timeout:    300,
		Retries:    1,
		Concurrent: 4,
	}
}

// TransformCommands 去掉空行和 ! 注释行
func (p *Plugin) TransformCommands(in interact.CommandTransformInput) interact.CommandTransformOutput {
	return interact.CommandTransformOutput{Commands: interact.StripCommands(in.Commands, "!")}
}

func init() {
	interact.Register(Name, &Plugin{})
}
