package interact

import (
	"sort"

	"github.com/sshcollectorpro/consolepilot/pkg/console"
)

// ProfileInfo 平台设备描述的可序列化视图
type ProfileInfo struct {
	Name         string            `json:"name" yaml:"name"`
	Prompts      map[string]string `json:"prompts" yaml:"prompts"`
	Formats      []string          `json:"formats" yaml:"formats"`
	Display      map[string]string `json:"display" yaml:"display"`
	EnterConfig  string            `json:"enter_config" yaml:"enter_config"`
	ExitConfig   string            `json:"exit_config" yaml:"exit_config"`
	Commit       string            `json:"commit,omitempty" yaml:"commit,omitempty"`
	Save         string            `json:"save,omitempty" yaml:"save,omitempty"`
	SaveInConfig bool              `json:"save_in_config" yaml:"save_in_config"`
	Extraction   string            `json:"extraction" yaml:"extraction"`
	LeadingTrim  int               `json:"leading_trim" yaml:"leading_trim"`
	TrailingTrim int               `json:"trailing_trim" yaml:"trailing_trim"`
	Timeout      string            `json:"timeout" yaml:"timeout"`
	MaxTimeouts  int               `json:"max_timeouts" yaml:"max_timeouts"`
	Charset      string            `json:"charset,omitempty" yaml:"charset,omitempty"`
	Defaults     InteractDefaults  `json:"defaults" yaml:"defaults"`
	Provisioning bool              `json:"provisioning" yaml:"provisioning"`
}

// Describe 解析平台并返回覆盖后的描述
func Describe(name string, o console.Overrides) (ProfileInfo, error) {
	p, err := Resolve(name, o)
	if err != nil {
		return ProfileInfo{}, err
	}
	plugin, _ := Get(name)
	info := ProfileInfo{
		Name:         p.Name,
		Prompts:      map[string]string{},
		Display:      map[string]string{},
		EnterConfig:  p.EnterConfig,
		ExitConfig:   p.ExitConfig,
		Commit:       p.Commit,
		Save:         p.Save,
		SaveInConfig: p.SaveInConfig,
		Extraction:   string(p.Extraction),
		LeadingTrim:  p.LeadingTrim,
		TrailingTrim: p.TrailingTrim,
		Timeout:      p.Timeout.String(),
		MaxTimeouts:  p.MaxTimeouts,
		Charset:      p.Charset,
		Defaults:     plugin.Defaults(),
		Provisioning: p.ProvisioningSkip != "",
	}
	for _, r := range p.Prompts {
		info.Prompts[r.Mode.String()] = r.Pattern.String()
	}
	for _, f := range p.Formats() {
		cmd, _ := p.DisplayCommand(f)
		info.Formats = append(info.Formats, string(f))
		info.Display[string(f)] = cmd
	}
	return info, nil
}

// DescribeAll 描述全部已注册平台，overrides 按平台名取覆盖项
func DescribeAll(overrides func(name string) console.Overrides) ([]ProfileInfo, error) {
	names := Names()
	sort.Strings(names)
	out := make([]ProfileInfo, 0, len(names))
	for _, name := range names {
		var o console.Overrides
		if overrides != nil {
			o = overrides(name)
		}
		info, err := Describe(name, o)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}
