package console

import (
	"fmt"
	"regexp"
	"time"
)

// Format 配置展示格式
type Format string

const (
	FormatPlain    Format = "plain"
	FormatCommands Format = "commands"
	FormatJSON     Format = "json"
)

// Extraction 配置提取策略
type Extraction string

const (
	// ExtractionDelimited 以命令回显行和随后识别到的提示符行为边界
	ExtractionDelimited Extraction = "delimited"
	// ExtractionFixed 按固定的首尾行数裁剪
	ExtractionFixed Extraction = "fixed"
)

const (
	// DefaultMaxTimeouts 连续静默超时的上限
	DefaultMaxTimeouts = 10
	// Interrupt Ctrl-C
	Interrupt byte = 0x03
	// EndOfTransmission Ctrl-D
	EndOfTransmission byte = 0x04
)

// PromptRule 提示符到模式的映射
type PromptRule struct {
	Pattern *regexp.Regexp
	Mode    Mode
}

// Profile 设备类型的全部差异数据
// 按值传递，会话持有自己的副本，创建后不再修改
type Profile struct {
	Name string

	// Prompts 按优先级排列
	Prompts        []PromptRule
	PasswordPrompt *regexp.Regexp

	DisablePaging string
	EnterConfig   string
	ExitConfig    string
	ExitDiscard   string
	// Commit 为空表示设备即时生效
	Commit string
	Save   string
	// SaveInConfig 为 true 时在配置模式内保存，否则退出后保存
	SaveInConfig bool

	// LogoutCommand 与 LogoutControl 二选一，控制字符优先
	LogoutCommand string
	LogoutControl byte

	// ProvisioningSkip 在 ModeProvisioning 下应答的文本
	ProvisioningSkip string

	Display map[Format]string

	Extraction   Extraction
	LeadingTrim  int
	TrailingTrim int
	// HeaderMarkers/TrailerMarkers 在分隔提取时从首尾剔除的行
	HeaderMarkers  []*regexp.Regexp
	TrailerMarkers []*regexp.Regexp

	Timeout     time.Duration
	MaxTimeouts int
	Interrupt   byte
	LineEnding  string
	Charset     string
}

// Patterns 提示符正则列表，顺序与 Prompts 一致
func (p Profile) Patterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(p.Prompts))
	for i, r := range p.Prompts {
		out[i] = r.Pattern
	}
	return out
}

// DisplayCommand 返回指定格式的展示命令
func (p Profile) DisplayCommand(f Format) (string, bool) {
	cmd, ok := p.Display[f]
	return cmd, ok && cmd != ""
}

// Formats 支持的展示格式
func (p Profile) Formats() []Format {
	var out []Format
	for _, f := range []Format{FormatPlain, FormatCommands, FormatJSON} {
		if _, ok := p.DisplayCommand(f); ok {
			out = append(out, f)
		}
	}
	return out
}

// Validate 检查必填字段
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is empty")
	}
	if len(p.Prompts) == 0 {
		return fmt.Errorf("profile %s: no prompt rules", p.Name)
	}
	for i, r := range p.Prompts {
		if r.Pattern == nil {
			return fmt.Errorf("profile %s: prompt rule %d has no pattern", p.Name, i)
		}
	}
	if p.PasswordPrompt == nil {
		return fmt.Errorf("profile %s: password prompt is required", p.Name)
	}
	if p.EnterConfig == "" || p.ExitConfig == "" {
		return fmt.Errorf("profile %s: configuration commands are required", p.Name)
	}
	if p.LogoutCommand == "" && p.LogoutControl == 0 {
		return fmt.Errorf("profile %s: logout action is required", p.Name)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("profile %s: timeout must be positive", p.Name)
	}
	if p.MaxTimeouts <= 0 {
		return fmt.Errorf("profile %s: max timeouts must be positive", p.Name)
	}
	switch p.Extraction {
	case ExtractionDelimited, ExtractionFixed:
	default:
		return fmt.Errorf("profile %s: unknown extraction %q", p.Name, p.Extraction)
	}
	return nil
}

// WithDefaults 补全可省略字段
func (p Profile) WithDefaults() Profile {
	if p.MaxTimeouts <= 0 {
		p.MaxTimeouts = DefaultMaxTimeouts
	}
	if p.Interrupt == 0 {
		p.Interrupt = Interrupt
	}
	if p.LineEnding == "" {
		p.LineEnding = "\n"
	}
	if p.Extraction == "" {
		p.Extraction = ExtractionDelimited
	}
	if p.ExitDiscard == "" {
		p.ExitDiscard = p.ExitConfig
	}
	return p
}

// Overrides 来自配置文件的单项覆盖，零值表示不覆盖
type Overrides struct {
	Timeout      time.Duration
	MaxTimeouts  int
	LineEnding   string
	Charset      string
	Extraction   string
	LeadingTrim  *int
	TrailingTrim *int
}

// Apply 生成覆盖后的新 Profile，原值不变
func (p Profile) Apply(o Overrides) Profile {
	if o.Timeout > 0 {
		p.Timeout = o.Timeout
	}
	if o.MaxTimeouts > 0 {
		p.MaxTimeouts = o.MaxTimeouts
	}
	if o.LineEnding != "" {
		p.LineEnding = o.LineEnding
	}
	if o.Charset != "" {
		p.Charset = o.Charset
	}
	if o.Extraction != "" {
		p.Extraction = Extraction(o.Extraction)
	}
	if o.LeadingTrim != nil {
		p.LeadingTrim = *o.LeadingTrim
	}
	if o.TrailingTrim != nil {
		p.TrailingTrim = *o.TrailingTrim
	}
	return p
}
